// Package sshutil wraps golang.org/x/crypto/ssh with the connection and
// execution semantics fleetdeck needs: one authenticated connection per
// operation, explicit timeouts, and auth tried in key → agent → password
// priority order from a resolved credential bundle.
package sshutil

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/kevinburke/ssh_config"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"

	"github.com/fleetdeck/fleetdeck/internal/config"
	"github.com/fleetdeck/fleetdeck/internal/creds"
	"github.com/fleetdeck/fleetdeck/internal/errors"
)

// Client wraps an SSH connection with the endpoint it was dialed for.
type Client struct {
	*ssh.Client
	Address string // resolved host:port
}

// Dial opens one authenticated connection to the endpoint. Connection-level
// failures (DNS, refusal, handshake, auth) come back as CONNECTION errors
// with the underlying cause attached.
//
// Fleet hosts are configured by id in the inventory, not trusted via
// known_hosts, so host keys are not verified.
func Dial(endpoint config.Endpoint, bundle *creds.Bundle, timeout time.Duration) (*Client, error) {
	cfg, err := clientConfig(endpoint, bundle, timeout)
	if err != nil {
		return nil, err
	}

	address := net.JoinHostPort(endpoint.Host, strconv.Itoa(portFor(endpoint)))
	conn, err := net.DialTimeout("tcp", address, timeout)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrConnection, "can't reach "+address)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, address, cfg)
	if err != nil {
		conn.Close()
		return nil, errors.Wrap(err, errors.ErrConnection, "ssh handshake with "+address+" failed")
	}

	return &Client{
		Client:  ssh.NewClient(sshConn, chans, reqs),
		Address: address,
	}, nil
}

// Close closes the underlying connection. Safe to call more than once.
func (c *Client) Close() error {
	if c == nil || c.Client == nil {
		return nil
	}
	return c.Client.Close()
}

// clientConfig assembles auth methods from the bundle, key material first,
// then agent, then password. An endpoint with no user falls back to
// ~/.ssh/config and then $USER, mirroring plain ssh behavior.
func clientConfig(endpoint config.Endpoint, bundle *creds.Bundle, timeout time.Duration) (*ssh.ClientConfig, error) {
	methods := AuthMethods(bundle)
	if len(methods) == 0 {
		return nil, errors.Newf(errors.ErrConnection,
			"no auth methods available for %s (configure a key, agent, or password)", endpoint.Host)
	}

	user := endpoint.User
	if user == "" {
		user = ssh_config.Get(endpoint.Host, "User")
	}
	if user == "" {
		user = os.Getenv("USER")
	}

	return &ssh.ClientConfig{
		User:            user,
		Auth:            methods,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint:gosec // see Dial doc
		Timeout:         timeout,
	}, nil
}

// AuthMethods builds the ordered auth method list for a bundle:
// private key, then agent, then password. Unusable materials are skipped.
func AuthMethods(bundle *creds.Bundle) []ssh.AuthMethod {
	var methods []ssh.AuthMethod
	if bundle == nil {
		return methods
	}

	if len(bundle.PrivateKey) > 0 {
		if signer, err := parseKey(bundle.PrivateKey, bundle.Passphrase); err == nil {
			methods = append(methods, ssh.PublicKeys(signer))
		}
	}
	if bundle.UseAgent {
		if agentAuth := agentAuthMethod(); agentAuth != nil {
			methods = append(methods, agentAuth)
		}
	}
	if bundle.Password != "" {
		methods = append(methods, ssh.Password(bundle.Password))
	}
	return methods
}

func parseKey(key []byte, passphrase string) (ssh.Signer, error) {
	if passphrase != "" {
		return ssh.ParsePrivateKeyWithPassphrase(key, []byte(passphrase))
	}
	return ssh.ParsePrivateKey(key)
}

// agentAuthMethod connects to the SSH agent if one is reachable and has keys.
// Each call dials fresh: connections here are short-lived by design.
func agentAuthMethod() ssh.AuthMethod {
	socket := os.Getenv("SSH_AUTH_SOCK")
	if socket == "" {
		return nil
	}
	conn, err := net.Dial("unix", socket)
	if err != nil {
		return nil
	}
	ag := agent.NewClient(conn)
	signers, err := ag.Signers()
	if err != nil || len(signers) == 0 {
		conn.Close()
		return nil
	}
	return ssh.PublicKeysCallback(ag.Signers)
}

func portFor(endpoint config.Endpoint) int {
	if endpoint.Port > 0 {
		return endpoint.Port
	}
	if p := ssh_config.Get(endpoint.Host, "Port"); p != "" {
		if n, err := strconv.Atoi(p); err == nil && n > 0 {
			return n
		}
	}
	return 22
}

// KeyPathFallbacks lists the default key locations tried when a credential
// has no explicit key path, in the order plain ssh would try them.
func KeyPathFallbacks() []string {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	return []string{
		filepath.Join(home, ".ssh", "id_ed25519"),
		filepath.Join(home, ".ssh", "id_rsa"),
		filepath.Join(home, ".ssh", "id_ecdsa"),
	}
}

// EndpointLabel renders an endpoint for logs and error messages.
func EndpointLabel(endpoint config.Endpoint) string {
	return fmt.Sprintf("%s@%s:%d", endpoint.User, endpoint.Host, portFor(endpoint))
}
