package sshutil

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"

	"github.com/fleetdeck/fleetdeck/internal/config"
	"github.com/fleetdeck/fleetdeck/internal/creds"
)

func testKeyPEM(t *testing.T) []byte {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	block, err := ssh.MarshalPrivateKey(priv, "")
	require.NoError(t, err)
	return pem.EncodeToMemory(block)
}

func TestAuthMethodsNilBundle(t *testing.T) {
	assert.Empty(t, AuthMethods(nil))
}

func TestAuthMethodsEmptyBundle(t *testing.T) {
	assert.Empty(t, AuthMethods(&creds.Bundle{}))
}

func TestAuthMethodsPasswordOnly(t *testing.T) {
	methods := AuthMethods(&creds.Bundle{Password: "hunter2"})
	assert.Len(t, methods, 1)
}

func TestAuthMethodsKeyAndPassword(t *testing.T) {
	methods := AuthMethods(&creds.Bundle{
		PrivateKey: testKeyPEM(t),
		Password:   "hunter2",
	})
	// Key first, password last.
	assert.Len(t, methods, 2)
}

func TestAuthMethodsSkipsGarbageKey(t *testing.T) {
	methods := AuthMethods(&creds.Bundle{
		PrivateKey: []byte("not a key"),
		Password:   "hunter2",
	})
	// The unusable key is dropped; password auth survives.
	assert.Len(t, methods, 1)
}

func TestAuthMethodsAgentWithoutSocket(t *testing.T) {
	t.Setenv("SSH_AUTH_SOCK", "")
	methods := AuthMethods(&creds.Bundle{UseAgent: true})
	assert.Empty(t, methods)
}

func TestParseKeyWithWrongPassphrase(t *testing.T) {
	_, err := parseKey(testKeyPEM(t), "wrong")
	assert.Error(t, err)
}

func TestPortFor(t *testing.T) {
	assert.Equal(t, 2222, portFor(config.Endpoint{Host: "h", Port: 2222}))
	assert.Equal(t, 22, portFor(config.Endpoint{Host: "host-not-in-ssh-config.invalid"}))
}

func TestEndpointLabel(t *testing.T) {
	label := EndpointLabel(config.Endpoint{Host: "web1.example.com", Port: 2222, User: "deploy"})
	assert.Equal(t, "deploy@web1.example.com:2222", label)
}

func TestResultCombined(t *testing.T) {
	assert.Equal(t, "out\nerr", Result{Stdout: "out", Stderr: "err"}.Combined())
	assert.Equal(t, "out", Result{Stdout: "out"}.Combined())
	assert.Equal(t, "", Result{}.Combined())
}
