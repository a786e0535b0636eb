package sshutil

import (
	"bytes"
	"context"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/fleetdeck/fleetdeck/internal/config"
	"github.com/fleetdeck/fleetdeck/internal/creds"
	"github.com/fleetdeck/fleetdeck/internal/errors"
)

// Result is the outcome of one remote command.
type Result struct {
	ExitCode int
	Signal   string
	Stdout   string
	Stderr   string
}

// Combined returns stdout and stderr joined, trimmed.
func (r Result) Combined() string {
	return strings.TrimSpace(r.Stdout + "\n" + r.Stderr)
}

// Exec runs one non-interactive command on the connection, accumulating
// stdout and stderr separately. The context bounds the whole operation: on
// expiry the session is killed and a TIMEOUT error returned, while the
// connection and any other sessions on it stay alive. A non-zero remote
// exit is not an error; it lands in Result.ExitCode.
func (c *Client) Exec(ctx context.Context, cmd string) (Result, error) {
	session, err := c.NewSession()
	if err != nil {
		return Result{}, errors.Wrap(err, errors.ErrConnection, "failed to open session")
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	done := make(chan error, 1)
	go func() {
		done <- session.Run(cmd)
	}()

	select {
	case <-ctx.Done():
		// Kill just this session to unblock the Run goroutine. An interactive
		// shell sharing the connection must survive a timed-out command.
		_ = session.Signal(ssh.SIGKILL)
		_ = session.Close()
		return Result{}, errors.Wrap(ctx.Err(), errors.ErrTimeout, "remote command timed out: "+cmd)
	case err := <-done:
		res := Result{
			Stdout: strings.TrimSpace(stdout.String()),
			Stderr: strings.TrimSpace(stderr.String()),
		}
		if err != nil {
			if exitErr, ok := err.(*ssh.ExitError); ok {
				res.ExitCode = exitErr.ExitStatus()
				res.Signal = exitErr.Signal()
				return res, nil
			}
			return res, errors.Wrap(err, errors.ErrConnection, "remote command failed: "+cmd)
		}
		return res, nil
	}
}

// ExecOnce dials, runs one command, and closes the connection. Every call is
// fully independent (connections are never reused or pooled), so concurrent
// calls against the same server do not interfere.
func ExecOnce(endpoint config.Endpoint, bundle *creds.Bundle, cmd string, timeout time.Duration) (Result, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	client, err := Dial(endpoint, bundle, timeout)
	if err != nil {
		return Result{}, err
	}
	defer client.Close()

	return client.Exec(ctx, cmd)
}
