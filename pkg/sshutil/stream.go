package sshutil

import (
	"io"
	"sync"

	"golang.org/x/crypto/ssh"

	"github.com/fleetdeck/fleetdeck/internal/errors"
)

// ShellStream is an interactive PTY shell on an existing connection.
// Remote output flows into the writers given to Shell; input goes through
// Write. Closing is idempotent from any state.
type ShellStream struct {
	session *ssh.Session
	stdin   io.WriteCloser
	once    sync.Once
}

// Shell opens an interactive shell with a PTY of the given size. Stdout and
// stderr from the remote are streamed into the provided writers; write order
// within each stream is preserved.
func (c *Client) Shell(cols, rows int, stdout, stderr io.Writer) (*ShellStream, error) {
	session, err := c.NewSession()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrConnection, "failed to open session")
	}

	modes := ssh.TerminalModes{
		ssh.ECHO:          1,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}
	if err := session.RequestPty("xterm-color", rows, cols, modes); err != nil {
		session.Close()
		return nil, errors.Wrap(err, errors.ErrConnection, "failed to allocate pty")
	}

	stdin, err := session.StdinPipe()
	if err != nil {
		session.Close()
		return nil, errors.Wrap(err, errors.ErrConnection, "failed to open stdin pipe")
	}
	session.Stdout = stdout
	session.Stderr = stderr

	if err := session.Shell(); err != nil {
		session.Close()
		return nil, errors.Wrap(err, errors.ErrConnection, "failed to start shell")
	}

	return &ShellStream{session: session, stdin: stdin}, nil
}

// Write sends input to the remote shell.
func (s *ShellStream) Write(p []byte) (int, error) {
	return s.stdin.Write(p)
}

// Resize adjusts the remote pseudo-terminal window.
func (s *ShellStream) Resize(cols, rows int) error {
	return s.session.WindowChange(rows, cols)
}

// CloseStdin ends the input stream without tearing down the connection,
// letting the remote shell exit on its own.
func (s *ShellStream) CloseStdin() error {
	return s.stdin.Close()
}

// Wait blocks until the remote side closes the stream.
func (s *ShellStream) Wait() error {
	return s.session.Wait()
}

// Close tears the stream down. Safe from any goroutine, any number of times.
func (s *ShellStream) Close() {
	s.once.Do(func() {
		_ = s.stdin.Close()
		_ = s.session.Close()
	})
}

// ExecStream is a long-running remote command (e.g. tail -F) whose output
// streams into caller-provided writers.
type ExecStream struct {
	session *ssh.Session
	once    sync.Once
}

// Stream starts cmd without a PTY and streams its stdout/stderr into the
// provided writers until the command exits or the stream is closed.
func (c *Client) Stream(cmd string, stdout, stderr io.Writer) (*ExecStream, error) {
	session, err := c.NewSession()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrConnection, "failed to open session")
	}
	session.Stdout = stdout
	session.Stderr = stderr

	if err := session.Start(cmd); err != nil {
		session.Close()
		return nil, errors.Wrap(err, errors.ErrConnection, "failed to start command: "+cmd)
	}
	return &ExecStream{session: session}, nil
}

// Wait blocks until the remote command exits.
func (s *ExecStream) Wait() error {
	return s.session.Wait()
}

// Close tears the stream down. Safe from any goroutine, any number of times.
func (s *ExecStream) Close() {
	s.once.Do(func() {
		_ = s.session.Close()
	})
}
