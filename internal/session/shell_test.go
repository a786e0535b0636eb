package session

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetdeck/fleetdeck/internal/config"
	"github.com/fleetdeck/fleetdeck/internal/creds"
	"github.com/fleetdeck/fleetdeck/internal/logging"
	"github.com/fleetdeck/fleetdeck/internal/suggest"
	"github.com/fleetdeck/fleetdeck/pkg/sshutil"
)

const sessionInventory = `
credentials:
  - id: c1
    password: pw
servers:
  - id: web1
    name: Web 1
    ssh: {host: web1, user: u, credentialId: c1}
  - id: orphan
    name: No credential
    ssh: {host: orphan, user: u}
`

// fakeChannel is an in-memory session.Channel driven by tests.
type fakeChannel struct {
	incoming chan ClientMessage
	done     chan struct{}

	mu         sync.Mutex
	sent       []ServerMessage
	closeCount int
	status     Status
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{
		incoming: make(chan ClientMessage, 16),
		done:     make(chan struct{}),
	}
}

func (c *fakeChannel) Read() (ClientMessage, error) {
	select {
	case msg := <-c.incoming:
		return msg, nil
	case <-c.done:
		return ClientMessage{}, errors.New("channel closed")
	}
}

func (c *fakeChannel) Send(msg ServerMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, msg)
	return nil
}

func (c *fakeChannel) Close(status Status) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeCount++
	if c.closeCount == 1 {
		c.status = status
		close(c.done)
	}
	return nil
}

func (c *fakeChannel) messages() []ServerMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ServerMessage, len(c.sent))
	copy(out, c.sent)
	return out
}

func (c *fakeChannel) closes() (int, Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeCount, c.status
}

// fakeShell records writes and resizes; Wait blocks until released. With
// execSlow set, Exec hangs until its context expires.
type fakeShell struct {
	mu       sync.Mutex
	written  []byte
	resizes  [][2]int
	closed   int
	waitCh   chan struct{}
	execOut  sshutil.Result
	execSlow bool
}

func newFakeShell() *fakeShell {
	return &fakeShell{waitCh: make(chan struct{})}
}

func (s *fakeShell) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.written = append(s.written, p...)
	return len(p), nil
}

func (s *fakeShell) Resize(cols, rows int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resizes = append(s.resizes, [2]int{cols, rows})
	return nil
}

func (s *fakeShell) Exec(ctx context.Context, cmd string) (sshutil.Result, error) {
	if s.execSlow {
		<-ctx.Done()
		return sshutil.Result{}, ctx.Err()
	}
	return s.execOut, nil
}

func (s *fakeShell) Wait() error {
	<-s.waitCh
	return nil
}

func (s *fakeShell) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	if s.closed == 1 {
		close(s.waitCh)
	}
}

func (s *fakeShell) input() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return string(s.written)
}

func newTestManager(t *testing.T, sc *suggest.Client) (*Manager, *fakeShell) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "inventory.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sessionInventory), 0o600))

	store, err := config.NewStore(path, logging.Nop())
	require.NoError(t, err)

	m := NewManager(store, creds.NewResolver(store, logging.Nop()), sc, logging.Nop())

	shell := newFakeShell()
	m.openShell = func(srv *config.Server, bundle *creds.Bundle, cols, rows int, out, errOut io.Writer) (shellHandle, error) {
		return shell, nil
	}
	return m, shell
}

func runShellAsync(m *Manager, ch *fakeChannel, serverID string) chan struct{} {
	done := make(chan struct{})
	go func() {
		m.RunShell(context.Background(), ch, serverID, 120, 40)
		close(done)
	}()
	return done
}

func waitDone(t *testing.T, done chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("session did not finish")
	}
}

func TestRunShellUnknownServer(t *testing.T) {
	m, _ := newTestManager(t, nil)
	m.openShell = func(*config.Server, *creds.Bundle, int, int, io.Writer, io.Writer) (shellHandle, error) {
		t.Fatal("openShell must not be called for an unknown server")
		return nil, nil
	}

	ch := newFakeChannel()
	m.RunShell(context.Background(), ch, "ghost", 80, 24)

	msgs := ch.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, TypeFatal, msgs[0].Type)
	assert.Contains(t, msgs[0].Error, "unknown server: ghost")

	count, status := ch.closes()
	assert.Equal(t, 1, count)
	assert.Equal(t, StatusBadRequest, status)
}

func TestRunShellCredentialFailure(t *testing.T) {
	m, _ := newTestManager(t, nil)

	ch := newFakeChannel()
	m.RunShell(context.Background(), ch, "orphan", 80, 24)

	msgs := ch.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, TypeFatal, msgs[0].Type)
	assert.Contains(t, msgs[0].Error, "credential error")

	_, status := ch.closes()
	assert.Equal(t, StatusInternal, status)
}

func TestRunShellOpenFailure(t *testing.T) {
	m, _ := newTestManager(t, nil)
	m.openShell = func(*config.Server, *creds.Bundle, int, int, io.Writer, io.Writer) (shellHandle, error) {
		return nil, errors.New("dial tcp: refused")
	}

	ch := newFakeChannel()
	m.RunShell(context.Background(), ch, "web1", 80, 24)

	msgs := ch.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, TypeFatal, msgs[0].Type)
	_, status := ch.closes()
	assert.Equal(t, StatusInternal, status)
}

func TestRunShellRelaysInputAndOutput(t *testing.T) {
	m, shell := newTestManager(t, nil)

	var remoteOut, remoteErr io.Writer
	m.openShell = func(srv *config.Server, bundle *creds.Bundle, cols, rows int, out, errOut io.Writer) (shellHandle, error) {
		remoteOut = out
		remoteErr = errOut
		return shell, nil
	}

	ch := newFakeChannel()
	done := runShellAsync(m, ch, "web1")

	ch.incoming <- ClientMessage{Type: TypeData, Data: "ls -la\r"}
	ch.incoming <- ClientMessage{Type: TypeResize, Cols: 200, Rows: 50}

	require.Eventually(t, func() bool {
		return shell.input() == "ls -la\r"
	}, 2*time.Second, 10*time.Millisecond)

	// Remote stdout comes back as data frames, stderr as err frames.
	_, err := remoteOut.Write([]byte("total 42\r\n"))
	require.NoError(t, err)
	_, err = remoteErr.Write([]byte("ls: denied\r\n"))
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		var gotOut, gotErr bool
		for _, msg := range ch.messages() {
			if msg.Type == TypeData && msg.Data == "total 42\r\n" {
				gotOut = true
			}
			if msg.Type == TypeErr && msg.Data == "ls: denied\r\n" {
				gotErr = true
			}
		}
		return gotOut && gotErr
	}, 2*time.Second, 10*time.Millisecond)

	ch.incoming <- ClientMessage{Type: TypeClose}
	waitDone(t, done)

	shell.mu.Lock()
	resizes := shell.resizes
	shell.mu.Unlock()
	assert.Contains(t, resizes, [2]int{200, 50})
}

func TestRunShellTeardownIsIdempotent(t *testing.T) {
	m, shell := newTestManager(t, nil)

	ch := newFakeChannel()
	done := runShellAsync(m, ch, "web1")

	// Remote exit and a client close racing must still close everything once.
	shell.Close()
	ch.incoming <- ClientMessage{Type: TypeClose}
	waitDone(t, done)

	// The channel is closed exactly once even though both paths raced.
	count, status := ch.closes()
	assert.Equal(t, 1, count)
	assert.Equal(t, StatusNormal, status)
}

func TestAIQueryWithoutClient(t *testing.T) {
	m, shell := newTestManager(t, nil)

	ch := newFakeChannel()
	done := runShellAsync(m, ch, "web1")

	ch.incoming <- ClientMessage{Type: TypeAIQuery, Prompt: "free disk space"}

	require.Eventually(t, func() bool {
		for _, msg := range ch.messages() {
			if msg.Type == TypeErr {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)

	// The session stays usable after a failed query.
	ch.incoming <- ClientMessage{Type: TypeData, Data: "echo hi\r"}
	require.Eventually(t, func() bool {
		return shell.input() == "echo hi\r"
	}, 2*time.Second, 10*time.Millisecond)

	ch.incoming <- ClientMessage{Type: TypeClose}
	waitDone(t, done)
}

func TestAIQueryTypesSuggestion(t *testing.T) {
	t.Setenv("FLEETDECK_KNOWLEDGE", filepath.Join(t.TempDir(), "missing.md"))

	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("{\"success\": true, \"response\": \"```bash\\ndf -h /\\n```\"}"))
	}))
	defer gateway.Close()

	sc := suggest.New(suggest.Config{Endpoint: gateway.URL, Model: "m", Provider: "p"})
	m, shell := newTestManager(t, sc)

	ch := newFakeChannel()
	done := runShellAsync(m, ch, "web1")

	ch.incoming <- ClientMessage{Type: TypeAIQuery, Prompt: "how full is the disk"}

	// The fence is stripped and the command is typed, ready to submit.
	require.Eventually(t, func() bool {
		return shell.input() == "df -h /\r"
	}, 2*time.Second, 10*time.Millisecond)

	for _, msg := range ch.messages() {
		assert.NotEqual(t, TypeErr, msg.Type)
		assert.NotEqual(t, TypeFatal, msg.Type)
	}

	ch.incoming <- ClientMessage{Type: TypeClose}
	waitDone(t, done)
}

func TestAIQueryGatewayFailure(t *testing.T) {
	t.Setenv("FLEETDECK_KNOWLEDGE", filepath.Join(t.TempDir(), "missing.md"))

	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success": false, "error": "model not loaded"}`))
	}))
	defer gateway.Close()

	sc := suggest.New(suggest.Config{Endpoint: gateway.URL, Model: "m", Provider: "p"})
	m, shell := newTestManager(t, sc)

	ch := newFakeChannel()
	done := runShellAsync(m, ch, "web1")

	ch.incoming <- ClientMessage{Type: TypeAIQuery, Prompt: "anything"}

	require.Eventually(t, func() bool {
		msgs := ch.messages()
		return len(msgs) == 1 && msgs[0].Type == TypeErr
	}, 2*time.Second, 10*time.Millisecond)
	assert.Contains(t, ch.messages()[0].Data, "model not loaded")
	assert.Empty(t, shell.input())

	// On the wire the err text rides in the data field.
	raw, err := json.Marshal(ch.messages()[0])
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"data":`)
	assert.NotContains(t, string(raw), `"error":`)

	ch.incoming <- ClientMessage{Type: TypeClose}
	waitDone(t, done)
}

func TestAIQuerySlowKnowledgeReadKeepsSession(t *testing.T) {
	t.Setenv("FLEETDECK_KNOWLEDGE", filepath.Join(t.TempDir(), "missing.md"))

	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success": true, "response": "uptime"}`))
	}))
	defer gateway.Close()

	sc := suggest.New(suggest.Config{Endpoint: gateway.URL, Model: "m", Provider: "p"})
	m, shell := newTestManager(t, sc)
	shell.execSlow = true

	ch := newFakeChannel()
	done := runShellAsync(m, ch, "web1")

	// The knowledge read hangs until its timeout; the suggestion still
	// arrives and the shell keeps working afterwards.
	ch.incoming <- ClientMessage{Type: TypeAIQuery, Prompt: "load average"}
	require.Eventually(t, func() bool {
		return shell.input() == "uptime\r"
	}, knowledgeTimeout+5*time.Second, 20*time.Millisecond)

	ch.incoming <- ClientMessage{Type: TypeData, Data: "w\r"}
	require.Eventually(t, func() bool {
		return shell.input() == "uptime\rw\r"
	}, 2*time.Second, 10*time.Millisecond)

	ch.incoming <- ClientMessage{Type: TypeClose}
	waitDone(t, done)
}
