package session

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fleetdeck/fleetdeck/internal/config"
	"github.com/fleetdeck/fleetdeck/internal/creds"
	"github.com/fleetdeck/fleetdeck/internal/metrics"
	"github.com/fleetdeck/fleetdeck/internal/suggest"
	"github.com/fleetdeck/fleetdeck/pkg/sshutil"
)

const (
	defaultCols = 80
	defaultRows = 24

	dialTimeout = 10 * time.Second
)

// shellHandle is the session-side view of a live remote shell. The
// production implementation wraps an SSH connection; tests fake it.
type shellHandle interface {
	Write(p []byte) (int, error)
	Resize(cols, rows int) error
	Exec(ctx context.Context, cmd string) (sshutil.Result, error)
	Wait() error
	Close()
}

// tailHandle is a running remote tail command.
type tailHandle interface {
	Wait() error
	Close()
}

// Manager opens and supervises remote sessions.
type Manager struct {
	store    *config.Store
	resolver *creds.Resolver
	suggest  *suggest.Client
	log      *zap.Logger

	// Dial hooks, overridable in tests. Remote stdout goes to out, stderr
	// to errOut.
	openShell func(srv *config.Server, bundle *creds.Bundle, cols, rows int, out, errOut io.Writer) (shellHandle, error)
	openTail  func(srv *config.Server, bundle *creds.Bundle, cmd string, out, errOut io.Writer) (tailHandle, error)
}

// NewManager wires a session manager to the inventory, credentials, and
// suggestion client. The suggestion client may be nil; ai_query frames then
// fail politely.
func NewManager(store *config.Store, resolver *creds.Resolver, sc *suggest.Client, log *zap.Logger) *Manager {
	return &Manager{
		store:     store,
		resolver:  resolver,
		suggest:   sc,
		log:       log,
		openShell: openShellSSH,
		openTail:  openTailSSH,
	}
}

// RunShell proxies an interactive shell over the channel until either side
// ends it. All failure paths close the channel exactly once with a status
// the transport can translate.
func (m *Manager) RunShell(ctx context.Context, ch Channel, serverID string, cols, rows int) {
	id := uuid.NewString()
	log := m.log.With(zap.String("session", id), zap.String("server", serverID))

	metrics.SessionsTotal.WithLabelValues("shell").Inc()
	metrics.ActiveSessions.WithLabelValues("shell").Inc()
	defer metrics.ActiveSessions.WithLabelValues("shell").Dec()

	if cols <= 0 {
		cols = defaultCols
	}
	if rows <= 0 {
		rows = defaultRows
	}

	srv := m.store.Current().FindServer(serverID)
	if srv == nil {
		fatal(ch, StatusBadRequest, "unknown server: "+serverID)
		return
	}

	bundle, err := m.resolver.Resolve(srv.SSH.CredentialID)
	if err != nil {
		log.Warn("credential resolution failed", zap.Error(err))
		fatal(ch, StatusInternal, "credential error: "+err.Error())
		return
	}

	handle, err := m.openShell(srv, bundle, cols, rows,
		streamWriter{ch, TypeData}, streamWriter{ch, TypeErr})
	if err != nil {
		log.Warn("shell open failed", zap.Error(err))
		fatal(ch, StatusInternal, "connection error: "+err.Error())
		return
	}

	var once sync.Once
	teardown := func(status Status) {
		once.Do(func() {
			handle.Close()
			_ = ch.Close(status)
			log.Info("shell session closed")
		})
	}
	defer teardown(StatusNormal)
	log.Info("shell session opened", zap.Int("cols", cols), zap.Int("rows", rows))

	// The remote shell exiting on its own ends the session too.
	go func() {
		_ = handle.Wait()
		teardown(StatusNormal)
	}()

	for {
		msg, err := ch.Read()
		if err != nil {
			return
		}
		switch msg.Type {
		case TypeData:
			if _, err := handle.Write([]byte(msg.Data)); err != nil {
				return
			}
		case TypeResize:
			if msg.Cols > 0 && msg.Rows > 0 {
				if err := handle.Resize(msg.Cols, msg.Rows); err != nil {
					log.Debug("resize failed", zap.Error(err))
				}
			}
		case TypeAIQuery:
			m.handleSuggestion(ctx, ch, handle, msg.Prompt)
		case TypeClose:
			return
		default:
			log.Debug("ignoring unknown frame", zap.String("type", msg.Type))
		}
	}
}

// handleSuggestion resolves an ai_query frame: ask the gateway for one
// command and type it into the shell, ready for the operator to hit enter.
// Failures produce a single err frame and the session continues.
func (m *Manager) handleSuggestion(ctx context.Context, ch Channel, handle shellHandle, prompt string) {
	if m.suggest == nil {
		_ = ch.Send(ServerMessage{Type: TypeErr, Data: "suggestions are not configured"})
		return
	}
	knowledge := gatherKnowledge(ctx, execAdapter{handle})
	command, err := m.suggest.Suggest(ctx, suggest.PromptFor(prompt), knowledge)
	if err != nil {
		_ = ch.Send(ServerMessage{Type: TypeErr, Data: "suggestion failed: " + err.Error()})
		return
	}
	if _, err := handle.Write([]byte(command + "\r")); err != nil {
		_ = ch.Send(ServerMessage{Type: TypeErr, Data: "could not type suggestion: " + err.Error()})
	}
}

// fatal sends one fatal frame and closes the channel.
func fatal(ch Channel, status Status, msg string) {
	_ = ch.Send(ServerMessage{Type: TypeFatal, Error: msg})
	_ = ch.Close(status)
}

// streamWriter turns remote stream bytes into frames of a fixed type:
// stdout becomes data frames, stderr becomes err frames.
type streamWriter struct {
	ch  Channel
	typ string
}

func (w streamWriter) Write(p []byte) (int, error) {
	if err := w.ch.Send(ServerMessage{Type: w.typ, Data: string(p)}); err != nil {
		return 0, err
	}
	return len(p), nil
}

// execAdapter lets gatherKnowledge run against a shell handle.
type execAdapter struct {
	h shellHandle
}

func (a execAdapter) Exec(ctx context.Context, cmd string) (sshutil.Result, error) {
	return a.h.Exec(ctx, cmd)
}

// sshShell is the production shellHandle: one SSH connection carrying a PTY
// shell, closed as a unit.
type sshShell struct {
	client *sshutil.Client
	stream *sshutil.ShellStream
	once   sync.Once
}

func openShellSSH(srv *config.Server, bundle *creds.Bundle, cols, rows int, out, errOut io.Writer) (shellHandle, error) {
	client, err := sshutil.Dial(srv.SSH, bundle, dialTimeout)
	if err != nil {
		return nil, err
	}
	stream, err := client.Shell(cols, rows, out, errOut)
	if err != nil {
		client.Close()
		return nil, err
	}
	return &sshShell{client: client, stream: stream}, nil
}

func (s *sshShell) Write(p []byte) (int, error) { return s.stream.Write(p) }

func (s *sshShell) Resize(cols, rows int) error { return s.stream.Resize(cols, rows) }

func (s *sshShell) Exec(ctx context.Context, cmd string) (sshutil.Result, error) {
	return s.client.Exec(ctx, cmd)
}

func (s *sshShell) Wait() error { return s.stream.Wait() }

func (s *sshShell) Close() {
	s.once.Do(func() {
		s.stream.Close()
		_ = s.client.Close()
	})
}
