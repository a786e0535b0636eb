package session

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fleetdeck/fleetdeck/internal/config"
	"github.com/fleetdeck/fleetdeck/internal/creds"
	"github.com/fleetdeck/fleetdeck/internal/metrics"
	"github.com/fleetdeck/fleetdeck/pkg/sshutil"
)

// defaultTailLines is how much history a tail session starts with.
const defaultTailLines = 200

// TailCommand builds the remote command for a tail session. A missing file
// produces a single explanatory line instead of a stream of tail errors.
func TailCommand(path string, lines int) string {
	q := shellQuote(path)
	return fmt.Sprintf("test -f %s && tail -n %d -F %s || echo 'File not found: %s'",
		q, lines, q, strings.ReplaceAll(path, "'", ""))
}

// RunTail streams a remote file over the channel until the client closes or
// the remote command exits.
func (m *Manager) RunTail(ctx context.Context, ch Channel, serverID, path string, lines int) {
	id := uuid.NewString()
	log := m.log.With(zap.String("session", id),
		zap.String("server", serverID), zap.String("path", path))

	metrics.SessionsTotal.WithLabelValues("tail").Inc()
	metrics.ActiveSessions.WithLabelValues("tail").Inc()
	defer metrics.ActiveSessions.WithLabelValues("tail").Dec()

	if lines <= 0 {
		lines = defaultTailLines
	}
	if strings.TrimSpace(path) == "" {
		fatal(ch, StatusBadRequest, "missing file path")
		return
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

	handle, err := m.openTail(srv, bundle, TailCommand(path, lines),
		streamWriter{ch, TypeData}, streamWriter{ch, TypeErr})
	if err != nil {
		log.Warn("tail open failed", zap.Error(err))
		fatal(ch, StatusInternal, "connection error: "+err.Error())
		return
	}

	var once sync.Once
	teardown := func(status Status) {
		once.Do(func() {
			handle.Close()
			_ = ch.Close(status)
			log.Info("tail session closed")
		})
	}
	defer teardown(StatusNormal)
	log.Info("tail session opened", zap.Int("lines", lines))

	go func() {
		_ = handle.Wait()
		teardown(StatusNormal)
	}()

	for {
		msg, err := ch.Read()
		if err != nil {
			return
		}
		if msg.Type == TypeClose {
			return
		}
		// Tail sessions are read-only; everything else is ignored.
	}
}

// sshTail is the production tailHandle: one SSH connection running tail -F.
type sshTail struct {
	client *sshutil.Client
	stream *sshutil.ExecStream
	once   sync.Once
}

func openTailSSH(srv *config.Server, bundle *creds.Bundle, cmd string, out, errOut io.Writer) (tailHandle, error) {
	client, err := sshutil.Dial(srv.SSH, bundle, dialTimeout)
	if err != nil {
		return nil, err
	}
	stream, err := client.Stream(cmd, out, errOut)
	if err != nil {
		client.Close()
		return nil, err
	}
	return &sshTail{client: client, stream: stream}, nil
}

func (t *sshTail) Wait() error { return t.stream.Wait() }

func (t *sshTail) Close() {
	t.once.Do(func() {
		t.stream.Close()
		_ = t.client.Close()
	})
}

// shellQuote single-quotes a value for the remote shell.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
