package server

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/fleetdeck/fleetdeck/internal/session"
)

const wsWriteTimeout = 10 * time.Second

// handleTerminal upgrades /ws/terminal?serverId=...&cols=...&rows=... into an
// interactive shell session.
func (s *Server) handleTerminal(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	q := r.URL.Query()
	serverID := q.Get("serverId")
	if serverID == "" {
		closeWith(conn, websocket.ClosePolicyViolation, "missing serverId")
		return
	}
	cols, _ := strconv.Atoi(q.Get("cols"))
	rows, _ := strconv.Atoi(q.Get("rows"))

	s.sessions.RunShell(r.Context(), newWSChannel(conn), serverID, cols, rows)
}

// handleTail upgrades /ws/tail?serverId=...&path=...&lines=... into a log
// follow session.
func (s *Server) handleTail(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	q := r.URL.Query()
	serverID := q.Get("serverId")
	path := q.Get("path")
	if serverID == "" || path == "" {
		closeWith(conn, websocket.ClosePolicyViolation, "missing serverId or path")
		return
	}
	lines, _ := strconv.Atoi(q.Get("lines"))

	s.sessions.RunTail(r.Context(), newWSChannel(conn), serverID, path, lines)
}

// handleUnknownWS rejects websocket paths that don't exist, with a proper
// close frame rather than a silent drop.
func (s *Server) handleUnknownWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	closeWith(conn, websocket.ClosePolicyViolation, "unknown websocket path: "+r.URL.Path)
}

func closeWith(conn *websocket.Conn, code int, reason string) {
	deadline := time.Now().Add(wsWriteTimeout)
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason), deadline)
	_ = conn.Close()
}

// wsChannel adapts a gorilla connection to session.Channel. Writes are
// serialized with a mutex; gorilla allows at most one concurrent writer.
type wsChannel struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func newWSChannel(conn *websocket.Conn) *wsChannel {
	return &wsChannel{conn: conn}
}

func (c *wsChannel) Read() (session.ClientMessage, error) {
	var msg session.ClientMessage
	err := c.conn.ReadJSON(&msg)
	return msg, err
}

func (c *wsChannel) Send(msg session.ServerMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return c.conn.WriteJSON(msg)
}

func (c *wsChannel) Close(status session.Status) error {
	code := websocket.CloseNormalClosure
	switch status {
	case session.StatusBadRequest:
		code = websocket.ClosePolicyViolation
	case session.StatusInternal:
		code = websocket.CloseInternalServerErr
	}

	c.mu.Lock()
	deadline := time.Now().Add(wsWriteTimeout)
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, ""), deadline)
	c.mu.Unlock()
	return c.conn.Close()
}
