// Package session drives interactive shell and log-tail sessions between a
// connected client and a fleet server. The transport is abstracted behind
// Channel so the websocket wiring lives with the HTTP server and tests can
// drive sessions with in-memory fakes.
package session

// Client message types.
const (
	// TypeData carries terminal input from the client.
	TypeData = "data"
	// TypeResize announces a new client terminal size.
	TypeResize = "resize"
	// TypeClose asks the server to end the session.
	TypeClose = "close"
	// TypeAIQuery asks for a command suggestion to be typed into the shell.
	TypeAIQuery = "ai_query"
	// TypeErr carries remote stderr output or a recoverable problem; the
	// session stays usable. The text travels in Data.
	TypeErr = "err"
	// TypeFatal reports an unrecoverable problem; the session is over.
	TypeFatal = "fatal"
)

// ClientMessage is one frame from the client.
type ClientMessage struct {
	Type   string `json:"type"`
	Data   string `json:"data,omitempty"`
	Cols   int    `json:"cols,omitempty"`
	Rows   int    `json:"rows,omitempty"`
	Prompt string `json:"prompt,omitempty"`
}

// ServerMessage is one frame to the client. Data carries stream output and
// err text; Error is only set on fatal frames.
type ServerMessage struct {
	Type  string `json:"type"`
	Data  string `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

// Status classifies how a session ended, for the transport to translate
// into its own close semantics.
type Status int

const (
	// StatusNormal is a clean end: client asked to close, or the remote
	// process exited.
	StatusNormal Status = iota
	// StatusBadRequest means the client asked for something that doesn't
	// exist or sent unusable parameters.
	StatusBadRequest
	// StatusInternal means the server side failed: credentials, dialing,
	// or the remote connection itself.
	StatusInternal
)

// Channel is a bidirectional message transport for one session. Send must
// be safe for concurrent use; Read is called from a single goroutine.
type Channel interface {
	Read() (ClientMessage, error)
	Send(ServerMessage) error
	Close(Status) error
}
