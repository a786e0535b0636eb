package server

import (
	"context"
	"net/http"
	"os"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/fleetdeck/fleetdeck/internal/config"
	"github.com/fleetdeck/fleetdeck/internal/creds"
	"github.com/fleetdeck/fleetdeck/internal/poller"
	"github.com/fleetdeck/fleetdeck/internal/session"
)

// Version is stamped at build time and reported in the OpenAPI document.
var Version = "dev"

// Server owns the HTTP surface of the panel.
type Server struct {
	cfg      Config
	store    *config.Store
	resolver *creds.Resolver
	snaps    *poller.SnapshotStore
	engine   *poller.Engine
	sessions *session.Manager
	log      *zap.Logger
	upgrader websocket.Upgrader

	http *http.Server
}

// New assembles the server. The engine may be nil (single-shot CLI mode);
// reload then skips the poll kick.
func New(cfg Config, store *config.Store, resolver *creds.Resolver,
	snaps *poller.SnapshotStore, engine *poller.Engine,
	sessions *session.Manager, log *zap.Logger) *Server {

	s := &Server{
		cfg:      cfg,
		store:    store,
		resolver: resolver,
		snaps:    snaps,
		engine:   engine,
		sessions: sessions,
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(cfg.AllowedOrigins),
		},
	}
	s.http = &http.Server{
		Addr:    cfg.Addr,
		Handler: s.handler(),
	}
	return s
}

// handler builds the full route tree: JSON API, websockets, metrics, and
// the static UI, with CORS applied to everything.
func (s *Server) handler() http.Handler {
	mux := http.NewServeMux()

	api := humago.New(mux, huma.DefaultConfig("fleetdeck", Version))
	s.RegisterAPI(api)

	mux.HandleFunc("/ws/terminal", s.handleTerminal)
	mux.HandleFunc("/ws/tail", s.handleTail)
	mux.HandleFunc("/ws/", s.handleUnknownWS)

	mux.Handle("/metrics", promhttp.Handler())

	if _, err := os.Stat(s.cfg.WebDir); err == nil {
		mux.Handle("/", http.FileServer(http.Dir(s.cfg.WebDir)))
	} else {
		s.log.Warn("web directory not found, UI disabled", zap.String("dir", s.cfg.WebDir))
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: false,
	})
	return c.Handler(mux)
}

// Handler exposes the route tree for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// ListenAndServe blocks until the listener fails or Shutdown is called.
func (s *Server) ListenAndServe() error {
	s.log.Info("http server listening", zap.String("addr", s.cfg.Addr))
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests up to the configured timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()
	return s.http.Shutdown(ctx)
}

// originChecker allows same-origin browsers plus the configured list. An
// empty list means any origin, matching a panel served behind a trusted
// reverse proxy.
func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
