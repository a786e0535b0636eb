package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fleetdeck/fleetdeck/internal/config"
	"github.com/fleetdeck/fleetdeck/internal/creds"
	"github.com/fleetdeck/fleetdeck/internal/logging"
	"github.com/fleetdeck/fleetdeck/internal/poller"
	"github.com/fleetdeck/fleetdeck/internal/server"
	"github.com/fleetdeck/fleetdeck/internal/session"
	"github.com/fleetdeck/fleetdeck/internal/suggest"
)

var serveAddrFlag string

// serveCmd runs the full panel.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the panel: poller, API, websockets, UI",
	Long: `Start the fleetdeck panel.

Loads the inventory, begins polling, and serves the HTTP API, websocket
terminals, prometheus metrics, and the static web UI. The inventory file is
watched; edits are picked up automatically.

Examples:
  fleetdeck serve
  fleetdeck serve --inventory /etc/fleetdeck/inventory.yaml
  fleetdeck serve --addr :9090`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCommand()
	},
}

func serveCommand() error {
	log := logging.New("fleetdeck")
	defer log.Sync() //nolint:errcheck

	cfg, err := server.LoadConfig()
	if err != nil {
		return err
	}
	if serveAddrFlag != "" {
		cfg.Addr = serveAddrFlag
	}

	store, err := config.NewStore(inventoryPath(), log.Named("config"))
	if err != nil {
		return err
	}
	log.Info("inventory loaded", zap.String("path", store.Path()),
		zap.String("summary", config.Summary(store.Current())))

	resolver := creds.NewResolver(store, log.Named("creds"))
	snaps := poller.NewSnapshotStore()
	engine := poller.NewEngine(store, resolver, snaps, log.Named("poller"))
	store.OnReload(func(*config.Inventory) { engine.Kick() })

	var suggestClient *suggest.Client
	if cfg.SuggestEndpoint != "" {
		suggestClient = suggest.New(suggest.Config{
			Endpoint: cfg.SuggestEndpoint,
			Model:    cfg.SuggestModel,
			Provider: cfg.SuggestProvider,
			Timeout:  cfg.SuggestTimeout,
		})
	}
	sessions := session.NewManager(store, resolver, suggestClient, log.Named("session"))

	srv := server.New(cfg, store, resolver, snaps, engine, sessions, log.Named("http"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go engine.Run(ctx)
	if err := config.Watch(ctx, store, log.Named("watch")); err != nil {
		log.Warn("inventory watching disabled", zap.Error(err))
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func init() {
	serveCmd.Flags().StringVar(&serveAddrFlag, "addr", "", "listen address (overrides FLEETDECK_ADDR)")
	rootCmd.AddCommand(serveCmd)
}
