package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/fleetdeck/fleetdeck/internal/config"
	"github.com/fleetdeck/fleetdeck/internal/creds"
	"github.com/fleetdeck/fleetdeck/internal/errors"
	"github.com/fleetdeck/fleetdeck/internal/logging"
	"github.com/fleetdeck/fleetdeck/pkg/sshutil"
)

// shellCmd opens an interactive shell on a fleet server.
var shellCmd = &cobra.Command{
	Use:   "shell <server-id>",
	Short: "Open an interactive shell on a fleet server",
	Long: `Connect to a server from the inventory and attach an interactive shell,
using the same credentials the panel uses.

Examples:
  fleetdeck shell web1
  fleetdeck shell db1 --inventory /etc/fleetdeck/inventory.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return shellCommand(args[0])
	},
}

func shellCommand(serverID string) error {
	log := logging.Nop()

	store, err := config.NewStore(inventoryPath(), log)
	if err != nil {
		return err
	}

	srv := store.Current().FindServer(serverID)
	if srv == nil {
		return errors.Newf(errors.ErrNotFound, "unknown server: %s", serverID)
	}

	bundle, err := creds.NewResolver(store, log).Resolve(srv.SSH.CredentialID)
	if err != nil {
		return err
	}

	client, err := sshutil.Dial(srv.SSH, bundle, 10*time.Second)
	if err != nil {
		return err
	}
	defer client.Close()

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return errors.New(errors.ErrSession, "stdin is not a terminal")
	}

	cols, rows, err := term.GetSize(fd)
	if err != nil {
		cols, rows = 80, 24
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return errors.Wrap(err, errors.ErrSession, "failed to enter raw mode")
	}
	defer term.Restore(fd, oldState) //nolint:errcheck

	stream, err := client.Shell(cols, rows, os.Stdout, os.Stderr)
	if err != nil {
		return err
	}
	defer stream.Close()

	fmt.Printf("Connected to %s\r\n", sshutil.EndpointLabel(srv.SSH))

	go func() {
		_, _ = io.Copy(stream, os.Stdin)
		_ = stream.CloseStdin()
	}()

	_ = stream.Wait()
	return nil
}

func init() {
	rootCmd.AddCommand(shellCmd)
}
