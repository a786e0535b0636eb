package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/fleetdeck/fleetdeck/internal/config"
	"github.com/fleetdeck/fleetdeck/internal/creds"
	"github.com/fleetdeck/fleetdeck/internal/logging"
	"github.com/fleetdeck/fleetdeck/internal/poller"
)

var pollJSONFlag bool

// pollCmd runs one poll cycle and prints the results.
var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Run one poll cycle and print the results",
	Long: `Poll every server in the inventory once and print per-service results.

Useful for smoke-testing an inventory before running the panel, or from cron.

Examples:
  fleetdeck poll
  fleetdeck poll --json
  fleetdeck poll --inventory staging.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return pollCommand(pollJSONFlag)
	},
}

func pollCommand(asJSON bool) error {
	log := logging.Nop()
	if os.Getenv("FLEETDECK_DEBUG") != "" {
		log = logging.New("poll")
	}

	store, err := config.NewStore(inventoryPath(), log)
	if err != nil {
		return err
	}

	resolver := creds.NewResolver(store, log)
	snaps := poller.NewSnapshotStore()
	engine := poller.NewEngine(store, resolver, snaps, log)

	snap := engine.PollOnce(context.Background())

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}

	ids := make([]string, 0, len(snap.Servers))
	for id := range snap.Servers {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	failed := false
	for _, id := range ids {
		st := snap.Servers[id]
		fmt.Printf("%-8s %s (%s)\n", st.Color, st.Name, st.ID)
		for _, svc := range st.Services {
			mark := "ok"
			if !svc.OK {
				mark = "FAIL"
				failed = true
			}
			fmt.Printf("  %-4s %-24s %s\n", mark, svc.Name, svc.Detail)
		}
	}
	if failed {
		os.Exit(1)
	}
	return nil
}

func init() {
	pollCmd.Flags().BoolVar(&pollJSONFlag, "json", false, "print the snapshot as JSON")
	rootCmd.AddCommand(pollCmd)
}
