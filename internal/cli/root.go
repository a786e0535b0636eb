// Package cli implements the fleetdeck command-line interface.
//
// The package is organized around Cobra commands, with each command
// delegating to small run functions for the actual work:
//
//	fleetdeck serve     - Run the panel: poller, API, websockets, UI
//	fleetdeck poll      - Run one poll cycle and print the results
//	fleetdeck shell     - Open an interactive shell on a fleet server
//	fleetdeck init      - Write a starter inventory file
//	fleetdeck version   - Print version information
//
// Global flags (--inventory, --debug) are defined on the root command and
// available to all subcommands.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Global flags
var (
	inventoryFlag string
	debugFlag     bool
)

// rootCmd is the base command all subcommands hang off.
var rootCmd = &cobra.Command{
	Use:   "fleetdeck",
	Short: "Fleet health monitoring and remote access panel",
	Long: `fleetdeck polls a fleet of servers over SSH and HTTP, aggregates
per-server health, and serves a panel with live terminals and log tails.

The fleet is described in an inventory file (YAML or JSON). Point fleetdeck
at it with --inventory or the FLEETDECK_INVENTORY environment variable.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if debugFlag {
			os.Setenv("FLEETDECK_DEBUG", "1")
		}
	},
}

// Execute runs the CLI. Errors are printed once, here, and turn into a
// non-zero exit.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// inventoryPath resolves the inventory file location: flag, then env, then
// the conventional default.
func inventoryPath() string {
	if inventoryFlag != "" {
		return inventoryFlag
	}
	if p := os.Getenv("FLEETDECK_INVENTORY"); p != "" {
		return p
	}
	return "inventory.yaml"
}

func init() {
	rootCmd.PersistentFlags().StringVar(&inventoryFlag, "inventory", "", "path to the inventory file (default inventory.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "enable debug logging")
}
