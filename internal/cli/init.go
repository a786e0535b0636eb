package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fleetdeck/fleetdeck/internal/config"
	"github.com/fleetdeck/fleetdeck/internal/errors"
)

var initForce bool

// initCmd writes a starter inventory.
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter inventory file",
	Long: `Create an inventory file with one example server covering every
check type, ready to edit.

Examples:
  fleetdeck init
  fleetdeck init --inventory fleet.yaml
  fleetdeck init --force`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return initCommand(initForce)
	},
}

func initCommand(force bool) error {
	path := inventoryPath()
	if _, err := os.Stat(path); err == nil && !force {
		return errors.Newf(errors.ErrConfig,
			"%s already exists (use --force to overwrite)", path)
	}

	data, err := config.SampleInventory()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.Wrap(err, errors.ErrConfig, "failed to write "+path)
	}

	fmt.Printf("Wrote %s\n", path)
	fmt.Println("Edit the credentials and servers, then run: fleetdeck serve")
	return nil
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite an existing inventory")
	rootCmd.AddCommand(initCmd)
}
