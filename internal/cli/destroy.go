package cli

import (
	"errors"
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/fluree-labs/flok/internal/orchestrator"
)

var destroyForce bool

var destroyCmd = &cobra.Command{
	Use:   "destroy",
	Short: "Stop and remove the tracked container",
	Long: `Stops the tracked container, removes it from the daemon, and forgets it.
Data in a host data directory survives; data kept inside the container does
not.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		session, _, cleanup, err := buildSession(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		if !destroyForce {
			var confirmed bool
			prompt := &survey.Confirm{
				Message: "Destroy the tracked container?",
				Default: false,
			}
			if err := survey.AskOne(prompt, &confirmed); err != nil {
				return err
			}
			if !confirmed {
				fmt.Printf("%s cancelled\n", warningColor("⚠"))
				return nil
			}
		}

		rec, err := session.Destroy(cmd.Context())
		if errors.Is(err, orchestrator.ErrNoTrackedContainer) {
			fmt.Printf("%s no container is tracked; nothing to destroy\n", infoColor("ℹ"))
			return nil
		}
		if err != nil {
			return err
		}

		fmt.Printf("%s container %s destroyed\n", successColor("✓"), rec.Name)
		return nil
	},
}

func init() {
	destroyCmd.Flags().BoolVarP(&destroyForce, "force", "f", false, "Skip the confirmation prompt")
}
