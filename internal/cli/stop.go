package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fluree-labs/flok/internal/orchestrator"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the tracked container",
	RunE: func(cmd *cobra.Command, args []string) error {
		session, _, cleanup, err := buildSession(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		rec, err := session.Stop(cmd.Context())
		if errors.Is(err, orchestrator.ErrNoTrackedContainer) {
			fmt.Printf("%s no container is tracked; nothing to stop\n", infoColor("ℹ"))
			return nil
		}
		if err != nil {
			return err
		}

		fmt.Printf("%s container %s stopped\n", successColor("✓"), rec.Name)
		return nil
	},
}
