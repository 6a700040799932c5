package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fluree-labs/flok/internal/orchestrator"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the tracked container's status",
	RunE: func(cmd *cobra.Command, args []string) error {
		session, term, cleanup, err := buildSession(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		rec, status, err := session.Status(cmd.Context())
		if errors.Is(err, orchestrator.ErrNoTrackedContainer) {
			fmt.Printf("%s no container is tracked yet; run %s to set one up\n",
				infoColor("ℹ"), successColor("flok"))
			return nil
		}
		if err != nil {
			return err
		}

		term.Debugf("tracked container id: %s", rec.ID)
		term.ShowStatus(status)
		return nil
	},
}
