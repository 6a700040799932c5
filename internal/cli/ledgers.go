package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fluree-labs/flok/internal/orchestrator"
)

var ledgersCmd = &cobra.Command{
	Use:   "ledgers",
	Short: "List ledgers in the tracked container",
	RunE: func(cmd *cobra.Command, args []string) error {
		session, term, cleanup, err := buildSession(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		summaries, warnings, err := session.Ledgers(cmd.Context())
		if errors.Is(err, orchestrator.ErrNoTrackedContainer) {
			fmt.Printf("%s no container is tracked yet; run %s to set one up\n",
				infoColor("ℹ"), successColor("flok"))
			return nil
		}
		if err != nil {
			return err
		}

		for _, w := range warnings {
			fmt.Printf("%s %s\n", warningColor("⚠"), w)
		}
		term.ShowLedgers(summaries)
		return nil
	},
}
