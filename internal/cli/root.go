// Package cli implements the command-line surface for flok. The bare
// command runs the interactive session; subcommands expose one-shot
// operations for scripting.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/fluree-labs/flok/internal/docker"
	"github.com/fluree-labs/flok/internal/hub"
	"github.com/fluree-labs/flok/internal/orchestrator"
	"github.com/fluree-labs/flok/internal/state"
	"github.com/fluree-labs/flok/internal/system"
	"github.com/fluree-labs/flok/internal/ui"
)

var (
	// Global flags
	verbose    bool
	configFile string

	// Color helpers
	successColor = color.New(color.FgGreen).SprintFunc()
	errorColor   = color.New(color.FgRed).SprintFunc()
	warningColor = color.New(color.FgYellow).SprintFunc()
	infoColor    = color.New(color.FgCyan).SprintFunc()
)

// rootCmd represents the base command. Running it without a subcommand
// starts the interactive session.
var rootCmd = &cobra.Command{
	Use:   "flok",
	Short: "Run and manage Fluree server containers",
	Long: `flok manages Fluree database server containers through an interactive
session: pick a version, choose a port and data directory, and flok creates,
starts, and tracks the container for you. Coming back later resumes where
you left off.`,
	Example: `  flok
  flok status
  flok ledgers
  flok destroy`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSession(cmd.Context())
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", errorColor("Error:"), err)
		os.Exit(1)
	}
}

// SetVersionInfo wires build metadata into the version command.
func SetVersionInfo(version, commit, date string) {
	rootCmd.Version = fmt.Sprintf("%s (%s) built on %s", version, commit, date)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Preferences file path (default: platform config dir)")

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(destroyCmd)
	rootCmd.AddCommand(ledgersCmd)
	rootCmd.AddCommand(doctorCmd)
}

// buildSession wires a session against the live daemon. The returned
// cleanup closes the daemon connection.
func buildSession(ctx context.Context) (*orchestrator.Session, *ui.Terminal, func(), error) {
	client, err := docker.NewClient(ctx)
	if err != nil {
		return nil, nil, nil, err
	}

	store, err := state.NewStore(configFile)
	if err != nil {
		client.Close()
		return nil, nil, nil, err
	}

	term := ui.NewTerminal(verbose)
	session := orchestrator.NewSession(client.Engine(), store, hub.NewClient(), term)

	cleanup := func() { client.Close() }
	return session, term, cleanup, nil
}

// runSession is the default interactive entry point.
func runSession(ctx context.Context) error {
	session, term, cleanup, err := buildSession(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if low, available := system.NewChecker(ctx).LowMemory(); low {
		term.Warn("only %s of memory available; the server may run slowly",
			humanize.Bytes(available))
	}

	return session.Run(ctx)
}
