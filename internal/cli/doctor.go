package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/fluree-labs/flok/internal/docker"
	"github.com/fluree-labs/flok/internal/state"
	"github.com/fluree-labs/flok/internal/system"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check daemon connectivity and host resources",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		// Daemon first: everything else is moot without it.
		client, err := docker.NewClient(ctx)
		if err != nil {
			fmt.Printf("%s Docker daemon: unreachable (%v)\n", errorColor("✗"), err)
			fmt.Println("  Start Docker and try again.")
			return nil
		}
		defer client.Close()
		fmt.Printf("%s Docker daemon: reachable\n", successColor("✓"))

		// Disk numbers describe the filesystem holding the tracked data
		// directory, when one exists.
		dataDir := ""
		if store, err := state.NewStore(configFile); err == nil {
			prefs := store.Load()
			if rec, ok := prefs.LastUsedRecord(); ok {
				dataDir = rec.DataDir
			}
		}

		checker := system.NewChecker(ctx)
		info, err := checker.GetInfo(dataDir)
		if err != nil {
			return fmt.Errorf("failed to read host resources: %w", err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
		fmt.Fprintf(w, "Platform:\t%s/%s\n", info.Platform, info.Architecture)
		fmt.Fprintf(w, "CPU cores:\t%d\n", info.CPUCount)
		fmt.Fprintf(w, "Memory:\t%s available of %s\n",
			humanize.Bytes(info.AvailableRAM), humanize.Bytes(info.TotalRAM))
		fmt.Fprintf(w, "Disk:\t%s free of %s\n",
			humanize.Bytes(info.FreeDisk), humanize.Bytes(info.TotalDisk))
		w.Flush()

		if low, available := checker.LowMemory(); low {
			fmt.Printf("%s only %s of memory available; the server may run slowly\n",
				warningColor("⚠"), humanize.Bytes(available))
		}
		return nil
	},
}
