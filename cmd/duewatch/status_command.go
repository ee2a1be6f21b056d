package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			status, err := newDaemonClient(cfg).status(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Daemon: running\n")
			if status.RunActive {
				fmt.Fprintln(out, "Dispatch run: in progress")
			}
			fmt.Fprintf(out, "Next run: %s\n", status.NextRun)
			if last := status.LastRun; last != nil {
				fmt.Fprintf(out, "Last run: %s (%s)\n", last.FinishedAt, last.RunID)
				if last.Err != "" {
					fmt.Fprintf(out, "Last run error: %s\n", last.Err)
				} else {
					fmt.Fprintf(out, "Last result: checked %d, sent %d, skipped %d, failed %d (source %s)\n",
						last.Summary.Checked, last.Summary.Sent, last.Summary.Skipped,
						last.Summary.Failed, last.Summary.Source)
				}
			}
			fmt.Fprintf(out, "Database: %s\n", status.DatabasePath)
			return nil
		},
	}
}
