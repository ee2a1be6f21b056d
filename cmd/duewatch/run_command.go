package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"duewatch/internal/deadline"
	"duewatch/internal/expiring"
	"duewatch/internal/logging"
	"duewatch/internal/notify"
	"duewatch/internal/remote"
	"duewatch/internal/scheduler"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var direct bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Trigger a dispatch run now",
		Long: "Trigger a dispatch run through the running daemon. With --direct the run\n" +
			"executes in this process instead, for use when no daemon is running.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if !direct {
				result, err := newDaemonClient(cfg).run(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Checked %d, sent %d, skipped %d, failed %d (source %s)\n",
					result.Checked, result.Sent, result.Skipped, result.Failed, result.Source)
				if len(result.FailedThresholds) > 0 {
					fmt.Fprintf(out, "Warning: could not fetch windows %v\n", result.FailedThresholds)
				}
				return nil
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			store, err := deadline.Open(cfg)
			if err != nil {
				return fmt.Errorf("open deadline store: %w", err)
			}
			defer store.Close()

			var remoteAccess expiring.Access
			var prober scheduler.HealthProber
			if cfg.Remote.Enabled {
				client := remote.NewClient(cfg)
				remoteAccess = expiring.NewRemoteAccess(client, logger)
				prober = client
			}
			messenger := notify.NewFromConfig(cfg, logger)
			access := expiring.NewResilient(remoteAccess, expiring.NewStoreAccess(store, cfg.Dispatch.IncludeExpired), logger)
			resolver := notify.NewResolver(cfg, logger)
			dispatcher := notify.NewDispatcher(store, access, messenger, resolver, cfg.Dispatch.Thresholds, logger)
			sched := scheduler.New(cfg, store, dispatcher, messenger, prober, logger)

			summary, err := sched.RunNow(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Checked %d, sent %d, skipped %d, failed %d (source %s)\n",
				summary.Checked, summary.Sent, summary.Skipped, summary.Failed, summary.Source)
			if len(summary.FailedThresholds) > 0 {
				fmt.Fprintf(out, "Warning: could not fetch windows %v\n", summary.FailedThresholds)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&direct, "direct", false, "Run in this process instead of the daemon")
	return cmd
}
