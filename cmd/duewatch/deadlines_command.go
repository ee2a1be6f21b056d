package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"duewatch/internal/deadline"
	"duewatch/internal/expiring"
	"duewatch/internal/urgency"
)

func newDeadlinesCommand(ctx *commandContext) *cobra.Command {
	var days int
	var includeExpired bool

	cmd := &cobra.Command{
		Use:   "deadlines",
		Short: "List deadlines expiring soon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			store, err := deadline.Open(cfg)
			if err != nil {
				return fmt.Errorf("open deadline store: %w", err)
			}
			defer store.Close()

			access := expiring.NewStoreAccess(store, includeExpired)
			records, err := access.ExpiringDeadlines(cmd.Context(), days)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintf(out, "No deadlines within %d days.\n", days)
				return nil
			}

			rows := make([][]string, 0, len(records))
			for _, record := range records {
				rows = append(rows, []string{
					strconv.FormatInt(record.DeadlineID, 10),
					record.OwnerName,
					record.Label,
					record.ExpirationDate.Format(time.DateOnly),
					strconv.Itoa(record.DaysRemaining),
					record.Tier.Marker(),
				})
			}
			if stdoutIsTerminal() {
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Owner", "Deadline", "Expires", "Days", "Urgency"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				))
			} else {
				for _, row := range rows {
					fmt.Fprintln(out, strings.Join(row, "\t"))
				}
			}

			counts, err := store.TierCounts(cmd.Context(), time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "All active: expired %d, critical %d, warning %d, safe %d\n",
				counts[urgency.TierExpired], counts[urgency.TierCritical],
				counts[urgency.TierWarning], counts[urgency.TierSafe])
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 14, "Window in days")
	cmd.Flags().BoolVar(&includeExpired, "all", true, "Include already expired deadlines")
	return cmd
}
