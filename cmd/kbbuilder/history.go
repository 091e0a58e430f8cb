package main

import (
	"errors"
	"fmt"
	"log/slog"
	"text/tabwriter"
	"time"

	"kbbuilder/internal/config"
	"kbbuilder/internal/database"

	"github.com/spf13/cobra"
)

func newHistoryCommand(log *slog.Logger) *cobra.Command {
	var limit int

	command := &cobra.Command{
		Use:   "history",
		Short: "List recent builds recorded in the journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			cfg, err := config.Parse()
			if err != nil {
				return err
			}
			if cfg.JournalPath == "" {
				return fmt.Errorf("%w: KB_JOURNAL_PATH is not set", config.ErrConfig)
			}

			db, err := database.New(ctx, cfg.JournalPath, log)
			if err != nil {
				return fmt.Errorf("open journal: %w", err)
			}

			builds, err := db.RecentBuilds(ctx, limit)
			if closeErr := db.Close(); closeErr != nil {
				err = errors.Join(err, fmt.Errorf("close journal: %w", closeErr))
			}
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "BUILD\tSTARTED\tSTATUS\tSUMMARIES\tSKIPPED\tFAILED\tROUNDS\tDESTINATION")
			for _, b := range builds {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
					b.ID,
					b.StartedAt.Format(time.DateTime),
					b.Status,
					b.Summaries,
					b.Skipped,
					b.Failed,
					b.Rounds,
					b.Destination)
			}

			return w.Flush()
		},
	}

	command.Flags().IntVarP(&limit, "limit", "n", 10, "number of builds to show")

	return command
}
