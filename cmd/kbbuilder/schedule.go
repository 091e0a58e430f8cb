package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"kbbuilder/internal/scheduler"

	"github.com/spf13/cobra"
)

func newScheduleCommand(log *slog.Logger, d deps) *cobra.Command {
	flags := &sourceFlags{}
	var (
		spec    string
		timeout time.Duration
		now     bool
	)

	command := &cobra.Command{
		Use:   "schedule",
		Short: "Rebuild the knowledge base on a cron schedule until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			cfg, err := d.loadConfig()
			if err != nil {
				return err
			}

			src, output, err := flags.resolve(cfg)
			if err != nil {
				return err
			}

			if strings.TrimSpace(spec) == "" {
				spec = cfg.Schedule
			}

			a, err := newApp(ctx, cfg, d, log)
			if err != nil {
				return err
			}
			defer closeApp(ctx, a)

			sched := scheduler.New(ctx, spec, timeout, func(ctx context.Context) error {
				_, runErr := a.orchestrator.Run(ctx, src, output)
				return runErr
			}, log)

			if err = sched.Start(); err != nil {
				return fmt.Errorf("start scheduler: %w", err)
			}
			defer sched.Stop()

			log.InfoContext(ctx, "Scheduler is started",
				"spec", spec,
				"timezone", time.FixedZone(scheduler.Timezone, scheduler.TimezoneOffsetSeconds).String(),
				"next", sched.Next())

			if now {
				sched.RunNow()
			}

			<-ctx.Done()
			log.InfoContext(ctx, "Shutdown signal is received",
				"error", context.Cause(ctx))

			return nil
		},
	}

	flags.bind(command.Flags())
	command.Flags().StringVar(&spec, "cron", "", "cron spec in UTC (default from KB_SCHEDULE)")
	command.Flags().DurationVar(&timeout, "timeout", 2*time.Hour, "upper bound for one build")
	command.Flags().BoolVar(&now, "now", false, "run one build immediately, then follow the schedule")

	return command
}
