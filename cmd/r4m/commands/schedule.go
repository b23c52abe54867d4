package commands

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ibeckermayer/rewards4me/internal/scheduler"
)

func scheduleCmd() *cobra.Command {
	var now bool

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Refresh sessions on the configured schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, closeApp, err := newApp()
			if err != nil {
				return err
			}
			defer closeApp()

			path, err := configPath()
			if err != nil {
				return err
			}

			s, err := scheduler.New(cfg.Schedule.Timezone, cfg.Schedule.JobTimeout, logger)
			if err != nil {
				return err
			}

			// Pick up config edits before every run
			job := func(ctx context.Context) error {
				if err := a.ReloadConfig(path); err != nil {
					logger.Warn("Keeping previous configuration", zap.Error(err))
				}
				return a.LoginAll(ctx)
			}

			if err := s.AddLoginJob(cfg.Schedule.Cron, job); err != nil {
				return err
			}

			ctx := cmd.Context()
			if now || cfg.Schedule.RunOnStart {
				// Failures are logged and mailed; the schedule keeps going
				_ = s.RunNow(ctx, scheduler.LoginJobName, job)
			}

			s.Start()
			for _, j := range s.ListJobs() {
				logger.Info("Next run", zap.String("job", j.Name), zap.Time("at", j.NextRun))
			}

			<-ctx.Done()
			<-s.Stop().Done()
			return nil
		},
	}

	cmd.Flags().BoolVar(&now, "now", false, "also run once immediately")
	return cmd
}
