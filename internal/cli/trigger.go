package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"quiz-master/internal/reports"
)

type mailTask func(ctx context.Context, now time.Time) (reports.RunStats, error)

func triggerCmd(envFile *string) *cobra.Command {
	c := &cobra.Command{
		Use:   "trigger",
		Short: "Run a scheduled mail task once",
	}
	c.AddCommand(triggerTaskCmd(envFile, "reminders", "Send daily reminders now", func(s *reports.Service) mailTask {
		return s.SendDailyReminders
	}))
	c.AddCommand(triggerTaskCmd(envFile, "monthly-reports", "Send last month's activity reports now", func(s *reports.Service) mailTask {
		return s.SendMonthlyReports
	}))
	return c
}

func triggerTaskCmd(envFile *string, use, short string, pick func(*reports.Service) mailTask) *cobra.Command {
	var at string

	c := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			now, err := parseAt(at)
			if err != nil {
				return err
			}

			a, err := loadApp(*envFile)
			if err != nil {
				return err
			}
			defer a.close()

			dir, err := a.artifactDir()
			if err != nil {
				return err
			}

			stats, err := pick(a.reportService(dir))(cmd.Context(), now)
			a.log.WithFields(logrus.Fields{
				"task":    use,
				"users":   stats.Users,
				"sent":    stats.Sent,
				"skipped": stats.Skipped,
				"failed":  stats.Failed,
			}).Info("Task finished")
			return err
		},
	}

	c.Flags().StringVar(&at, "at", "", "run as if the current time were this RFC3339 timestamp")
	return c
}

func parseAt(at string) (time.Time, error) {
	if at == "" {
		return time.Now().UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, at)
	if err != nil {
		return time.Time{}, fmt.Errorf("--at: %w", err)
	}
	return t.UTC(), nil
}
