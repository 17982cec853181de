// Package scheduler runs the periodic reminder and monthly report tasks.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"quiz-master/internal/reports"
)

// Tasks is what the scheduler triggers.
type Tasks interface {
	SendDailyReminders(ctx context.Context, now time.Time) (reports.RunStats, error)
	SendMonthlyReports(ctx context.Context, now time.Time) (reports.RunStats, error)
}

type Config struct {
	ReminderSpec      string
	MonthlyReportSpec string
	// Timeout bounds a single run.
	Timeout time.Duration
}

type Scheduler struct {
	cron  *cron.Cron
	tasks Tasks
	cfg   Config
	log   *logrus.Entry

	ctx    context.Context
	cancel context.CancelFunc
}

// New parses both expressions in UTC. An invalid expression is an error.
func New(tasks Tasks, cfg Config, log *logrus.Entry) (*Scheduler, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = time.Hour
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:   cron.New(cron.WithLocation(time.UTC), cron.WithChain(cron.Recover(cronLogger{log}))),
		tasks:  tasks,
		cfg:    cfg,
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}

	if _, err := s.cron.AddFunc(cfg.ReminderSpec, func() { s.run("daily_reminders", tasks.SendDailyReminders) }); err != nil {
		cancel()
		return nil, fmt.Errorf("reminder schedule %q: %w", cfg.ReminderSpec, err)
	}
	if _, err := s.cron.AddFunc(cfg.MonthlyReportSpec, func() { s.run("monthly_reports", tasks.SendMonthlyReports) }); err != nil {
		cancel()
		return nil, fmt.Errorf("monthly report schedule %q: %w", cfg.MonthlyReportSpec, err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	for _, entry := range s.cron.Entries() {
		s.log.WithField("next", entry.Next).Info("Scheduled task registered")
	}
}

// Stop cancels running tasks and waits for them to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	s.log.Info("Scheduler stopped")
}

func (s *Scheduler) run(name string, task func(context.Context, time.Time) (reports.RunStats, error)) {
	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.Timeout)
	defer cancel()

	log := s.log.WithField("task", name)
	log.Info("Scheduled task starting")
	stats, err := task(ctx, time.Now().UTC())
	if err != nil {
		log.WithError(err).Error("Scheduled task failed")
		return
	}
	log.WithFields(logrus.Fields{"users": stats.Users, "sent": stats.Sent, "failed": stats.Failed}).Info("Scheduled task finished")
}

// cronLogger adapts logrus to cron.Logger.
type cronLogger struct {
	log *logrus.Entry
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.WithFields(fields(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.WithError(err).WithFields(fields(keysAndValues)).Error(msg)
}

func fields(keysAndValues []interface{}) logrus.Fields {
	out := logrus.Fields{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		if key, ok := keysAndValues[i].(string); ok {
			out[key] = keysAndValues[i+1]
		}
	}
	return out
}
