package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quiz-master/internal/reports"
	"quiz-master/pkg/logger"
)

type recordingTasks struct {
	mu        sync.Mutex
	reminders int
	monthly   int
	err       error
}

func (r *recordingTasks) SendDailyReminders(context.Context, time.Time) (reports.RunStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reminders++
	return reports.RunStats{Users: 1, Sent: 1}, r.err
}

func (r *recordingTasks) SendMonthlyReports(context.Context, time.Time) (reports.RunStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.monthly++
	return reports.RunStats{}, r.err
}

func TestNewRejectsInvalidSpecs(t *testing.T) {
	_, err := New(&recordingTasks{}, Config{ReminderSpec: "not a cron", MonthlyReportSpec: "0 6 1 * *"}, logger.Discard())
	assert.Error(t, err)

	_, err = New(&recordingTasks{}, Config{ReminderSpec: "0 18 * * *", MonthlyReportSpec: "61 * * * *"}, logger.Discard())
	assert.Error(t, err)
}

func TestSchedulesBothTasksInUTC(t *testing.T) {
	s, err := New(&recordingTasks{}, Config{ReminderSpec: "0 18 * * *", MonthlyReportSpec: "0 6 1 * *"}, logger.Discard())
	require.NoError(t, err)

	entries := s.cron.Entries()
	require.Len(t, entries, 2)

	from := time.Date(2026, 1, 31, 19, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 2, 1, 18, 0, 0, 0, time.UTC), entries[0].Schedule.Next(from))
	assert.Equal(t, time.Date(2026, 2, 1, 6, 0, 0, 0, time.UTC), entries[1].Schedule.Next(from))
}

func TestRunLogsFailuresWithoutPanicking(t *testing.T) {
	tasks := &recordingTasks{err: errors.New("smtp down")}
	s, err := New(tasks, Config{ReminderSpec: "@every 1h", MonthlyReportSpec: "@every 1h"}, logger.Discard())
	require.NoError(t, err)

	s.run("daily_reminders", tasks.SendDailyReminders)
	s.run("monthly_reports", tasks.SendMonthlyReports)
	assert.Equal(t, 1, tasks.reminders)
	assert.Equal(t, 1, tasks.monthly)

	s.Start()
	s.Stop()
}
