package cli

import (
	"context"
	"fmt"
	"time"

	"quiz-master/internal/jobs"
	"quiz-master/internal/reports"
)

type attemptsExporter interface {
	UserAttemptsCSV(ctx context.Context, userID uint) (string, error)
	AdminQuizzesCSV(ctx context.Context) (string, error)
}

type reportGenerator interface {
	GenerateMonthlyReport(ctx context.Context, userID uint, year int, month time.Month) (*reports.Generated, error)
}

type jobRegistry interface {
	Register(kind string, handler jobs.HandlerFunc)
}

// registerJobHandlers binds every job kind the HTTP API can enqueue.
func registerJobHandlers(queue jobRegistry, exporter attemptsExporter, generator reportGenerator) {
	queue.Register(jobs.KindUserAttemptsExport, func(ctx context.Context, job jobs.Job) (string, error) {
		var payload jobs.UserPayload
		if err := job.Decode(&payload); err != nil {
			return "", err
		}
		return exporter.UserAttemptsCSV(ctx, payload.UserID)
	})

	queue.Register(jobs.KindAdminQuizzesExport, func(ctx context.Context, _ jobs.Job) (string, error) {
		return exporter.AdminQuizzesCSV(ctx)
	})

	queue.Register(jobs.KindMonthlyReport, func(ctx context.Context, job jobs.Job) (string, error) {
		var payload jobs.MonthlyReportPayload
		if err := job.Decode(&payload); err != nil {
			return "", err
		}
		if payload.Month < 1 || payload.Month > 12 {
			return "", fmt.Errorf("invalid month %d", payload.Month)
		}
		generated, err := generator.GenerateMonthlyReport(ctx, payload.UserID, payload.Year, time.Month(payload.Month))
		if err != nil {
			return "", err
		}
		return generated.Artifact, nil
	})
}
