// Package reports builds monthly activity reports and sends the scheduled reminder and report emails.
package reports

import (
	"context"
	"fmt"
	"html/template"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"quiz-master/internal/analytics"
	"quiz-master/internal/models"
	"quiz-master/pkg/artifacts"
	"quiz-master/pkg/mailer"
	"quiz-master/pkg/metrics"
)

const (
	reminderWindow     = 24 * time.Hour
	defaultConcurrency = 4

	SubjectNewQuizzes = "New Quizzes Available!"
	SubjectReminder   = "Quiz Reminder"
)

type Storage interface {
	Write(name string, data []byte) error
}

// Generated is one rendered monthly report.
type Generated struct {
	Report   Report
	Artifact string
	PDF      []byte
	HTML     string
}

// RunStats summarizes one scheduled run.
type RunStats struct {
	Users   int
	Sent    int
	Skipped int
	Failed  int
}

type Service struct {
	repo        Repository
	storage     Storage
	mailer      mailer.Sender
	concurrency int
	log         *logrus.Entry
}

func NewService(repo Repository, storage Storage, sender mailer.Sender, log *logrus.Entry) *Service {
	return &Service{
		repo:        repo,
		storage:     storage,
		mailer:      sender,
		concurrency: defaultConcurrency,
		log:         log,
	}
}

// PreviousMonth returns the calendar month before now's, rolling January back to December.
func PreviousMonth(now time.Time) (int, time.Month) {
	first := time.Date(now.UTC().Year(), now.UTC().Month(), 1, 0, 0, 0, 0, time.UTC)
	prev := first.AddDate(0, -1, 0)
	return prev.Year(), prev.Month()
}

func monthRange(year int, month time.Month) (time.Time, time.Time) {
	from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 1, 0)
}

// BuildMonthlyReport gathers the user's activity in [first of month, first of next month).
func (s *Service) BuildMonthlyReport(ctx context.Context, userID uint, year int, month time.Month) (Report, error) {
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return Report{}, err
	}
	from, to := monthRange(year, month)

	attempts, err := s.repo.MonthAttempts(ctx, userID, from, to)
	if err != nil {
		return Report{}, fmt.Errorf("load month attempts: %w", err)
	}
	everyone, err := s.repo.SubmittedAttempts(ctx, analytics.AttemptFilter{From: from, To: to})
	if err != nil {
		return Report{}, fmt.Errorf("load month ranking: %w", err)
	}

	var own []analytics.AttemptRow
	for _, row := range everyone {
		if row.UserID == userID {
			own = append(own, row)
		}
	}
	ranking := analytics.RankUser(everyone, userID)

	return Report{
		UserID:     user.ID,
		FullName:   user.FullName,
		Email:      user.Email,
		Year:       year,
		Month:      month,
		Attempts:   attempts,
		Total:      len(attempts),
		Average:    analytics.Average(own),
		Ranking:    ranking.Ranking,
		TotalUsers: ranking.TotalUsers,
	}, nil
}

// GenerateMonthlyReport renders the report and stores the PDF as report_<uid>_<year>_<month>_<hex>.pdf.
func (s *Service) GenerateMonthlyReport(ctx context.Context, userID uint, year int, month time.Month) (*Generated, error) {
	report, err := s.BuildMonthlyReport(ctx, userID, year, month)
	if err != nil {
		return nil, err
	}
	pdf, err := RenderPDF(report)
	if err != nil {
		return nil, err
	}
	html, err := RenderHTML(report)
	if err != nil {
		return nil, err
	}

	name := artifacts.NewName(fmt.Sprintf("report_%d_%d_%d", userID, year, int(month)), "pdf")
	if err := s.storage.Write(name, pdf); err != nil {
		return nil, fmt.Errorf("store %s: %w", name, err)
	}

	s.log.WithFields(logrus.Fields{"user_id": userID, "period": report.Period(), "artifact": name}).Info("Monthly report generated")
	return &Generated{Report: report, Artifact: name, PDF: pdf, HTML: html}, nil
}

// SendDailyReminders nudges every user who has new quizzes or has been idle for a day.
func (s *Service) SendDailyReminders(ctx context.Context, now time.Time) (RunStats, error) {
	users, err := s.repo.ListUsers(ctx, models.RoleUser)
	if err != nil {
		return RunStats{}, fmt.Errorf("list users: %w", err)
	}

	stats := RunStats{Users: len(users)}
	since := now.Add(-reminderWindow)
	for _, user := range users {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		log := s.log.WithField("user_id", user.ID)

		msg, err := s.reminderFor(ctx, user, since)
		if err != nil {
			stats.Failed++
			log.WithError(err).Error("Failed to evaluate reminder")
			continue
		}
		if msg == nil {
			stats.Skipped++
			continue
		}

		err = s.mailer.Send(ctx, *msg)
		metrics.RecordEmail("reminder", err)
		if err != nil {
			stats.Failed++
			log.WithError(err).Error("Failed to send reminder")
			continue
		}
		stats.Sent++
	}

	s.log.WithFields(logrus.Fields{"users": stats.Users, "sent": stats.Sent, "failed": stats.Failed}).Info("Daily reminders done")
	return stats, nil
}

func (s *Service) reminderFor(ctx context.Context, user models.User, since time.Time) (*mailer.Message, error) {
	last, err := s.repo.LastSubmittedAt(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	lastActive := since
	if last != nil {
		lastActive = *last
	}

	newQuizzes, err := s.repo.CountQuizzesCreatedAfter(ctx, lastActive)
	if err != nil {
		return nil, err
	}

	name := template.HTMLEscapeString(user.FullName)
	switch {
	case newQuizzes > 0:
		body := fmt.Sprintf("<p>Hi %s,</p><p>There are %d new quizzes available for you to attempt. Log in now to check them out!</p>", name, newQuizzes)
		return &mailer.Message{To: user.Email, Subject: SubjectNewQuizzes, HTMLBody: body}, nil
	case last == nil || last.Before(since):
		body := fmt.Sprintf("<p>Hi %s,</p><p>It's been a while since your last quiz attempt. Please log in to take new quizzes!</p>", name)
		return &mailer.Message{To: user.Email, Subject: SubjectReminder, HTMLBody: body}, nil
	default:
		return nil, nil
	}
}

// SendMonthlyReports mails every user their report for the month before now.
func (s *Service) SendMonthlyReports(ctx context.Context, now time.Time) (RunStats, error) {
	year, month := PreviousMonth(now)
	users, err := s.repo.ListUsers(ctx, models.RoleUser)
	if err != nil {
		return RunStats{}, fmt.Errorf("list users: %w", err)
	}

	var sent, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, user := range users {
		g.Go(func() error {
			if err := s.sendMonthlyReport(gctx, user, year, month); err != nil {
				failed.Add(1)
				s.log.WithError(err).WithField("user_id", user.ID).Error("Failed to send monthly report")
				return nil
			}
			sent.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return RunStats{}, err
	}

	stats := RunStats{Users: len(users), Sent: int(sent.Load()), Failed: int(failed.Load())}
	s.log.WithFields(logrus.Fields{
		"period": fmt.Sprintf("%d-%02d", year, int(month)),
		"users":  stats.Users,
		"sent":   stats.Sent,
		"failed": stats.Failed,
	}).Info("Monthly reports done")
	return stats, ctx.Err()
}

func (s *Service) sendMonthlyReport(ctx context.Context, user models.User, year int, month time.Month) error {
	generated, err := s.GenerateMonthlyReport(ctx, user.ID, year, month)
	if err != nil {
		return err
	}
	err = s.mailer.Send(ctx, mailer.Message{
		To:          user.Email,
		Subject:     fmt.Sprintf("Your Activity Report for %s", generated.Report.Period()),
		HTMLBody:    generated.HTML,
		Attachments: []mailer.Attachment{{Name: generated.Artifact, Data: generated.PDF}},
	})
	metrics.RecordEmail("monthly_report", err)
	return err
}
