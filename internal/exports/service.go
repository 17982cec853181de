package exports

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"quiz-master/internal/models"
	"quiz-master/pkg/artifacts"
)

type Repository interface {
	UserAttempts(ctx context.Context, userID uint) ([]models.Attempt, error)
	Quizzes(ctx context.Context) ([]models.Quiz, error)
}

type GormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) UserAttempts(ctx context.Context, userID uint) ([]models.Attempt, error) {
	var attempts []models.Attempt
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("id asc").Find(&attempts).Error
	return attempts, err
}

func (r *GormRepository) Quizzes(ctx context.Context) ([]models.Quiz, error) {
	var quizzes []models.Quiz
	err := r.db.WithContext(ctx).Order("id asc").Find(&quizzes).Error
	return quizzes, err
}

// Storage is where finished files go.
type Storage interface {
	Write(name string, data []byte) error
	List(prefix string) ([]string, error)
}

type Artifacts struct {
	Exports []string `json:"exports"`
	Reports []string `json:"reports"`
}

type Service struct {
	repo    Repository
	storage Storage
	log     *logrus.Entry
}

func NewService(repo Repository, storage Storage, log *logrus.Entry) *Service {
	return &Service{repo: repo, storage: storage, log: log}
}

func userExportPrefix(userID uint) string {
	return fmt.Sprintf("attempts_%d", userID)
}

func userReportPrefix(userID uint) string {
	return fmt.Sprintf("report_%d", userID)
}

// UserAttemptsCSV writes the user's attempts, submitted ones by time, open ones last.
func (s *Service) UserAttemptsCSV(ctx context.Context, userID uint) (string, error) {
	attempts, err := s.repo.UserAttempts(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("load attempts for user %d: %w", userID, err)
	}

	sort.SliceStable(attempts, func(i, j int) bool {
		a, b := attempts[i].SubmittedAt, attempts[j].SubmittedAt
		switch {
		case a == nil && b == nil:
			return attempts[i].ID < attempts[j].ID
		case a == nil:
			return false
		case b == nil:
			return true
		case !a.Equal(*b):
			return a.Before(*b)
		default:
			return attempts[i].ID < attempts[j].ID
		}
	})

	records := [][]string{{"attempt_id", "quiz_id", "score", "submitted_at"}}
	for _, a := range attempts {
		score := ""
		if a.Score != nil {
			score = strconv.Itoa(*a.Score)
		}
		records = append(records, []string{
			strconv.FormatUint(uint64(a.ID), 10),
			strconv.FormatUint(uint64(a.QuizID), 10),
			score,
			formatTime(a.SubmittedAt),
		})
	}

	name := artifacts.NewName(userExportPrefix(userID), "csv")
	if err := s.write(name, records); err != nil {
		return "", err
	}
	s.log.WithFields(logrus.Fields{"user_id": userID, "rows": len(attempts), "artifact": name}).Info("User attempts exported")
	return name, nil
}

func (s *Service) AdminQuizzesCSV(ctx context.Context) (string, error) {
	quizzes, err := s.repo.Quizzes(ctx)
	if err != nil {
		return "", fmt.Errorf("load quizzes: %w", err)
	}

	records := [][]string{{"quiz_id", "title", "chapter_id", "duration_min", "scheduled_at"}}
	for _, q := range quizzes {
		records = append(records, []string{
			strconv.FormatUint(uint64(q.ID), 10),
			q.Title,
			strconv.FormatUint(uint64(q.ChapterID), 10),
			strconv.Itoa(q.DurationMin),
			formatTime(q.ScheduledAt),
		})
	}

	name := artifacts.NewName("all_quizzes", "csv")
	if err := s.write(name, records); err != nil {
		return "", err
	}
	s.log.WithFields(logrus.Fields{"rows": len(quizzes), "artifact": name}).Info("Quizzes exported")
	return name, nil
}

func (s *Service) ListUserArtifacts(userID uint) (Artifacts, error) {
	exports, err := s.storage.List(userExportPrefix(userID) + "_")
	if err != nil {
		return Artifacts{}, err
	}
	reports, err := s.storage.List(userReportPrefix(userID) + "_")
	if err != nil {
		return Artifacts{}, err
	}
	return Artifacts{Exports: exports, Reports: reports}, nil
}

func (s *Service) write(name string, records [][]string) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(records); err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	if err := s.storage.Write(name, buf.Bytes()); err != nil {
		return fmt.Errorf("store %s: %w", name, err)
	}
	return nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
