package reports

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"quiz-master/internal/analytics"
	"quiz-master/internal/models"
)

var ErrUserNotFound = errors.New("user not found")

// ReportAttempt is one row of the monthly table.
type ReportAttempt struct {
	QuizTitle   string
	Score       int
	SubmittedAt time.Time
}

type Repository interface {
	ListUsers(ctx context.Context, role string) ([]models.User, error)
	GetUser(ctx context.Context, userID uint) (*models.User, error)
	LastSubmittedAt(ctx context.Context, userID uint) (*time.Time, error)
	CountQuizzesCreatedAfter(ctx context.Context, t time.Time) (int64, error)
	MonthAttempts(ctx context.Context, userID uint, from, to time.Time) ([]ReportAttempt, error)
	SubmittedAttempts(ctx context.Context, filter analytics.AttemptFilter) ([]analytics.AttemptRow, error)
}

type GormRepository struct {
	*analytics.GormRepository
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{GormRepository: analytics.NewRepository(db), db: db}
}

func (r *GormRepository) ListUsers(ctx context.Context, role string) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).Where("role = ?", role).Order("id asc").Find(&users).Error
	return users, err
}

func (r *GormRepository) GetUser(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", userID, err)
	}
	return &user, nil
}

// LastSubmittedAt returns nil when the user never submitted an attempt.
func (r *GormRepository) LastSubmittedAt(ctx context.Context, userID uint) (*time.Time, error) {
	var attempt models.Attempt
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND submitted_at IS NOT NULL", userID).
		Order("submitted_at desc").
		Take(&attempt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return attempt.SubmittedAt, nil
}

func (r *GormRepository) CountQuizzesCreatedAfter(ctx context.Context, t time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Quiz{}).Where("created_at > ?", t).Count(&count).Error
	return count, err
}

func (r *GormRepository) MonthAttempts(ctx context.Context, userID uint, from, to time.Time) ([]ReportAttempt, error) {
	var rows []ReportAttempt
	err := r.db.WithContext(ctx).
		Table("attempts").
		Select("quizzes.title AS quiz_title, attempts.score, attempts.submitted_at").
		Joins("JOIN quizzes ON quizzes.id = attempts.quiz_id").
		Where("attempts.user_id = ? AND attempts.score IS NOT NULL", userID).
		Where("attempts.submitted_at >= ? AND attempts.submitted_at < ?", from, to).
		Order("attempts.submitted_at asc").
		Scan(&rows).Error
	return rows, err
}
