package analytics

import (
	"context"
	"time"

	"gorm.io/gorm"

	"quiz-master/internal/models"
)

// AttemptFilter narrows SubmittedAttempts. Zero values mean "any".
type AttemptFilter struct {
	QuizID uint
	UserID uint
	From   time.Time
	To     time.Time
}

type Summary struct {
	Users    int64 `json:"users"`
	Subjects int64 `json:"subjects"`
	Quizzes  int64 `json:"quizzes"`
	Attempts int64 `json:"attempts"`
}

type Repository interface {
	SubmittedAttempts(ctx context.Context, filter AttemptFilter) ([]AttemptRow, error)
	QuizAnswers(ctx context.Context, quizID uint) ([]AnswerRow, error)
	QuestionIDs(ctx context.Context, quizID uint) ([]uint, error)
	QuizExists(ctx context.Context, quizID uint) (bool, error)
	QuizInfos(ctx context.Context) ([]QuizInfo, error)
	CountAttempts(ctx context.Context, userID uint) (int64, error)
	Counts(ctx context.Context) (Summary, error)
}

type GormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) SubmittedAttempts(ctx context.Context, filter AttemptFilter) ([]AttemptRow, error) {
	query := r.db.WithContext(ctx).
		Table("attempts").
		Select("attempts.id AS attempt_id, attempts.quiz_id, attempts.user_id, users.full_name, attempts.score, attempts.submitted_at").
		Joins("JOIN users ON users.id = attempts.user_id").
		Where("attempts.submitted_at IS NOT NULL AND attempts.score IS NOT NULL")

	if filter.QuizID != 0 {
		query = query.Where("attempts.quiz_id = ?", filter.QuizID)
	}
	if filter.UserID != 0 {
		query = query.Where("attempts.user_id = ?", filter.UserID)
	}
	if !filter.From.IsZero() {
		query = query.Where("attempts.submitted_at >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		query = query.Where("attempts.submitted_at < ?", filter.To)
	}

	var rows []AttemptRow
	err := query.Order("attempts.submitted_at asc, attempts.id asc").Scan(&rows).Error
	return rows, err
}

// QuizAnswers returns answers of submitted attempts on the quiz's questions.
func (r *GormRepository) QuizAnswers(ctx context.Context, quizID uint) ([]AnswerRow, error) {
	var rows []AnswerRow
	err := r.db.WithContext(ctx).
		Table("answers").
		Select("answers.question_id, answers.selected_option, questions.correct_option").
		Joins("JOIN questions ON questions.id = answers.question_id").
		Joins("JOIN attempts ON attempts.id = answers.attempt_id").
		Where("questions.quiz_id = ? AND attempts.submitted_at IS NOT NULL", quizID).
		Scan(&rows).Error
	return rows, err
}

func (r *GormRepository) QuestionIDs(ctx context.Context, quizID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.Question{}).
		Where("quiz_id = ?", quizID).
		Order("id asc").
		Pluck("id", &ids).Error
	return ids, err
}

func (r *GormRepository) QuizExists(ctx context.Context, quizID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Quiz{}).Where("id = ?", quizID).Count(&count).Error
	return count > 0, err
}

func (r *GormRepository) QuizInfos(ctx context.Context) ([]QuizInfo, error) {
	var infos []QuizInfo
	err := r.db.WithContext(ctx).
		Model(&models.Quiz{}).
		Select("quizzes.id, quizzes.title, COUNT(questions.id) AS question_count").
		Joins("LEFT JOIN questions ON questions.quiz_id = quizzes.id AND questions.deleted_at IS NULL").
		Group("quizzes.id, quizzes.title").
		Scan(&infos).Error
	return infos, err
}

// CountAttempts counts every attempt of the user, open ones included.
func (r *GormRepository) CountAttempts(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Attempt{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

// Counts totals every stored row, soft-deleted catalog entries included.
func (r *GormRepository) Counts(ctx context.Context) (Summary, error) {
	var s Summary
	db := r.db.WithContext(ctx).Unscoped()
	if err := db.Model(&models.User{}).Count(&s.Users).Error; err != nil {
		return Summary{}, err
	}
	if err := db.Model(&models.Subject{}).Count(&s.Subjects).Error; err != nil {
		return Summary{}, err
	}
	if err := db.Model(&models.Quiz{}).Count(&s.Quizzes).Error; err != nil {
		return Summary{}, err
	}
	if err := db.Model(&models.Attempt{}).Count(&s.Attempts).Error; err != nil {
		return Summary{}, err
	}
	return s, nil
}
