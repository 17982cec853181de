package quiz

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"quiz-master/internal/models"
)

// Store is the persistence the quiz service needs.
type Store interface {
	ListSubjects(ctx context.Context) ([]models.Subject, error)
	ListChapters(ctx context.Context, subjectID uint) ([]models.Chapter, error)
	ListQuizzes(ctx context.Context, chapterID uint) ([]models.Quiz, error)
	GetQuiz(ctx context.Context, quizID uint) (*models.Quiz, error)
	GetQuizWithQuestions(ctx context.Context, quizID uint) (*models.Quiz, error)

	FindOpenAttempt(ctx context.Context, quizID, userID uint) (*models.Attempt, error)
	CreateAttempt(ctx context.Context, attempt *models.Attempt) error
	CloseExpiredAttempt(ctx context.Context, attemptID uint, deadline time.Time) error
	GetAttempt(ctx context.Context, attemptID uint) (*models.Attempt, error)
	SaveSubmission(ctx context.Context, attemptID uint, submittedAt time.Time, score int, answers []models.Answer) error
	ListAttemptsByUser(ctx context.Context, userID uint) ([]models.Attempt, error)
	GetQuestions(ctx context.Context, questionIDs []uint) ([]models.Question, error)
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) ListSubjects(ctx context.Context) ([]models.Subject, error) {
	var subjects []models.Subject
	err := r.db.WithContext(ctx).Order("id asc").Find(&subjects).Error
	return subjects, err
}

func (r *Repository) ListChapters(ctx context.Context, subjectID uint) ([]models.Chapter, error) {
	var chapters []models.Chapter
	err := r.db.WithContext(ctx).
		Where("subject_id = ?", subjectID).
		Order("id asc").
		Find(&chapters).Error
	return chapters, err
}

func (r *Repository) ListQuizzes(ctx context.Context, chapterID uint) ([]models.Quiz, error) {
	var quizzes []models.Quiz
	err := r.db.WithContext(ctx).
		Where("chapter_id = ?", chapterID).
		Order("id asc").
		Find(&quizzes).Error
	return quizzes, err
}

func (r *Repository) GetQuiz(ctx context.Context, quizID uint) (*models.Quiz, error) {
	var quiz models.Quiz
	err := r.db.WithContext(ctx).First(&quiz, quizID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrQuizNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get quiz %d: %w", quizID, err)
	}
	return &quiz, nil
}

func (r *Repository) GetQuizWithQuestions(ctx context.Context, quizID uint) (*models.Quiz, error) {
	var quiz models.Quiz
	err := r.db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("questions.id asc")
		}).
		First(&quiz, quizID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrQuizNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get quiz %d with questions: %w", quizID, err)
	}
	return &quiz, nil
}

func (r *Repository) FindOpenAttempt(ctx context.Context, quizID, userID uint) (*models.Attempt, error) {
	var attempt models.Attempt
	err := r.db.WithContext(ctx).
		Where("quiz_id = ? AND user_id = ? AND submitted_at IS NULL", quizID, userID).
		Order("started_at desc").
		First(&attempt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAttemptNotFound
	}
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *Repository) CreateAttempt(ctx context.Context, attempt *models.Attempt) error {
	return r.db.WithContext(ctx).Omit("Quiz", "Answers").Create(attempt).Error
}

// CloseExpiredAttempt finalizes an open attempt with a zero score at its deadline.
func (r *Repository) CloseExpiredAttempt(ctx context.Context, attemptID uint, deadline time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Attempt{}).
		Where("id = ? AND submitted_at IS NULL", attemptID).
		Updates(map[string]interface{}{
			"submitted_at": deadline,
			"score":        0,
		}).Error
}

// GetAttempt loads the attempt with its answers and quiz. Deleted quizzes still resolve so
// history stays readable.
func (r *Repository) GetAttempt(ctx context.Context, attemptID uint) (*models.Attempt, error) {
	var attempt models.Attempt
	err := r.db.WithContext(ctx).
		Preload("Answers", func(db *gorm.DB) *gorm.DB {
			return db.Order("answers.id asc")
		}).
		Preload("Quiz", func(db *gorm.DB) *gorm.DB {
			return db.Unscoped()
		}).
		First(&attempt, attemptID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAttemptNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get attempt %d: %w", attemptID, err)
	}
	return &attempt, nil
}

// SaveSubmission closes the attempt and stores its answers in one transaction.
// The close only matches an open attempt, so a racing second submit gets ErrAlreadySubmitted.
func (r *Repository) SaveSubmission(ctx context.Context, attemptID uint, submittedAt time.Time, score int, answers []models.Answer) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Attempt{}).
			Where("id = ? AND submitted_at IS NULL", attemptID).
			Updates(map[string]interface{}{
				"submitted_at": submittedAt,
				"score":        score,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAlreadySubmitted
		}
		if len(answers) == 0 {
			return nil
		}
		return tx.Create(&answers).Error
	})
}

func (r *Repository) ListAttemptsByUser(ctx context.Context, userID uint) ([]models.Attempt, error) {
	var attempts []models.Attempt
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("started_at asc").
		Find(&attempts).Error
	return attempts, err
}

// GetQuestions includes soft-deleted questions; it backs attempt history.
func (r *Repository) GetQuestions(ctx context.Context, questionIDs []uint) ([]models.Question, error) {
	if len(questionIDs) == 0 {
		return nil, nil
	}
	var questions []models.Question
	err := r.db.WithContext(ctx).Unscoped().
		Where("id IN ?", questionIDs).
		Find(&questions).Error
	return questions, err
}
