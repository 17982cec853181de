package quiz

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"quiz-master/internal/models"
	"quiz-master/pkg/metrics"
)

type Service struct {
	store    Store
	cache    CatalogCache
	cacheTTL time.Duration
	now      func() time.Time
	log      *logrus.Entry
}

// NewService wires the quiz service. cache may be nil.
func NewService(store Store, cache CatalogCache, cacheTTL time.Duration, log *logrus.Entry) *Service {
	return &Service{
		store:    store,
		cache:    cache,
		cacheTTL: cacheTTL,
		now:      func() time.Time { return time.Now().UTC() },
		log:      log,
	}
}

type SubmitResult struct {
	AttemptID      uint      `json:"attempt_id"`
	Score          int       `json:"score"`
	TotalQuestions int       `json:"total_questions"`
	SubmittedAt    time.Time `json:"submitted_at"`
}

type AnswerDetail struct {
	QuestionID uint `json:"question_id"`
	Selected   int  `json:"selected"`
	Correct    int  `json:"correct"`
}

type AttemptDetail struct {
	AttemptID   uint           `json:"attempt_id"`
	QuizID      uint           `json:"quiz_id"`
	QuizTitle   string         `json:"quiz_title"`
	StartedAt   time.Time      `json:"started_at"`
	SubmittedAt *time.Time     `json:"submitted_at"`
	Score       *int           `json:"score"`
	Details     []AnswerDetail `json:"details"`
}

type AttemptSummary struct {
	ID          uint       `json:"id"`
	QuizID      uint       `json:"quiz_id"`
	Score       *int       `json:"score"`
	StartedAt   time.Time  `json:"started_at"`
	SubmittedAt *time.Time `json:"submitted_at"`
}

// StartAttempt returns the caller's open attempt on the quiz, or opens a new one.
// An open attempt past its deadline is closed with a zero score first.
func (s *Service) StartAttempt(ctx context.Context, quizID, userID uint) (*models.Attempt, bool, error) {
	log := s.log.WithFields(logrus.Fields{"quiz_id": quizID, "user_id": userID})

	quiz, err := s.store.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, false, err
	}

	now := s.now()
	if !quiz.IsOpen(now) {
		return nil, false, ErrQuizNotOpen
	}

	existing, err := s.store.FindOpenAttempt(ctx, quizID, userID)
	switch {
	case err == nil:
		deadline := quiz.Deadline(existing.StartedAt)
		if !now.After(deadline) {
			log.WithField("attempt_id", existing.ID).Info("Resuming open attempt")
			metrics.RecordAttempt("resumed")
			return existing, false, nil
		}
		if err := s.store.CloseExpiredAttempt(ctx, existing.ID, deadline); err != nil {
			return nil, false, err
		}
		log.WithField("attempt_id", existing.ID).Info("Closed expired attempt with zero score")
		metrics.RecordAttempt("expired")
	case errors.Is(err, ErrAttemptNotFound):
	default:
		return nil, false, err
	}

	attempt := &models.Attempt{
		QuizID:    quizID,
		UserID:    userID,
		StartedAt: now,
	}
	if err := s.store.CreateAttempt(ctx, attempt); err != nil {
		// A concurrent start may have won the open-attempt index.
		if open, findErr := s.store.FindOpenAttempt(ctx, quizID, userID); findErr == nil {
			return open, false, nil
		}
		return nil, false, err
	}

	log.WithField("attempt_id", attempt.ID).Info("Started attempt")
	metrics.RecordAttempt("started")
	return attempt, true, nil
}

// Deadline reports when the attempt stops accepting submissions.
func (s *Service) Deadline(ctx context.Context, attempt *models.Attempt) (time.Time, error) {
	quiz, err := s.store.GetQuiz(ctx, attempt.QuizID)
	if err != nil {
		return time.Time{}, err
	}
	return quiz.Deadline(attempt.StartedAt), nil
}

func (s *Service) SubmitAttempt(ctx context.Context, attemptID, userID uint, answers []SubmittedAnswer) (*SubmitResult, error) {
	log := s.log.WithFields(logrus.Fields{"attempt_id": attemptID, "user_id": userID})

	attempt, err := s.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.UserID != userID {
		return nil, ErrAttemptNotFound
	}
	if attempt.Submitted() {
		metrics.RecordAttempt("rejected")
		return nil, ErrAlreadySubmitted
	}

	now := s.now()
	if now.After(attempt.Quiz.Deadline(attempt.StartedAt)) {
		log.Info("Submission after deadline rejected")
		metrics.RecordAttempt("rejected")
		return nil, ErrTimeLimitExceeded
	}

	quiz, err := s.store.GetQuizWithQuestions(ctx, attempt.QuizID)
	if err != nil {
		return nil, err
	}

	rows, score, err := gradeAnswers(attempt.ID, quiz.Questions, answers)
	if err != nil {
		return nil, err
	}

	if err := s.store.SaveSubmission(ctx, attempt.ID, now, score, rows); err != nil {
		if errors.Is(err, ErrAlreadySubmitted) {
			metrics.RecordAttempt("rejected")
		}
		return nil, err
	}

	log.WithFields(logrus.Fields{"score": score, "answered": len(rows)}).Info("Attempt submitted")
	metrics.RecordAttempt("submitted")

	return &SubmitResult{
		AttemptID:      attempt.ID,
		Score:          score,
		TotalQuestions: len(quiz.Questions),
		SubmittedAt:    now,
	}, nil
}

func (s *Service) GetAttempt(ctx context.Context, attemptID, userID uint) (*AttemptDetail, error) {
	attempt, err := s.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.UserID != userID {
		return nil, ErrForbidden
	}

	questionIDs := make([]uint, len(attempt.Answers))
	for i, ans := range attempt.Answers {
		questionIDs[i] = ans.QuestionID
	}
	questions, err := s.store.GetQuestions(ctx, questionIDs)
	if err != nil {
		return nil, err
	}
	correct := make(map[uint]int, len(questions))
	for _, q := range questions {
		correct[q.ID] = q.CorrectOption
	}

	details := make([]AnswerDetail, len(attempt.Answers))
	for i, ans := range attempt.Answers {
		details[i] = AnswerDetail{
			QuestionID: ans.QuestionID,
			Selected:   ans.SelectedOption,
			Correct:    correct[ans.QuestionID],
		}
	}

	return &AttemptDetail{
		AttemptID:   attempt.ID,
		QuizID:      attempt.QuizID,
		QuizTitle:   attempt.Quiz.Title,
		StartedAt:   attempt.StartedAt,
		SubmittedAt: attempt.SubmittedAt,
		Score:       attempt.Score,
		Details:     details,
	}, nil
}

func (s *Service) ListAttempts(ctx context.Context, userID uint) ([]AttemptSummary, error) {
	attempts, err := s.store.ListAttemptsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]AttemptSummary, len(attempts))
	for i, a := range attempts {
		out[i] = AttemptSummary{
			ID:          a.ID,
			QuizID:      a.QuizID,
			Score:       a.Score,
			StartedAt:   a.StartedAt,
			SubmittedAt: a.SubmittedAt,
		}
	}
	return out, nil
}
