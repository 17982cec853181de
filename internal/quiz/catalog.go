package quiz

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"quiz-master/internal/models"
)

// CatalogCache is the subset of the Redis cache the catalog reads go through.
type CatalogCache interface {
	GetJSON(ctx context.Context, key string, dst interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

func (s *Service) ListSubjects(ctx context.Context) ([]models.SubjectDTO, error) {
	var out []models.SubjectDTO
	err := s.cached(ctx, "catalog:subjects", &out, func() error {
		subjects, err := s.store.ListSubjects(ctx)
		if err != nil {
			return err
		}
		out = make([]models.SubjectDTO, len(subjects))
		for i, subject := range subjects {
			out[i] = models.SubjectDTO{ID: subject.ID, Name: subject.Name}
		}
		return nil
	})
	return out, err
}

func (s *Service) ListChapters(ctx context.Context, subjectID uint) ([]models.ChapterDTO, error) {
	var out []models.ChapterDTO
	key := fmt.Sprintf("catalog:subject:%d:chapters", subjectID)
	err := s.cached(ctx, key, &out, func() error {
		chapters, err := s.store.ListChapters(ctx, subjectID)
		if err != nil {
			return err
		}
		out = make([]models.ChapterDTO, len(chapters))
		for i, chapter := range chapters {
			out[i] = models.ChapterDTO{ID: chapter.ID, Name: chapter.Name}
		}
		return nil
	})
	return out, err
}

func (s *Service) ListQuizzes(ctx context.Context, chapterID uint) ([]models.QuizDTO, error) {
	var out []models.QuizDTO
	key := fmt.Sprintf("catalog:chapter:%d:quizzes", chapterID)
	err := s.cached(ctx, key, &out, func() error {
		quizzes, err := s.store.ListQuizzes(ctx, chapterID)
		if err != nil {
			return err
		}
		out = make([]models.QuizDTO, len(quizzes))
		for i, quiz := range quizzes {
			out[i] = quiz.ToDTO()
		}
		return nil
	})
	return out, err
}

// GetFullQuiz returns the quiz with its questions, without correct options.
func (s *Service) GetFullQuiz(ctx context.Context, quizID uint) (models.FullQuizDTO, error) {
	var out models.FullQuizDTO
	key := fmt.Sprintf("catalog:quiz:%d:full", quizID)
	err := s.cached(ctx, key, &out, func() error {
		quiz, err := s.store.GetQuizWithQuestions(ctx, quizID)
		if err != nil {
			return err
		}
		out = quiz.ToFullDTO()
		return nil
	})
	return out, err
}

// cached is cache-aside: a hit fills dst, a miss runs load and stores dst.
// Cache errors are logged and never fail the read.
func (s *Service) cached(ctx context.Context, key string, dst interface{}, load func() error) error {
	if s.cache != nil {
		hit, err := s.cache.GetJSON(ctx, key, dst)
		if err != nil {
			s.log.WithError(err).WithField("key", key).Warn("catalog cache read failed")
		}
		if hit {
			return nil
		}
	}

	if err := load(); err != nil {
		return err
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, key, dst, s.cacheTTL); err != nil {
			s.log.WithFields(logrus.Fields{"key": key}).WithError(err).Warn("catalog cache write failed")
		}
	}
	return nil
}
