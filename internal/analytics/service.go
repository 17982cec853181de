package analytics

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
)

var ErrQuizNotFound = errors.New("quiz not found")

const (
	DefaultLeaderboardLimit = 10
	MaxLeaderboardLimit     = 100
	DefaultHardestLimit     = 5
)

type UserSummary struct {
	TotalAttempts int     `json:"total_attempts"`
	AverageScore  float64 `json:"average_score"`
	Ranking       *int    `json:"ranking"`
}

type Service struct {
	repo Repository
	log  *logrus.Entry
}

func NewService(repo Repository, log *logrus.Entry) *Service {
	return &Service{repo: repo, log: log}
}

func (s *Service) QuizLeaderboard(ctx context.Context, quizID uint, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}
	if limit > MaxLeaderboardLimit {
		limit = MaxLeaderboardLimit
	}
	rows, err := s.repo.SubmittedAttempts(ctx, AttemptFilter{QuizID: quizID})
	if err != nil {
		return nil, err
	}
	return Leaderboard(rows, limit), nil
}

func (s *Service) UserRanking(ctx context.Context, userID uint) (Ranking, error) {
	rows, err := s.repo.SubmittedAttempts(ctx, AttemptFilter{})
	if err != nil {
		return Ranking{}, err
	}
	return RankUser(rows, userID), nil
}

func (s *Service) UserMonthly(ctx context.Context, userID uint) ([]MonthlyAverage, error) {
	rows, err := s.repo.SubmittedAttempts(ctx, AttemptFilter{UserID: userID})
	if err != nil {
		return nil, err
	}
	return MonthlyAverages(rows), nil
}

func (s *Service) QuizDifficulty(ctx context.Context, quizID uint) ([]QuestionDifficulty, error) {
	exists, err := s.repo.QuizExists(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrQuizNotFound
	}

	questionIDs, err := s.repo.QuestionIDs(ctx, quizID)
	if err != nil {
		return nil, err
	}
	answers, err := s.repo.QuizAnswers(ctx, quizID)
	if err != nil {
		return nil, err
	}
	return Difficulty(questionIDs, answers), nil
}

func (s *Service) HardestQuizzes(ctx context.Context, limit int) ([]QuizDifficulty, error) {
	if limit <= 0 {
		limit = DefaultHardestLimit
	}
	quizzes, err := s.repo.QuizInfos(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.SubmittedAttempts(ctx, AttemptFilter{})
	if err != nil {
		return nil, err
	}
	return Hardest(quizzes, rows, limit), nil
}

func (s *Service) AdminSummary(ctx context.Context) (Summary, error) {
	return s.repo.Counts(ctx)
}

func (s *Service) UserSummary(ctx context.Context, userID uint) (UserSummary, error) {
	rows, err := s.repo.SubmittedAttempts(ctx, AttemptFilter{})
	if err != nil {
		return UserSummary{}, err
	}

	total, err := s.repo.CountAttempts(ctx, userID)
	if err != nil {
		return UserSummary{}, err
	}

	var own []AttemptRow
	for _, row := range rows {
		if row.UserID == userID {
			own = append(own, row)
		}
	}

	s.log.WithFields(logrus.Fields{"user_id": userID, "attempts": total, "submitted": len(own)}).Debug("Computed user summary")
	return UserSummary{
		TotalAttempts: int(total),
		AverageScore:  Average(own),
		Ranking:       RankUser(rows, userID).Ranking,
	}, nil
}
