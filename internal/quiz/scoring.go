package quiz

import (
	"fmt"

	"quiz-master/internal/models"
)

type SubmittedAnswer struct {
	QuestionID     uint `json:"question_id"`
	SelectedOption int  `json:"selected_option"`
}

// gradeAnswers turns a submission into answer rows and a score.
// Answers for questions outside the quiz are dropped; a repeated question keeps its last answer.
// Any option outside 1..4 rejects the whole submission.
func gradeAnswers(attemptID uint, questions []models.Question, submitted []SubmittedAnswer) ([]models.Answer, int, error) {
	correctByQuestion := make(map[uint]int, len(questions))
	for _, q := range questions {
		correctByQuestion[q.ID] = q.CorrectOption
	}

	latest := make(map[uint]int, len(submitted))
	order := make([]uint, 0, len(submitted))
	for _, ans := range submitted {
		if ans.SelectedOption < 1 || ans.SelectedOption > models.OptionCount {
			return nil, 0, fmt.Errorf("%w: question %d has option %d", ErrInvalidAnswer, ans.QuestionID, ans.SelectedOption)
		}
		if _, ok := correctByQuestion[ans.QuestionID]; !ok {
			continue
		}
		if _, seen := latest[ans.QuestionID]; !seen {
			order = append(order, ans.QuestionID)
		}
		latest[ans.QuestionID] = ans.SelectedOption
	}

	answers := make([]models.Answer, 0, len(order))
	score := 0
	for _, questionID := range order {
		selected := latest[questionID]
		answers = append(answers, models.Answer{
			AttemptID:      attemptID,
			QuestionID:     questionID,
			SelectedOption: selected,
		})
		if selected == correctByQuestion[questionID] {
			score++
		}
	}
	return answers, score, nil
}
