package models

import "time"

type SubjectDTO struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

type ChapterDTO struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

type QuizDTO struct {
	ID          uint       `json:"id"`
	Title       string     `json:"title"`
	DurationMin int        `json:"duration_min"`
	ScheduledAt *time.Time `json:"scheduled_at"`
}

// QuestionDTO never carries the correct option.
type QuestionDTO struct {
	QuestionID uint     `json:"question_id"`
	Statement  string   `json:"statement"`
	Options    []string `json:"options"`
}

type FullQuizDTO struct {
	QuizID      uint          `json:"quiz_id"`
	Title       string        `json:"title"`
	DurationMin int           `json:"duration_min"`
	Questions   []QuestionDTO `json:"questions"`
}

func (q Question) ToDTO() QuestionDTO {
	return QuestionDTO{
		QuestionID: q.ID,
		Statement:  q.Statement,
		Options:    q.Options(),
	}
}

func (q Quiz) ToDTO() QuizDTO {
	return QuizDTO{
		ID:          q.ID,
		Title:       q.Title,
		DurationMin: q.DurationMin,
		ScheduledAt: q.ScheduledAt,
	}
}

func (q Quiz) ToFullDTO() FullQuizDTO {
	questions := make([]QuestionDTO, len(q.Questions))
	for i, question := range q.Questions {
		questions[i] = question.ToDTO()
	}
	return FullQuizDTO{
		QuizID:      q.ID,
		Title:       q.Title,
		DurationMin: q.DurationMin,
		Questions:   questions,
	}
}
