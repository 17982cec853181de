package models

import "time"

// At most one open attempt per (quiz, user): the partial unique index covers rows with no submitted_at.
type Attempt struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	QuizID      uint       `json:"quiz_id" gorm:"not null;index;index:idx_attempts_open,unique,where:submitted_at IS NULL"`
	UserID      uint       `json:"user_id" gorm:"not null;index;index:idx_attempts_open,unique,where:submitted_at IS NULL"`
	StartedAt   time.Time  `json:"started_at" gorm:"not null"`
	SubmittedAt *time.Time `json:"submitted_at"`
	Score       *int       `json:"score"`
	Quiz        Quiz       `json:"-" gorm:"foreignKey:QuizID"`
	Answers     []Answer   `json:"answers,omitempty" gorm:"foreignKey:AttemptID"`
}

func (a Attempt) Submitted() bool {
	return a.SubmittedAt != nil
}

type Answer struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	AttemptID      uint      `json:"attempt_id" gorm:"not null;index"`
	QuestionID     uint      `json:"question_id" gorm:"not null;index"`
	SelectedOption int       `json:"selected_option" gorm:"not null"`
}

// All lists every model in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Subject{},
		&Chapter{},
		&Quiz{},
		&Question{},
		&Attempt{},
		&Answer{},
	}
}
