package models

import (
	"time"

	"gorm.io/gorm"
)

type Subject struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
	Name        string         `json:"name" gorm:"size:100;not null"`
	Description string         `json:"description"`
	Chapters    []Chapter      `json:"chapters,omitempty" gorm:"foreignKey:SubjectID"`
}

type Chapter struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
	SubjectID   uint           `json:"subject_id" gorm:"not null;index"`
	Name        string         `json:"name" gorm:"size:100;not null"`
	Description string         `json:"description"`
	Quizzes     []Quiz         `json:"quizzes,omitempty" gorm:"foreignKey:ChapterID"`
}

type Quiz struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
	ChapterID   uint           `json:"chapter_id" gorm:"not null;index"`
	Title       string         `json:"title" gorm:"size:150;not null"`
	ScheduledAt *time.Time     `json:"scheduled_at"`
	DurationMin int            `json:"duration_min" gorm:"not null"`
	Questions   []Question     `json:"questions,omitempty" gorm:"foreignKey:QuizID"`
}

// Deadline is the latest moment an attempt started at startedAt may be submitted.
func (q Quiz) Deadline(startedAt time.Time) time.Time {
	return startedAt.Add(time.Duration(q.DurationMin) * time.Minute)
}

// IsOpen reports whether the quiz can be attempted at now.
func (q Quiz) IsOpen(now time.Time) bool {
	return q.ScheduledAt == nil || !now.Before(*q.ScheduledAt)
}

// OptionCount is the number of options every question carries.
const OptionCount = 4

type Question struct {
	ID            uint           `json:"id" gorm:"primaryKey"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `json:"-" gorm:"index"`
	QuizID        uint           `json:"quiz_id" gorm:"not null;index"`
	Statement     string         `json:"statement" gorm:"not null"`
	Option1       string         `json:"option1" gorm:"size:200;not null"`
	Option2       string         `json:"option2" gorm:"size:200;not null"`
	Option3       string         `json:"option3" gorm:"size:200;not null"`
	Option4       string         `json:"option4" gorm:"size:200;not null"`
	CorrectOption int            `json:"correct_option" gorm:"not null"`
}

func (q Question) Options() []string {
	return []string{q.Option1, q.Option2, q.Option3, q.Option4}
}
