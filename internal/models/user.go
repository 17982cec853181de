package models

import "time"

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User rows are written by the account service; this backend only reads them.
type User struct {
	ID            uint       `json:"id" gorm:"primaryKey"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	Email         string     `json:"email" gorm:"size:120;uniqueIndex;not null"`
	PasswordHash  string     `json:"-" gorm:"size:255"`
	FullName      string     `json:"full_name" gorm:"size:100;not null"`
	Qualification string     `json:"qualification"`
	DOB           *time.Time `json:"dob"`
	Role          string     `json:"role" gorm:"size:20;not null;default:user"`
}
