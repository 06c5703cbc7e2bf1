package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	Email     string         `gorm:"unique;not null" json:"email"`
	Password  string         `gorm:"not null" json:"-"`
	Name      string         `json:"name"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Submissions []Submission `gorm:"foreignKey:UserID" json:"submissions,omitempty"`
}

// Submission status values.
const (
	SubmissionSubmitted = "submitted"
	SubmissionRejected  = "rejected"
)

// Submission is the local record of one job submission attempt. The batch
// service stays authoritative for job state and ownership.
type Submission struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	UserID       uint      `gorm:"index;not null" json:"user_id"`
	UserEmail    string    `gorm:"not null" json:"user_email"`
	Identity     string    `gorm:"index;not null" json:"identity"`
	JobID        string    `gorm:"not null" json:"job_id"`
	JobName      string    `json:"job_name,omitempty"`
	Keywords     []string  `gorm:"serializer:json;type:jsonb" json:"keywords"`
	Status       string    `gorm:"default:'submitted'" json:"status"` // submitted, rejected
	ErrorMessage string    `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
