package content

import (
	"errors"
	"time"
)

var (
	ErrNotFound        = errors.New("content: not found")
	ErrAlreadyEnrolled = errors.New("content: account already enrolled")
)

// Subject is a top-level catalog grouping inside a workspace.
type Subject struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspace_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Course belongs to a subject and is only visible to students once
// published.
type Course struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspace_id"`
	SubjectID   string    `json:"subject_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Published   bool      `json:"published"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type EnrollmentStatus string

const (
	EnrollmentActive    EnrollmentStatus = "active"
	EnrollmentCompleted EnrollmentStatus = "completed"
	EnrollmentCancelled EnrollmentStatus = "cancelled"
)

// Enrollment ties an account to a course within one workspace.
type Enrollment struct {
	ID          string           `json:"id"`
	WorkspaceID string           `json:"workspace_id"`
	CourseID    string           `json:"course_id"`
	AccountID   string           `json:"account_id"`
	Status      EnrollmentStatus `json:"status"`
	EnrolledAt  time.Time        `json:"enrolled_at"`
}
