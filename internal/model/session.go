package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus enumerates assessment session states.
type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "active"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusCancelled SessionStatus = "cancelled"
)

// AssessmentSession represents a learner's attempt in progress. At most one
// row per (assessment, user) may be active at any time; the store enforces
// this with a partial unique index.
type AssessmentSession struct {
	ID           uuid.UUID     `json:"id"`
	AssessmentID uuid.UUID     `json:"assessment_id"`
	UserID       int           `json:"user_id"`
	Status       SessionStatus `json:"status"`
	StartedAt    time.Time     `json:"started_at"`
	LastResumeAt *time.Time    `json:"last_resume_at,omitempty"`
	ResumeCount  int           `json:"resume_count"`
	EndedAt      *time.Time    `json:"ended_at,omitempty"`
}

// Terminal reports whether the session has reached a final state.
func (s *AssessmentSession) Terminal() bool {
	return s.Status == SessionStatusCompleted || s.Status == SessionStatusCancelled
}
