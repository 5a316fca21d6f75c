package model

import (
	"time"

	"github.com/google/uuid"
)

// Assessment represents a timed assessment configuration. It is created and
// edited by administrators and read-only to the attempt engine.
type Assessment struct {
	ID               uuid.UUID  `json:"id"`
	CourseID         uuid.UUID  `json:"course_id"`
	Title            string     `json:"title"`
	DurationMinutes  *int       `json:"duration_minutes,omitempty"` // nil = unlimited
	StartAt          *time.Time `json:"start_at,omitempty"`
	EndAt            *time.Time `json:"end_at,omitempty"`
	AllowedAttempts  *int       `json:"allowed_attempts,omitempty"`
	ResumeLimit      *int       `json:"resume_limit,omitempty"`
	AllowedLanguages []string   `json:"allowed_languages"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// AssessmentOverride relaxes or tightens assessment rules for one learner.
// At most one row exists per (assessment, user). A nil field means "no
// override" for that field. Duration can never be overridden.
type AssessmentOverride struct {
	ID               uuid.UUID  `json:"id"`
	AssessmentID     uuid.UUID  `json:"assessment_id"`
	UserID           int        `json:"user_id"`
	MaxAttempts      *int       `json:"max_attempts,omitempty"`
	ResumeLimit      *int       `json:"resume_limit,omitempty"`
	StartAt          *time.Time `json:"start_at,omitempty"`
	EndAt            *time.Time `json:"end_at,omitempty"`
	AllowedLanguages []string   `json:"allowed_languages,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// CreateAssessmentRequest is the payload for creating an assessment.
type CreateAssessmentRequest struct {
	CourseID         uuid.UUID  `json:"course_id" binding:"required"`
	Title            string     `json:"title" binding:"required,min=3,max=255"`
	DurationMinutes  *int       `json:"duration_minutes" binding:"omitempty,min=1,max=480"`
	StartAt          *time.Time `json:"start_at" binding:"omitempty"`
	EndAt            *time.Time `json:"end_at" binding:"omitempty,gtfield=StartAt"`
	AllowedAttempts  *int       `json:"allowed_attempts" binding:"omitempty,min=1"`
	ResumeLimit      *int       `json:"resume_limit" binding:"omitempty,min=0"`
	AllowedLanguages []string   `json:"allowed_languages" binding:"omitempty,dive,min=1"`
}

// UpdateAssessmentRequest is the payload for updating an assessment.
type UpdateAssessmentRequest struct {
	Title            string     `json:"title" binding:"omitempty,min=3,max=255"`
	DurationMinutes  *int       `json:"duration_minutes" binding:"omitempty,min=1,max=480"`
	StartAt          *time.Time `json:"start_at" binding:"omitempty"`
	EndAt            *time.Time `json:"end_at" binding:"omitempty,gtfield=StartAt"`
	AllowedAttempts  *int       `json:"allowed_attempts" binding:"omitempty,min=1"`
	ResumeLimit      *int       `json:"resume_limit" binding:"omitempty,min=0"`
	AllowedLanguages []string   `json:"allowed_languages" binding:"omitempty,dive,min=1"`
}

// PutOverrideRequest is the payload for creating or replacing a per-learner
// override.
type PutOverrideRequest struct {
	MaxAttempts      *int       `json:"max_attempts" binding:"omitempty,min=1"`
	ResumeLimit      *int       `json:"resume_limit" binding:"omitempty,min=0"`
	StartAt          *time.Time `json:"start_at" binding:"omitempty"`
	EndAt            *time.Time `json:"end_at" binding:"omitempty,gtfield=StartAt"`
	AllowedLanguages []string   `json:"allowed_languages" binding:"omitempty,dive,min=1"`
}
