package model

import (
	"time"

	"github.com/google/uuid"
)

// Submission is one recorded attempt. Rows are immutable once written; the
// attempt ledger counts them against the allowed-attempts budget. Score is
// nil until grading runs (grading itself lives elsewhere).
type Submission struct {
	ID            uuid.UUID  `json:"id"`
	AssessmentID  uuid.UUID  `json:"assessment_id"`
	UserID        int        `json:"user_id"`
	SessionID     *uuid.UUID `json:"session_id,omitempty"`
	Score         *float64   `json:"score,omitempty"`
	AutoSubmitted bool       `json:"auto_submitted"`
	CreatedAt     time.Time  `json:"created_at"`
}
