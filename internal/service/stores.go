package service

import (
	"context"
	"time"

	"github.com/courseloop/courseloop-backend/internal/model"
	"github.com/google/uuid"
)

// Narrow store contracts consumed by the attempt engine. The pgx-backed
// repositories satisfy them in production; tests substitute in-memory fakes.
// Absence is signalled with pgx.ErrNoRows throughout, matching what the
// repositories return.

// AssessmentStore reads assessment configuration.
type AssessmentStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Assessment, error)
}

// OverrideStore reads per-learner overrides.
type OverrideStore interface {
	GetByAssessmentAndUser(ctx context.Context, assessmentID uuid.UUID, userID int) (*model.AssessmentOverride, error)
}

// SessionStore mutates assessment sessions, the only state with concurrency
// exposure.
type SessionStore interface {
	GetActive(ctx context.Context, assessmentID uuid.UUID, userID int) (*model.AssessmentSession, error)
	GetScoped(ctx context.Context, id, assessmentID uuid.UUID, userID int) (*model.AssessmentSession, error)
	CreateActive(ctx context.Context, s *model.AssessmentSession) error
	IncrementResume(ctx context.Context, id uuid.UUID, now time.Time) (*model.AssessmentSession, error)
	SetTerminal(ctx context.Context, id uuid.UUID, status model.SessionStatus, endedAt time.Time) (bool, error)
	CompleteWithSubmission(ctx context.Context, s *model.AssessmentSession, now time.Time, auto bool) (bool, error)
}

// SubmissionStore counts recorded attempts.
type SubmissionStore interface {
	CountByAssessmentAndUser(ctx context.Context, assessmentID uuid.UUID, userID int) (int, error)
}
