package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// AttemptLedger counts recorded attempts (submissions) for a learner on an
// assessment.
type AttemptLedger struct {
	submissions SubmissionStore
	log         zerolog.Logger
}

// NewAttemptLedger creates a new AttemptLedger.
func NewAttemptLedger(submissions SubmissionStore, log zerolog.Logger) *AttemptLedger {
	return &AttemptLedger{
		submissions: submissions,
		log:         log.With().Str("component", "attempt_ledger").Logger(),
	}
}

// CountAttempts returns the number of recorded attempts. Read failures are
// logged and counted as zero: blocking a learner from starting over a
// transient read error is worse than occasionally under-counting. This is
// the single fail-open exception in the engine.
func (l *AttemptLedger) CountAttempts(ctx context.Context, assessmentID uuid.UUID, userID int) int {
	n, err := l.submissions.CountByAssessmentAndUser(ctx, assessmentID, userID)
	if err != nil {
		l.log.Warn().Err(err).
			Str("assessment_id", assessmentID.String()).
			Int("user_id", userID).
			Msg("Attempt count failed, treating as zero")
		return 0
	}
	return n
}
