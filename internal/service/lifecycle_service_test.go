package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/courseloop/courseloop-backend/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func TestStartCreatesActiveSession(t *testing.T) {
	store := newMemStore()
	lifecycle, _ := newEngine(store)
	aid := store.seedAssessment(&model.Assessment{AllowedAttempts: intPtr(3)})

	session, err := lifecycle.Start(context.Background(), aid, 42, testNow)
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, session.ID)
	require.Equal(t, model.SessionStatusActive, session.Status)
	require.Equal(t, aid, session.AssessmentID)
	require.Equal(t, 42, session.UserID)
	require.Equal(t, testNow, session.StartedAt)
	require.Zero(t, session.ResumeCount)
}

func TestStartUnknownAssessment(t *testing.T) {
	store := newMemStore()
	lifecycle, _ := newEngine(store)

	_, err := lifecycle.Start(context.Background(), uuid.New(), 42, testNow)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStartOutsideWindow(t *testing.T) {
	store := newMemStore()
	lifecycle, _ := newEngine(store)
	start := testNow.Add(time.Hour)
	end := testNow.Add(2 * time.Hour)
	aid := store.seedAssessment(&model.Assessment{StartAt: &start, EndAt: &end})

	_, err := lifecycle.Start(context.Background(), aid, 42, testNow)
	var werr *WindowClosedError
	require.ErrorAs(t, err, &werr)
	require.Equal(t, WindowEdgeBefore, werr.Edge)
	require.Contains(t, werr.Error(), "assessment opens at 2025-03-10T10:00:00Z")

	_, err = lifecycle.Start(context.Background(), aid, 42, end.Add(time.Minute))
	require.ErrorAs(t, err, &werr)
	require.Equal(t, WindowEdgeAfter, werr.Edge)
	require.Contains(t, werr.Error(), "assessment closed at 2025-03-10T11:00:00Z")
}

func TestStartAttemptsExhausted(t *testing.T) {
	store := newMemStore()
	lifecycle, _ := newEngine(store)
	aid := store.seedAssessment(&model.Assessment{AllowedAttempts: intPtr(2)})
	store.seedSubmissions(aid, 42, 2)

	_, err := lifecycle.Start(context.Background(), aid, 42, testNow)
	var aerr *AttemptsExhaustedError
	require.ErrorAs(t, err, &aerr)
	require.Equal(t, 2, aerr.Used)
	require.Equal(t, 2, aerr.Allowed)
}

func TestStartOverrideRaisesAttemptBudget(t *testing.T) {
	store := newMemStore()
	lifecycle, _ := newEngine(store)
	aid := store.seedAssessment(&model.Assessment{AllowedAttempts: intPtr(1)})
	store.seedOverride(&model.AssessmentOverride{AssessmentID: aid, UserID: 42, MaxAttempts: intPtr(3)})
	store.seedSubmissions(aid, 42, 1)

	_, err := lifecycle.Start(context.Background(), aid, 42, testNow)
	require.NoError(t, err)

	// A learner without the override is still capped at one attempt.
	store.seedSubmissions(aid, 7, 1)
	_, err = lifecycle.Start(context.Background(), aid, 7, testNow)
	var aerr *AttemptsExhaustedError
	require.ErrorAs(t, err, &aerr)
}

func TestStartConflictsWithActiveSession(t *testing.T) {
	store := newMemStore()
	lifecycle, _ := newEngine(store)
	aid := store.seedAssessment(&model.Assessment{AllowedAttempts: intPtr(5), ResumeLimit: intPtr(3)})

	first, err := lifecycle.Start(context.Background(), aid, 42, testNow)
	require.NoError(t, err)

	_, err = lifecycle.Start(context.Background(), aid, 42, testNow.Add(time.Minute))
	var cerr *ActiveSessionExistsError
	require.ErrorAs(t, err, &cerr)
	require.Equal(t, first.ID, cerr.SessionID)
}

func TestStartConcurrentDuplicateLosesToWinner(t *testing.T) {
	store := newMemStore()
	lifecycle, _ := newEngine(store)
	aid := store.seedAssessment(&model.Assessment{AllowedAttempts: intPtr(5)})

	winner := uuid.New()
	store.onCreate = func() {
		store.sessions[winner] = &model.AssessmentSession{
			ID:           winner,
			AssessmentID: aid,
			UserID:       42,
			Status:       model.SessionStatusActive,
			StartedAt:    testNow,
		}
	}

	_, err := lifecycle.Start(context.Background(), aid, 42, testNow)
	var cerr *ActiveSessionExistsError
	require.ErrorAs(t, err, &cerr)
	require.Equal(t, winner, cerr.SessionID)
}

func TestStartExpiresStaleSession(t *testing.T) {
	store := newMemStore()
	lifecycle, _ := newEngine(store)
	aid := store.seedAssessment(&model.Assessment{AllowedAttempts: intPtr(3), DurationMinutes: intPtr(60)})

	stale, err := lifecycle.Start(context.Background(), aid, 42, testNow.Add(-2*time.Hour))
	require.NoError(t, err)

	fresh, err := lifecycle.Start(context.Background(), aid, 42, testNow)
	require.NoError(t, err)
	require.NotEqual(t, stale.ID, fresh.ID)

	// The stale session was completed and its abandoned attempt recorded.
	require.Equal(t, model.SessionStatusCompleted, store.sessions[stale.ID].Status)
	require.Len(t, store.submissions, 1)
	require.True(t, store.submissions[0].AutoSubmitted)
	require.Equal(t, stale.ID, *store.submissions[0].SessionID)
}

func TestStartBlockedWhenExpiryConsumesLastAttempt(t *testing.T) {
	store := newMemStore()
	lifecycle, _ := newEngine(store)
	aid := store.seedAssessment(&model.Assessment{AllowedAttempts: intPtr(1), DurationMinutes: intPtr(60)})

	_, err := lifecycle.Start(context.Background(), aid, 42, testNow.Add(-2*time.Hour))
	require.NoError(t, err)

	_, err = lifecycle.Start(context.Background(), aid, 42, testNow)
	var aerr *AttemptsExhaustedError
	require.ErrorAs(t, err, &aerr)
	require.Equal(t, 1, aerr.Used)
}

func TestStartCancelsResumeExhaustedSession(t *testing.T) {
	store := newMemStore()
	lifecycle, _ := newEngine(store)
	aid := store.seedAssessment(&model.Assessment{AllowedAttempts: intPtr(3), ResumeLimit: intPtr(1)})

	old, err := lifecycle.Start(context.Background(), aid, 42, testNow.Add(-time.Hour))
	require.NoError(t, err)
	_, err = lifecycle.Resume(context.Background(), old.ID, aid, 42, testNow.Add(-30*time.Minute))
	require.NoError(t, err)

	// The old session used its only resume; a new start replaces it instead
	// of bouncing off the conflict.
	fresh, err := lifecycle.Start(context.Background(), aid, 42, testNow)
	require.NoError(t, err)
	require.NotEqual(t, old.ID, fresh.ID)
	require.Equal(t, model.SessionStatusCancelled, store.sessions[old.ID].Status)

	// Cancellation records no submission, so no attempt was consumed.
	require.Empty(t, store.submissions)
}

func TestResumeIncrementsCount(t *testing.T) {
	store := newMemStore()
	lifecycle, _ := newEngine(store)
	aid := store.seedAssessment(&model.Assessment{ResumeLimit: intPtr(2)})

	session, err := lifecycle.Start(context.Background(), aid, 42, testNow)
	require.NoError(t, err)

	later := testNow.Add(10 * time.Minute)
	updated, err := lifecycle.Resume(context.Background(), session.ID, aid, 42, later)
	require.NoError(t, err)
	require.Equal(t, 1, updated.ResumeCount)
	require.Equal(t, later, *updated.LastResumeAt)
	require.Equal(t, model.SessionStatusActive, updated.Status)
}

func TestResumeUnknownOrForeignSession(t *testing.T) {
	store := newMemStore()
	lifecycle, _ := newEngine(store)
	aid := store.seedAssessment(&model.Assessment{ResumeLimit: intPtr(2)})

	session, err := lifecycle.Start(context.Background(), aid, 42, testNow)
	require.NoError(t, err)

	_, err = lifecycle.Resume(context.Background(), uuid.New(), aid, 42, testNow)
	require.ErrorIs(t, err, ErrNotFound)

	// Another learner probing the session id gets the same answer as a
	// missing session.
	_, err = lifecycle.Resume(context.Background(), session.ID, aid, 99, testNow)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestResumeAfterWindowCloses(t *testing.T) {
	store := newMemStore()
	lifecycle, _ := newEngine(store)
	end := testNow.Add(30 * time.Minute)
	aid := store.seedAssessment(&model.Assessment{EndAt: &end, ResumeLimit: intPtr(2)})

	session, err := lifecycle.Start(context.Background(), aid, 42, testNow)
	require.NoError(t, err)

	_, err = lifecycle.Resume(context.Background(), session.ID, aid, 42, end.Add(time.Minute))
	var werr *WindowClosedError
	require.ErrorAs(t, err, &werr)
	require.Equal(t, WindowEdgeAfter, werr.Edge)
}

func TestResumeTerminalSession(t *testing.T) {
	store := newMemStore()
	lifecycle, _ := newEngine(store)
	aid := store.seedAssessment(&model.Assessment{ResumeLimit: intPtr(2)})

	session, err := lifecycle.Start(context.Background(), aid, 42, testNow)
	require.NoError(t, err)
	_, err = lifecycle.Finish(context.Background(), session.ID, aid, 42, testNow.Add(time.Minute))
	require.NoError(t, err)

	_, err = lifecycle.Resume(context.Background(), session.ID, aid, 42, testNow.Add(2*time.Minute))
	var serr *SessionNotActiveError
	require.ErrorAs(t, err, &serr)
	require.Equal(t, model.SessionStatusCompleted, serr.Status)
}

func TestResumeExpiredSession(t *testing.T) {
	store := newMemStore()
	lifecycle, _ := newEngine(store)
	aid := store.seedAssessment(&model.Assessment{DurationMinutes: intPtr(30), ResumeLimit: intPtr(2)})

	session, err := lifecycle.Start(context.Background(), aid, 42, testNow)
	require.NoError(t, err)

	_, err = lifecycle.Resume(context.Background(), session.ID, aid, 42, testNow.Add(time.Hour))
	var serr *SessionNotActiveError
	require.ErrorAs(t, err, &serr)

	require.Equal(t, model.SessionStatusCompleted, store.sessions[session.ID].Status)
	require.Len(t, store.submissions, 1)
	require.True(t, store.submissions[0].AutoSubmitted)
}

func TestResumeLimitExceededCancelsSession(t *testing.T) {
	store := newMemStore()
	lifecycle, _ := newEngine(store)
	aid := store.seedAssessment(&model.Assessment{AllowedAttempts: intPtr(3), ResumeLimit: intPtr(1)})

	session, err := lifecycle.Start(context.Background(), aid, 42, testNow)
	require.NoError(t, err)
	_, err = lifecycle.Resume(context.Background(), session.ID, aid, 42, testNow.Add(5*time.Minute))
	require.NoError(t, err)

	_, err = lifecycle.Resume(context.Background(), session.ID, aid, 42, testNow.Add(10*time.Minute))
	var rerr *ResumeCountExceededError
	require.ErrorAs(t, err, &rerr)
	require.Equal(t, 1, rerr.Limit)
	require.Equal(t, model.SessionStatusCancelled, store.sessions[session.ID].Status)
}

func TestResumeLimitZeroForbidsAnyResume(t *testing.T) {
	store := newMemStore()
	lifecycle, _ := newEngine(store)
	aid := store.seedAssessment(&model.Assessment{})

	session, err := lifecycle.Start(context.Background(), aid, 42, testNow)
	require.NoError(t, err)

	_, err = lifecycle.Resume(context.Background(), session.ID, aid, 42, testNow.Add(time.Minute))
	var rerr *ResumeCountExceededError
	require.ErrorAs(t, err, &rerr)
	require.Equal(t, 0, rerr.Limit)
}

func TestFinishRecordsSubmission(t *testing.T) {
	store := newMemStore()
	lifecycle, _ := newEngine(store)
	aid := store.seedAssessment(&model.Assessment{AllowedAttempts: intPtr(2)})

	session, err := lifecycle.Start(context.Background(), aid, 42, testNow)
	require.NoError(t, err)

	endedAt := testNow.Add(20 * time.Minute)
	finished, err := lifecycle.Finish(context.Background(), session.ID, aid, 42, endedAt)
	require.NoError(t, err)
	require.Equal(t, model.SessionStatusCompleted, finished.Status)
	require.Equal(t, endedAt, *finished.EndedAt)

	require.Len(t, store.submissions, 1)
	require.False(t, store.submissions[0].AutoSubmitted)
	require.Equal(t, session.ID, *store.submissions[0].SessionID)
}

func TestFinishIsIdempotent(t *testing.T) {
	store := newMemStore()
	lifecycle, _ := newEngine(store)
	aid := store.seedAssessment(&model.Assessment{AllowedAttempts: intPtr(2)})

	session, err := lifecycle.Start(context.Background(), aid, 42, testNow)
	require.NoError(t, err)

	first, err := lifecycle.Finish(context.Background(), session.ID, aid, 42, testNow.Add(10*time.Minute))
	require.NoError(t, err)

	// A retried finish converges on the same terminal state and does not
	// record a second submission.
	second, err := lifecycle.Finish(context.Background(), session.ID, aid, 42, testNow.Add(15*time.Minute))
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, model.SessionStatusCompleted, second.Status)
	require.Equal(t, *first.EndedAt, *second.EndedAt)
	require.Len(t, store.submissions, 1)
}

func TestFinishUnknownSession(t *testing.T) {
	store := newMemStore()
	lifecycle, _ := newEngine(store)
	aid := store.seedAssessment(&model.Assessment{})

	_, err := lifecycle.Finish(context.Background(), uuid.New(), aid, 42, testNow)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFinishAfterWindowStillSucceeds(t *testing.T) {
	store := newMemStore()
	lifecycle, _ := newEngine(store)
	end := testNow.Add(30 * time.Minute)
	aid := store.seedAssessment(&model.Assessment{EndAt: &end})

	session, err := lifecycle.Start(context.Background(), aid, 42, testNow)
	require.NoError(t, err)

	// Finishing is always allowed; the learner must be able to hand in even
	// after the window shuts.
	finished, err := lifecycle.Finish(context.Background(), session.ID, aid, 42, end.Add(time.Hour))
	require.NoError(t, err)
	require.Equal(t, model.SessionStatusCompleted, finished.Status)
}

func TestAuthorizeRun(t *testing.T) {
	store := newMemStore()
	lifecycle, _ := newEngine(store)
	aid := store.seedAssessment(&model.Assessment{
		DurationMinutes:  intPtr(60),
		AllowedLanguages: []string{"go", "python"},
	})

	_, err := lifecycle.AuthorizeRun(context.Background(), aid, 42, "go", testNow)
	require.ErrorIs(t, err, ErrNotFound)

	session, err := lifecycle.Start(context.Background(), aid, 42, testNow)
	require.NoError(t, err)

	got, err := lifecycle.AuthorizeRun(context.Background(), aid, 42, "go", testNow.Add(time.Minute))
	require.NoError(t, err)
	require.Equal(t, session.ID, got.ID)

	var lerr *LanguageNotAllowedError
	_, err = lifecycle.AuthorizeRun(context.Background(), aid, 42, "rust", testNow.Add(time.Minute))
	require.ErrorAs(t, err, &lerr)
	require.Equal(t, "rust", lerr.Language)

	var serr *SessionNotActiveError
	_, err = lifecycle.AuthorizeRun(context.Background(), aid, 42, "go", testNow.Add(2*time.Hour))
	require.ErrorAs(t, err, &serr)
}

func TestAttemptLedgerFailOpen(t *testing.T) {
	store := newMemStore()
	lifecycle, _ := newEngine(store)
	aid := store.seedAssessment(&model.Assessment{AllowedAttempts: intPtr(1)})
	store.seedSubmissions(aid, 42, 1)
	store.countErr = errors.New("connection reset")

	// A broken count reads as zero used attempts: the learner is let through
	// rather than locked out by an infrastructure hiccup.
	_, err := lifecycle.Start(context.Background(), aid, 42, testNow)
	require.NoError(t, err)
}
