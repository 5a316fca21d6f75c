package service

import (
	"context"
	"testing"
	"time"

	"github.com/courseloop/courseloop-backend/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestEvaluateUnknownAssessment(t *testing.T) {
	store := newMemStore()
	_, eligibility := newEngine(store)

	result, err := eligibility.Evaluate(context.Background(), uuid.New(), 42, testNow)
	require.NoError(t, err)
	require.False(t, result.Eligible)
	require.False(t, result.CanStart)
	require.False(t, result.CanResume)
	require.Equal(t, []Reason{ReasonNotFound}, result.Reasons)
	require.Equal(t, testNow, result.Window.Now)
}

func TestEvaluateFreshLearnerCanStart(t *testing.T) {
	store := newMemStore()
	_, eligibility := newEngine(store)
	aid := store.seedAssessment(&model.Assessment{
		AllowedAttempts: intPtr(3),
		DurationMinutes: intPtr(45),
	})

	result, err := eligibility.Evaluate(context.Background(), aid, 42, testNow)
	require.NoError(t, err)
	require.True(t, result.Eligible)
	require.True(t, result.CanStart)
	require.False(t, result.CanResume)
	require.Empty(t, result.Reasons)
	require.Equal(t, AttemptsInfo{Used: 0, Allowed: 3}, result.Attempts)
	require.Equal(t, 45, *result.DurationMinutes)
	require.Nil(t, result.SessionID)
	require.Nil(t, result.RemainingSeconds)
}

func TestEvaluateActiveSessionCanResume(t *testing.T) {
	store := newMemStore()
	lifecycle, eligibility := newEngine(store)
	aid := store.seedAssessment(&model.Assessment{
		AllowedAttempts: intPtr(2),
		ResumeLimit:     intPtr(3),
		DurationMinutes: intPtr(60),
	})

	session, err := lifecycle.Start(context.Background(), aid, 42, testNow)
	require.NoError(t, err)

	result, err := eligibility.Evaluate(context.Background(), aid, 42, testNow.Add(20*time.Minute))
	require.NoError(t, err)
	require.True(t, result.Eligible)
	require.False(t, result.CanStart)
	require.True(t, result.CanResume)
	require.Empty(t, result.Reasons)
	require.Equal(t, session.ID, *result.SessionID)
	require.Equal(t, int64(40*60), *result.RemainingSeconds)
	require.Equal(t, ResumeInfo{Used: 0, Allowed: 3}, result.Resume)
}

func TestEvaluateUntimedSessionHasNoRemaining(t *testing.T) {
	store := newMemStore()
	lifecycle, eligibility := newEngine(store)
	aid := store.seedAssessment(&model.Assessment{ResumeLimit: intPtr(1)})

	_, err := lifecycle.Start(context.Background(), aid, 42, testNow)
	require.NoError(t, err)

	// No duration and no window end: remaining time is absent, not zero.
	result, err := eligibility.Evaluate(context.Background(), aid, 42, testNow.Add(48*time.Hour))
	require.NoError(t, err)
	require.True(t, result.CanResume)
	require.Nil(t, result.RemainingSeconds)
}

func TestEvaluateWindowClosedAndAttemptsExhausted(t *testing.T) {
	store := newMemStore()
	_, eligibility := newEngine(store)
	end := testNow.Add(-time.Hour)
	aid := store.seedAssessment(&model.Assessment{
		EndAt:           &end,
		AllowedAttempts: intPtr(2),
	})
	store.seedSubmissions(aid, 42, 2)

	result, err := eligibility.Evaluate(context.Background(), aid, 42, testNow)
	require.NoError(t, err)
	require.False(t, result.Eligible)
	require.Equal(t, []Reason{ReasonAfterEnd, ReasonAttemptsExhausted}, result.Reasons)
	require.Equal(t, AttemptsInfo{Used: 2, Allowed: 2}, result.Attempts)
}

func TestEvaluateBeforeWindowOpens(t *testing.T) {
	store := newMemStore()
	_, eligibility := newEngine(store)
	start := testNow.Add(time.Hour)
	aid := store.seedAssessment(&model.Assessment{StartAt: &start})

	result, err := eligibility.Evaluate(context.Background(), aid, 42, testNow)
	require.NoError(t, err)
	require.False(t, result.CanStart)
	require.Equal(t, []Reason{ReasonBeforeStart}, result.Reasons)
	require.Equal(t, start, *result.Window.StartAt)
}

func TestEvaluateResumeExhaustedSession(t *testing.T) {
	store := newMemStore()
	lifecycle, eligibility := newEngine(store)
	aid := store.seedAssessment(&model.Assessment{
		AllowedAttempts: intPtr(1),
		ResumeLimit:     intPtr(1),
	})

	session, err := lifecycle.Start(context.Background(), aid, 42, testNow)
	require.NoError(t, err)
	_, err = lifecycle.Resume(context.Background(), session.ID, aid, 42, testNow.Add(5*time.Minute))
	require.NoError(t, err)

	result, err := eligibility.Evaluate(context.Background(), aid, 42, testNow.Add(10*time.Minute))
	require.NoError(t, err)
	require.False(t, result.Eligible)
	require.False(t, result.CanStart)
	require.False(t, result.CanResume)

	// The sharper reason wins: the generic session conflict is not reported
	// alongside it.
	require.Equal(t, []Reason{ReasonResumeCountExceeded}, result.Reasons)
	require.Equal(t, ResumeInfo{Used: 1, Allowed: 1}, result.Resume)
	require.Equal(t, session.ID, *result.SessionID)
}

func TestEvaluateExpiresStaleSession(t *testing.T) {
	store := newMemStore()
	lifecycle, eligibility := newEngine(store)
	aid := store.seedAssessment(&model.Assessment{
		AllowedAttempts: intPtr(2),
		DurationMinutes: intPtr(30),
	})

	session, err := lifecycle.Start(context.Background(), aid, 42, testNow)
	require.NoError(t, err)

	result, err := eligibility.Evaluate(context.Background(), aid, 42, testNow.Add(time.Hour))
	require.NoError(t, err)

	// The timed-out session was finalized during evaluation: its attempt is
	// counted and a fresh start is offered.
	require.True(t, result.CanStart)
	require.False(t, result.CanResume)
	require.Nil(t, result.SessionID)
	require.Equal(t, AttemptsInfo{Used: 1, Allowed: 2}, result.Attempts)
	require.Equal(t, model.SessionStatusCompleted, store.sessions[session.ID].Status)
	require.Len(t, store.submissions, 1)
	require.True(t, store.submissions[0].AutoSubmitted)
}

func TestEvaluateExpiryConsumesLastAttempt(t *testing.T) {
	store := newMemStore()
	lifecycle, eligibility := newEngine(store)
	aid := store.seedAssessment(&model.Assessment{
		AllowedAttempts: intPtr(1),
		DurationMinutes: intPtr(30),
	})

	_, err := lifecycle.Start(context.Background(), aid, 42, testNow)
	require.NoError(t, err)

	result, err := eligibility.Evaluate(context.Background(), aid, 42, testNow.Add(time.Hour))
	require.NoError(t, err)
	require.False(t, result.Eligible)
	require.False(t, result.CanStart)
	require.Equal(t, []Reason{ReasonAttemptsExhausted}, result.Reasons)
	require.Equal(t, AttemptsInfo{Used: 1, Allowed: 1}, result.Attempts)
}

func TestEvaluateIsRepeatable(t *testing.T) {
	store := newMemStore()
	lifecycle, eligibility := newEngine(store)
	aid := store.seedAssessment(&model.Assessment{
		AllowedAttempts: intPtr(2),
		DurationMinutes: intPtr(30),
	})

	_, err := lifecycle.Start(context.Background(), aid, 42, testNow)
	require.NoError(t, err)

	at := testNow.Add(time.Hour)
	first, err := eligibility.Evaluate(context.Background(), aid, 42, at)
	require.NoError(t, err)
	second, err := eligibility.Evaluate(context.Background(), aid, 42, at)
	require.NoError(t, err)

	// Lazy expiry fires once; re-evaluating does not double-count the
	// abandoned attempt.
	require.Equal(t, first.Attempts, second.Attempts)
	require.Len(t, store.submissions, 1)
}

func TestEvaluateHonorsOverrideWindow(t *testing.T) {
	store := newMemStore()
	_, eligibility := newEngine(store)
	end := testNow.Add(-time.Hour)
	extended := testNow.Add(time.Hour)
	aid := store.seedAssessment(&model.Assessment{EndAt: &end, AllowedAttempts: intPtr(1)})
	store.seedOverride(&model.AssessmentOverride{AssessmentID: aid, UserID: 42, EndAt: &extended})

	result, err := eligibility.Evaluate(context.Background(), aid, 42, testNow)
	require.NoError(t, err)
	require.True(t, result.CanStart)
	require.Equal(t, extended, *result.Window.EndAt)

	// A learner without the override is still outside the window.
	other, err := eligibility.Evaluate(context.Background(), aid, 7, testNow)
	require.NoError(t, err)
	require.False(t, other.CanStart)
	require.Equal(t, []Reason{ReasonAfterEnd}, other.Reasons)
}
