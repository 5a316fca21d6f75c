package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/courseloop/courseloop-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// SessionLifecycleService owns the attempt state machine. It is the only
// component that mutates AssessmentSession rows:
//
//	(none) --start--> active --finish/expire--> completed
//	                  active --resume over limit--> cancelled
//
// Expiry is lazy: a timed-out session is finalized on the next start, resume
// or eligibility evaluation that observes it, never by a background timer.
type SessionLifecycleService struct {
	assessments AssessmentStore
	overrides   OverrideStore
	sessions    SessionStore
	ledger      *AttemptLedger
	events      EventPublisher
	log         zerolog.Logger
}

// NewSessionLifecycleService creates a new SessionLifecycleService.
func NewSessionLifecycleService(
	assessments AssessmentStore,
	overrides OverrideStore,
	sessions SessionStore,
	ledger *AttemptLedger,
	events EventPublisher,
	log zerolog.Logger,
) *SessionLifecycleService {
	return &SessionLifecycleService{
		assessments: assessments,
		overrides:   overrides,
		sessions:    sessions,
		ledger:      ledger,
		events:      events,
		log:         log.With().Str("component", "session_lifecycle").Logger(),
	}
}

// Start creates a new active session for the learner, enforcing the window,
// the attempt budget and the one-active-session invariant. Duplicate
// concurrent starts are resolved by the store's partial unique index: exactly
// one request creates the row, the others get ActiveSessionExistsError with
// the winning session id.
func (s *SessionLifecycleService) Start(ctx context.Context, assessmentID uuid.UUID, userID int, now time.Time) (*model.AssessmentSession, error) {
	_, settings, err := s.loadSettings(ctx, assessmentID, userID)
	if err != nil {
		return nil, err
	}

	if werr := windowError(settings, now); werr != nil {
		return nil, werr
	}

	used := s.ledger.CountAttempts(ctx, assessmentID, userID)
	if used >= settings.AllowedAttempts {
		return nil, &AttemptsExhaustedError{Used: used, Allowed: settings.AllowedAttempts}
	}

	active, err := s.sessions.GetActive(ctx, assessmentID, userID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("load active session: %w", err)
	}

	if active != nil {
		expired, err := s.expireStale(ctx, active, settings, now)
		if err != nil {
			return nil, err
		}
		switch {
		case expired:
			// The expiry just recorded an auto submission, so the attempt
			// budget has to be re-checked before opening a fresh attempt.
			used++
			if used >= settings.AllowedAttempts {
				return nil, &AttemptsExhaustedError{Used: used, Allowed: settings.AllowedAttempts}
			}
		case active.ResumeCount >= 1 && active.ResumeCount+1 > settings.ResumeLimit:
			// The session can never be resumed again; cancel it so the
			// learner is free to start over instead of being stuck.
			if _, err := s.sessions.SetTerminal(ctx, active.ID, model.SessionStatusCancelled, now); err != nil {
				return nil, fmt.Errorf("cancel exhausted session: %w", err)
			}
			s.events.PublishSessionEvent(ctx, SessionEvent{
				Type:         EventSessionCancelled,
				AssessmentID: assessmentID,
				UserID:       userID,
				SessionID:    active.ID,
				ResumeCount:  active.ResumeCount,
				At:           now,
			})
		default:
			return nil, &ActiveSessionExistsError{SessionID: active.ID}
		}
	}

	session := &model.AssessmentSession{
		AssessmentID: assessmentID,
		UserID:       userID,
		StartedAt:    now,
	}
	if err := s.sessions.CreateActive(ctx, session); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Concurrent duplicate start: the index swallowed our insert.
			winner, fetchErr := s.sessions.GetActive(ctx, assessmentID, userID)
			if fetchErr != nil {
				return nil, fmt.Errorf("concurrent start detected, but fetch failed: %w", fetchErr)
			}
			return nil, &ActiveSessionExistsError{SessionID: winner.ID}
		}
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.events.PublishSessionEvent(ctx, SessionEvent{
		Type:         EventSessionStarted,
		AssessmentID: assessmentID,
		UserID:       userID,
		SessionID:    session.ID,
		At:           now,
	})

	return session, nil
}

// Resume re-enters an active session after a pause, bounded by the resume
// limit. Crossing the limit cancels the session and returns
// ResumeCountExceededError, so a subsequent start can open a fresh attempt.
func (s *SessionLifecycleService) Resume(ctx context.Context, sessionID, assessmentID uuid.UUID, userID int, now time.Time) (*model.AssessmentSession, error) {
	session, err := s.sessions.GetScoped(ctx, sessionID, assessmentID, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load session: %w", err)
	}

	_, settings, err := s.loadSettings(ctx, assessmentID, userID)
	if err != nil {
		return nil, err
	}

	if werr := windowError(settings, now); werr != nil {
		return nil, werr
	}

	if session.Status != model.SessionStatusActive {
		return nil, &SessionNotActiveError{Status: session.Status}
	}

	expired, err := s.expireStale(ctx, session, settings, now)
	if err != nil {
		return nil, err
	}
	if expired {
		return nil, &SessionNotActiveError{Status: model.SessionStatusCompleted}
	}

	if session.ResumeCount+1 > settings.ResumeLimit {
		if _, err := s.sessions.SetTerminal(ctx, session.ID, model.SessionStatusCancelled, now); err != nil {
			return nil, fmt.Errorf("cancel session: %w", err)
		}
		s.events.PublishSessionEvent(ctx, SessionEvent{
			Type:         EventSessionCancelled,
			AssessmentID: assessmentID,
			UserID:       userID,
			SessionID:    session.ID,
			ResumeCount:  session.ResumeCount,
			At:           now,
		})
		return nil, &ResumeCountExceededError{Limit: settings.ResumeLimit}
	}

	updated, err := s.sessions.IncrementResume(ctx, session.ID, now)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Lost a race: the session went terminal under us.
			current, readErr := s.sessions.GetScoped(ctx, sessionID, assessmentID, userID)
			if readErr != nil {
				return nil, fmt.Errorf("session went terminal, reread failed: %w", readErr)
			}
			return nil, &SessionNotActiveError{Status: current.Status}
		}
		return nil, fmt.Errorf("increment resume: %w", err)
	}

	s.events.PublishSessionEvent(ctx, SessionEvent{
		Type:         EventSessionResumed,
		AssessmentID: assessmentID,
		UserID:       userID,
		SessionID:    updated.ID,
		ResumeCount:  updated.ResumeCount,
		At:           now,
	})

	return updated, nil
}

// Finish completes an active session and records the submission. Idempotent:
// finishing an already-terminal session returns it unchanged, so client
// retries after a flaky response converge on the same terminal result.
func (s *SessionLifecycleService) Finish(ctx context.Context, sessionID, assessmentID uuid.UUID, userID int, now time.Time) (*model.AssessmentSession, error) {
	session, err := s.sessions.GetScoped(ctx, sessionID, assessmentID, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load session: %w", err)
	}

	if session.Terminal() {
		return session, nil
	}

	completed, err := s.sessions.CompleteWithSubmission(ctx, session, now, false)
	if err != nil {
		return nil, fmt.Errorf("complete session: %w", err)
	}
	if !completed {
		// Another request finished or expired it first; return that result.
		return s.sessions.GetScoped(ctx, sessionID, assessmentID, userID)
	}

	session.Status = model.SessionStatusCompleted
	session.EndedAt = &now

	s.events.PublishSessionEvent(ctx, SessionEvent{
		Type:         EventSessionFinished,
		AssessmentID: assessmentID,
		UserID:       userID,
		SessionID:    session.ID,
		ResumeCount:  session.ResumeCount,
		At:           now,
	})

	return session, nil
}

// AuthorizeRun checks that the learner may execute code for an assessment:
// the language must be allowed by the effective settings and an unexpired
// active session must exist. Returns the session the run is charged to.
func (s *SessionLifecycleService) AuthorizeRun(ctx context.Context, assessmentID uuid.UUID, userID int, language string, now time.Time) (*model.AssessmentSession, error) {
	_, settings, err := s.loadSettings(ctx, assessmentID, userID)
	if err != nil {
		return nil, err
	}

	if !settings.LanguageAllowed(language) {
		return nil, &LanguageNotAllowedError{Language: language}
	}

	active, err := s.sessions.GetActive(ctx, assessmentID, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load active session: %w", err)
	}

	expired, err := s.expireStale(ctx, active, settings, now)
	if err != nil {
		return nil, err
	}
	if expired {
		return nil, &SessionNotActiveError{Status: model.SessionStatusCompleted}
	}

	return active, nil
}

// expireStale finalizes the session if its time is up: the session is marked
// completed and an auto submission is recorded in the same transaction, so an
// abandoned attempt still consumes an attempt. Reports whether the session is
// now terminal due to expiry.
func (s *SessionLifecycleService) expireStale(ctx context.Context, session *model.AssessmentSession, settings EffectiveSettings, now time.Time) (bool, error) {
	left := RemainingTime(now, session.StartedAt, settings.DurationMinutes, settings.EndAt)
	if !left.Expired() {
		return false, nil
	}

	if _, err := s.sessions.CompleteWithSubmission(ctx, session, now, true); err != nil {
		return false, fmt.Errorf("expire session: %w", err)
	}

	s.events.PublishSessionEvent(ctx, SessionEvent{
		Type:         EventSessionExpired,
		AssessmentID: session.AssessmentID,
		UserID:       session.UserID,
		SessionID:    session.ID,
		ResumeCount:  session.ResumeCount,
		At:           now,
	})

	return true, nil
}

// loadSettings loads the assessment and resolves the learner's effective
// settings. Unknown assessments map to ErrNotFound.
func (s *SessionLifecycleService) loadSettings(ctx context.Context, assessmentID uuid.UUID, userID int) (*model.Assessment, EffectiveSettings, error) {
	assessment, err := s.assessments.GetByID(ctx, assessmentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, EffectiveSettings{}, ErrNotFound
		}
		return nil, EffectiveSettings{}, fmt.Errorf("load assessment: %w", err)
	}

	override, err := s.overrides.GetByAssessmentAndUser(ctx, assessmentID, userID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, EffectiveSettings{}, fmt.Errorf("load override: %w", err)
	}

	return assessment, ResolveSettings(assessment, override), nil
}

// windowError returns the typed window failure for now, or nil if the window
// is open.
func windowError(settings EffectiveSettings, now time.Time) *WindowClosedError {
	if settings.StartAt != nil && now.Before(*settings.StartAt) {
		return &WindowClosedError{Edge: WindowEdgeBefore, Boundary: *settings.StartAt}
	}
	if settings.EndAt != nil && now.After(*settings.EndAt) {
		return &WindowClosedError{Edge: WindowEdgeAfter, Boundary: *settings.EndAt}
	}
	return nil
}
