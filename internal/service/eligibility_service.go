package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// Reason is a machine-readable explanation for an ineligible verdict.
type Reason string

const (
	ReasonNotFound            Reason = "not_found"
	ReasonBeforeStart         Reason = "before_start"
	ReasonAfterEnd            Reason = "after_end"
	ReasonAttemptsExhausted   Reason = "attempts_exhausted"
	ReasonResumeCountExceeded Reason = "resume_count_exceeded"
	ReasonActiveSessionExists Reason = "active_session_exists"
)

// AttemptsInfo reports attempt budget usage.
type AttemptsInfo struct {
	Used    int `json:"used"`
	Allowed int `json:"allowed"`
}

// ResumeInfo reports resume budget usage for the active session, if any.
type ResumeInfo struct {
	Used    int `json:"used"`
	Allowed int `json:"allowed"`
}

// WindowInfo reports the effective window and the evaluation instant.
type WindowInfo struct {
	StartAt *time.Time `json:"start_at,omitempty"`
	EndAt   *time.Time `json:"end_at,omitempty"`
	Now     time.Time  `json:"now"`
}

// EligibilityResult is the full verdict for one (assessment, learner) pair.
// RemainingSeconds is nil when the active session has no time bound at all.
type EligibilityResult struct {
	Eligible         bool         `json:"eligible"`
	CanStart         bool         `json:"can_start"`
	CanResume        bool         `json:"can_resume"`
	Reasons          []Reason     `json:"reasons,omitempty"`
	Attempts         AttemptsInfo `json:"attempts"`
	Resume           ResumeInfo   `json:"resume"`
	Window           WindowInfo   `json:"window"`
	DurationMinutes  *int         `json:"duration_minutes,omitempty"`
	SessionID        *uuid.UUID   `json:"session_id,omitempty"`
	RemainingSeconds *int64       `json:"remaining_seconds,omitempty"`
}

// EligibilityService decides whether a learner may start or resume an
// attempt. Evaluation is read-mostly; its one side effect is lazy expiry of a
// timed-out active session, delegated to the lifecycle so stale sessions
// self-heal without a background sweeper.
type EligibilityService struct {
	assessments AssessmentStore
	overrides   OverrideStore
	sessions    SessionStore
	ledger      *AttemptLedger
	lifecycle   *SessionLifecycleService
	log         zerolog.Logger
}

// NewEligibilityService creates a new EligibilityService.
func NewEligibilityService(
	assessments AssessmentStore,
	overrides OverrideStore,
	sessions SessionStore,
	ledger *AttemptLedger,
	lifecycle *SessionLifecycleService,
	log zerolog.Logger,
) *EligibilityService {
	return &EligibilityService{
		assessments: assessments,
		overrides:   overrides,
		sessions:    sessions,
		ledger:      ledger,
		lifecycle:   lifecycle,
		log:         log.With().Str("component", "eligibility").Logger(),
	}
}

// Evaluate computes the eligibility verdict for the learner at instant now.
// Unknown assessments yield a well-formed not_found verdict, not an error.
func (s *EligibilityService) Evaluate(ctx context.Context, assessmentID uuid.UUID, userID int, now time.Time) (*EligibilityResult, error) {
	assessment, err := s.assessments.GetByID(ctx, assessmentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &EligibilityResult{
				Reasons: []Reason{ReasonNotFound},
				Window:  WindowInfo{Now: now},
			}, nil
		}
		return nil, fmt.Errorf("load assessment: %w", err)
	}

	override, err := s.overrides.GetByAssessmentAndUser(ctx, assessmentID, userID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("load override: %w", err)
	}
	settings := ResolveSettings(assessment, override)

	used := s.ledger.CountAttempts(ctx, assessmentID, userID)

	active, err := s.sessions.GetActive(ctx, assessmentID, userID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("load active session: %w", err)
	}

	// Lazy expiry: a timed-out session is finalized here and treated as
	// absent for the rest of the evaluation. The auto submission it records
	// consumes an attempt, so the count is bumped to match.
	if active != nil {
		expired, err := s.lifecycle.expireStale(ctx, active, settings, now)
		if err != nil {
			return nil, err
		}
		if expired {
			active = nil
			used++
		}
	}

	result := &EligibilityResult{
		Attempts: AttemptsInfo{Used: used, Allowed: settings.AllowedAttempts},
		Window: WindowInfo{
			StartAt: settings.StartAt,
			EndAt:   settings.EndAt,
			Now:     now,
		},
		DurationMinutes: settings.DurationMinutes,
	}

	windowOK := settings.WindowOpen(now)
	attemptsOK := used < settings.AllowedAttempts
	result.CanStart = windowOK && attemptsOK && active == nil

	resumeExceeded := false
	if active != nil {
		left := RemainingTime(now, active.StartedAt, settings.DurationMinutes, settings.EndAt)
		resumeExceeded = active.ResumeCount+1 > settings.ResumeLimit
		result.CanResume = windowOK && !left.Expired() && !resumeExceeded
		result.SessionID = &active.ID
		result.RemainingSeconds = left.SecondsPtr()
		result.Resume = ResumeInfo{Used: active.ResumeCount, Allowed: settings.ResumeLimit}
	}

	result.Eligible = result.CanStart || result.CanResume
	if result.Eligible {
		return result, nil
	}

	// Build reasons, most specific first. The generic active_session_exists
	// is the catch-all and must come last: it only applies when no sharper
	// reason explains the verdict.
	if !windowOK {
		if settings.StartAt != nil && now.Before(*settings.StartAt) {
			result.Reasons = append(result.Reasons, ReasonBeforeStart)
		} else {
			result.Reasons = append(result.Reasons, ReasonAfterEnd)
		}
	}
	if !attemptsOK {
		result.Reasons = append(result.Reasons, ReasonAttemptsExhausted)
	}
	if active != nil && resumeExceeded {
		result.Reasons = append(result.Reasons, ReasonResumeCountExceeded)
	}
	if active != nil && len(result.Reasons) == 0 {
		result.Reasons = append(result.Reasons, ReasonActiveSessionExists)
	}

	return result, nil
}
