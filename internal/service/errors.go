package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/courseloop/courseloop-backend/internal/model"
	"github.com/google/uuid"
)

// ErrNotFound covers unknown assessments and sessions, and sessions owned by
// another learner. The two cases are deliberately indistinguishable so the
// API never leaks whether a foreign session id exists.
var ErrNotFound = errors.New("not found")

// WindowEdge identifies which bound of the assessment window failed.
type WindowEdge string

const (
	WindowEdgeBefore WindowEdge = "before_start"
	WindowEdgeAfter  WindowEdge = "after_end"
)

// WindowClosedError is returned when now falls outside [start_at, end_at].
// The message carries the literal boundary timestamp; it is surfaced to the
// learner as-is.
type WindowClosedError struct {
	Edge     WindowEdge
	Boundary time.Time
}

func (e *WindowClosedError) Error() string {
	if e.Edge == WindowEdgeBefore {
		return fmt.Sprintf("assessment opens at %s", e.Boundary.UTC().Format(time.RFC3339))
	}
	return fmt.Sprintf("assessment closed at %s", e.Boundary.UTC().Format(time.RFC3339))
}

// AttemptsExhaustedError is returned when the learner has no attempts left.
type AttemptsExhaustedError struct {
	Used    int
	Allowed int
}

func (e *AttemptsExhaustedError) Error() string {
	return fmt.Sprintf("all %d allowed attempts used (%d recorded)", e.Allowed, e.Used)
}

// ActiveSessionExistsError is returned by start when an attempt is already in
// progress. It carries the conflicting session id so the client can offer to
// resume instead.
type ActiveSessionExistsError struct {
	SessionID uuid.UUID
}

func (e *ActiveSessionExistsError) Error() string {
	return fmt.Sprintf("an attempt is already in progress (session %s)", e.SessionID)
}

// ResumeCountExceededError is returned when a resume would cross the resume
// limit. The session has been cancelled as a side effect; a subsequent start
// can create a fresh attempt.
type ResumeCountExceededError struct {
	Limit int
}

func (e *ResumeCountExceededError) Error() string {
	return fmt.Sprintf("resume limit of %d exceeded; attempt cancelled", e.Limit)
}

// LanguageNotAllowedError is returned when a run requests a language outside
// the effective allowed list.
type LanguageNotAllowedError struct {
	Language string
}

func (e *LanguageNotAllowedError) Error() string {
	return fmt.Sprintf("language %q is not allowed for this assessment", e.Language)
}

// SessionNotActiveError is returned when an operation requires an active
// session but the session is already terminal.
type SessionNotActiveError struct {
	Status model.SessionStatus
}

func (e *SessionNotActiveError) Error() string {
	return fmt.Sprintf("session is %s, not active", e.Status)
}
