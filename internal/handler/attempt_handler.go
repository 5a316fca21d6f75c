package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/courseloop/courseloop-backend/internal/middleware"
	"github.com/courseloop/courseloop-backend/internal/model"
	"github.com/courseloop/courseloop-backend/internal/response"
	"github.com/courseloop/courseloop-backend/internal/runner"
	"github.com/courseloop/courseloop-backend/internal/service"
	"github.com/courseloop/courseloop-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AttemptHandler handles learner-facing attempt lifecycle endpoints.
type AttemptHandler struct {
	eligibility *service.EligibilityService
	lifecycle   *service.SessionLifecycleService
	runner      *runner.Client
}

// NewAttemptHandler creates a new AttemptHandler.
func NewAttemptHandler(
	eligibility *service.EligibilityService,
	lifecycle *service.SessionLifecycleService,
	runnerClient *runner.Client,
) *AttemptHandler {
	return &AttemptHandler{
		eligibility: eligibility,
		lifecycle:   lifecycle,
		runner:      runnerClient,
	}
}

// GetEligibility godoc
// GET /api/v1/assessments/:assessment_id/eligibility
// Returns the full eligibility verdict. Unknown assessments get a 404 status
// but still a well-formed not-eligible body.
func (h *AttemptHandler) GetEligibility(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	assessmentID, err := uuid.Parse(c.Param("assessment_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	result, err := h.eligibility.Evaluate(c.Request.Context(), assessmentID, claims.UserID, time.Now().UTC())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	status := http.StatusOK
	for _, r := range result.Reasons {
		if r == service.ReasonNotFound {
			status = http.StatusNotFound
			break
		}
	}

	response.Success(c, status, gin.H{"eligibility": result})
}

// StartAttempt godoc
// POST /api/v1/assessments/:assessment_id/attempts
// Opens a new attempt. At most one concurrent start per learner wins; the
// losers get 409 with the winning session id.
func (h *AttemptHandler) StartAttempt(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	assessmentID, err := uuid.Parse(c.Param("assessment_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	session, err := h.lifecycle.Start(c.Request.Context(), assessmentID, claims.UserID, time.Now().UTC())
	if err != nil {
		failAttemptError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"session": session})
}

// ResumeAttempt godoc
// POST /api/v1/assessments/:assessment_id/attempts/:session_id/resume
// Re-enters an active attempt, bounded by the resume limit.
func (h *AttemptHandler) ResumeAttempt(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	assessmentID, sessionID, ok := attemptIDs(c)
	if !ok {
		return
	}

	session, err := h.lifecycle.Resume(c.Request.Context(), sessionID, assessmentID, claims.UserID, time.Now().UTC())
	if err != nil {
		failAttemptError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": session})
}

// FinishAttempt godoc
// POST /api/v1/assessments/:assessment_id/attempts/:session_id/finish
// Completes an attempt and records the submission. Idempotent: repeated
// calls return the same terminal session.
func (h *AttemptHandler) FinishAttempt(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	assessmentID, sessionID, ok := attemptIDs(c)
	if !ok {
		return
	}

	session, err := h.lifecycle.Finish(c.Request.Context(), sessionID, assessmentID, claims.UserID, time.Now().UTC())
	if err != nil {
		failAttemptError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": session})
}

// RunCode godoc
// POST /api/v1/assessments/:assessment_id/run
// Proxies code execution to the external runner. Requires an unexpired
// active session and an allowed language.
func (h *AttemptHandler) RunCode(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	assessmentID, err := uuid.Parse(c.Param("assessment_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.RunCodeRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if _, err := h.lifecycle.AuthorizeRun(c.Request.Context(), assessmentID, claims.UserID, req.Language, time.Now().UTC()); err != nil {
		failAttemptError(c, err)
		return
	}

	result, err := h.runner.Execute(c.Request.Context(), runner.ExecuteRequest{
		Language: req.Language,
		Code:     req.Code,
		Stdin:    req.Stdin,
	})
	if err != nil {
		response.Fail(c, http.StatusBadGateway, response.ErrRunnerFailure)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": result})
}

// attemptIDs parses the :assessment_id and :session_id path params, replying
// with 400 on malformed ids.
func attemptIDs(c *gin.Context) (assessmentID, sessionID uuid.UUID, ok bool) {
	assessmentID, err := uuid.Parse(c.Param("assessment_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, uuid.Nil, false
	}
	sessionID, err = uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, uuid.Nil, false
	}
	return assessmentID, sessionID, true
}

// failAttemptError maps typed lifecycle errors onto HTTP statuses and error
// codes. Business-rule failures never surface as 5xx.
func failAttemptError(c *gin.Context, err error) {
	var (
		windowErr   *service.WindowClosedError
		attemptsErr *service.AttemptsExhaustedError
		activeErr   *service.ActiveSessionExistsError
		resumeErr   *service.ResumeCountExceededError
		notActive   *service.SessionNotActiveError
		langErr     *service.LanguageNotAllowedError
	)

	switch {
	case errors.As(err, &windowErr):
		response.FailWithMessage(c, http.StatusForbidden, response.ErrWindowClosed, windowErr.Error())
	case errors.As(err, &attemptsErr):
		response.Fail(c, http.StatusForbidden, response.ErrAttemptsExhausted)
	case errors.As(err, &activeErr):
		response.FailWithFields(c, http.StatusConflict, response.ErrActiveSessionExists,
			map[string]string{"session_id": activeErr.SessionID.String()})
	case errors.As(err, &resumeErr):
		response.Fail(c, http.StatusForbidden, response.ErrResumeCountExceeded)
	case errors.As(err, &notActive):
		response.Fail(c, http.StatusConflict, response.ErrSessionNotActive)
	case errors.As(err, &langErr):
		response.Fail(c, http.StatusForbidden, response.ErrLanguageNotAllowed)
	case errors.Is(err, service.ErrNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
