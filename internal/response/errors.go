package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrTokenRequired ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid  ErrCode = "TOKEN_INVALID"
	ErrTokenExpired  ErrCode = "TOKEN_EXPIRED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden        ErrCode = "FORBIDDEN"
	ErrLearnerOnly      ErrCode = "LEARNER_ACCESS_ONLY"
	ErrAdminOnly        ErrCode = "ADMIN_ACCESS_ONLY"
	ErrNoCourseAccess   ErrCode = "NO_COURSE_ACCESS"
	ErrPermissionDenied ErrCode = "PERMISSION_DENIED"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Attempt lifecycle ─────────────────────────────────────────────
	ErrWindowClosed        ErrCode = "WINDOW_CLOSED"
	ErrAttemptsExhausted   ErrCode = "ATTEMPTS_EXHAUSTED"
	ErrActiveSessionExists ErrCode = "ACTIVE_SESSION_EXISTS"
	ErrResumeCountExceeded ErrCode = "RESUME_COUNT_EXCEEDED"
	ErrSessionNotActive    ErrCode = "SESSION_NOT_ACTIVE"
	ErrLanguageNotAllowed  ErrCode = "LANGUAGE_NOT_ALLOWED"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal      ErrCode = "INTERNAL_ERROR"
	ErrRunnerFailure ErrCode = "RUNNER_FAILURE"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid."
	case ErrTokenExpired:
		return "The authentication token has expired."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrLearnerOnly:
		return "This resource is restricted to learners."
	case ErrAdminOnly:
		return "This resource is restricted to administrators."
	case ErrNoCourseAccess:
		return "You are not enrolled in the course this assessment belongs to."
	case ErrPermissionDenied:
		return "Permission denied."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "The requested resource was not found."
	case ErrConflict:
		return "The resource already exists."

	// ─── Attempt lifecycle ─────────────────────────────────────────────
	case ErrWindowClosed:
		return "The assessment window is closed."
	case ErrAttemptsExhausted:
		return "You have used all allowed attempts for this assessment."
	case ErrActiveSessionExists:
		return "You already have an attempt in progress for this assessment."
	case ErrResumeCountExceeded:
		return "This attempt has been resumed too many times and was cancelled."
	case ErrSessionNotActive:
		return "This attempt is no longer active."
	case ErrLanguageNotAllowed:
		return "This language is not allowed for this assessment."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal server error occurred."
	case ErrRunnerFailure:
		return "The code execution service is unavailable."
	default:
		return "An unexpected error occurred."
	}
}
