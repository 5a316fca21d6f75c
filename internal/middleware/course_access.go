package middleware

import (
	"net/http"

	"github.com/courseloop/courseloop-backend/internal/response"
	"github.com/courseloop/courseloop-backend/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequireCourseAccess verifies that the authenticated learner is enrolled in
// the course the :assessment_id assessment belongs to. Must run after a JWT
// middleware. Unknown assessments pass through so the engine can answer with
// its own not_found verdict instead of leaking enrollment state.
func RequireCourseAccess(accessService *service.AccessService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		assessmentID, err := uuid.Parse(c.Param("assessment_id"))
		if err != nil {
			response.AbortFail(c, http.StatusBadRequest, response.ErrInvalidID)
			return
		}

		ok, err := accessService.HasAssessmentAccess(c.Request.Context(), claims.UserID, assessmentID)
		if err != nil {
			response.AbortFail(c, http.StatusInternalServerError, response.ErrInternal)
			return
		}
		if !ok {
			response.AbortFail(c, http.StatusForbidden, response.ErrNoCourseAccess)
			return
		}

		c.Next()
	}
}
