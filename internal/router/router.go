package router

import (
	"net/http"
	"time"

	"github.com/courseloop/courseloop-backend/internal/config"
	"github.com/courseloop/courseloop-backend/internal/handler"
	"github.com/courseloop/courseloop-backend/internal/middleware"
	"github.com/courseloop/courseloop-backend/internal/response"
	"github.com/courseloop/courseloop-backend/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Attempt         *handler.AttemptHandler
	AdminAssessment *handler.AdminAssessmentHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	accessService *service.AccessService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for the run endpoint (30 requests per minute per IP);
	// the runner is the most expensive downstream dependency.
	runLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Learner Group (JWT + Course Access) ────────────────────────
	learnerAPI := router.Group("/api/v1/assessments/:assessment_id")
	learnerAPI.Use(
		middleware.RequireLearnerJWT(authService),
		middleware.RequireCourseAccess(accessService),
	)
	{
		learnerAPI.GET("/eligibility", handlers.Attempt.GetEligibility)
		learnerAPI.POST("/attempts", handlers.Attempt.StartAttempt)
		learnerAPI.POST("/attempts/:session_id/resume", handlers.Attempt.ResumeAttempt)
		learnerAPI.POST("/attempts/:session_id/finish", handlers.Attempt.FinishAttempt)
		learnerAPI.POST("/run", runLimiter.Middleware(), handlers.Attempt.RunCode)
	}

	// ─── 2. Admin Group (JWT) ──────────────────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.RequireAdminJWT(authService))
	{
		adminAPI.GET("/courses/:course_id/assessments", handlers.AdminAssessment.ListAssessments)
		adminAPI.POST("/assessments", handlers.AdminAssessment.CreateAssessment)
		adminAPI.GET("/assessments/:assessment_id", handlers.AdminAssessment.GetAssessment)
		adminAPI.PUT("/assessments/:assessment_id", handlers.AdminAssessment.UpdateAssessment)
		adminAPI.DELETE("/assessments/:assessment_id", handlers.AdminAssessment.DeleteAssessment)

		adminAPI.GET("/assessments/:assessment_id/overrides/:user_id", handlers.AdminAssessment.GetOverride)
		adminAPI.PUT("/assessments/:assessment_id/overrides/:user_id", handlers.AdminAssessment.PutOverride)
		adminAPI.DELETE("/assessments/:assessment_id/overrides/:user_id", handlers.AdminAssessment.DeleteOverride)

		adminAPI.GET("/assessments/:assessment_id/sessions", handlers.AdminAssessment.ListSessions)
	}

	return router
}
