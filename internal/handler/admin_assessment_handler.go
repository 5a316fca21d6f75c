package handler

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/courseloop/courseloop-backend/internal/model"
	"github.com/courseloop/courseloop-backend/internal/response"
	"github.com/courseloop/courseloop-backend/internal/service"
	"github.com/courseloop/courseloop-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AdminAssessmentHandler handles administrative assessment management.
type AdminAssessmentHandler struct {
	adminService *service.AssessmentAdminService
}

// NewAdminAssessmentHandler creates a new AdminAssessmentHandler.
func NewAdminAssessmentHandler(adminService *service.AssessmentAdminService) *AdminAssessmentHandler {
	return &AdminAssessmentHandler{adminService: adminService}
}

// ListAssessments godoc
// GET /api/v1/admin/courses/:course_id/assessments
func (h *AdminAssessmentHandler) ListAssessments(c *gin.Context) {
	courseID, err := uuid.Parse(c.Param("course_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	page, perPage := pageParams(c)
	assessments, total, err := h.adminService.ListByCourse(c.Request.Context(), courseID, page, perPage)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"assessments": assessments}, buildPagination(page, perPage, total))
}

// CreateAssessment godoc
// POST /api/v1/admin/assessments
func (h *AdminAssessmentHandler) CreateAssessment(c *gin.Context) {
	var req model.CreateAssessmentRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	assessment := &model.Assessment{
		CourseID:         req.CourseID,
		Title:            req.Title,
		DurationMinutes:  req.DurationMinutes,
		StartAt:          req.StartAt,
		EndAt:            req.EndAt,
		AllowedAttempts:  req.AllowedAttempts,
		ResumeLimit:      req.ResumeLimit,
		AllowedLanguages: req.AllowedLanguages,
	}
	if err := h.adminService.Create(c.Request.Context(), assessment); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"assessment": assessment})
}

// GetAssessment godoc
// GET /api/v1/admin/assessments/:assessment_id
func (h *AdminAssessmentHandler) GetAssessment(c *gin.Context) {
	assessmentID, err := uuid.Parse(c.Param("assessment_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	assessment, err := h.adminService.Get(c.Request.Context(), assessmentID)
	if err != nil {
		failAdminError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"assessment": assessment})
}

// UpdateAssessment godoc
// PUT /api/v1/admin/assessments/:assessment_id
func (h *AdminAssessmentHandler) UpdateAssessment(c *gin.Context) {
	assessmentID, err := uuid.Parse(c.Param("assessment_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.UpdateAssessmentRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	assessment, err := h.adminService.Update(c.Request.Context(), assessmentID, &req)
	if err != nil {
		failAdminError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"assessment": assessment})
}

// DeleteAssessment godoc
// DELETE /api/v1/admin/assessments/:assessment_id
func (h *AdminAssessmentHandler) DeleteAssessment(c *gin.Context) {
	assessmentID, err := uuid.Parse(c.Param("assessment_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.adminService.Delete(c.Request.Context(), assessmentID); err != nil {
		failAdminError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "assessment deleted"})
}

// PutOverride godoc
// PUT /api/v1/admin/assessments/:assessment_id/overrides/:user_id
func (h *AdminAssessmentHandler) PutOverride(c *gin.Context) {
	assessmentID, userID, ok := overrideIDs(c)
	if !ok {
		return
	}

	var req model.PutOverrideRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	override, err := h.adminService.PutOverride(c.Request.Context(), assessmentID, userID, &req)
	if err != nil {
		failAdminError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"override": override})
}

// GetOverride godoc
// GET /api/v1/admin/assessments/:assessment_id/overrides/:user_id
func (h *AdminAssessmentHandler) GetOverride(c *gin.Context) {
	assessmentID, userID, ok := overrideIDs(c)
	if !ok {
		return
	}

	override, err := h.adminService.GetOverride(c.Request.Context(), assessmentID, userID)
	if err != nil {
		failAdminError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"override": override})
}

// DeleteOverride godoc
// DELETE /api/v1/admin/assessments/:assessment_id/overrides/:user_id
func (h *AdminAssessmentHandler) DeleteOverride(c *gin.Context) {
	assessmentID, userID, ok := overrideIDs(c)
	if !ok {
		return
	}

	if err := h.adminService.DeleteOverride(c.Request.Context(), assessmentID, userID); err != nil {
		failAdminError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "override deleted"})
}

// ListSessions godoc
// GET /api/v1/admin/assessments/:assessment_id/sessions
// Administrative read of attempt sessions, newest first.
func (h *AdminAssessmentHandler) ListSessions(c *gin.Context) {
	assessmentID, err := uuid.Parse(c.Param("assessment_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	page, perPage := pageParams(c)
	sessions, total, err := h.adminService.ListSessions(c.Request.Context(), assessmentID, page, perPage)
	if err != nil {
		failAdminError(c, err)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"sessions": sessions}, buildPagination(page, perPage, total))
}

func overrideIDs(c *gin.Context) (assessmentID uuid.UUID, userID int, ok bool) {
	assessmentID, err := uuid.Parse(c.Param("assessment_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, 0, false
	}
	userID, err = strconv.Atoi(c.Param("user_id"))
	if err != nil || userID <= 0 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, 0, false
	}
	return assessmentID, userID, true
}

func pageParams(c *gin.Context) (page, perPage int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ = strconv.Atoi(c.DefaultQuery("per_page", "10"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 10
	}
	return page, perPage
}

func buildPagination(page, perPage int, total int64) *response.Pagination {
	return &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: int(total),
		TotalPages: int(math.Ceil(float64(total) / float64(perPage))),
	}
}

func failAdminError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrNotFound) {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}
	response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
}
