package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/courseloop/courseloop-backend/internal/model"
	"github.com/courseloop/courseloop-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// AssessmentAdminService handles administrative assessment and override
// management. Pass-through CRUD; the attempt engine only ever reads what this
// writes.
type AssessmentAdminService struct {
	assessments *repository.AssessmentRepository
	overrides   *repository.OverrideRepository
	sessions    *repository.SessionRepository
	log         zerolog.Logger
}

// NewAssessmentAdminService creates a new AssessmentAdminService.
func NewAssessmentAdminService(
	assessments *repository.AssessmentRepository,
	overrides *repository.OverrideRepository,
	sessions *repository.SessionRepository,
	log zerolog.Logger,
) *AssessmentAdminService {
	return &AssessmentAdminService{
		assessments: assessments,
		overrides:   overrides,
		sessions:    sessions,
		log:         log.With().Str("component", "assessment_admin").Logger(),
	}
}

// Get retrieves one assessment.
func (s *AssessmentAdminService) Get(ctx context.Context, id uuid.UUID) (*model.Assessment, error) {
	a, err := s.assessments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get assessment: %w", err)
	}
	return a, nil
}

// Create inserts a new assessment.
func (s *AssessmentAdminService) Create(ctx context.Context, a *model.Assessment) error {
	if err := s.assessments.Create(ctx, a); err != nil {
		return fmt.Errorf("create assessment: %w", err)
	}
	s.log.Info().Str("assessment_id", a.ID.String()).Msg("Assessment created")
	return nil
}

// Update applies the non-empty fields of req to an existing assessment.
func (s *AssessmentAdminService) Update(ctx context.Context, id uuid.UUID, req *model.UpdateAssessmentRequest) (*model.Assessment, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Title != "" {
		a.Title = req.Title
	}
	if req.DurationMinutes != nil {
		a.DurationMinutes = req.DurationMinutes
	}
	if req.StartAt != nil {
		a.StartAt = req.StartAt
	}
	if req.EndAt != nil {
		a.EndAt = req.EndAt
	}
	if req.AllowedAttempts != nil {
		a.AllowedAttempts = req.AllowedAttempts
	}
	if req.ResumeLimit != nil {
		a.ResumeLimit = req.ResumeLimit
	}
	if req.AllowedLanguages != nil {
		a.AllowedLanguages = req.AllowedLanguages
	}

	if err := s.assessments.Update(ctx, a); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update assessment: %w", err)
	}
	return a, nil
}

// Delete removes an assessment.
func (s *AssessmentAdminService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.assessments.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete assessment: %w", err)
	}
	return nil
}

// ListByCourse retrieves assessments for a course, paginated.
func (s *AssessmentAdminService) ListByCourse(ctx context.Context, courseID uuid.UUID, page, perPage int) ([]model.Assessment, int64, error) {
	return s.assessments.ListByCourse(ctx, courseID, page, perPage)
}

// PutOverride creates or replaces the per-learner override for an assessment.
func (s *AssessmentAdminService) PutOverride(ctx context.Context, assessmentID uuid.UUID, userID int, req *model.PutOverrideRequest) (*model.AssessmentOverride, error) {
	if _, err := s.Get(ctx, assessmentID); err != nil {
		return nil, err
	}

	o := &model.AssessmentOverride{
		AssessmentID:     assessmentID,
		UserID:           userID,
		MaxAttempts:      req.MaxAttempts,
		ResumeLimit:      req.ResumeLimit,
		StartAt:          req.StartAt,
		EndAt:            req.EndAt,
		AllowedLanguages: req.AllowedLanguages,
	}
	if err := s.overrides.Upsert(ctx, o); err != nil {
		return nil, fmt.Errorf("upsert override: %w", err)
	}
	return o, nil
}

// GetOverride retrieves the override for one learner.
func (s *AssessmentAdminService) GetOverride(ctx context.Context, assessmentID uuid.UUID, userID int) (*model.AssessmentOverride, error) {
	o, err := s.overrides.GetByAssessmentAndUser(ctx, assessmentID, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get override: %w", err)
	}
	return o, nil
}

// DeleteOverride removes the override for one learner.
func (s *AssessmentAdminService) DeleteOverride(ctx context.Context, assessmentID uuid.UUID, userID int) error {
	if err := s.overrides.Delete(ctx, assessmentID, userID); err != nil {
		return fmt.Errorf("delete override: %w", err)
	}
	return nil
}

// ListSessions retrieves sessions for an assessment for administrative read.
func (s *AssessmentAdminService) ListSessions(ctx context.Context, assessmentID uuid.UUID, page, perPage int) ([]model.AssessmentSession, int64, error) {
	if _, err := s.Get(ctx, assessmentID); err != nil {
		return nil, 0, err
	}
	return s.sessions.ListByAssessment(ctx, assessmentID, page, perPage)
}
