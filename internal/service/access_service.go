package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/courseloop/courseloop-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AccessService answers the hasCourseAccess capability question for
// assessments. Enrollment itself is managed by the course system; this
// service only reads it.
type AccessService struct {
	assessments *repository.AssessmentRepository
	enrollments *repository.EnrollmentRepository
}

// NewAccessService creates a new AccessService.
func NewAccessService(assessments *repository.AssessmentRepository, enrollments *repository.EnrollmentRepository) *AccessService {
	return &AccessService{assessments: assessments, enrollments: enrollments}
}

// HasAssessmentAccess reports whether the user is enrolled in the course the
// assessment belongs to. An unknown assessment returns true: the attempt
// engine answers with its own not_found verdict, which avoids turning this
// check into an existence oracle.
func (s *AccessService) HasAssessmentAccess(ctx context.Context, userID int, assessmentID uuid.UUID) (bool, error) {
	assessment, err := s.assessments.GetByID(ctx, assessmentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return true, nil
		}
		return false, fmt.Errorf("load assessment: %w", err)
	}

	return s.enrollments.Exists(ctx, assessment.CourseID, userID)
}
