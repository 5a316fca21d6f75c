package repository

import (
	"context"

	"github.com/courseloop/courseloop-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OverrideRepository handles per-learner assessment override data access.
type OverrideRepository struct {
	pool *pgxpool.Pool
}

// NewOverrideRepository creates a new OverrideRepository.
func NewOverrideRepository(pool *pgxpool.Pool) *OverrideRepository {
	return &OverrideRepository{pool: pool}
}

// GetByAssessmentAndUser retrieves the override for one learner, if any.
// Returns pgx.ErrNoRows when no override exists.
func (r *OverrideRepository) GetByAssessmentAndUser(ctx context.Context, assessmentID uuid.UUID, userID int) (*model.AssessmentOverride, error) {
	o := &model.AssessmentOverride{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, assessment_id, user_id, max_attempts, resume_limit, start_at, end_at,
		        allowed_languages, created_at, updated_at
		 FROM assessment_overrides
		 WHERE assessment_id = $1 AND user_id = $2`, assessmentID, userID,
	).Scan(&o.ID, &o.AssessmentID, &o.UserID, &o.MaxAttempts, &o.ResumeLimit,
		&o.StartAt, &o.EndAt, &o.AllowedLanguages, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return o, nil
}

// Upsert creates or replaces the override for one learner.
func (r *OverrideRepository) Upsert(ctx context.Context, o *model.AssessmentOverride) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO assessment_overrides
			(assessment_id, user_id, max_attempts, resume_limit, start_at, end_at, allowed_languages)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (assessment_id, user_id) DO UPDATE
		 SET max_attempts = EXCLUDED.max_attempts,
		     resume_limit = EXCLUDED.resume_limit,
		     start_at = EXCLUDED.start_at,
		     end_at = EXCLUDED.end_at,
		     allowed_languages = EXCLUDED.allowed_languages,
		     updated_at = NOW()
		 RETURNING id, created_at, updated_at`,
		o.AssessmentID, o.UserID, o.MaxAttempts, o.ResumeLimit, o.StartAt, o.EndAt, o.AllowedLanguages,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
}

// Delete removes the override for one learner.
func (r *OverrideRepository) Delete(ctx context.Context, assessmentID uuid.UUID, userID int) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM assessment_overrides WHERE assessment_id = $1 AND user_id = $2`,
		assessmentID, userID)
	return err
}
