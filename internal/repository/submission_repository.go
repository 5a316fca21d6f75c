package repository

import (
	"context"

	"github.com/courseloop/courseloop-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SubmissionRepository handles submission (recorded attempt) data access.
type SubmissionRepository struct {
	pool *pgxpool.Pool
}

// NewSubmissionRepository creates a new SubmissionRepository.
func NewSubmissionRepository(pool *pgxpool.Pool) *SubmissionRepository {
	return &SubmissionRepository{pool: pool}
}

// CountByAssessmentAndUser counts recorded attempts for one learner.
func (r *SubmissionRepository) CountByAssessmentAndUser(ctx context.Context, assessmentID uuid.UUID, userID int) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM submissions WHERE assessment_id = $1 AND user_id = $2`,
		assessmentID, userID,
	).Scan(&n)
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Create inserts a new submission row.
func (r *SubmissionRepository) Create(ctx context.Context, s *model.Submission) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO submissions (assessment_id, user_id, session_id, score, auto_submitted)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		s.AssessmentID, s.UserID, s.SessionID, s.Score, s.AutoSubmitted,
	).Scan(&s.ID, &s.CreatedAt)
}
