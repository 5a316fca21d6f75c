package repository

import (
	"context"

	"github.com/courseloop/courseloop-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AssessmentRepository handles assessment data access.
type AssessmentRepository struct {
	pool *pgxpool.Pool
}

// NewAssessmentRepository creates a new AssessmentRepository.
func NewAssessmentRepository(pool *pgxpool.Pool) *AssessmentRepository {
	return &AssessmentRepository{pool: pool}
}

const assessmentColumns = `id, course_id, title, duration_minutes, start_at, end_at,
	allowed_attempts, resume_limit, allowed_languages, created_at, updated_at`

func scanAssessment(row interface{ Scan(...any) error }) (*model.Assessment, error) {
	a := &model.Assessment{}
	err := row.Scan(
		&a.ID, &a.CourseID, &a.Title, &a.DurationMinutes, &a.StartAt, &a.EndAt,
		&a.AllowedAttempts, &a.ResumeLimit, &a.AllowedLanguages, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// GetByID retrieves an assessment by its ID.
func (r *AssessmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Assessment, error) {
	return scanAssessment(r.pool.QueryRow(ctx,
		`SELECT `+assessmentColumns+` FROM assessments WHERE id = $1`, id))
}

// Create inserts a new assessment.
func (r *AssessmentRepository) Create(ctx context.Context, a *model.Assessment) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO assessments
			(course_id, title, duration_minutes, start_at, end_at, allowed_attempts, resume_limit, allowed_languages)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at, updated_at`,
		a.CourseID, a.Title, a.DurationMinutes, a.StartAt, a.EndAt,
		a.AllowedAttempts, a.ResumeLimit, a.AllowedLanguages,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
}

// Update rewrites the mutable fields of an assessment.
func (r *AssessmentRepository) Update(ctx context.Context, a *model.Assessment) error {
	return r.pool.QueryRow(ctx,
		`UPDATE assessments
		 SET title = $2, duration_minutes = $3, start_at = $4, end_at = $5,
		     allowed_attempts = $6, resume_limit = $7, allowed_languages = $8,
		     updated_at = NOW()
		 WHERE id = $1
		 RETURNING updated_at`,
		a.ID, a.Title, a.DurationMinutes, a.StartAt, a.EndAt,
		a.AllowedAttempts, a.ResumeLimit, a.AllowedLanguages,
	).Scan(&a.UpdatedAt)
}

// Delete removes an assessment.
func (r *AssessmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM assessments WHERE id = $1`, id)
	return err
}

// ListByCourse retrieves assessments for a course, newest first, paginated.
func (r *AssessmentRepository) ListByCourse(ctx context.Context, courseID uuid.UUID, page, perPage int) ([]model.Assessment, int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM assessments WHERE course_id = $1`, courseID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * perPage
	rows, err := r.pool.Query(ctx,
		`SELECT `+assessmentColumns+`
		 FROM assessments
		 WHERE course_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`, courseID, perPage, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var assessments []model.Assessment
	for rows.Next() {
		var a model.Assessment
		if err := rows.Scan(
			&a.ID, &a.CourseID, &a.Title, &a.DurationMinutes, &a.StartAt, &a.EndAt,
			&a.AllowedAttempts, &a.ResumeLimit, &a.AllowedLanguages, &a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, 0, err
		}
		assessments = append(assessments, a)
	}
	return assessments, total, rows.Err()
}
