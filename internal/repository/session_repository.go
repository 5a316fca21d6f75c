package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/courseloop/courseloop-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SessionRepository handles assessment session data access. The schema
// carries a partial unique index on (assessment_id, user_id) WHERE
// status = 'active', which is what makes concurrent duplicate starts safe
// without an in-process lock.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

const sessionColumns = `id, assessment_id, user_id, status, started_at, last_resume_at, resume_count, ended_at`

// GetActive retrieves the active session for an (assessment, user) pair.
// The unique index guarantees at most one; ordering by started_at keeps the
// read deterministic if the invariant is ever violated by hand-edited data.
// Returns pgx.ErrNoRows when no active session exists.
func (r *SessionRepository) GetActive(ctx context.Context, assessmentID uuid.UUID, userID int) (*model.AssessmentSession, error) {
	s := &model.AssessmentSession{}
	err := r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+`
		 FROM assessment_sessions
		 WHERE assessment_id = $1 AND user_id = $2 AND status = 'active'
		 ORDER BY started_at DESC
		 LIMIT 1`, assessmentID, userID,
	).Scan(&s.ID, &s.AssessmentID, &s.UserID, &s.Status, &s.StartedAt, &s.LastResumeAt, &s.ResumeCount, &s.EndedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// GetScoped retrieves a session by id scoped to its owner. Sessions are
// authorized by ownership, not by id alone; a session owned by another
// learner is indistinguishable from a missing one (pgx.ErrNoRows).
func (r *SessionRepository) GetScoped(ctx context.Context, id, assessmentID uuid.UUID, userID int) (*model.AssessmentSession, error) {
	s := &model.AssessmentSession{}
	err := r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+`
		 FROM assessment_sessions
		 WHERE id = $1 AND assessment_id = $2 AND user_id = $3`, id, assessmentID, userID,
	).Scan(&s.ID, &s.AssessmentID, &s.UserID, &s.Status, &s.StartedAt, &s.LastResumeAt, &s.ResumeCount, &s.EndedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// CreateActive inserts a new active session. When a concurrent request
// already created one, the partial unique index makes the insert a no-op and
// Scan returns pgx.ErrNoRows; callers treat that as "active session exists".
func (r *SessionRepository) CreateActive(ctx context.Context, s *model.AssessmentSession) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO assessment_sessions (assessment_id, user_id, status, started_at)
		 VALUES ($1, $2, 'active', $3)
		 ON CONFLICT (assessment_id, user_id) WHERE status = 'active' DO NOTHING
		 RETURNING `+sessionColumns,
		s.AssessmentID, s.UserID, s.StartedAt,
	).Scan(&s.ID, &s.AssessmentID, &s.UserID, &s.Status, &s.StartedAt, &s.LastResumeAt, &s.ResumeCount, &s.EndedAt)
}

// IncrementResume bumps resume_count and stamps last_resume_at, guarded on
// the session still being active. Returns pgx.ErrNoRows if the session went
// terminal between the caller's read and this write.
func (r *SessionRepository) IncrementResume(ctx context.Context, id uuid.UUID, now time.Time) (*model.AssessmentSession, error) {
	s := &model.AssessmentSession{}
	err := r.pool.QueryRow(ctx,
		`UPDATE assessment_sessions
		 SET resume_count = resume_count + 1, last_resume_at = $2
		 WHERE id = $1 AND status = 'active'
		 RETURNING `+sessionColumns, id, now,
	).Scan(&s.ID, &s.AssessmentID, &s.UserID, &s.Status, &s.StartedAt, &s.LastResumeAt, &s.ResumeCount, &s.EndedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// SetTerminal moves an active session to a terminal status. Returns false
// when the session was not active anymore (lost race with another request),
// which callers use for idempotent finish semantics.
func (r *SessionRepository) SetTerminal(ctx context.Context, id uuid.UUID, status model.SessionStatus, endedAt time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE assessment_sessions
		 SET status = $2, ended_at = $3
		 WHERE id = $1 AND status = 'active'`, id, status, endedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// CompleteWithSubmission transitions an active session to completed and
// records a submission in one transaction, so a finished or abandoned attempt
// always consumes exactly one attempt. Returns false without error when the
// session was already terminal: some other request completed it first,
// submission included.
func (r *SessionRepository) CompleteWithSubmission(ctx context.Context, s *model.AssessmentSession, now time.Time, auto bool) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE assessment_sessions
		 SET status = 'completed', ended_at = $2
		 WHERE id = $1 AND status = 'active'`, s.ID, now)
	if err != nil {
		return false, fmt.Errorf("complete session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO submissions (assessment_id, user_id, session_id, auto_submitted)
		 VALUES ($1, $2, $3, $4)`,
		s.AssessmentID, s.UserID, s.ID, auto); err != nil {
		return false, fmt.Errorf("record submission: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// ListByAssessment retrieves sessions for an assessment for administrative
// read, newest first, paginated.
func (r *SessionRepository) ListByAssessment(ctx context.Context, assessmentID uuid.UUID, page, perPage int) ([]model.AssessmentSession, int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM assessment_sessions WHERE assessment_id = $1`, assessmentID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * perPage
	rows, err := r.pool.Query(ctx,
		`SELECT `+sessionColumns+`
		 FROM assessment_sessions
		 WHERE assessment_id = $1
		 ORDER BY started_at DESC
		 LIMIT $2 OFFSET $3`, assessmentID, perPage, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var sessions []model.AssessmentSession
	for rows.Next() {
		var s model.AssessmentSession
		if err := rows.Scan(&s.ID, &s.AssessmentID, &s.UserID, &s.Status, &s.StartedAt, &s.LastResumeAt, &s.ResumeCount, &s.EndedAt); err != nil {
			return nil, 0, err
		}
		sessions = append(sessions, s)
	}
	return sessions, total, rows.Err()
}
