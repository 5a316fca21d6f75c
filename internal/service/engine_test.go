package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/courseloop/courseloop-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// memStore is an in-memory stand-in for the pgx repositories. It mimics
// their contracts, including pgx.ErrNoRows on absence and the partial unique
// index behavior of CreateActive.
type memStore struct {
	mu          sync.Mutex
	assessments map[uuid.UUID]*model.Assessment
	overrides   map[string]*model.AssessmentOverride
	sessions    map[uuid.UUID]*model.AssessmentSession
	submissions []model.Submission
	countErr    error

	// onCreate runs once inside CreateActive before the uniqueness check,
	// simulating a concurrent writer that slips in between GetActive and the
	// insert.
	onCreate func()
}

func newMemStore() *memStore {
	return &memStore{
		assessments: make(map[uuid.UUID]*model.Assessment),
		overrides:   make(map[string]*model.AssessmentOverride),
		sessions:    make(map[uuid.UUID]*model.AssessmentSession),
	}
}

func overrideKey(assessmentID uuid.UUID, userID int) string {
	return fmt.Sprintf("%s:%d", assessmentID, userID)
}

func (m *memStore) GetByID(_ context.Context, id uuid.UUID) (*model.Assessment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assessments[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *a
	return &cp, nil
}

func (m *memStore) GetByAssessmentAndUser(_ context.Context, assessmentID uuid.UUID, userID int) (*model.AssessmentOverride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.overrides[overrideKey(assessmentID, userID)]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *o
	return &cp, nil
}

func (m *memStore) GetActive(_ context.Context, assessmentID uuid.UUID, userID int) (*model.AssessmentSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *model.AssessmentSession
	for _, s := range m.sessions {
		if s.AssessmentID == assessmentID && s.UserID == userID && s.Status == model.SessionStatusActive {
			if latest == nil || s.StartedAt.After(latest.StartedAt) {
				latest = s
			}
		}
	}
	if latest == nil {
		return nil, pgx.ErrNoRows
	}
	cp := *latest
	return &cp, nil
}

func (m *memStore) GetScoped(_ context.Context, id, assessmentID uuid.UUID, userID int) (*model.AssessmentSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || s.AssessmentID != assessmentID || s.UserID != userID {
		return nil, pgx.ErrNoRows
	}
	cp := *s
	return &cp, nil
}

func (m *memStore) CreateActive(_ context.Context, s *model.AssessmentSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.onCreate != nil {
		hook := m.onCreate
		m.onCreate = nil
		hook()
	}
	for _, existing := range m.sessions {
		if existing.AssessmentID == s.AssessmentID && existing.UserID == s.UserID && existing.Status == model.SessionStatusActive {
			return pgx.ErrNoRows
		}
	}
	s.ID = uuid.New()
	s.Status = model.SessionStatusActive
	s.ResumeCount = 0
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m *memStore) IncrementResume(_ context.Context, id uuid.UUID, now time.Time) (*model.AssessmentSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || s.Status != model.SessionStatusActive {
		return nil, pgx.ErrNoRows
	}
	s.ResumeCount++
	t := now
	s.LastResumeAt = &t
	cp := *s
	return &cp, nil
}

func (m *memStore) SetTerminal(_ context.Context, id uuid.UUID, status model.SessionStatus, endedAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || s.Status != model.SessionStatusActive {
		return false, nil
	}
	s.Status = status
	t := endedAt
	s.EndedAt = &t
	return true, nil
}

func (m *memStore) CompleteWithSubmission(_ context.Context, sess *model.AssessmentSession, now time.Time, auto bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sess.ID]
	if !ok || s.Status != model.SessionStatusActive {
		return false, nil
	}
	s.Status = model.SessionStatusCompleted
	t := now
	s.EndedAt = &t
	sid := s.ID
	m.submissions = append(m.submissions, model.Submission{
		ID:            uuid.New(),
		AssessmentID:  s.AssessmentID,
		UserID:        s.UserID,
		SessionID:     &sid,
		AutoSubmitted: auto,
		CreatedAt:     now,
	})
	return true, nil
}

func (m *memStore) CountByAssessmentAndUser(_ context.Context, assessmentID uuid.UUID, userID int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.countErr != nil {
		return 0, m.countErr
	}
	n := 0
	for _, s := range m.submissions {
		if s.AssessmentID == assessmentID && s.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (m *memStore) seedAssessment(a *model.Assessment) uuid.UUID {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	m.assessments[a.ID] = a
	return a.ID
}

func (m *memStore) seedOverride(o *model.AssessmentOverride) {
	m.overrides[overrideKey(o.AssessmentID, o.UserID)] = o
}

func (m *memStore) seedSubmissions(assessmentID uuid.UUID, userID, n int) {
	for i := 0; i < n; i++ {
		m.submissions = append(m.submissions, model.Submission{
			ID:           uuid.New(),
			AssessmentID: assessmentID,
			UserID:       userID,
		})
	}
}

// newEngine wires a lifecycle and eligibility service around one memStore.
func newEngine(store *memStore) (*SessionLifecycleService, *EligibilityService) {
	log := zerolog.Nop()
	ledger := NewAttemptLedger(store, log)
	lifecycle := NewSessionLifecycleService(store, store, store, ledger, NoopEventPublisher{}, log)
	eligibility := NewEligibilityService(store, store, store, ledger, lifecycle, log)
	return lifecycle, eligibility
}

func intPtr(n int) *int { return &n }
