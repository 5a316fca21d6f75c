package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/courseloop/courseloop-backend/internal/config"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// SessionEventType enumerates lifecycle transitions worth announcing.
type SessionEventType string

const (
	EventSessionStarted   SessionEventType = "session_started"
	EventSessionResumed   SessionEventType = "session_resumed"
	EventSessionFinished  SessionEventType = "session_finished"
	EventSessionExpired   SessionEventType = "session_expired"
	EventSessionCancelled SessionEventType = "session_cancelled"
)

// SessionEvent is the payload published after every session state change.
type SessionEvent struct {
	Type         SessionEventType `json:"type"`
	AssessmentID uuid.UUID        `json:"assessment_id"`
	UserID       int              `json:"user_id"`
	SessionID    uuid.UUID        `json:"session_id"`
	ResumeCount  int              `json:"resume_count"`
	At           time.Time        `json:"at"`
}

// EventPublisher is the one-way side channel the lifecycle uses after state
// changes. Implementations must never feed back into eligibility decisions.
type EventPublisher interface {
	PublishSessionEvent(ctx context.Context, ev SessionEvent)
}

// RedisEventPublisher fans session events out over Redis: a pub/sub channel
// per assessment and per user for live consumers, plus the audit queue
// drained by the audit worker. Fire-and-forget: failures are logged and
// swallowed, a dropped event must not fail the learner's request.
type RedisEventPublisher struct {
	rdb *redis.Client
	log zerolog.Logger
}

// NewRedisEventPublisher creates a new RedisEventPublisher.
func NewRedisEventPublisher(rdb *redis.Client, log zerolog.Logger) *RedisEventPublisher {
	return &RedisEventPublisher{
		rdb: rdb,
		log: log.With().Str("component", "event_publisher").Logger(),
	}
}

// PublishSessionEvent implements EventPublisher.
func (p *RedisEventPublisher) PublishSessionEvent(ctx context.Context, ev SessionEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		p.log.Error().Err(err).Msg("Marshal session event")
		return
	}

	if err := p.rdb.Publish(ctx, config.EventKey.AssessmentSessionChannel(ev.AssessmentID.String()), payload).Err(); err != nil {
		p.log.Warn().Err(err).Str("session_id", ev.SessionID.String()).Msg("Publish to assessment channel failed")
	}
	if err := p.rdb.Publish(ctx, config.EventKey.UserSessionChannel(ev.UserID), payload).Err(); err != nil {
		p.log.Warn().Err(err).Str("session_id", ev.SessionID.String()).Msg("Publish to user channel failed")
	}
	if err := p.rdb.LPush(ctx, config.AuditQueueKey, payload).Err(); err != nil {
		p.log.Warn().Err(err).Str("session_id", ev.SessionID.String()).Msg("Enqueue audit event failed")
	}
}

// NoopEventPublisher discards events. Used in tests.
type NoopEventPublisher struct{}

// PublishSessionEvent implements EventPublisher.
func (NoopEventPublisher) PublishSessionEvent(context.Context, SessionEvent) {}
