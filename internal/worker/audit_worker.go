package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/courseloop/courseloop-backend/internal/config"
	"github.com/courseloop/courseloop-backend/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// AuditWorker drains the session-event queue into the session_events audit
// table. It never touches live attempt state; expiry stays lazy in the
// lifecycle, this worker only preserves history.
type AuditWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

// NewAuditWorker creates a new AuditWorker.
func NewAuditWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *AuditWorker {
	return &AuditWorker{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "audit_worker").Logger(),
	}
}

// Start begins the infinite worker loop. Call in a goroutine.
func (w *AuditWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			// Drain remaining items before exit.
			w.drain(context.Background())
			w.log.Info().Msg("Worker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *AuditWorker) processNext(ctx context.Context) {
	// BLPop blocks until an item is available or timeout (1 second).
	result, err := w.rdb.BLPop(ctx, time.Second, config.AuditQueueKey).Result()
	if err != nil {
		if err != redis.Nil && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
		}
		return
	}

	if len(result) < 2 {
		return
	}

	var ev service.SessionEvent
	if err := json.Unmarshal([]byte(result[1]), &ev); err != nil {
		w.log.Error().Err(err).Msg("Unmarshal error")
		return
	}

	if err := w.persistEvent(ctx, &ev); err != nil {
		w.log.Error().Err(err).
			Str("session_id", ev.SessionID.String()).
			Str("type", string(ev.Type)).
			Msg("Persist error, retrying in 5s")
		// Push back to queue for retry.
		w.rdb.RPush(ctx, config.AuditQueueKey, result[1])
		time.Sleep(5 * time.Second)
	}
}

func (w *AuditWorker) persistEvent(ctx context.Context, ev *service.SessionEvent) error {
	_, err := w.pool.Exec(ctx,
		`INSERT INTO session_events (event_type, assessment_id, user_id, session_id, resume_count, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		ev.Type, ev.AssessmentID, ev.UserID, ev.SessionID, ev.ResumeCount, ev.At,
	)
	return err
}

// drain processes all remaining items in the queue before shutdown.
func (w *AuditWorker) drain(ctx context.Context) {
	drained := 0
	for {
		result, err := w.rdb.LPop(ctx, config.AuditQueueKey).Result()
		if err != nil {
			break
		}

		var ev service.SessionEvent
		if err := json.Unmarshal([]byte(result), &ev); err != nil {
			w.log.Error().Err(err).Msg("Unmarshal error during drain")
			continue
		}

		if err := w.persistEvent(ctx, &ev); err != nil {
			w.log.Error().Err(err).Msg("Persist error during drain, event dropped")
			continue
		}
		drained++
	}

	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained audit queue")
	}
}
