package worker

// dlq.go: dead letter list for failed jobs
// Failed jobs are kept for manual inspection in a Redis list per source queue:
// dlq:{original_queue}. Without Redis they are only logged.

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const DLQPrefix = "dlq:"

// DLQEntry wraps a failed job with metadata for debugging.
type DLQEntry struct {
	OriginalQueue string          `json:"original_queue"`
	JobType       string          `json:"job_type"`
	Payload       json.RawMessage `json:"payload"`
	Reason        string          `json:"reason"`
	FailedAt      string          `json:"failed_at"` // RFC 3339
}

type DeadLetter struct {
	rdb *redis.Client
}

// NewDeadLetter returns a dead-letter sink. rdb may be nil.
func NewDeadLetter(rdb *redis.Client) *DeadLetter {
	return &DeadLetter{rdb: rdb}
}

// Push records a failed job. It is safe to call on a nil *DeadLetter.
func (d *DeadLetter) Push(ctx context.Context, queue, jobType string, payload json.RawMessage, reason string) {
	evt := log.Warn().Str("queue", queue).Str("job_type", jobType).Str("reason", reason)
	if d == nil || d.rdb == nil {
		evt.Msg("dlq: job dropped (no redis)")
		return
	}
	data, err := json.Marshal(DLQEntry{
		OriginalQueue: queue,
		JobType:       jobType,
		Payload:       payload,
		Reason:        reason,
		FailedAt:      time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		log.Error().Err(err).Str("queue", queue).Msg("dlq: failed to marshal entry")
		return
	}
	key := DLQPrefix + queue
	if err := d.rdb.LPush(ctx, key, data).Err(); err != nil {
		log.Error().Err(err).Str("dlq_key", key).Msg("dlq: failed to push")
		return
	}
	evt.Msg("dlq: job moved to dead letter queue")
}

// Length returns the number of entries in a DLQ for monitoring.
func (d *DeadLetter) Length(ctx context.Context, queue string) (int64, error) {
	if d == nil || d.rdb == nil {
		return 0, nil
	}
	return d.rdb.LLen(ctx, DLQPrefix+queue).Result()
}
