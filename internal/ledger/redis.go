package ledger

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	pkgerrors "lookout/pkg/errors"
	"lookout/pkg/models"
)

const (
	recordKeyPrefix  = "ledger:record:"
	recentListKey    = "ledger:recent"
	totalCountKey    = "ledger:stats:total"
	notifiedCountKey = "ledger:stats:notified"

	// recentListMax caps the recency list so it never grows unbounded.
	recentListMax = 10000
)

// RedisLedger keeps one JSON record per event id, inserted with SETNX so a
// concurrent double-append loses instead of overwriting. A capped list of
// event ids provides recency ordering.
type RedisLedger struct {
	client *redis.Client
}

func NewRedisLedger(client *redis.Client) *RedisLedger {
	return &RedisLedger{client: client}
}

func (l *RedisLedger) Exists(ctx context.Context, eventID string) (bool, error) {
	n, err := l.client.Exists(ctx, recordKeyPrefix+eventID).Result()
	if err != nil {
		return false, pkgerrors.ErrStoreUnavailable.WithCause(err).WithDetail("operation", "exists")
	}
	return n > 0, nil
}

func (l *RedisLedger) Append(ctx context.Context, record *models.ProcessedRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.RecordedAt.IsZero() {
		record.RecordedAt = time.Now()
	}

	body, err := json.Marshal(record)
	if err != nil {
		return pkgerrors.ErrInternal.WithCause(err).WithDetail("operation", "append")
	}

	inserted, err := l.client.SetNX(ctx, recordKeyPrefix+record.EventID, body, 0).Result()
	if err != nil {
		return pkgerrors.ErrStoreUnavailable.WithCause(err).WithDetail("operation", "append")
	}
	if !inserted {
		return pkgerrors.ErrConflict.WithDetail("event_id", record.EventID)
	}

	pipe := l.client.TxPipeline()
	pipe.LPush(ctx, recentListKey, record.EventID)
	pipe.LTrim(ctx, recentListKey, 0, recentListMax-1)
	pipe.Incr(ctx, totalCountKey)
	if record.Notified {
		pipe.Incr(ctx, notifiedCountKey)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		// The record itself is in place; recency and stats are best effort.
		return nil
	}

	return nil
}

func (l *RedisLedger) RecentRecords(ctx context.Context, limit int) ([]models.ProcessedRecord, error) {
	ids, err := l.client.LRange(ctx, recentListKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, pkgerrors.ErrStoreUnavailable.WithCause(err).WithDetail("operation", "recent_records")
	}

	var records []models.ProcessedRecord
	for _, id := range ids {
		body, err := l.client.Get(ctx, recordKeyPrefix+id).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, pkgerrors.ErrStoreUnavailable.WithCause(err).WithDetail("operation", "recent_records")
		}

		var rec models.ProcessedRecord
		if err := json.Unmarshal(body, &rec); err != nil {
			continue
		}
		records = append(records, rec)
	}

	return records, nil
}

func (l *RedisLedger) Stats(ctx context.Context) (Stats, error) {
	total, err := l.client.Get(ctx, totalCountKey).Int64()
	if err != nil && err != redis.Nil {
		return Stats{}, pkgerrors.ErrStoreUnavailable.WithCause(err).WithDetail("operation", "stats")
	}

	notified, err := l.client.Get(ctx, notifiedCountKey).Int64()
	if err != nil && err != redis.Nil {
		return Stats{}, pkgerrors.ErrStoreUnavailable.WithCause(err).WithDetail("operation", "stats")
	}

	return Stats{TotalRecords: total, NotifiedRecords: notified}, nil
}
