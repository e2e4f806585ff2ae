package storage

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/apptslots/services/availability-service/internal/availability"
	"github.com/redis/go-redis/v9"
)

const snapshotKeyPrefix = "availability:snapshot:"

// CachedStore is a read-through Redis cache in front of another RuleStore. Redis failures are
// logged and the read goes straight to the backing store; the cache never turns a successful
// read into an error.
type CachedStore struct {
	next   availability.RuleStore
	rdb    redis.UniversalClient
	ttl    time.Duration
	logger *slog.Logger
}

func NewCachedStore(next availability.RuleStore, rdb redis.UniversalClient, ttl time.Duration, logger *slog.Logger) *CachedStore {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &CachedStore{next: next, rdb: rdb, ttl: ttl, logger: logger}
}

func snapshotKey(organizerID string, dr availability.DateRange) string {
	return snapshotKeyPrefix + organizerID + ":" + dr.String()
}

func (c *CachedStore) Read(ctx context.Context, organizerID string, dr availability.DateRange) (availability.Snapshot, error) {
	key := snapshotKey(organizerID, dr)

	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var snap availability.Snapshot
		if err := json.Unmarshal(raw, &snap); err == nil {
			return snap, nil
		}
		c.logger.Warn("discarding undecodable cached snapshot", "key", key)
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("snapshot cache read failed", "organizer_id", organizerID, "err", err)
	}

	snap, err := c.next.Read(ctx, organizerID, dr)
	if err != nil {
		return availability.Snapshot{}, err
	}
	if raw, err := json.Marshal(snap); err == nil {
		if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			c.logger.Warn("snapshot cache write failed", "organizer_id", organizerID, "err", err)
		}
	}
	return snap, nil
}

// Invalidate drops every cached range for the organizer. Call it after rules or bookings change.
func (c *CachedStore) Invalidate(ctx context.Context, organizerID string) error {
	iter := c.rdb.Scan(ctx, 0, snapshotKeyPrefix+organizerID+":*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}

func (c *CachedStore) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}
