package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/md-rashed-zaman/apptslots/services/availability-service/internal/availability"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingStore struct {
	snap  availability.Snapshot
	err   error
	calls int
}

func (s *countingStore) Read(context.Context, string, availability.DateRange) (availability.Snapshot, error) {
	s.calls++
	return s.snap, s.err
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func sampleSnapshot() availability.Snapshot {
	return availability.Snapshot{
		OrganizerID: "org-ny",
		Timezone:    "America/New_York",
		Rules:       []availability.AvailabilityRule{{DayOfWeek: time.Monday, StartMinute: 540, EndMinute: 1020}},
		Overrides:   []availability.DateOverride{{Date: availability.Date{Year: 2024, Month: time.December, Day: 25}, Unavailable: true}},
		Bookings: []availability.Booking{{
			StartUTC: time.Date(2024, 1, 15, 17, 0, 0, 0, time.UTC),
			EndUTC:   time.Date(2024, 1, 15, 18, 0, 0, 0, time.UTC),
		}},
	}
}

var january = availability.DateRange{
	Start: availability.Date{Year: 2024, Month: time.January, Day: 1},
	End:   availability.Date{Year: 2024, Month: time.January, Day: 31},
}

func TestCachedStore_ReadThrough(t *testing.T) {
	mr, rdb := newRedis(t)
	backing := &countingStore{snap: sampleSnapshot()}
	c := NewCachedStore(backing, rdb, time.Minute, nil)
	ctx := context.Background()

	first, err := c.Read(ctx, "org-ny", january)
	require.NoError(t, err)
	second, err := c.Read(ctx, "org-ny", january)
	require.NoError(t, err)

	assert.Equal(t, 1, backing.calls)
	assert.Equal(t, first, second)
	assert.Equal(t, sampleSnapshot(), second)
	assert.True(t, mr.Exists("availability:snapshot:org-ny:2024-01-01..2024-01-31"))

	mr.FastForward(2 * time.Minute)
	_, err = c.Read(ctx, "org-ny", january)
	require.NoError(t, err)
	assert.Equal(t, 2, backing.calls)
}

func TestCachedStore_Invalidate(t *testing.T) {
	mr, rdb := newRedis(t)
	backing := &countingStore{snap: sampleSnapshot()}
	c := NewCachedStore(backing, rdb, time.Minute, nil)
	ctx := context.Background()

	_, err := c.Read(ctx, "org-ny", january)
	require.NoError(t, err)
	require.NoError(t, mr.Set("availability:snapshot:org-other:2024-01-01..2024-01-31", "{}"))

	require.NoError(t, c.Invalidate(ctx, "org-ny"))
	assert.False(t, mr.Exists("availability:snapshot:org-ny:2024-01-01..2024-01-31"))
	assert.True(t, mr.Exists("availability:snapshot:org-other:2024-01-01..2024-01-31"))

	_, err = c.Read(ctx, "org-ny", january)
	require.NoError(t, err)
	assert.Equal(t, 2, backing.calls)
}

func TestCachedStore_FailsOpenWhenRedisDown(t *testing.T) {
	mr, rdb := newRedis(t)
	backing := &countingStore{snap: sampleSnapshot()}
	c := NewCachedStore(backing, rdb, time.Minute, nil)
	mr.Close()

	snap, err := c.Read(context.Background(), "org-ny", january)
	require.NoError(t, err)
	assert.Equal(t, "America/New_York", snap.Timezone)
	assert.Error(t, c.Ping(context.Background()))
}

func TestCachedStore_BackingErrorsNotCached(t *testing.T) {
	mr, rdb := newRedis(t)
	cause := errors.New("db down")
	backing := &countingStore{err: cause}
	c := NewCachedStore(backing, rdb, time.Minute, nil)

	_, err := c.Read(context.Background(), "org-ny", january)
	assert.ErrorIs(t, err, cause)
	assert.Empty(t, mr.Keys())
}

func TestCachedStore_CorruptEntryRefetched(t *testing.T) {
	mr, rdb := newRedis(t)
	backing := &countingStore{snap: sampleSnapshot()}
	c := NewCachedStore(backing, rdb, time.Minute, nil)
	require.NoError(t, mr.Set("availability:snapshot:org-ny:2024-01-01..2024-01-31", "not json"))

	snap, err := c.Read(context.Background(), "org-ny", january)
	require.NoError(t, err)
	assert.Equal(t, sampleSnapshot(), snap)
	assert.Equal(t, 1, backing.calls)
}
