package slotcache

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restoboost/internal/model"
)

func sampleSlots() []model.Slot {
	return []model.Slot{
		{Time: "18:00", Available: true, Discount: 20},
		{Time: "19:00", Available: false, Discount: 20},
	}
}

func int64Ptr(v int64) *int64 { return &v }

func TestMemory_TTL(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	cache := NewMemory(5 * time.Minute).WithClock(func() time.Time { return now })

	key := Key{RestaurantID: 1, Date: "2026-03-10"}
	_, ok := cache.Get(ctx, key)
	assert.False(t, ok)

	cache.Put(ctx, key, sampleSlots())
	got, ok := cache.Get(ctx, key)
	require.True(t, ok)
	assert.Equal(t, sampleSlots(), got)

	now = now.Add(4*time.Minute + 59*time.Second)
	_, ok = cache.Get(ctx, key)
	assert.True(t, ok)

	now = now.Add(time.Second)
	_, ok = cache.Get(ctx, key)
	assert.False(t, ok, "entry expires at ttl")
}

func TestMemory_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	cache := NewMemory(time.Minute)
	key := Key{RestaurantID: 1, Date: "2026-03-10"}

	slots := sampleSlots()
	cache.Put(ctx, key, slots)
	slots[0].Discount = 99

	got, ok := cache.Get(ctx, key)
	require.True(t, ok)
	assert.Equal(t, 20, got[0].Discount)

	got[1].Time = "23:00"
	again, _ := cache.Get(ctx, key)
	assert.Equal(t, "19:00", again[1].Time)
}

func TestMemory_CopiesDiagnostics(t *testing.T) {
	ctx := context.Background()
	cache := NewMemory(time.Minute)
	key := Key{RestaurantID: 1, Date: "2026-03-10"}

	svc := model.ID("svc-1")
	guests, capacity, load := 4, 16, 25
	cache.Put(ctx, key, []model.Slot{{
		Time: "18:00", Available: true,
		ServiceID: &svc, BookedGuests: &guests, Capacity: &capacity, Load: &load,
	}})
	load = 90

	got, ok := cache.Get(ctx, key)
	require.True(t, ok)
	require.NotNil(t, got[0].Load)
	assert.Equal(t, 25, *got[0].Load)

	*got[0].Load = 100
	*got[0].BookedGuests = 15
	*got[0].ServiceID = "other"
	again, _ := cache.Get(ctx, key)
	assert.Equal(t, 25, *again[0].Load)
	assert.Equal(t, 4, *again[0].BookedGuests)
	assert.Equal(t, model.ID("svc-1"), *again[0].ServiceID)
}

func TestMemory_SweepsExpiredEntries(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	cache := NewMemory(time.Minute).WithClock(func() time.Time { return now })

	for i := 0; i < 1000; i++ {
		cache.Put(ctx, Key{RestaurantID: int64(i%50 + 1), Date: fmt.Sprintf("day-%d", i)}, sampleSlots())
	}
	require.Equal(t, 1000, cache.Len())

	now = now.Add(time.Hour)
	_, ok := cache.Get(ctx, Key{RestaurantID: 1, Date: "day-0"})
	assert.False(t, ok)
	assert.Zero(t, cache.Len(), "expired entries are dropped on an expired read")

	for i := 0; i < 10; i++ {
		cache.Put(ctx, Key{RestaurantID: 1, Date: fmt.Sprintf("day-%d", i)}, sampleSlots())
	}
	now = now.Add(2 * time.Minute)
	cache.Put(ctx, Key{RestaurantID: 2, Date: "fresh"}, sampleSlots())
	assert.Equal(t, 1, cache.Len(), "writes sweep once per ttl")
}

func TestMemory_EmptyListIsCached(t *testing.T) {
	ctx := context.Background()
	cache := NewMemory(time.Minute)
	key := Key{RestaurantID: 3, Date: "2026-03-10"}

	cache.Put(ctx, key, nil)
	got, ok := cache.Get(ctx, key)
	require.True(t, ok)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestMemory_Invalidate(t *testing.T) {
	ctx := context.Background()
	cache := NewMemory(time.Minute)

	cache.Put(ctx, Key{1, "2026-03-10"}, sampleSlots())
	cache.Put(ctx, Key{1, "2026-03-11"}, sampleSlots())
	cache.Put(ctx, Key{2, "2026-03-10"}, sampleSlots())
	assert.Equal(t, 3, cache.Len())

	cache.Invalidate(ctx, int64Ptr(1))
	assert.Equal(t, 1, cache.Len())
	_, ok := cache.Get(ctx, Key{2, "2026-03-10"})
	assert.True(t, ok)

	cache.Invalidate(ctx, nil)
	assert.Equal(t, 0, cache.Len())
}

func TestMemory_ZeroTTLDisables(t *testing.T) {
	ctx := context.Background()
	cache := NewMemory(0)
	cache.Put(ctx, Key{1, "2026-03-10"}, sampleSlots())
	_, ok := cache.Get(ctx, Key{1, "2026-03-10"})
	assert.False(t, ok)
}

func TestNop(t *testing.T) {
	ctx := context.Background()
	var cache Cache = Nop{}
	cache.Put(ctx, Key{1, "2026-03-10"}, sampleSlots())
	_, ok := cache.Get(ctx, Key{1, "2026-03-10"})
	assert.False(t, ok)
	cache.Invalidate(ctx, nil)
}

func newRedisCache(t *testing.T, ttl time.Duration) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	logger := zerolog.New(io.Discard)
	return NewRedis(client, ttl, &logger), mr
}

func TestRedis_PutGetAndTTL(t *testing.T) {
	ctx := context.Background()
	cache, mr := newRedisCache(t, 5*time.Minute)
	key := Key{RestaurantID: 7, Date: "2026-03-10"}

	_, ok := cache.Get(ctx, key)
	assert.False(t, ok)

	cache.Put(ctx, key, sampleSlots())
	assert.True(t, mr.Exists("slots:7:2026-03-10"))
	assert.Equal(t, 5*time.Minute, mr.TTL("slots:7:2026-03-10"))

	got, ok := cache.Get(ctx, key)
	require.True(t, ok)
	assert.Equal(t, sampleSlots(), got)

	mr.FastForward(5 * time.Minute)
	_, ok = cache.Get(ctx, key)
	assert.False(t, ok)
}

func TestRedis_Invalidate(t *testing.T) {
	ctx := context.Background()
	cache, mr := newRedisCache(t, time.Minute)

	cache.Put(ctx, Key{1, "2026-03-10"}, sampleSlots())
	cache.Put(ctx, Key{1, "2026-03-11"}, sampleSlots())
	cache.Put(ctx, Key{12, "2026-03-10"}, sampleSlots())
	require.NoError(t, mr.Set("other:1", "keep"))

	cache.Invalidate(ctx, int64Ptr(1))
	assert.False(t, mr.Exists("slots:1:2026-03-10"))
	assert.False(t, mr.Exists("slots:1:2026-03-11"))
	assert.True(t, mr.Exists("slots:12:2026-03-10"), "prefix of another restaurant id survives")

	cache.Invalidate(ctx, nil)
	assert.False(t, mr.Exists("slots:12:2026-03-10"))
	assert.True(t, mr.Exists("other:1"))
}

func TestRedis_FailuresAreMisses(t *testing.T) {
	ctx := context.Background()
	cache, mr := newRedisCache(t, time.Minute)

	require.NoError(t, mr.Set("slots:1:2026-03-10", "not json"))
	_, ok := cache.Get(ctx, Key{1, "2026-03-10"})
	assert.False(t, ok)

	mr.Close()
	assert.NotPanics(t, func() {
		cache.Put(ctx, Key{1, "2026-03-10"}, sampleSlots())
		_, ok = cache.Get(ctx, Key{1, "2026-03-10"})
		cache.Invalidate(ctx, nil)
	})
	assert.False(t, ok)
}
