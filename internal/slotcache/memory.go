package slotcache

import (
	"context"
	"sync"
	"time"

	"restoboost/internal/model"
)

type memoryEntry struct {
	slots    []model.Slot
	storedAt time.Time
}

// Memory is an in-process cache with a fixed TTL.
type Memory struct {
	mu        sync.RWMutex
	ttl       time.Duration
	now       func() time.Time
	entries   map[int64]map[string]memoryEntry
	lastSweep time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[int64]map[string]memoryEntry),
	}
}

// WithClock replaces the time source, for tests.
func (c *Memory) WithClock(now func() time.Time) *Memory {
	c.now = now
	return c
}

func (c *Memory) Get(_ context.Context, key Key) ([]model.Slot, bool) {
	now := c.now()
	c.mu.RLock()
	entry, ok := c.entries[key.RestaurantID][key.Date]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.expired(entry, now) {
		c.mu.Lock()
		c.sweepLocked(now)
		c.mu.Unlock()
		return nil, false
	}
	return cloneSlots(entry.slots), true
}

func (c *Memory) Put(_ context.Context, key Key, slots []model.Slot) {
	if c.ttl <= 0 {
		return
	}
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	if now.Sub(c.lastSweep) >= c.ttl {
		c.sweepLocked(now)
	}
	if c.entries[key.RestaurantID] == nil {
		c.entries[key.RestaurantID] = make(map[string]memoryEntry)
	}
	c.entries[key.RestaurantID][key.Date] = memoryEntry{slots: cloneSlots(slots), storedAt: now}
}

func (c *Memory) expired(e memoryEntry, now time.Time) bool {
	return now.Sub(e.storedAt) >= c.ttl
}

// sweepLocked drops every expired entry. c.mu must be held for writing.
func (c *Memory) sweepLocked(now time.Time) {
	for rid, byDate := range c.entries {
		for date, e := range byDate {
			if c.expired(e, now) {
				delete(byDate, date)
			}
		}
		if len(byDate) == 0 {
			delete(c.entries, rid)
		}
	}
	c.lastSweep = now
}

func (c *Memory) Invalidate(_ context.Context, restaurantID *int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if restaurantID == nil {
		c.entries = make(map[int64]map[string]memoryEntry)
		return
	}
	delete(c.entries, *restaurantID)
}

// Len returns the number of stored entries, including expired ones not yet swept.
func (c *Memory) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, byDate := range c.entries {
		n += len(byDate)
	}
	return n
}
