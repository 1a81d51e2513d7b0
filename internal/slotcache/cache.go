// Package slotcache memoizes computed slot lists per restaurant and date.
package slotcache

import (
	"context"
	"fmt"

	"restoboost/internal/model"
)

// Key identifies one cached slot list.
type Key struct {
	RestaurantID int64
	Date         string
}

func (k Key) String() string {
	return fmt.Sprintf("%d:%s", k.RestaurantID, k.Date)
}

// Cache is best effort: failures surface as misses and are never returned.
type Cache interface {
	Get(ctx context.Context, key Key) ([]model.Slot, bool)
	Put(ctx context.Context, key Key, slots []model.Slot)
	// Invalidate drops the entries of one restaurant, or all entries when
	// restaurantID is nil.
	Invalidate(ctx context.Context, restaurantID *int64)
}

// Nop never stores anything.
type Nop struct{}

func (Nop) Get(context.Context, Key) ([]model.Slot, bool) { return nil, false }
func (Nop) Put(context.Context, Key, []model.Slot)        {}
func (Nop) Invalidate(context.Context, *int64)            {}

func cloneSlots(slots []model.Slot) []model.Slot {
	if slots == nil {
		return []model.Slot{}
	}
	out := make([]model.Slot, len(slots))
	for i, s := range slots {
		out[i] = s.Clone()
	}
	return out
}
