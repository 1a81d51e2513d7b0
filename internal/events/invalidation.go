package events

import (
	"context"

	"github.com/rs/zerolog"

	"restoboost/internal/metrics"
)

// Invalidator drops cached data of a restaurant, or everything for nil.
type Invalidator interface {
	Invalidate(ctx context.Context, restaurantID *int64)
}

// InvalidationSubscriber returns a handler that evicts cached slots after any mutation.
func InvalidationSubscriber(cache Invalidator, logger *zerolog.Logger) Handler {
	return func(ctx context.Context, m Mutation) error {
		scope := "all"
		if m.RestaurantID != nil {
			scope = "restaurant"
		}
		cache.Invalidate(ctx, m.RestaurantID)
		metrics.IncCacheInvalidation(scope)

		ev := logger.Debug().Str("entity", m.Entity).Str("action", m.Action).Str("scope", scope)
		if m.RestaurantID != nil {
			ev = ev.Int64("restaurant_id", *m.RestaurantID)
		}
		ev.Msg("slot cache invalidated")
		return nil
	}
}
