// Package availability computes bookable time slots for a restaurant on a date.
package availability

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog"

	"restoboost/internal/metrics"
	"restoboost/internal/model"
	"restoboost/internal/repository"
	"restoboost/internal/slotcache"
)

// DefaultBookingLimit bounds the bookings read per computation.
const DefaultBookingLimit = 500

// Engine turns schedules, rules and bookings into slot lists. It holds no
// per-request state and is safe for concurrent use.
type Engine struct {
	source       Source
	cache        slotcache.Cache
	logger       zerolog.Logger
	bookingLimit int
}

// Option configures an Engine.
type Option func(*Engine)

// WithBookingLimit overrides DefaultBookingLimit. Non-positive values are ignored.
func WithBookingLimit(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.bookingLimit = n
		}
	}
}

// New creates an engine. A nil cache disables caching.
func New(source Source, cache slotcache.Cache, logger *zerolog.Logger, opts ...Option) *Engine {
	if cache == nil {
		cache = slotcache.Nop{}
	}
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "availability").Logger()
	}
	e := &Engine{
		source:       source,
		cache:        cache,
		logger:       l,
		bookingLimit: DefaultBookingLimit,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// GetAvailableSlots returns the slots for restaurantID on date (YYYY-MM-DD).
// Invalid input and internal failures yield an empty list, never nil.
func (e *Engine) GetAvailableSlots(ctx context.Context, restaurantID int64, date string) []model.Slot {
	res := e.Compute(ctx, restaurantID, date)
	metrics.IncSlotsRequest(res.Outcome())
	return res.SlotsOrEmpty()
}

// Compute is GetAvailableSlots with the stage diagnostics kept.
func (e *Engine) Compute(ctx context.Context, restaurantID int64, date string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error().
				Int64("restaurant_id", restaurantID).
				Str("date", date).
				Str("panic", fmt.Sprint(r)).
				Bytes("stack", debug.Stack()).
				Msg("slot computation panicked")
			res = Result{Err: ErrInternal}
		}
	}()

	if restaurantID <= 0 {
		return Result{Err: ErrInvalidRestaurant}
	}
	day, err := model.ParseDate(date)
	if err != nil {
		e.logger.Debug().Err(err).Int64("restaurant_id", restaurantID).Msg("rejecting slot request")
		return Result{Err: fmt.Errorf("%w: %v", ErrInvalidDate, err)}
	}
	date = day.Format(model.DateLayout)
	key := slotcache.Key{RestaurantID: restaurantID, Date: date}

	if slots, ok := e.cache.Get(ctx, key); ok {
		metrics.IncSlotsCache(true)
		return Result{Slots: slots, Cached: true}
	}
	metrics.IncSlotsCache(false)

	hours, _ := e.resolveHours(ctx, restaurantID, day)
	plans := e.loadPlans(ctx, &res, restaurantID, date, hours)

	var occ occupancy
	if needsOccupancy(plans) {
		occ = e.loadOccupancy(ctx, &res, restaurantID, date)
	}

	res.Slots = dedupe(materialize(day, plans, occ))
	metrics.ObserveSlotsGenerated(len(res.Slots))

	if len(res.Degraded) > 0 {
		e.logger.Warn().
			Int64("restaurant_id", restaurantID).
			Str("date", date).
			Int("failures", len(res.Degraded)).
			Int("slots", len(res.Slots)).
			Msg("slots computed from partial data, not caching")
		return res
	}
	e.cache.Put(ctx, key, res.Slots)
	return res
}

func needsOccupancy(plans []plan) bool {
	for _, p := range plans {
		if p.service != nil {
			return true
		}
	}
	return false
}

func (e *Engine) loadOccupancy(ctx context.Context, res *Result, restaurantID int64, date string) occupancy {
	bookings, err := e.source.ListBookings(ctx, repository.BookingFilter{
		RestaurantID: restaurantID,
		Limit:        e.bookingLimit,
	})
	if err != nil {
		e.degrade(res, "bookings", err)
		return occupancy{}
	}
	occ, skipped := newOccupancy(bookings, date)
	if skipped > 0 {
		e.logger.Warn().Int64("restaurant_id", restaurantID).Int("skipped", skipped).
			Msg("ignoring bookings with malformed datetime")
	}
	return occ
}

// degrade records a failed lookup; the stage continues as if it returned nothing.
func (e *Engine) degrade(res *Result, stage string, err error) {
	err = fmt.Errorf("%s: %w", stage, err)
	res.Degraded = append(res.Degraded, err)
	e.logger.Warn().Err(err).Msg("slot stage degraded")
}

// Invalidate drops cached slots of one restaurant, or of all restaurants when
// restaurantID is nil.
func (e *Engine) Invalidate(ctx context.Context, restaurantID *int64) {
	e.cache.Invalidate(ctx, restaurantID)
}

// Today is today's date in Almaty, the default for date-less requests.
func Today() string {
	return time.Now().In(model.Almaty).Format(model.DateLayout)
}
