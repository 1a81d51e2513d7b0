// Package events carries data mutations to the components that react to them,
// in process and across instances.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Mutated entities.
const (
	EntityBooking      = "booking"
	EntityDiscountRule = "discount_rule"
	EntityRestaurant   = "restaurant"
	EntityService      = "service"
)

// Mutation actions.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// Mutation describes a committed write. A nil RestaurantID means the change may
// affect any restaurant.
type Mutation struct {
	Entity       string    `json:"entity"`
	Action       string    `json:"action"`
	ResourceID   string    `json:"resource_id,omitempty"`
	RestaurantID *int64    `json:"restaurant_id,omitempty"`
	Origin       string    `json:"origin"`
	At           time.Time `json:"at"`
}

// ForRestaurant builds a mutation scoped to one restaurant.
func ForRestaurant(entity, action string, restaurantID int64, resourceID string) Mutation {
	return Mutation{Entity: entity, Action: action, RestaurantID: &restaurantID, ResourceID: resourceID}
}

// Handler reacts to a mutation.
type Handler func(ctx context.Context, m Mutation) error

// Publisher is the write side services depend on.
type Publisher interface {
	Publish(ctx context.Context, m Mutation)
}

// Bus provides in-process fan-out of mutations. Handlers run synchronously in
// subscription order; their errors are logged and never reach the publisher.
type Bus struct {
	origin   string
	handlers []Handler
	mu       sync.RWMutex
	logger   *zerolog.Logger
}

// NewBus constructs an empty bus with a fresh instance origin.
func NewBus(logger *zerolog.Logger) *Bus {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Bus{origin: uuid.NewString(), logger: logger}
}

// Origin identifies this process in published mutations.
func (b *Bus) Origin() string {
	return b.origin
}

// Subscribe registers a handler for every mutation.
func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Publish stamps a local mutation and delivers it.
func (b *Bus) Publish(ctx context.Context, m Mutation) {
	m.Origin = b.origin
	if m.At.IsZero() {
		m.At = time.Now().UTC()
	}
	b.Deliver(ctx, m)
}

// Deliver hands m to the subscribers as is. Used for mutations received from
// other instances.
func (b *Bus) Deliver(ctx context.Context, m Mutation) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers...)
	b.mu.RUnlock()

	for _, h := range handlers {
		if err := h(ctx, m); err != nil {
			b.logger.Warn().Err(err).
				Str("entity", m.Entity).
				Str("action", m.Action).
				Msg("mutation handler failed")
		}
	}
}

// Nop discards mutations.
type Nop struct{}

func (Nop) Publish(context.Context, Mutation) {}
