// Package store defines the data-store contract shared by the PostgREST client
// and the SQL implementation, plus the object storage client for photos.
package store

import (
	"context"
	"errors"
	"fmt"
)

// Table names.
const (
	TableRestaurants     = "restaurants"
	TableRestaurantHours = "restaurant_hours"
	TableServices        = "restaurant_services"
	TableServiceCapacity = "service_capacity"
	TableDiscountRules   = "discount_rules"
	TableBookings        = "bookings"
)

var (
	// ErrUnavailable wraps transport failures and timeouts.
	ErrUnavailable = errors.New("store unavailable")
	// ErrNoRows is returned by Insert and Update when nothing was written back.
	ErrNoRows = errors.New("no rows returned")
)

// Store is a keyed row store addressed by table name and column predicates.
// out arguments are pointers to slices of JSON-tagged structs.
type Store interface {
	Fetch(ctx context.Context, table string, q Query, out any) error
	Insert(ctx context.Context, table string, row any, out any) error
	// Patch updates matching rows and reports whether any row matched.
	Patch(ctx context.Context, table string, filters []Filter, patch any) (bool, error)
	// Update updates matching rows and decodes the updated rows into out.
	Update(ctx context.Context, table string, filters []Filter, patch any, out any) error
	Delete(ctx context.Context, table string, filters []Filter) error
}

// HTTPError is a non-2xx answer from the REST store or object storage.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("http %d", e.Status)
	}
	return fmt.Sprintf("http %d: %s", e.Status, e.Body)
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.Status
	}
	return 0
}
