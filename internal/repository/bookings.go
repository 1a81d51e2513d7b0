package repository

import (
	"context"
	"strings"

	"restoboost/internal/model"
	"restoboost/internal/store"
)

// BookingFilter narrows ListBookings. Zero values are ignored.
type BookingFilter struct {
	Phone        string
	RestaurantID int64
	Status       string
	Limit        int
}

// ListBookings returns bookings newest first.
func (r *Repository) ListBookings(ctx context.Context, f BookingFilter) ([]model.Booking, error) {
	var filters []store.Filter
	if phone := strings.TrimSpace(f.Phone); phone != "" {
		filters = append(filters, store.Eq("guest_phone", phone))
	}
	if f.RestaurantID != 0 {
		filters = append(filters, store.Eq("restaurant_id", f.RestaurantID))
	}
	if f.Status != "" {
		filters = append(filters, store.Eq("status", f.Status))
	}

	var bookings []model.Booking
	err := r.store.Fetch(ctx, store.TableBookings,
		store.Where(filters...).OrderBy("created_at.desc").WithLimit(f.Limit), &bookings)
	return bookings, err
}

// CompletedBookings returns the most recently completed bookings.
func (r *Repository) CompletedBookings(ctx context.Context, limit int) ([]model.Booking, error) {
	var bookings []model.Booking
	err := r.store.Fetch(ctx, store.TableBookings, store.Where(
		store.Eq("status", model.StatusCompleted),
	).OrderBy("completed_at.desc").WithLimit(limit), &bookings)
	return bookings, err
}

// BookingsBetween returns bookings of a restaurant whose stored datetime falls in
// [from, to), compared as ISO strings.
func (r *Repository) BookingsBetween(ctx context.Context, restaurantID int64, from, to string) ([]model.Booking, error) {
	var bookings []model.Booking
	err := r.store.Fetch(ctx, store.TableBookings, store.Where(
		store.Eq("restaurant_id", restaurantID),
		store.Gte("booking_datetime", from),
		store.Lt("booking_datetime", to),
	).OrderBy("booking_datetime.asc"), &bookings)
	return bookings, err
}

func (r *Repository) GetBooking(ctx context.Context, id int64) (*model.Booking, error) {
	return fetchOne[model.Booking](ctx, r.store, store.TableBookings, store.Eq("id", id))
}

func (r *Repository) BookingByCode(ctx context.Context, code string) (*model.Booking, error) {
	return fetchOne[model.Booking](ctx, r.store, store.TableBookings, store.Eq("confirmation_code", code))
}

func (r *Repository) CreateBooking(ctx context.Context, b model.Booking) (*model.Booking, error) {
	b.ID = 0
	return insertOne[model.Booking](ctx, r.store, store.TableBookings, b)
}

// SetBookingStatus reports whether a booking with id existed.
func (r *Repository) SetBookingStatus(ctx context.Context, id int64, status string) (bool, error) {
	return r.store.Patch(ctx, store.TableBookings, []store.Filter{store.Eq("id", id)}, map[string]any{"status": status})
}

// PatchBooking applies fields to booking id and returns the stored row.
func (r *Repository) PatchBooking(ctx context.Context, id int64, fields map[string]any) (*model.Booking, error) {
	return updateOne[model.Booking](ctx, r.store, store.TableBookings, id, fields)
}

func (r *Repository) DeleteBooking(ctx context.Context, id int64) error {
	return r.store.Delete(ctx, store.TableBookings, []store.Filter{store.Eq("id", id)})
}
