package model

import (
	"fmt"
	"strings"
	"time"
)

// Booking statuses.
const (
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
	StatusNoShow    = "no_show"
)

const (
	DefaultDurationMinutes = 60
	DefaultPartySize       = 1
)

// Booking is a guest reservation. BookingDatetime is kept as the raw stored
// string; Start parses it.
type Booking struct {
	ID               int64   `json:"id,omitempty"`
	RestaurantID     int64   `json:"restaurant_id"`
	RestaurantName   string  `json:"restaurant_name,omitempty"`
	GuestName        string  `json:"guest_name"`
	GuestPhone       string  `json:"guest_phone"`
	GuestEmail       *string `json:"guest_email"`
	BookingDatetime  string  `json:"booking_datetime"`
	DurationMinutes  *int    `json:"duration_minutes,omitempty"`
	PartySize        *int    `json:"party_size"`
	SpecialRequests  string  `json:"special_requests"`
	DiscountApplied  int     `json:"discount_applied"`
	Status           string  `json:"status"`
	ConfirmationCode string  `json:"confirmation_code,omitempty"`
	CreatedAt        string  `json:"created_at,omitempty"`
	CompletedAt      *string `json:"completed_at,omitempty"`
	UpdatedAt        *string `json:"updated_at,omitempty"`
}

// IsValidStatus reports whether s is one of the four booking statuses.
func IsValidStatus(s string) bool {
	switch s {
	case StatusConfirmed, StatusCancelled, StatusCompleted, StatusNoShow:
		return true
	}
	return false
}

// HoldsSeats reports whether the booking occupies capacity.
func (b *Booking) HoldsSeats() bool {
	return b.Status == StatusConfirmed || b.Status == StatusCompleted
}

// OnDate reports whether the stored datetime starts with the YYYY-MM-DD date.
func (b *Booking) OnDate(date string) bool {
	return date != "" && strings.HasPrefix(b.BookingDatetime, date)
}

// Guests returns the party size, defaulting to one guest.
func (b *Booking) Guests() int {
	if b.PartySize == nil {
		return DefaultPartySize
	}
	return *b.PartySize
}

// Duration returns the booking length, defaulting to an hour.
func (b *Booking) Duration() time.Duration {
	if b.DurationMinutes == nil {
		return DefaultDurationMinutes * time.Minute
	}
	return time.Duration(*b.DurationMinutes) * time.Minute
}

// Start parses BookingDatetime. Timestamps without an offset are Almaty local time.
func (b *Booking) Start() (time.Time, error) {
	return ParseBookingTime(b.BookingDatetime)
}

// Interval returns the half-open [start, end) the booking occupies.
func (b *Booking) Interval() (time.Time, time.Time, error) {
	start, err := b.Start()
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, start.Add(b.Duration()), nil
}

var bookingLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z07",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999Z07",
}

var localLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04",
}

// ParseBookingTime parses ISO-8601 timestamps as written by the store, including
// the short "+00" offset form.
func ParseBookingTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty booking datetime")
	}
	for _, layout := range bookingLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, Almaty); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid booking datetime %q", s)
}
