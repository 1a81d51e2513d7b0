// Package booking implements the guest reservation lifecycle.
package booking

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"restoboost/internal/events"
	"restoboost/internal/metrics"
	"restoboost/internal/model"
	"restoboost/internal/repository"
)

var (
	ErrNotFound         = errors.New("booking not found")
	ErrInvalidStatus    = errors.New("invalid booking status")
	ErrInvalidInput     = errors.New("invalid booking")
	ErrMissingCode      = errors.New("confirmation code is required")
	ErrAlreadyCompleted = errors.New("booking already completed")
	ErrNotConfirmed     = errors.New("booking is not confirmed")
)

const (
	DefaultListLimit      = 100
	MaxListLimit          = 500
	DefaultCompletedLimit = 50
	DefaultPartySize      = 2
	unknownRestaurant     = "Unknown"
)

// Service coordinates booking writes with discount lookup and cache invalidation.
type Service struct {
	repo   *repository.Repository
	events events.Publisher
	logger *zerolog.Logger
	now    func() time.Time
}

func NewService(repo *repository.Repository, pub events.Publisher, logger *zerolog.Logger) *Service {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Service{repo: repo, events: pub, logger: logger, now: time.Now}
}

// List returns bookings newest first. The limit is clamped to [1, MaxListLimit].
func (s *Service) List(ctx context.Context, f repository.BookingFilter) ([]model.Booking, error) {
	switch {
	case f.Limit <= 0:
		f.Limit = DefaultListLimit
	case f.Limit > MaxListLimit:
		f.Limit = MaxListLimit
	}
	if f.Status != "" && !model.IsValidStatus(f.Status) {
		return nil, ErrInvalidStatus
	}
	bookings, err := s.repo.ListBookings(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	if bookings == nil {
		bookings = []model.Booking{}
	}
	return bookings, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*model.Booking, error) {
	b, err := s.repo.GetBooking(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get booking %d: %w", id, err)
	}
	return b, nil
}

// CreateRequest is a guest's reservation form.
type CreateRequest struct {
	RestaurantID    int64  `json:"restaurant_id"`
	RestaurantName  string `json:"restaurant_name"`
	BookingDatetime string `json:"booking_datetime"`
	PartySize       int    `json:"party_size"`
	DurationMinutes int    `json:"duration_minutes"`
	GuestName       string `json:"guest_name"`
	Phone           string `json:"phone"`
	GuestEmail      string `json:"guest_email"`
	SpecialRequests string `json:"special_requests"`
}

func (r *CreateRequest) validate() error {
	switch {
	case r.RestaurantID <= 0:
		return fmt.Errorf("%w: restaurant_id is required", ErrInvalidInput)
	case strings.TrimSpace(r.GuestName) == "":
		return fmt.Errorf("%w: guest_name is required", ErrInvalidInput)
	case strings.TrimSpace(r.Phone) == "":
		return fmt.Errorf("%w: phone is required", ErrInvalidInput)
	case r.PartySize < 0:
		return fmt.Errorf("%w: party_size must be positive", ErrInvalidInput)
	case r.DurationMinutes < 0:
		return fmt.Errorf("%w: duration_minutes must be positive", ErrInvalidInput)
	}
	return nil
}

// Create stores a confirmed booking. The discount is taken from the first
// valid rule of the restaurant's first service when the booking time falls in
// the rule window.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*model.Booking, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	at, err := model.ParseBookingTime(req.BookingDatetime)
	if err != nil {
		return nil, fmt.Errorf("%w: booking_datetime: %v", ErrInvalidInput, err)
	}
	at = at.In(model.Almaty)

	name := strings.TrimSpace(req.RestaurantName)
	if name == "" {
		name = s.restaurantName(ctx, req.RestaurantID)
	}

	party := req.PartySize
	if party == 0 {
		party = DefaultPartySize
	}
	duration := req.DurationMinutes
	if duration == 0 {
		duration = model.DefaultDurationMinutes
	}

	b := model.Booking{
		RestaurantID:     req.RestaurantID,
		RestaurantName:   name,
		GuestName:        strings.TrimSpace(req.GuestName),
		GuestPhone:       strings.TrimSpace(req.Phone),
		BookingDatetime:  at.Format(time.RFC3339),
		DurationMinutes:  &duration,
		PartySize:        &party,
		SpecialRequests:  req.SpecialRequests,
		DiscountApplied:  s.discountAt(ctx, req.RestaurantID, at),
		Status:           model.StatusConfirmed,
		ConfirmationCode: newConfirmationCode(),
	}
	if email := strings.TrimSpace(req.GuestEmail); email != "" {
		b.GuestEmail = &email
	}

	created, err := s.repo.CreateBooking(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("create booking: %w", err)
	}

	s.logger.Info().
		Int64("booking_id", created.ID).
		Int64("restaurant_id", created.RestaurantID).
		Str("datetime", created.BookingDatetime).
		Int("discount", created.DiscountApplied).
		Msg("booking created")
	metrics.IncBookingStatus(model.StatusConfirmed)
	s.publish(ctx, events.ActionCreated, created)
	return created, nil
}

func (s *Service) restaurantName(ctx context.Context, restaurantID int64) string {
	r, err := s.repo.GetRestaurant(ctx, restaurantID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn().Err(err).Int64("restaurant_id", restaurantID).Msg("restaurant lookup failed")
		}
		return ""
	}
	return r.Name
}

// discountAt never fails the booking: lookup errors count as no discount.
func (s *Service) discountAt(ctx context.Context, restaurantID int64, at time.Time) int {
	services, err := s.repo.Services(ctx, restaurantID)
	if err != nil {
		s.logger.Warn().Err(err).Int64("restaurant_id", restaurantID).Msg("service lookup failed, booking without discount")
		return 0
	}
	if len(services) == 0 {
		return 0
	}

	date := at.Format(model.DateLayout)
	rules, err := s.repo.RulesForServices(ctx, []model.ID{services[0].ID}, date)
	if err != nil {
		s.logger.Warn().Err(err).Int64("restaurant_id", restaurantID).Msg("rule lookup failed, booking without discount")
		return 0
	}
	if len(rules) == 0 {
		return 0
	}

	tod := model.TimeOfDay(at.Hour()*60 + at.Minute())
	if rules[0].Covers(tod) {
		return rules[0].Discount
	}
	return 0
}

// UpdateStatus sets one of the four booking statuses.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status string) (*model.Booking, error) {
	if !model.IsValidStatus(status) {
		return nil, ErrInvalidStatus
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	ok, err := s.repo.SetBookingStatus(ctx, id, status)
	if err != nil {
		return nil, fmt.Errorf("update booking %d status: %w", id, err)
	}
	if !ok {
		return nil, ErrNotFound
	}

	current.Status = status
	metrics.IncBookingStatus(status)
	s.publish(ctx, events.ActionUpdated, current)
	return current, nil
}

// Cancel removes a booking.
func (s *Service) Cancel(ctx context.Context, id int64) error {
	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteBooking(ctx, id); err != nil {
		return fmt.Errorf("delete booking %d: %w", id, err)
	}
	s.logger.Info().Int64("booking_id", id).Msg("booking cancelled")
	metrics.IncBookingStatus(model.StatusCancelled)
	s.publish(ctx, events.ActionDeleted, current)
	return nil
}

// VerifyCode redeems a confirmation code at the venue: a confirmed booking is
// marked completed with its discount kept.
func (s *Service) VerifyCode(ctx context.Context, code string) (*model.Booking, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, ErrMissingCode
	}

	b, err := s.repo.BookingByCode(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find booking by code: %w", err)
	}

	switch b.Status {
	case model.StatusCompleted:
		return nil, ErrAlreadyCompleted
	case model.StatusConfirmed:
	default:
		return nil, fmt.Errorf("%w: status is %s", ErrNotConfirmed, b.Status)
	}

	completedAt := s.now().UTC().Format(time.RFC3339)
	updated, err := s.repo.PatchBooking(ctx, b.ID, map[string]any{
		"status":           model.StatusCompleted,
		"completed_at":     completedAt,
		"discount_applied": b.DiscountApplied,
	})
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("complete booking %d: %w", b.ID, err)
	}

	s.logger.Info().Int64("booking_id", b.ID).Int("discount", updated.DiscountApplied).Msg("booking redeemed")
	metrics.IncBookingStatus(model.StatusCompleted)
	s.publish(ctx, events.ActionUpdated, updated)
	return updated, nil
}

// ListCompleted returns recently completed bookings with restaurant names filled in.
func (s *Service) ListCompleted(ctx context.Context, limit int) ([]model.Booking, error) {
	if limit <= 0 {
		limit = DefaultCompletedLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	bookings, err := s.repo.CompletedBookings(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list completed bookings: %w", err)
	}
	if len(bookings) == 0 {
		return []model.Booking{}, nil
	}

	seen := make(map[int64]bool)
	var ids []int64
	for _, b := range bookings {
		if !seen[b.RestaurantID] {
			seen[b.RestaurantID] = true
			ids = append(ids, b.RestaurantID)
		}
	}
	names, err := s.repo.RestaurantNames(ctx, ids)
	if err != nil {
		s.logger.Warn().Err(err).Msg("restaurant names lookup failed")
		names = nil
	}
	for i := range bookings {
		if name, ok := names[bookings[i].RestaurantID]; ok {
			bookings[i].RestaurantName = name
		} else {
			bookings[i].RestaurantName = unknownRestaurant
		}
	}
	return bookings, nil
}

func (s *Service) publish(ctx context.Context, action string, b *model.Booking) {
	s.events.Publish(ctx, events.ForRestaurant(events.EntityBooking, action, b.RestaurantID, strconv.FormatInt(b.ID, 10)))
}

// newConfirmationCode returns a short code suitable for a QR payload.
func newConfirmationCode() string {
	id := uuid.New()
	return strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:10])
}
