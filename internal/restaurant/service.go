// Package restaurant manages venues, their default schedule and photos.
package restaurant

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
	"restoboost/internal/model"
	"restoboost/internal/repository"
)

var (
	ErrNotFound     = errors.New("restaurant not found")
	ErrInvalidInput = errors.New("invalid restaurant")
)

const (
	DefaultListLimit = 100
	MaxListLimit     = 500
	timeslotLimit    = 1000

	defaultServiceName  = "Main Hall"
	defaultRuleDays     = 30
	defaultRuleNote     = "whole menu"
	defaultServiceStep  = 60
	defaultServiceSeats = model.DefaultCapacitySeats
)

// updatable lists the columns Update may change.
var updatable = map[string]bool{
	"name":        true,
	"category":    true,
	"rating":      true,
	"avg_check":   true,
	"address":     true,
	"phone":       true,
	"cuisine":     true,
	"description": true,
	"photos":      true,
}

// PhotoStorage keeps restaurant images.
type PhotoStorage interface {
	Upload(ctx context.Context, bucket, path string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, bucket, path string) error
}

type Service struct {
	repo         *repository.Repository
	photos       PhotoStorage
	bucket       string
	maxImageSize int64
	events       events.Publisher
	logger       *zerolog.Logger
	now          func() time.Time
}

// NewService wires the restaurant service. photos may be nil when uploads are disabled.
func NewService(repo *repository.Repository, photos PhotoStorage, bucket string, maxImageSize int64, pub events.Publisher, logger *zerolog.Logger) *Service {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Service{
		repo:         repo,
		photos:       photos,
		bucket:       bucket,
		maxImageSize: maxImageSize,
		events:       pub,
		logger:       logger,
		now:          time.Now,
	}
}

func (s *Service) today() string {
	return s.now().In(model.Almaty).Format(model.DateLayout)
}

// List returns restaurants with the discount rules valid today attached as timeslots.
func (s *Service) List(ctx context.Context, category string, limit int) ([]model.Restaurant, error) {
	return s.list(ctx, repository.RestaurantFilter{Category: category, Limit: limit})
}

func (s *Service) list(ctx context.Context, f repository.RestaurantFilter) ([]model.Restaurant, error) {
	switch {
	case f.Limit <= 0:
		f.Limit = DefaultListLimit
	case f.Limit > MaxListLimit:
		f.Limit = MaxListLimit
	}
	restaurants, err := s.repo.ListRestaurants(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list restaurants: %w", err)
	}
	if len(restaurants) == 0 {
		return []model.Restaurant{}, nil
	}
	s.attachTimeslots(ctx, restaurants)
	return restaurants, nil
}

// attachTimeslots loads today's rules for all restaurants in one call. A failed
// lookup leaves every restaurant without timeslots.
func (s *Service) attachTimeslots(ctx context.Context, restaurants []model.Restaurant) {
	ids := make([]int64, len(restaurants))
	for i, r := range restaurants {
		ids[i] = r.ID
	}

	byRestaurant := make(map[int64][]model.DiscountRule, len(ids))
	rules, err := s.repo.RulesForRestaurants(ctx, ids, s.today(), timeslotLimit)
	if err != nil {
		s.logger.Warn().Err(err).Int("restaurants", len(ids)).Msg("timeslot lookup failed")
	}
	for _, rule := range rules {
		byRestaurant[rule.RestaurantID] = append(byRestaurant[rule.RestaurantID], rule)
	}

	for i := range restaurants {
		slots := byRestaurant[restaurants[i].ID]
		if slots == nil {
			slots = []model.DiscountRule{}
		}
		popularity := 0
		restaurants[i].Timeslots = slots
		restaurants[i].Popularity = &popularity
	}
}

func (s *Service) Get(ctx context.Context, id int64) (*model.Restaurant, error) {
	r, err := s.repo.GetRestaurant(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get restaurant %d: %w", id, err)
	}
	return r, nil
}

// CreateRequest is the admin form for a new restaurant. Discount, TimeStart
// and TimeEnd seed the default service and its first promotion.
type CreateRequest struct {
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	Rating      float64  `json:"rating"`
	AvgCheck    int      `json:"avg_check"`
	Address     string   `json:"address"`
	Phone       string   `json:"phone"`
	Cuisine     []string `json:"cuisine"`
	Description string   `json:"description"`
	Discount    int      `json:"discount"`
	TimeStart   string   `json:"time_start"`
	TimeEnd     string   `json:"time_end"`
}

func (r *CreateRequest) validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if r.Discount < 0 || r.Discount > 100 {
		return fmt.Errorf("%w: discount must be within 0..100", ErrInvalidInput)
	}
	start, err := model.ParseTimeOfDay(r.TimeStart)
	if err != nil {
		return fmt.Errorf("%w: time_start: %v", ErrInvalidInput, err)
	}
	end, err := model.ParseTimeOfDay(r.TimeEnd)
	if err != nil {
		return fmt.Errorf("%w: time_end: %v", ErrInvalidInput, err)
	}
	if end <= start {
		return fmt.Errorf("%w: time_end must be after time_start", ErrInvalidInput)
	}
	return nil
}

// Create stores the restaurant with a default service, its default capacity and
// a discount rule valid for the next 30 days.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*model.Restaurant, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	created, err := s.repo.CreateRestaurant(ctx, model.Restaurant{
		Name:        strings.TrimSpace(req.Name),
		Category:    req.Category,
		Rating:      req.Rating,
		AvgCheck:    req.AvgCheck,
		Address:     strings.TrimSpace(req.Address),
		Phone:       strings.TrimSpace(req.Phone),
		Cuisine:     req.Cuisine,
		Description: strings.TrimSpace(req.Description),
		Photos:      []string{},
	})
	if err != nil {
		return nil, fmt.Errorf("create restaurant: %w", err)
	}

	if err := s.seedSchedule(ctx, created.ID, req); err != nil {
		s.rollbackCreate(ctx, created.ID)
		return nil, err
	}

	s.logger.Info().Int64("restaurant_id", created.ID).Str("name", created.Name).Msg("restaurant created")
	s.publish(ctx, events.ActionCreated, created.ID)
	return created, nil
}

// rollbackCreate removes a restaurant whose schedule could not be seeded.
func (s *Service) rollbackCreate(ctx context.Context, id int64) {
	log := s.logger.With().Int64("restaurant_id", id).Logger()
	if err := s.repo.DeleteRulesOf(ctx, id); err != nil {
		log.Warn().Err(err).Msg("rollback: delete discount rules failed")
	}
	if err := s.repo.DeleteSchedule(ctx, id); err != nil {
		log.Warn().Err(err).Msg("rollback: delete schedule failed")
	}
	if err := s.repo.DeleteRestaurant(ctx, id); err != nil {
		log.Error().Err(err).Msg("rollback: restaurant left without schedule")
	}
	s.publish(ctx, events.ActionDeleted, id)
}

func (s *Service) seedSchedule(ctx context.Context, restaurantID int64, req CreateRequest) error {
	serviceID := model.ID(uuid.NewString())
	if _, err := s.repo.CreateService(ctx, model.Service{
		ID:              serviceID,
		RestaurantID:    restaurantID,
		Name:            defaultServiceName,
		StartTime:       req.TimeStart,
		EndTime:         req.TimeEnd,
		SlotStepMinutes: defaultServiceStep,
		IsActive:        true,
	}); err != nil {
		return fmt.Errorf("create default service: %w", err)
	}

	seats := defaultServiceSeats
	if _, err := s.repo.CreateCapacity(ctx, model.Capacity{
		ServiceID:     serviceID,
		RestaurantID:  restaurantID,
		CapacitySeats: &seats,
	}); err != nil {
		return fmt.Errorf("create default capacity: %w", err)
	}

	today := s.now().In(model.Almaty)
	if _, err := s.repo.CreateRule(ctx, model.DiscountRule{
		RestaurantID: restaurantID,
		ServiceID:    &serviceID,
		Discount:     req.Discount,
		TimeStart:    req.TimeStart,
		TimeEnd:      req.TimeEnd,
		ValidFrom:    today.Format(model.DateLayout),
		ValidTo:      today.AddDate(0, 0, defaultRuleDays).Format(model.DateLayout),
		IsActive:     true,
		Description:  defaultRuleNote,
	}); err != nil {
		return fmt.Errorf("create default discount rule: %w", err)
	}
	return nil
}

// Update applies a partial change. Unknown fields are rejected.
func (s *Service) Update(ctx context.Context, id int64, fields map[string]any) (*model.Restaurant, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: nothing to update", ErrInvalidInput)
	}
	for k := range fields {
		if !updatable[k] {
			return nil, fmt.Errorf("%w: field %q cannot be updated", ErrInvalidInput, k)
		}
	}

	updated, err := s.repo.PatchRestaurant(ctx, id, fields)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update restaurant %d: %w", id, err)
	}
	s.publish(ctx, events.ActionUpdated, id)
	return updated, nil
}

// SearchFilter combines store-side and in-memory criteria. Zero values are ignored.
type SearchFilter struct {
	Category    string
	Name        string
	Cuisine     string
	DiscountMin int
	AvgCheckMin int
	AvgCheckMax int
	Limit       int
}

func (s *Service) Search(ctx context.Context, f SearchFilter) ([]model.Restaurant, error) {
	restaurants, err := s.list(ctx, repository.RestaurantFilter{
		Category:    f.Category,
		Name:        f.Name,
		AvgCheckMin: f.AvgCheckMin,
		AvgCheckMax: f.AvgCheckMax,
		Limit:       f.Limit,
	})
	if err != nil {
		return nil, err
	}

	out := restaurants[:0]
	for _, r := range restaurants {
		if f.Cuisine != "" && !r.HasCuisine(f.Cuisine) {
			continue
		}
		if f.DiscountMin > 0 && r.MaxDiscount() < f.DiscountMin {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// HardDelete removes the restaurant with its rules and schedule. Stored photos
// are deleted best effort.
func (s *Service) HardDelete(ctx context.Context, id int64) error {
	r, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteRulesOf(ctx, id); err != nil {
		return fmt.Errorf("delete discount rules of %d: %w", id, err)
	}
	if err := s.repo.DeleteSchedule(ctx, id); err != nil {
		return fmt.Errorf("delete schedule of %d: %w", id, err)
	}
	if err := s.repo.DeleteRestaurant(ctx, id); err != nil {
		return fmt.Errorf("delete restaurant %d: %w", id, err)
	}
	for _, url := range r.Photos {
		s.removePhoto(ctx, url)
	}

	s.logger.Info().Int64("restaurant_id", id).Msg("restaurant deleted")
	s.publish(ctx, events.ActionDeleted, id)
	return nil
}

func (s *Service) publish(ctx context.Context, action string, id int64) {
	s.events.Publish(ctx, events.ForRestaurant(events.EntityRestaurant, action, id, strconv.FormatInt(id, 10)))
}
