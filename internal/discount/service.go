// Package discount manages the discount rules that drive slot pricing.
package discount

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"restoboost/internal/events"
	"restoboost/internal/model"
	"restoboost/internal/repository"
)

var (
	ErrNotFound     = errors.New("discount rule not found")
	ErrInvalidInput = errors.New("invalid discount rule")
)

// RuleInput is the editable part of a rule. An empty ServiceID scopes the rule
// to the whole restaurant.
type RuleInput struct {
	RestaurantID int64  `json:"restaurant_id"`
	ServiceID    string `json:"service_id"`
	Discount     int    `json:"discount"`
	TimeStart    string `json:"time_start"`
	TimeEnd      string `json:"time_end"`
	ValidFrom    string `json:"valid_from"`
	ValidTo      string `json:"valid_to"`
	Description  string `json:"description"`
}

// Validate checks ranges and formats and returns the rule to store.
func (in RuleInput) Validate() (model.DiscountRule, error) {
	if in.RestaurantID <= 0 {
		return model.DiscountRule{}, fmt.Errorf("%w: restaurant_id is required", ErrInvalidInput)
	}
	if in.Discount < 0 || in.Discount > 100 {
		return model.DiscountRule{}, fmt.Errorf("%w: discount must be within 0..100", ErrInvalidInput)
	}

	start, err := model.ParseTimeOfDay(in.TimeStart)
	if err != nil {
		return model.DiscountRule{}, fmt.Errorf("%w: time_start: %v", ErrInvalidInput, err)
	}
	end, err := model.ParseTimeOfDay(in.TimeEnd)
	if err != nil {
		return model.DiscountRule{}, fmt.Errorf("%w: time_end: %v", ErrInvalidInput, err)
	}
	if end <= start {
		return model.DiscountRule{}, fmt.Errorf("%w: time_end must be after time_start", ErrInvalidInput)
	}

	from, err := model.ParseDate(in.ValidFrom)
	if err != nil {
		return model.DiscountRule{}, fmt.Errorf("%w: valid_from: %v", ErrInvalidInput, err)
	}
	to, err := model.ParseDate(in.ValidTo)
	if err != nil {
		return model.DiscountRule{}, fmt.Errorf("%w: valid_to: %v", ErrInvalidInput, err)
	}
	if to.Before(from) {
		return model.DiscountRule{}, fmt.Errorf("%w: valid_to is before valid_from", ErrInvalidInput)
	}

	rule := model.DiscountRule{
		RestaurantID: in.RestaurantID,
		Discount:     in.Discount,
		TimeStart:    in.TimeStart,
		TimeEnd:      in.TimeEnd,
		ValidFrom:    from.Format(model.DateLayout),
		ValidTo:      to.Format(model.DateLayout),
		IsActive:     true,
		Description:  in.Description,
	}
	if sid := strings.TrimSpace(in.ServiceID); sid != "" {
		id := model.ID(sid)
		rule.ServiceID = &id
	}
	return rule, nil
}

type Service struct {
	repo   *repository.Repository
	events events.Publisher
	logger *zerolog.Logger
}

func NewService(repo *repository.Repository, pub events.Publisher, logger *zerolog.Logger) *Service {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Service{repo: repo, events: pub, logger: logger}
}

// List returns the rules of a restaurant, latest validity first.
func (s *Service) List(ctx context.Context, restaurantID int64) ([]model.DiscountRule, error) {
	rules, err := s.repo.ListRules(ctx, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("list discount rules: %w", err)
	}
	if rules == nil {
		rules = []model.DiscountRule{}
	}
	return rules, nil
}

func (s *Service) Create(ctx context.Context, in RuleInput) (*model.DiscountRule, error) {
	rule, err := in.Validate()
	if err != nil {
		return nil, err
	}
	created, err := s.repo.CreateRule(ctx, rule)
	if err != nil {
		return nil, fmt.Errorf("create discount rule: %w", err)
	}
	s.logger.Info().Int64("rule_id", created.ID).Int64("restaurant_id", created.RestaurantID).Int("discount", created.Discount).Msg("discount rule created")
	s.publish(ctx, events.ActionCreated, created)
	return created, nil
}

// Update replaces rule id. Both the old and the new restaurant are invalidated.
func (s *Service) Update(ctx context.Context, id int64, in RuleInput) (*model.DiscountRule, error) {
	rule, err := in.Validate()
	if err != nil {
		return nil, err
	}
	old, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	updated, err := s.repo.UpdateRule(ctx, id, rule)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update discount rule %d: %w", id, err)
	}
	if old.RestaurantID != updated.RestaurantID {
		s.publish(ctx, events.ActionUpdated, old)
	}
	s.publish(ctx, events.ActionUpdated, updated)
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	old, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteRule(ctx, id); err != nil {
		return fmt.Errorf("delete discount rule %d: %w", id, err)
	}
	s.logger.Info().Int64("rule_id", id).Msg("discount rule deleted")
	s.publish(ctx, events.ActionDeleted, old)
	return nil
}

func (s *Service) get(ctx context.Context, id int64) (*model.DiscountRule, error) {
	rule, err := s.repo.GetRule(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get discount rule %d: %w", id, err)
	}
	return rule, nil
}

func (s *Service) publish(ctx context.Context, action string, r *model.DiscountRule) {
	s.events.Publish(ctx, events.ForRestaurant(events.EntityDiscountRule, action, r.RestaurantID, strconv.FormatInt(r.ID, 10)))
}
