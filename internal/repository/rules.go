package repository

import (
	"context"

	"restoboost/internal/model"
	"restoboost/internal/store"
)

// validOn restricts discount rules to active ones valid on date (YYYY-MM-DD).
func validOn(date string) []store.Filter {
	return []store.Filter{
		store.Eq("is_active", true),
		store.Lte("valid_from", date),
		store.Gte("valid_to", date),
	}
}

// RulesForServices returns the active rules scoped to any of serviceIDs and valid on date.
func (r *Repository) RulesForServices(ctx context.Context, serviceIDs []model.ID, date string) ([]model.DiscountRule, error) {
	if len(serviceIDs) == 0 {
		return nil, nil
	}
	filters := append([]store.Filter{store.InSlice("service_id", serviceIDs)}, validOn(date)...)
	var rules []model.DiscountRule
	err := r.store.Fetch(ctx, store.TableDiscountRules, store.Where(filters...).OrderBy("id.asc"), &rules)
	return rules, err
}

// RulesForRestaurant returns every active rule of a restaurant valid on date,
// whatever its service scope.
func (r *Repository) RulesForRestaurant(ctx context.Context, restaurantID int64, date string) ([]model.DiscountRule, error) {
	filters := append([]store.Filter{store.Eq("restaurant_id", restaurantID)}, validOn(date)...)
	var rules []model.DiscountRule
	err := r.store.Fetch(ctx, store.TableDiscountRules, store.Where(filters...).OrderBy("id.asc"), &rules)
	return rules, err
}

// RulesForRestaurants is RulesForRestaurant for several restaurants in one call.
func (r *Repository) RulesForRestaurants(ctx context.Context, restaurantIDs []int64, date string, limit int) ([]model.DiscountRule, error) {
	if len(restaurantIDs) == 0 {
		return nil, nil
	}
	filters := append([]store.Filter{store.InSlice("restaurant_id", restaurantIDs)}, validOn(date)...)
	var rules []model.DiscountRule
	err := r.store.Fetch(ctx, store.TableDiscountRules, store.Where(filters...).OrderBy("id.asc").WithLimit(limit), &rules)
	return rules, err
}

// ListRules returns every rule of a restaurant, newest validity first.
func (r *Repository) ListRules(ctx context.Context, restaurantID int64) ([]model.DiscountRule, error) {
	var rules []model.DiscountRule
	err := r.store.Fetch(ctx, store.TableDiscountRules, store.Where(
		store.Eq("restaurant_id", restaurantID),
	).OrderBy("valid_from.desc"), &rules)
	return rules, err
}

func (r *Repository) GetRule(ctx context.Context, id int64) (*model.DiscountRule, error) {
	return fetchOne[model.DiscountRule](ctx, r.store, store.TableDiscountRules, store.Eq("id", id))
}

func (r *Repository) CreateRule(ctx context.Context, rule model.DiscountRule) (*model.DiscountRule, error) {
	rule.ID = 0
	return insertOne[model.DiscountRule](ctx, r.store, store.TableDiscountRules, rule)
}

// UpdateRule replaces the editable fields of rule id.
func (r *Repository) UpdateRule(ctx context.Context, id int64, rule model.DiscountRule) (*model.DiscountRule, error) {
	rule.ID = 0
	return updateOne[model.DiscountRule](ctx, r.store, store.TableDiscountRules, id, rule)
}

func (r *Repository) DeleteRule(ctx context.Context, id int64) error {
	return r.store.Delete(ctx, store.TableDiscountRules, []store.Filter{store.Eq("id", id)})
}

func (r *Repository) DeleteRulesOf(ctx context.Context, restaurantID int64) error {
	return r.store.Delete(ctx, store.TableDiscountRules, []store.Filter{store.Eq("restaurant_id", restaurantID)})
}
