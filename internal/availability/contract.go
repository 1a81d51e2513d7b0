package availability

import (
	"context"

	"restoboost/internal/model"
	"restoboost/internal/repository"
)

// Source is the reference data the engine reads. *repository.Repository implements it.
type Source interface {
	OpenHours(ctx context.Context, restaurantID int64, weekday int) (*model.RestaurantHours, error)
	ActiveServices(ctx context.Context, restaurantID int64) ([]model.Service, error)
	DefaultCapacities(ctx context.Context, serviceIDs []model.ID) (map[model.ID]model.Capacity, error)
	RulesForServices(ctx context.Context, serviceIDs []model.ID, date string) ([]model.DiscountRule, error)
	RulesForRestaurant(ctx context.Context, restaurantID int64, date string) ([]model.DiscountRule, error)
	ListBookings(ctx context.Context, f repository.BookingFilter) ([]model.Booking, error)
}

var _ Source = (*repository.Repository)(nil)
