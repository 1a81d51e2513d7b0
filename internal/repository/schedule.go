package repository

import (
	"context"
	"errors"

	"restoboost/internal/model"
	"restoboost/internal/store"
)

// OpenHours returns the non-closed opening hours row of a restaurant for a
// weekday (Monday=0), or nil when there is none.
func (r *Repository) OpenHours(ctx context.Context, restaurantID int64, weekday int) (*model.RestaurantHours, error) {
	h, err := fetchOne[model.RestaurantHours](ctx, r.store, store.TableRestaurantHours,
		store.Eq("restaurant_id", restaurantID),
		store.Eq("weekday", weekday),
		store.Eq("is_closed", false),
	)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return h, err
}

// SetHours stores an opening hours row.
func (r *Repository) SetHours(ctx context.Context, h model.RestaurantHours) (*model.RestaurantHours, error) {
	return insertOne[model.RestaurantHours](ctx, r.store, store.TableRestaurantHours, h)
}

// ActiveServices lists the active services of a restaurant in store order.
func (r *Repository) ActiveServices(ctx context.Context, restaurantID int64) ([]model.Service, error) {
	var services []model.Service
	err := r.store.Fetch(ctx, store.TableServices, store.Where(
		store.Eq("restaurant_id", restaurantID),
		store.Eq("is_active", true),
	), &services)
	return services, err
}

// Services lists every service of a restaurant regardless of state.
func (r *Repository) Services(ctx context.Context, restaurantID int64) ([]model.Service, error) {
	var services []model.Service
	err := r.store.Fetch(ctx, store.TableServices, store.Where(store.Eq("restaurant_id", restaurantID)), &services)
	return services, err
}

func (r *Repository) CreateService(ctx context.Context, svc model.Service) (*model.Service, error) {
	return insertOne[model.Service](ctx, r.store, store.TableServices, svc)
}

// DefaultCapacities returns, per service, the first capacity row without a date.
// Services without such a row are absent from the map.
func (r *Repository) DefaultCapacities(ctx context.Context, serviceIDs []model.ID) (map[model.ID]model.Capacity, error) {
	out := make(map[model.ID]model.Capacity, len(serviceIDs))
	if len(serviceIDs) == 0 {
		return out, nil
	}
	var rows []model.Capacity
	err := r.store.Fetch(ctx, store.TableServiceCapacity, store.Where(
		store.InSlice("service_id", serviceIDs),
		store.IsNull("date"),
	).OrderBy("id.asc"), &rows)
	if err != nil {
		return nil, err
	}
	for _, c := range rows {
		if _, seen := out[c.ServiceID]; !seen {
			out[c.ServiceID] = c
		}
	}
	return out, nil
}

func (r *Repository) CreateCapacity(ctx context.Context, c model.Capacity) (*model.Capacity, error) {
	return insertOne[model.Capacity](ctx, r.store, store.TableServiceCapacity, c)
}

// DeleteSchedule removes services, their capacity rows and opening hours of a restaurant.
func (r *Repository) DeleteSchedule(ctx context.Context, restaurantID int64) error {
	services, err := r.Services(ctx, restaurantID)
	if err != nil {
		return err
	}
	if len(services) > 0 {
		ids := make([]model.ID, len(services))
		for i, s := range services {
			ids[i] = s.ID
		}
		if err := r.store.Delete(ctx, store.TableServiceCapacity, []store.Filter{store.InSlice("service_id", ids)}); err != nil {
			return err
		}
	}
	if err := r.store.Delete(ctx, store.TableServices, []store.Filter{store.Eq("restaurant_id", restaurantID)}); err != nil {
		return err
	}
	return r.store.Delete(ctx, store.TableRestaurantHours, []store.Filter{store.Eq("restaurant_id", restaurantID)})
}
