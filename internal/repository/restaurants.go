package repository

import (
	"context"
	"strings"

	"restoboost/internal/model"
	"restoboost/internal/store"
)

// RestaurantFilter narrows listing and search. Zero values are ignored.
type RestaurantFilter struct {
	Category    string
	Name        string
	AvgCheckMin int
	AvgCheckMax int
	Limit       int
}

func (r *Repository) ListRestaurants(ctx context.Context, f RestaurantFilter) ([]model.Restaurant, error) {
	var filters []store.Filter
	if f.Category != "" {
		filters = append(filters, store.Eq("category", f.Category))
	}
	if name := strings.TrimSpace(f.Name); name != "" {
		filters = append(filters, store.ILike("name", "*"+name+"*"))
	}
	if f.AvgCheckMin > 0 {
		filters = append(filters, store.Gte("avg_check", f.AvgCheckMin))
	}
	if f.AvgCheckMax > 0 {
		filters = append(filters, store.Lte("avg_check", f.AvgCheckMax))
	}

	var restaurants []model.Restaurant
	err := r.store.Fetch(ctx, store.TableRestaurants, store.Where(filters...).OrderBy("id.asc").WithLimit(f.Limit), &restaurants)
	return restaurants, err
}

// RestaurantNames maps ids to names for the given restaurants.
func (r *Repository) RestaurantNames(ctx context.Context, ids []int64) (map[int64]string, error) {
	names := make(map[int64]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}
	var rows []model.Restaurant
	err := r.store.Fetch(ctx, store.TableRestaurants, store.Where(store.InSlice("id", ids)).Columns("id,name"), &rows)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		names[row.ID] = row.Name
	}
	return names, nil
}

func (r *Repository) GetRestaurant(ctx context.Context, id int64) (*model.Restaurant, error) {
	return fetchOne[model.Restaurant](ctx, r.store, store.TableRestaurants, store.Eq("id", id))
}

func (r *Repository) CreateRestaurant(ctx context.Context, rest model.Restaurant) (*model.Restaurant, error) {
	rest.ID = 0
	rest.Timeslots = nil
	rest.Popularity = nil
	if rest.Cuisine == nil {
		rest.Cuisine = []string{}
	}
	if rest.Photos == nil {
		rest.Photos = []string{}
	}
	return insertOne[model.Restaurant](ctx, r.store, store.TableRestaurants, rest)
}

// PatchRestaurant applies fields to restaurant id and returns the stored row.
func (r *Repository) PatchRestaurant(ctx context.Context, id int64, fields map[string]any) (*model.Restaurant, error) {
	return updateOne[model.Restaurant](ctx, r.store, store.TableRestaurants, id, fields)
}

func (r *Repository) DeleteRestaurant(ctx context.Context, id int64) error {
	return r.store.Delete(ctx, store.TableRestaurants, []store.Filter{store.Eq("id", id)})
}
