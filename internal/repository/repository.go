// Package repository exposes typed reads and writes over a store.Store.
package repository

import (
	"context"
	"errors"

	"restoboost/internal/store"
)

var ErrNotFound = errors.New("not found")

// Repository maps the platform tables onto model types.
type Repository struct {
	store store.Store
}

func New(s store.Store) *Repository {
	return &Repository{store: s}
}

// Store returns the underlying store.
func (r *Repository) Store() store.Store {
	return r.store
}

func fetchOne[T any](ctx context.Context, s store.Store, table string, filters ...store.Filter) (*T, error) {
	var rows []T
	if err := s.Fetch(ctx, table, store.Where(filters...).WithLimit(1), &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}

func insertOne[T any](ctx context.Context, s store.Store, table string, row any) (*T, error) {
	var rows []T
	if err := s.Insert(ctx, table, row, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, store.ErrNoRows
	}
	return &rows[0], nil
}

func updateOne[T any](ctx context.Context, s store.Store, table string, id any, patch any) (*T, error) {
	var rows []T
	err := s.Update(ctx, table, []store.Filter{store.Eq("id", id)}, patch, &rows)
	if errors.Is(err, store.ErrNoRows) || (err == nil && len(rows) == 0) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rows[0], nil
}
