package restaurant

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restoboost/internal/config"
	"restoboost/internal/events"
	"restoboost/internal/model"
	"restoboost/internal/repository"
	"restoboost/internal/store"
	"restoboost/internal/store/sqlstore"
)

const testBucket = "restaurant-photos"

type memoryPhotos struct {
	mu        sync.Mutex
	objects   map[string][]byte
	deleted   []string
	uploadErr error
}

func newMemoryPhotos() *memoryPhotos {
	return &memoryPhotos{objects: map[string][]byte{}}
}

func (m *memoryPhotos) Upload(_ context.Context, bucket, path string, data []byte, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.uploadErr != nil {
		return "", m.uploadErr
	}
	m.objects[path] = data
	return fmt.Sprintf("https://cdn.example.com/storage/v1/object/public/%s/%s", bucket, path), nil
}

func (m *memoryPhotos) Delete(_ context.Context, _ string, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, path)
	delete(m.objects, path)
	return nil
}

type countingPublisher struct {
	count map[string]int
}

func (c *countingPublisher) Publish(_ context.Context, m events.Mutation) {
	c.count[m.Action]++
}

type fixture struct {
	svc    *Service
	repo   *repository.Repository
	photos *memoryPhotos
	pub    *countingPublisher
}

// failingInserts rejects every insert into one table.
type failingInserts struct {
	store.Store
	table string
}

func (f failingInserts) Insert(ctx context.Context, table string, row any, out any) error {
	if table == f.table {
		return errors.New("insert rejected")
	}
	return f.Store.Insert(ctx, table, row, out)
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWith(t, func(s store.Store) store.Store { return s })
}

func newFixtureWith(t *testing.T, wrap func(store.Store) store.Store) *fixture {
	t.Helper()
	logger := zerolog.New(io.Discard)
	s, err := sqlstore.Open(config.DriverSQLite, ":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))

	repo := repository.New(wrap(s))
	photos := newMemoryPhotos()
	pub := &countingPublisher{count: map[string]int{}}
	svc := NewService(repo, photos, testBucket, 1024, pub, &logger)
	svc.now = func() time.Time { return time.Date(2026, 3, 10, 9, 0, 0, 0, model.Almaty) }
	return &fixture{svc: svc, repo: repo, photos: photos, pub: pub}
}

func (f *fixture) create(t *testing.T, name, category string, avgCheck, discount int, cuisine ...string) *model.Restaurant {
	t.Helper()
	r, err := f.svc.Create(context.Background(), CreateRequest{
		Name:      name,
		Category:  category,
		AvgCheck:  avgCheck,
		Cuisine:   cuisine,
		Discount:  discount,
		TimeStart: "18:00",
		TimeEnd:   "21:00",
	})
	require.NoError(t, err)
	return r
}

func TestCreateSeedsSchedule(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	r := f.create(t, " Navat ", "cafe", 8000, 20, "kazakh", "uzbek")
	assert.Equal(t, "Navat", r.Name)
	assert.Equal(t, []string{}, r.Photos)
	assert.Equal(t, []string{"kazakh", "uzbek"}, r.Cuisine)

	services, err := f.repo.ActiveServices(ctx, r.ID)
	require.NoError(t, err)
	require.Len(t, services, 1)
	assert.Equal(t, "Main Hall", services[0].Name)
	assert.Equal(t, 60, services[0].SlotStepMinutes)

	caps, err := f.repo.DefaultCapacities(ctx, []model.ID{services[0].ID})
	require.NoError(t, err)
	c := caps[services[0].ID]
	assert.Equal(t, 16, c.Seats())

	rules, err := f.repo.ListRules(ctx, r.ID)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, 20, rules[0].Discount)
	assert.Equal(t, "2026-03-10", rules[0].ValidFrom)
	assert.Equal(t, "2026-04-09", rules[0].ValidTo)
	require.NotNil(t, rules[0].ServiceID)
	assert.Equal(t, services[0].ID, *rules[0].ServiceID)

	assert.Equal(t, 1, f.pub.count[events.ActionCreated])
}

func TestCreateRollsBackOnSeedFailure(t *testing.T) {
	for _, table := range []string{store.TableServices, store.TableServiceCapacity, store.TableDiscountRules} {
		t.Run(table, func(t *testing.T) {
			f := newFixtureWith(t, func(s store.Store) store.Store {
				return failingInserts{Store: s, table: table}
			})
			ctx := context.Background()

			_, err := f.svc.Create(ctx, CreateRequest{Name: "Navat", Discount: 20, TimeStart: "18:00", TimeEnd: "21:00"})
			require.Error(t, err)

			left, err := f.repo.ListRestaurants(ctx, repository.RestaurantFilter{})
			require.NoError(t, err)
			assert.Empty(t, left)
			services, err := f.repo.Services(ctx, 1)
			require.NoError(t, err)
			assert.Empty(t, services)
			rules, err := f.repo.ListRules(ctx, 1)
			require.NoError(t, err)
			assert.Empty(t, rules)

			assert.Zero(t, f.pub.count[events.ActionCreated])
			assert.Equal(t, 1, f.pub.count[events.ActionDeleted])
		})
	}
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	for _, req := range []CreateRequest{
		{Name: "", TimeStart: "18:00", TimeEnd: "21:00"},
		{Name: "X", Discount: 120, TimeStart: "18:00", TimeEnd: "21:00"},
		{Name: "X", TimeStart: "evening", TimeEnd: "21:00"},
		{Name: "X", TimeStart: "21:00", TimeEnd: "18:00"},
	} {
		_, err := f.svc.Create(context.Background(), req)
		assert.ErrorIs(t, err, ErrInvalidInput)
	}
}

func TestListAttachesTodaysTimeslots(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.create(t, "A", "cafe", 5000, 10)
	f.create(t, "B", "bar", 9000, 30)

	_, err := f.repo.CreateRule(ctx, model.DiscountRule{
		RestaurantID: a.ID, Discount: 50, TimeStart: "12:00", TimeEnd: "13:00",
		ValidFrom: "2026-01-01", ValidTo: "2026-01-31", IsActive: true,
	})
	require.NoError(t, err)

	all, err := f.svc.List(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Len(t, all[0].Timeslots, 1, "expired rule is not attached")
	assert.Equal(t, 10, all[0].Timeslots[0].Discount)
	require.NotNil(t, all[0].Popularity)
	assert.Equal(t, 0, *all[0].Popularity)

	bars, err := f.svc.List(ctx, "bar", 0)
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, "B", bars[0].Name)

	none, err := f.svc.List(ctx, "fine-dining", 0)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestSearch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.create(t, "Cheap Eats", "cafe", 3000, 10, "fast food")
	f.create(t, "Plov House", "cafe", 6000, 25, "uzbek")
	f.create(t, "Steak Bar", "bar", 15000, 40, "steak", "uzbek")

	tests := []struct {
		name   string
		filter SearchFilter
		want   []string
	}{
		{"no filter", SearchFilter{}, []string{"Cheap Eats", "Plov House", "Steak Bar"}},
		{"cuisine", SearchFilter{Cuisine: "uzbek"}, []string{"Plov House", "Steak Bar"}},
		{"min discount", SearchFilter{DiscountMin: 25}, []string{"Plov House", "Steak Bar"}},
		{"check range", SearchFilter{AvgCheckMin: 4000, AvgCheckMax: 10000}, []string{"Plov House"}},
		{"name", SearchFilter{Name: "bar"}, []string{"Steak Bar"}},
		{"category and discount", SearchFilter{Category: "cafe", DiscountMin: 30}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.svc.Search(ctx, tt.filter)
			require.NoError(t, err)
			var names []string
			for _, r := range got {
				names = append(names, r.Name)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.create(t, "Old", "cafe", 1000, 5)

	updated, err := f.svc.Update(ctx, r.ID, map[string]any{"name": "New", "avg_check": 2500})
	require.NoError(t, err)
	assert.Equal(t, "New", updated.Name)
	assert.Equal(t, 2500, updated.AvgCheck)

	_, err = f.svc.Update(ctx, r.ID, map[string]any{"id": 99})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.Update(ctx, r.ID, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.Update(ctx, r.ID+50, map[string]any{"name": "Ghost"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPhotos(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.create(t, "Gallery", "cafe", 1000, 5)

	_, _, err := f.svc.UploadPhoto(ctx, r.ID, "menu.pdf", "application/pdf", []byte("%PDF"))
	assert.ErrorIs(t, err, ErrNotImage)

	_, _, err = f.svc.UploadPhoto(ctx, r.ID, "big.jpg", "image/jpeg", make([]byte, 2048))
	assert.ErrorIs(t, err, ErrImageTooLarge)

	_, _, err = f.svc.UploadPhoto(ctx, r.ID+10, "a.jpg", "image/jpeg", []byte("jpeg"))
	assert.ErrorIs(t, err, ErrNotFound)

	first, count, err := f.svc.UploadPhoto(ctx, r.ID, "Front.PNG", "image/png", []byte("png"))
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.True(t, strings.HasSuffix(first, ".png"))
	assert.Contains(t, first, fmt.Sprintf("/%s/%d/", testBucket, r.ID))

	second, count, err := f.svc.UploadPhoto(ctx, r.ID, "", "image/jpeg", []byte("jpeg"))
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	stored, err := f.svc.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{first, second}, stored.Photos)

	_, err = f.svc.DeletePhoto(ctx, r.ID, 5)
	assert.ErrorIs(t, err, ErrPhotoIndex)

	count, err = f.svc.DeletePhoto(ctx, r.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	require.Len(t, f.photos.deleted, 1)
	assert.True(t, strings.HasSuffix(first, f.photos.deleted[0]))

	stored, err = f.svc.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{second}, stored.Photos)

	f.photos.uploadErr = errors.New("storage down")
	_, _, err = f.svc.UploadPhoto(ctx, r.ID, "x.jpg", "image/jpeg", []byte("jpeg"))
	assert.Error(t, err)
}

func TestHardDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.create(t, "Closing", "cafe", 1000, 5)
	_, _, err := f.svc.UploadPhoto(ctx, r.ID, "a.jpg", "image/jpeg", []byte("jpeg"))
	require.NoError(t, err)

	require.NoError(t, f.svc.HardDelete(ctx, r.ID))

	_, err = f.svc.Get(ctx, r.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	services, err := f.repo.Services(ctx, r.ID)
	require.NoError(t, err)
	assert.Empty(t, services)
	rules, err := f.repo.ListRules(ctx, r.ID)
	require.NoError(t, err)
	assert.Empty(t, rules)
	assert.Len(t, f.photos.deleted, 1)
	assert.Equal(t, 1, f.pub.count[events.ActionDeleted])

	assert.ErrorIs(t, f.svc.HardDelete(ctx, r.ID), ErrNotFound)
}

func TestExtension(t *testing.T) {
	assert.Equal(t, "jpeg", extension("photo.JPEG", "image/jpeg"))
	assert.Equal(t, "webp", extension("", "image/webp"))
	assert.Equal(t, "jpg", extension("", "image/x-unknown"))
}
