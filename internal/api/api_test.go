package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restoboost/internal/availability"
	"restoboost/internal/booking"
	"restoboost/internal/config"
	"restoboost/internal/discount"
	"restoboost/internal/events"
	"restoboost/internal/model"
	"restoboost/internal/report"
	"restoboost/internal/repository"
	"restoboost/internal/restaurant"
	"restoboost/internal/store/sqlstore"
)

const adminHeader = "X-Test-Admin"

type testServer struct {
	*httptest.Server
	repo *repository.Repository
}

func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(adminHeader) == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zerolog.New(io.Discard)
	s, err := sqlstore.Open(config.DriverSQLite, ":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))

	repo := repository.New(s)
	svc := Services{
		Slots:       availability.New(repo, nil, &logger),
		Bookings:    booking.NewService(repo, events.Nop{}, &logger),
		Rules:       discount.NewService(repo, events.Nop{}, &logger),
		Restaurants: restaurant.NewService(repo, nil, "restaurant-photos", 1<<20, events.Nop{}, &logger),
		Reports:     report.NewExporter(repo, &logger),
	}
	srv := NewHTTPServer(":0", svc, requireAdmin, &logger)

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return &testServer{Server: ts, repo: repo}
}

func (ts *testServer) do(t *testing.T, method, path string, body any, admin bool) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, ts.URL+path, rd)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if admin {
		req.Header.Set(adminHeader, "1")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func (ts *testServer) createRestaurant(t *testing.T, name string) int64 {
	t.Helper()
	resp := ts.do(t, http.MethodPost, "/api/restaurants", restaurant.CreateRequest{
		Name: name, Category: "restaurant", AvgCheck: 9000, Cuisine: []string{"european"},
		Discount: 30, TimeStart: "18:00", TimeEnd: "21:00",
	}, true)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	out := decode[struct {
		Restaurant model.Restaurant `json:"restaurant"`
	}](t, resp)
	require.NotZero(t, out.Restaurant.ID)
	return out.Restaurant.ID
}

func TestAvailableSlots_AlwaysOK(t *testing.T) {
	ts := setupTestServer(t)

	for _, q := range []string{
		"",
		"?restaurant_id=abc&date=2026-03-10",
		"?restaurant_id=1&date=10.03.2026",
		"?restaurant_id=-4&date=2026-03-10",
		"?restaurant_id=99&date=2026-03-10",
	} {
		resp := ts.do(t, http.MethodGet, "/api/bookings/available-slots"+q, nil, false)
		assert.Equal(t, http.StatusOK, resp.StatusCode, q)
		slots := decode[[]model.Slot](t, resp)
		assert.NotNil(t, slots, q)
	}
}

func TestAvailableSlots_SeededRestaurant(t *testing.T) {
	ts := setupTestServer(t)
	id := ts.createRestaurant(t, "Del Papa")

	resp := ts.do(t, http.MethodGet, "/api/bookings/available-slots?restaurant_id="+itoa(id)+"&date="+availability.Today(), nil, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	slots := decode[[]model.Slot](t, resp)

	require.Len(t, slots, 3)
	assert.Equal(t, "18:00", slots[0].Time)
	assert.Equal(t, 30, slots[0].Discount)
	assert.True(t, slots[0].Available)
	require.NotNil(t, slots[0].Capacity)
	assert.Equal(t, 16, *slots[0].Capacity)
}

func TestAdminRoutesRequireAuth(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.do(t, http.MethodPost, "/api/restaurants", restaurant.CreateRequest{Name: "X"}, false)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/api/bookings/completed", nil, false)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/api/restaurants", nil, false)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestBookingLifecycle(t *testing.T) {
	ts := setupTestServer(t)
	rid := ts.createRestaurant(t, "Navat")

	resp := ts.do(t, http.MethodPost, "/api/bookings", booking.CreateRequest{
		RestaurantID:    rid,
		BookingDatetime: availability.Today() + "T19:00:00",
		GuestName:       "Aruzhan",
		Phone:           "+77015550000",
		PartySize:       3,
	}, false)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[struct {
		Success bool          `json:"success"`
		Data    model.Booking `json:"data"`
	}](t, resp)
	assert.True(t, created.Success)
	assert.Equal(t, 30, created.Data.DiscountApplied)
	assert.Equal(t, "Navat", created.Data.RestaurantName)
	require.Len(t, created.Data.ConfirmationCode, 10)

	resp = ts.do(t, http.MethodGet, "/api/bookings?phone=%2B77015550000", nil, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]model.Booking](t, resp), 1)

	resp = ts.do(t, http.MethodGet, "/api/bookings?status=lost", nil, false)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = ts.do(t, http.MethodPost, "/api/bookings/verify-qr", verifyRequest{Code: created.Data.ConfirmationCode}, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	verified := decode[struct {
		Booking  model.Booking `json:"booking"`
		Discount int           `json:"discount"`
	}](t, resp)
	assert.Equal(t, model.StatusCompleted, verified.Booking.Status)
	assert.Equal(t, 30, verified.Discount)

	resp = ts.do(t, http.MethodPost, "/api/bookings/verify-qr", verifyRequest{Code: created.Data.ConfirmationCode}, true)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/api/bookings/completed", nil, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	completed := decode[[]model.Booking](t, resp)
	require.Len(t, completed, 1)
	assert.Equal(t, "Navat", completed[0].RestaurantName)

	path := "/api/bookings/" + itoa(created.Data.ID)
	resp = ts.do(t, http.MethodPatch, path+"/status", statusRequest{Status: "lost"}, true)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp = ts.do(t, http.MethodPatch, path+"/status", statusRequest{Status: model.StatusNoShow}, true)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = ts.do(t, http.MethodDelete, path, nil, false)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp = ts.do(t, http.MethodGet, path, nil, false)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "booking not found", decode[errorResponse](t, resp).Error)
}

func TestCreateBooking_Invalid(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.do(t, http.MethodPost, "/api/bookings", booking.CreateRequest{
		RestaurantID: 1, BookingDatetime: "tomorrow", GuestName: "A", Phone: "1",
	}, false)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/bookings", bytes.NewBufferString("{"))
	require.NoError(t, err)
	raw, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer raw.Body.Close()
	assert.Equal(t, http.StatusBadRequest, raw.StatusCode)
}

func TestDiscountRuleRoutes(t *testing.T) {
	ts := setupTestServer(t)
	rid := ts.createRestaurant(t, "Qazaq Gourmet")

	resp := ts.do(t, http.MethodGet, "/api/bookings/discount_rules", nil, false)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	in := discount.RuleInput{
		RestaurantID: rid, Discount: 15, TimeStart: "12:00", TimeEnd: "15:00",
		ValidFrom: "2026-01-01", ValidTo: "2026-12-31", Description: "lunch",
	}
	resp = ts.do(t, http.MethodPost, "/api/bookings/discount_rules", in, true)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	rule := decode[model.DiscountRule](t, resp)
	assert.Nil(t, rule.ServiceID)

	in.Discount = 150
	resp = ts.do(t, http.MethodPut, "/api/bookings/discount_rules/"+itoa(rule.ID), in, true)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	in.Discount = 25
	resp = ts.do(t, http.MethodPut, "/api/bookings/discount_rules/"+itoa(rule.ID), in, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 25, decode[model.DiscountRule](t, resp).Discount)

	resp = ts.do(t, http.MethodGet, "/api/bookings/discount_rules?restaurant_id="+itoa(rid), nil, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]model.DiscountRule](t, resp), 2)

	resp = ts.do(t, http.MethodDelete, "/api/bookings/discount_rules/"+itoa(rule.ID), nil, true)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp = ts.do(t, http.MethodDelete, "/api/bookings/discount_rules/"+itoa(rule.ID), nil, true)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRestaurantRoutes(t *testing.T) {
	ts := setupTestServer(t)
	rid := ts.createRestaurant(t, "Rumi")
	ts.createRestaurant(t, "Line Brew")

	resp := ts.do(t, http.MethodGet, "/api/restaurants/search?name=rum", nil, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	found := decode[[]model.Restaurant](t, resp)
	require.Len(t, found, 1)
	assert.Equal(t, rid, found[0].ID)

	resp = ts.do(t, http.MethodGet, "/api/restaurants/search?discount_min=x", nil, false)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = ts.do(t, http.MethodPut, "/api/restaurants/"+itoa(rid), map[string]any{"description": "rooftop"}, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = ts.do(t, http.MethodPut, "/api/restaurants/"+itoa(rid), map[string]any{"id": 5}, true)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/api/restaurants/"+itoa(rid), nil, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "rooftop", decode[model.Restaurant](t, resp).Description)

	resp = ts.do(t, http.MethodDelete, "/api/restaurants/"+itoa(rid)+"/photos/0", nil, true)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = ts.do(t, http.MethodDelete, "/api/restaurants/"+itoa(rid), nil, true)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp = ts.do(t, http.MethodGet, "/api/restaurants/"+itoa(rid), nil, false)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUploadPhoto_StorageDisabled(t *testing.T) {
	ts := setupTestServer(t)
	rid := ts.createRestaurant(t, "Mama Mia")

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "hall.jpg")
	require.NoError(t, err)
	_, _ = part.Write([]byte("jpeg"))
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/restaurants/"+itoa(rid)+"/photos", &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(adminHeader, "1")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestReportRoute(t *testing.T) {
	ts := setupTestServer(t)
	rid := ts.createRestaurant(t, "Tary")

	resp := ts.do(t, http.MethodGet, "/api/restaurants/"+itoa(rid)+"/report?month=March", nil, true)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/api/restaurants/"+itoa(rid)+"/report?month=2026-03", nil, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, xlsxContentType, resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "restaurant_"+itoa(rid)+"_2026-03.xlsx")
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, []byte("PK"), raw[:2])
}

func TestUnknownRoute(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.do(t, http.MethodGet, "/api/unknown", nil, false)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not found", decode[errorResponse](t, resp).Error)

	resp = ts.do(t, http.MethodGet, "/health", nil, false)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
