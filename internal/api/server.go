// Package api exposes the booking, discount and restaurant services over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"restoboost/internal/booking"
	"restoboost/internal/discount"
	"restoboost/internal/metrics"
	"restoboost/internal/model"
	"restoboost/internal/report"
	"restoboost/internal/restaurant"
)

// DefaultMaxUpload bounds multipart photo requests.
const DefaultMaxUpload = 32 << 20

// SlotFinder computes the bookable slots of a restaurant for a day.
type SlotFinder interface {
	GetAvailableSlots(ctx context.Context, restaurantID int64, date string) []model.Slot
}

// Services are the domain services behind the routes.
type Services struct {
	Slots       SlotFinder
	Bookings    *booking.Service
	Rules       *discount.Service
	Restaurants *restaurant.Service
	Reports     *report.Exporter
}

type HTTPServer struct {
	svc       Services
	admin     func(http.Handler) http.Handler
	maxUpload int64
	logger    zerolog.Logger
	server    *http.Server
}

// NewHTTPServer wires the routes. admin wraps staff-only routes; nil leaves
// them open.
func NewHTTPServer(addr string, svc Services, admin func(http.Handler) http.Handler, logger *zerolog.Logger) *HTTPServer {
	if admin == nil {
		admin = func(h http.Handler) http.Handler { return h }
	}
	s := &HTTPServer{
		svc:       svc,
		admin:     admin,
		maxUpload: DefaultMaxUpload,
		logger:    logger.With().Str("component", "api").Logger(),
	}
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// SetTimeouts overrides the server read and write timeouts.
func (s *HTTPServer) SetTimeouts(read, write time.Duration) {
	s.server.ReadTimeout = read
	s.server.WriteTimeout = write
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *HTTPServer) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(ctxShutdown)
	}()

	s.logger.Info().Str("addr", s.server.Addr).Msg("api server listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Router returns the route table.
func (s *HTTPServer) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.instrument)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	b := r.PathPrefix("/api/bookings").Subrouter()
	b.HandleFunc("/available-slots", s.handleAvailableSlots).Methods(http.MethodGet)
	b.HandleFunc("", s.handleListBookings).Methods(http.MethodGet)
	b.HandleFunc("", s.handleCreateBooking).Methods(http.MethodPost)
	b.Handle("/completed", s.adminOnly(s.handleCompletedBookings)).Methods(http.MethodGet)
	b.Handle("/verify-qr", s.adminOnly(s.handleVerifyCode)).Methods(http.MethodPost)
	b.HandleFunc("/discount_rules", s.handleListRules).Methods(http.MethodGet)
	b.Handle("/discount_rules", s.adminOnly(s.handleCreateRule)).Methods(http.MethodPost)
	b.Handle("/discount_rules/{id:[0-9]+}", s.adminOnly(s.handleUpdateRule)).Methods(http.MethodPut)
	b.Handle("/discount_rules/{id:[0-9]+}", s.adminOnly(s.handleDeleteRule)).Methods(http.MethodDelete)
	b.HandleFunc("/{id:[0-9]+}", s.handleGetBooking).Methods(http.MethodGet)
	b.Handle("/{id:[0-9]+}/status", s.adminOnly(s.handleUpdateStatus)).Methods(http.MethodPatch)
	b.HandleFunc("/{id:[0-9]+}", s.handleCancelBooking).Methods(http.MethodDelete)

	rs := r.PathPrefix("/api/restaurants").Subrouter()
	rs.HandleFunc("", s.handleListRestaurants).Methods(http.MethodGet)
	rs.Handle("", s.adminOnly(s.handleCreateRestaurant)).Methods(http.MethodPost)
	rs.HandleFunc("/search", s.handleSearchRestaurants).Methods(http.MethodGet)
	rs.HandleFunc("/{id:[0-9]+}", s.handleGetRestaurant).Methods(http.MethodGet)
	rs.Handle("/{id:[0-9]+}", s.adminOnly(s.handleUpdateRestaurant)).Methods(http.MethodPut)
	rs.Handle("/{id:[0-9]+}", s.adminOnly(s.handleDeleteRestaurant)).Methods(http.MethodDelete)
	rs.Handle("/{id:[0-9]+}/photos", s.adminOnly(s.handleUploadPhoto)).Methods(http.MethodPost)
	rs.Handle("/{id:[0-9]+}/photos/{index:[0-9]+}", s.adminOnly(s.handleDeletePhoto)).Methods(http.MethodDelete)
	rs.Handle("/{id:[0-9]+}/report", s.adminOnly(s.handleReport)).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

func (s *HTTPServer) adminOnly(h http.HandlerFunc) http.Handler {
	return s.admin(h)
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument counts requests per route template and logs them at debug level.
func (s *HTTPServer) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		metrics.IncHTTP(route, rec.status)
		s.logger.Debug().
			Str("method", r.Method).
			Str("route", route).
			Int("status", rec.status).
			Dur("elapsed", time.Since(start)).
			Msg("request served")
	})
}
