package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"restoboost/internal/booking"
	"restoboost/internal/discount"
	"restoboost/internal/report"
	"restoboost/internal/restaurant"
)

type errorResponse struct {
	Error string `json:"error"`
}

type successResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// statusOf maps service errors to HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, booking.ErrNotFound),
		errors.Is(err, discount.ErrNotFound),
		errors.Is(err, restaurant.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, booking.ErrInvalidInput),
		errors.Is(err, booking.ErrInvalidStatus),
		errors.Is(err, booking.ErrMissingCode),
		errors.Is(err, booking.ErrAlreadyCompleted),
		errors.Is(err, booking.ErrNotConfirmed),
		errors.Is(err, discount.ErrInvalidInput),
		errors.Is(err, restaurant.ErrInvalidInput),
		errors.Is(err, restaurant.ErrNotImage),
		errors.Is(err, restaurant.ErrPhotoIndex),
		errors.Is(err, report.ErrInvalidMonth):
		return http.StatusBadRequest
	case errors.Is(err, restaurant.ErrImageTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, restaurant.ErrStorageDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err with its mapped status. Internal errors are logged and
// hidden from the client.
func (s *HTTPServer) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		s.logger.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %v", err)
	}
	return nil
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(muxVar(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}

func muxVar(r *http.Request, name string) string {
	return mux.Vars(r)[name]
}

// queryInt parses an optional integer parameter; absent yields 0.
func queryInt(r *http.Request, name string) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return n, nil
}
