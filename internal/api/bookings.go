package api

import (
	"fmt"
	"net/http"

	"restoboost/internal/booking"
	"restoboost/internal/repository"
)

// handleAvailableSlots answers with 200 and a possibly empty list for every
// request, malformed parameters included.
// GET /api/bookings/available-slots?restaurant_id=&date=YYYY-MM-DD
func (s *HTTPServer) handleAvailableSlots(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	restaurantID, _ := queryInt(r, "restaurant_id")
	slots := s.svc.Slots.GetAvailableSlots(r.Context(), int64(restaurantID), q.Get("date"))
	writeJSON(w, http.StatusOK, slots)
}

// GET /api/bookings?phone=&restaurant_id=&status=&limit=
func (s *HTTPServer) handleListBookings(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := queryInt(r, "restaurant_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	bookings, err := s.svc.Bookings.List(r.Context(), repository.BookingFilter{
		Phone:        r.URL.Query().Get("phone"),
		RestaurantID: int64(restaurantID),
		Status:       r.URL.Query().Get("status"),
		Limit:        limit,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bookings)
}

// GET /api/bookings/completed?limit=
func (s *HTTPServer) handleCompletedBookings(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	bookings, err := s.svc.Bookings.ListCompleted(r.Context(), limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bookings)
}

// POST /api/bookings
func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	var req booking.CreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := s.svc.Bookings.Create(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "booking created",
		"data":    created,
	})
}

// GET /api/bookings/{id}
func (s *HTTPServer) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	b, err := s.svc.Bookings.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

type statusRequest struct {
	Status string `json:"status"`
}

// PATCH /api/bookings/{id}/status
func (s *HTTPServer) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	b, err := s.svc.Bookings.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "status updated",
		"booking": b,
	})
}

// DELETE /api/bookings/{id}
func (s *HTTPServer) handleCancelBooking(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.svc.Bookings.Cancel(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true, Message: "booking cancelled"})
}

type verifyRequest struct {
	Code string `json:"code"`
}

// POST /api/bookings/verify-qr
func (s *HTTPServer) handleVerifyCode(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	b, err := s.svc.Bookings.VerifyCode(r.Context(), req.Code)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"booking":  b,
		"discount": b.DiscountApplied,
		"message":  fmt.Sprintf("booking redeemed, %d%% discount applied", b.DiscountApplied),
	})
}
