package api

import (
	"net/http"

	"restoboost/internal/discount"
)

// GET /api/bookings/discount_rules?restaurant_id=
func (s *HTTPServer) handleListRules(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := queryInt(r, "restaurant_id")
	if err != nil || restaurantID <= 0 {
		writeError(w, http.StatusBadRequest, "restaurant_id is required")
		return
	}
	rules, err := s.svc.Rules.List(r.Context(), int64(restaurantID))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rules)
}

// POST /api/bookings/discount_rules
func (s *HTTPServer) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	var in discount.RuleInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rule, err := s.svc.Rules.Create(r.Context(), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rule)
}

// PUT /api/bookings/discount_rules/{id}
func (s *HTTPServer) handleUpdateRule(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var in discount.RuleInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rule, err := s.svc.Rules.Update(r.Context(), id, in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

// DELETE /api/bookings/discount_rules/{id}
func (s *HTTPServer) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.svc.Rules.Delete(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}
