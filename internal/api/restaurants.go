package api

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"restoboost/internal/report"
	"restoboost/internal/restaurant"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// GET /api/restaurants?category=&limit=
func (s *HTTPServer) handleListRestaurants(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	list, err := s.svc.Restaurants.List(r.Context(), r.URL.Query().Get("category"), limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// GET /api/restaurants/search?name=&cuisine=&category=&discount_min=&avg_check_min=&avg_check_max=&limit=
func (s *HTTPServer) handleSearchRestaurants(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := restaurant.SearchFilter{
		Category: q.Get("category"),
		Name:     q.Get("name"),
		Cuisine:  q.Get("cuisine"),
	}
	for name, dst := range map[string]*int{
		"discount_min":  &f.DiscountMin,
		"avg_check_min": &f.AvgCheckMin,
		"avg_check_max": &f.AvgCheckMax,
		"limit":         &f.Limit,
	} {
		n, err := queryInt(r, name)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		*dst = n
	}

	list, err := s.svc.Restaurants.Search(r.Context(), f)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// GET /api/restaurants/{id}
func (s *HTTPServer) handleGetRestaurant(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rest, err := s.svc.Restaurants.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rest)
}

// POST /api/restaurants
func (s *HTTPServer) handleCreateRestaurant(w http.ResponseWriter, r *http.Request) {
	var req restaurant.CreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	created, err := s.svc.Restaurants.Create(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"success":    true,
		"message":    fmt.Sprintf("restaurant %q created", created.Name),
		"restaurant": created,
	})
}

// PUT /api/restaurants/{id}
func (s *HTTPServer) handleUpdateRestaurant(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var fields map[string]any
	if err := decodeJSON(r, &fields); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	updated, err := s.svc.Restaurants.Update(r.Context(), id, fields)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"restaurant": updated,
	})
}

// DELETE /api/restaurants/{id}
func (s *HTTPServer) handleDeleteRestaurant(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.svc.Restaurants.HardDelete(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true, Message: "restaurant deleted"})
}

// POST /api/restaurants/{id}/photos (multipart, field "file")
func (s *HTTPServer) handleUploadPhoto(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read upload")
		return
	}

	url, count, err := s.svc.Restaurants.UploadPhoto(r.Context(), id, header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"url":         url,
		"photo_count": count,
	})
}

// DELETE /api/restaurants/{id}/photos/{index}
func (s *HTTPServer) handleDeletePhoto(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	index, err := strconv.Atoi(muxVar(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid index")
		return
	}

	count, err := s.svc.Restaurants.DeletePhoto(r.Context(), id, index)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"photo_count": count,
	})
}

// GET /api/restaurants/{id}/report?month=YYYY-MM
func (s *HTTPServer) handleReport(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	month := r.URL.Query().Get("month")
	first, err := report.ParseMonth(month)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var buf bytes.Buffer
	if _, err := s.svc.Reports.ExportBookings(r.Context(), id, month, &buf); err != nil {
		s.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.Filename(id, first)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
