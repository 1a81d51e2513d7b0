package store

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectStorage_UploadAndDelete(t *testing.T) {
	uploaded := make(chan []byte, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/storage/v1/object/restaurant-photos/7/abc.jpg", r.URL.Path)
		assert.Equal(t, "Bearer svc", r.Header.Get("Authorization"))
		switch r.Method {
		case http.MethodPost:
			assert.Equal(t, "image/jpeg", r.Header.Get("Content-Type"))
			data, _ := io.ReadAll(r.Body)
			uploaded <- data
			w.WriteHeader(http.StatusOK)
		case http.MethodDelete:
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	defer srv.Close()

	logger := zerolog.New(io.Discard)
	storage := NewObjectStorage(srv.URL, "svc", time.Second, &logger)

	url, err := storage.Upload(context.Background(), "restaurant-photos", "7/abc.jpg", []byte("jpeg"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/storage/v1/object/public/restaurant-photos/7/abc.jpg", url)
	assert.Equal(t, []byte("jpeg"), <-uploaded)

	path, ok := PathFromPublicURL("restaurant-photos", url)
	require.True(t, ok)
	assert.Equal(t, "7/abc.jpg", path)

	require.NoError(t, storage.Delete(context.Background(), "restaurant-photos", path))
}

func TestObjectStorage_UploadRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusRequestEntityTooLarge)
	}))
	defer srv.Close()

	logger := zerolog.New(io.Discard)
	storage := NewObjectStorage(srv.URL, "", 0, &logger)

	_, err := storage.Upload(context.Background(), "b", "x.png", []byte("x"), "image/png")
	require.Error(t, err)
	assert.Equal(t, http.StatusRequestEntityTooLarge, StatusOf(err))
}

func TestPathFromPublicURL_Foreign(t *testing.T) {
	_, ok := PathFromPublicURL("restaurant-photos", "https://cdn.example.com/photo.jpg")
	assert.False(t, ok)
	_, ok = PathFromPublicURL("restaurant-photos", "https://x/storage/v1/object/public/restaurant-photos/")
	assert.False(t, ok)
}
