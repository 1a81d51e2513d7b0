package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ObjectStorage uploads and removes public objects under {BaseURL}/storage/v1.
type ObjectStorage struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewObjectStorage constructs the client. A zero timeout defaults to 30 seconds.
func NewObjectStorage(baseURL, apiKey string, timeout time.Duration, logger *zerolog.Logger) *ObjectStorage {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ObjectStorage{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With().Str("component", "object_storage").Logger(),
	}
}

// Upload stores data at bucket/path and returns its public URL.
func (s *ObjectStorage) Upload(ctx context.Context, bucket, path string, data []byte, contentType string) (string, error) {
	endpoint := fmt.Sprintf("%s/storage/v1/object/%s/%s", s.baseURL, bucket, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	s.addHeaders(req)
	req.Header.Set("Content-Type", contentType)

	if err := s.do(req); err != nil {
		return "", fmt.Errorf("upload %s/%s: %w", bucket, path, err)
	}
	s.logger.Info().Str("bucket", bucket).Str("path", path).Int("bytes", len(data)).Msg("object uploaded")
	return s.PublicURL(bucket, path), nil
}

// Delete removes bucket/path.
func (s *ObjectStorage) Delete(ctx context.Context, bucket, path string) error {
	endpoint := fmt.Sprintf("%s/storage/v1/object/%s/%s", s.baseURL, bucket, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, http.NoBody)
	if err != nil {
		return err
	}
	s.addHeaders(req)
	if err := s.do(req); err != nil {
		return fmt.Errorf("delete %s/%s: %w", bucket, path, err)
	}
	return nil
}

// PublicURL is the address objects are served from.
func (s *ObjectStorage) PublicURL(bucket, path string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.baseURL, bucket, path)
}

// PathFromPublicURL extracts the object path from a public URL of bucket.
func PathFromPublicURL(bucket, publicURL string) (string, bool) {
	marker := "/storage/v1/object/public/" + bucket + "/"
	idx := strings.Index(publicURL, marker)
	if idx < 0 {
		return "", false
	}
	path := publicURL[idx+len(marker):]
	if path == "" {
		return "", false
	}
	return path, true
}

func (s *ObjectStorage) do(req *http.Request) error {
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &HTTPError{Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	return nil
}

func (s *ObjectStorage) addHeaders(req *http.Request) {
	if s.apiKey != "" {
		req.Header.Set("apikey", s.apiKey)
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}
}
