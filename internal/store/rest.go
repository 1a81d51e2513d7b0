package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"restoboost/internal/metrics"
)

// RESTConfig configures the PostgREST client.
type RESTConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	// RateLimit caps outgoing requests per second; zero disables limiting.
	RateLimit float64
	Burst     int
}

// RESTClient talks to a PostgREST endpoint under {BaseURL}/rest/v1.
type RESTClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     zerolog.Logger
}

// NewRESTClient constructs a client. A zero timeout defaults to 10 seconds.
func NewRESTClient(cfg RESTConfig, logger *zerolog.Logger) *RESTClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &RESTClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With().Str("component", "store").Logger(),
	}
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return c
}

// Fetch implements Store.
func (c *RESTClient) Fetch(ctx context.Context, table string, q Query, out any) error {
	params := url.Values{}
	sel := q.Select
	if sel == "" {
		sel = "*"
	}
	params.Set("select", sel)
	addFilters(params, q.Filters)
	if q.Order != "" {
		params.Set("order", q.Order)
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	return c.do(ctx, http.MethodGet, table, params, nil, false, out)
}

// Insert implements Store.
func (c *RESTClient) Insert(ctx context.Context, table string, row any, out any) error {
	var rows []json.RawMessage
	if err := c.do(ctx, http.MethodPost, table, nil, row, true, &rows); err != nil {
		return err
	}
	return decodeRows(rows, out)
}

// Patch implements Store.
func (c *RESTClient) Patch(ctx context.Context, table string, filters []Filter, patch any) (bool, error) {
	params := url.Values{}
	addFilters(params, filters)
	var rows []json.RawMessage
	if err := c.do(ctx, http.MethodPatch, table, params, patch, true, &rows); err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

// Update implements Store.
func (c *RESTClient) Update(ctx context.Context, table string, filters []Filter, patch any, out any) error {
	params := url.Values{}
	addFilters(params, filters)
	var rows []json.RawMessage
	if err := c.do(ctx, http.MethodPatch, table, params, patch, true, &rows); err != nil {
		return err
	}
	return decodeRows(rows, out)
}

// Delete implements Store.
func (c *RESTClient) Delete(ctx context.Context, table string, filters []Filter) error {
	params := url.Values{}
	addFilters(params, filters)
	return c.do(ctx, http.MethodDelete, table, params, nil, false, nil)
}

// Ping checks that the REST endpoint answers.
func (c *RESTClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/rest/v1/", http.NoBody)
	if err != nil {
		return err
	}
	c.addHeaders(req)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return &HTTPError{Status: resp.StatusCode}
	}
	return nil
}

func (c *RESTClient) do(ctx context.Context, method, table string, params url.Values, body any, representation bool, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}

	endpoint := fmt.Sprintf("%s/rest/v1/%s", c.baseURL, url.PathEscape(table))
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", table, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	c.addHeaders(req)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if representation {
		req.Header.Set("Prefer", "return=representation")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ObserveStoreCall(table, method, "error", time.Since(start))
		c.logger.Warn().Err(err).Str("table", table).Str("method", method).Msg("store request failed")
		return fmt.Errorf("%w: %s %s: %v", ErrUnavailable, method, table, err)
	}
	defer resp.Body.Close()
	metrics.ObserveStoreCall(table, method, strconv.Itoa(resp.StatusCode), time.Since(start))

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Warn().
			Str("table", table).
			Str("method", method).
			Int("status", resp.StatusCode).
			Str("body", string(raw)).
			Msg("store request rejected")
		return &HTTPError{Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("decode %s response: %w", table, err)
	}
	return nil
}

func (c *RESTClient) addHeaders(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

func addFilters(params url.Values, filters []Filter) {
	for _, f := range filters {
		params.Add(f.Column, f.Encode())
	}
}

// decodeRows re-decodes raw rows into out, which may be nil.
func decodeRows(rows []json.RawMessage, out any) error {
	if out == nil {
		return nil
	}
	if len(rows) == 0 {
		return ErrNoRows
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}
