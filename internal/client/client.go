// Package client is a typed HTTP client for the trip planner API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/pkordes/trip-planner/backend/internal/domain"
)

// StatusError is returned for a non-2xx response that does not map to a
// domain sentinel.
type StatusError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Message)
}

// Client talks to one API server.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client (10s timeout).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New returns a client for the API rooted at baseURL, e.g.
// "http://localhost:8080" or "http://localhost:8080/api".
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("client.New: parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("client.New: base url %q must be absolute", baseURL)
	}
	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// List returns every live trip.
func (c *Client) List(ctx context.Context) ([]domain.Trip, error) {
	var trips []domain.Trip
	if err := c.do(ctx, http.MethodGet, c.url(nil, "trips"), nil, &trips); err != nil {
		return nil, fmt.Errorf("client.Client.List: %w", err)
	}
	return nonNil(trips), nil
}

// ListByStatus returns the live trips with the given status.
func (c *Client) ListByStatus(ctx context.Context, status domain.TripStatus) ([]domain.Trip, error) {
	q := url.Values{"status": {string(status)}}
	var trips []domain.Trip
	if err := c.do(ctx, http.MethodGet, c.url(q, "trips"), nil, &trips); err != nil {
		return nil, fmt.Errorf("client.Client.ListByStatus: %w", err)
	}
	return nonNil(trips), nil
}

// Search returns the live trips whose title contains keyword.
func (c *Client) Search(ctx context.Context, keyword string) ([]domain.Trip, error) {
	q := url.Values{"keyword": {keyword}}
	var trips []domain.Trip
	if err := c.do(ctx, http.MethodGet, c.url(q, "trips", "search"), nil, &trips); err != nil {
		return nil, fmt.Errorf("client.Client.Search: %w", err)
	}
	return nonNil(trips), nil
}

// GetByID returns one live trip.
func (c *Client) GetByID(ctx context.Context, id string) (domain.Trip, error) {
	var t domain.Trip
	if err := c.do(ctx, http.MethodGet, c.url(nil, "trips", id), nil, &t); err != nil {
		return domain.Trip{}, fmt.Errorf("client.Client.GetByID: %w", err)
	}
	return t, nil
}

// Create stores a new trip and returns its id.
func (c *Client) Create(ctx context.Context, in domain.NewTrip) (string, error) {
	var resp struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, c.url(nil, "trips"), in, &resp); err != nil {
		return "", fmt.Errorf("client.Client.Create: %w", err)
	}
	return resp.ID, nil
}

// Update sends only the fields set in patch.
func (c *Client) Update(ctx context.Context, id string, patch domain.TripPatch) error {
	if err := c.do(ctx, http.MethodPut, c.url(nil, "trips", id), patchBody(patch), nil); err != nil {
		return fmt.Errorf("client.Client.Update: %w", err)
	}
	return nil
}

// Delete soft-deletes a trip.
func (c *Client) Delete(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, c.url(nil, "trips", id), nil, nil); err != nil {
		return fmt.Errorf("client.Client.Delete: %w", err)
	}
	return nil
}

func (c *Client) url(q url.Values, segments ...string) string {
	u := c.baseURL.JoinPath(segments...)
	if q != nil {
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// do sends body (if any) as JSON and decodes a 2xx response into out (if any).
func (c *Client) do(ctx context.Context, method, target string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, rdr)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return responseError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// responseError maps an error response to a domain sentinel where one fits.
func responseError(resp *http.Response) error {
	var eb errorBody
	// Non-JSON bodies (413, 429 from middleware) leave eb empty.
	_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&eb)
	msg := eb.Error.Message

	switch resp.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, msg)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %s", domain.ErrValidation, msg)
	}
	return &StatusError{StatusCode: resp.StatusCode, Code: eb.Error.Code, Message: msg}
}

// patchBody turns a TripPatch into a JSON object holding only its set fields.
func patchBody(p domain.TripPatch) map[string]any {
	body := map[string]any{}
	if p.Title != nil {
		body["title"] = *p.Title
	}
	if p.Cover != nil {
		if *p.Cover == "" {
			body["cover"] = nil
		} else {
			body["cover"] = *p.Cover
		}
	}
	if p.StartAt != nil {
		body["startAt"] = *p.StartAt
	}
	if p.EndAt != nil {
		body["endAt"] = *p.EndAt
	}
	if p.Days != nil {
		days := *p.Days
		if days == nil {
			days = []domain.Day{}
		}
		body["days"] = days
	}
	return body
}

func nonNil(trips []domain.Trip) []domain.Trip {
	if trips == nil {
		return []domain.Trip{}
	}
	return trips
}
