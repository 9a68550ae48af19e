package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	domainavailability "availsync/internal/domain/availability"
	"availsync/internal/infra/obs"
)

// HeaderAccessKey authenticates writes against the platform's write API.
const HeaderAccessKey = "X-Access-Key"

var ErrNotConfigured = errors.New("remote: client not configured")

// StatusError is returned when the platform answers with a non-2xx status.
type StatusError struct {
	Method string
	URL    string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("remote: %s %s returned status %d: %s", e.Method, e.URL, e.Status, e.Body)
}

// Temporary reports whether retrying the same request may succeed.
func (e *StatusError) Temporary() bool {
	return e.Status >= http.StatusInternalServerError || e.Status == http.StatusTooManyRequests
}

// Client reads and writes a hotel's availability through the platform's read and write APIs.
type Client struct {
	HTTP        *http.Client
	ReadAPIURL  string
	WriteAPIURL string
	AccessKey   string
	HotelID     string
	// Backoff lists the waits between attempts; len(Backoff)+1 attempts are made.
	Backoff []time.Duration
	Logger  *slog.Logger
}

type availabilityBody struct {
	Availability domainavailability.Snapshot `json:"availability"`
}

func (c *Client) Fetch(ctx context.Context) (domainavailability.Snapshot, error) {
	if c == nil || c.ReadAPIURL == "" || c.HotelID == "" {
		return nil, ErrNotConfigured
	}
	endpoint := c.availabilityURL(c.ReadAPIURL)
	var body availabilityBody
	err := c.withRetry(ctx, http.MethodGet, endpoint, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		return c.do(req, &body)
	})
	if err != nil {
		return nil, err
	}
	if body.Availability == nil {
		return domainavailability.Snapshot{}, nil
	}
	if err := body.Availability.Normalize(); err != nil {
		return nil, fmt.Errorf("remote: GET %s: %w", endpoint, err)
	}
	return body.Availability, nil
}

func (c *Client) Persist(ctx context.Context, snapshot domainavailability.Snapshot) error {
	if c == nil || c.WriteAPIURL == "" || c.HotelID == "" {
		return ErrNotConfigured
	}
	payload, err := json.Marshal(availabilityBody{Availability: snapshot})
	if err != nil {
		return err
	}
	endpoint := c.availabilityURL(c.WriteAPIURL)
	return c.withRetry(ctx, http.MethodPut, endpoint, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(HeaderAccessKey, c.AccessKey)
		return c.do(req, nil)
	})
}

// Ping checks that the read API answers for the configured hotel.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Fetch(ctx)
	return err
}

func (c *Client) do(req *http.Request, out any) error {
	obs.InjectTrace(req.Context(), req.Header)
	if id := obs.RequestIDFromContext(req.Context()); id != "" {
		req.Header.Set(obs.HeaderRequestID, id)
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Method: req.Method, URL: req.URL.String(), Status: resp.StatusCode, Body: string(snippet)}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("remote: decode %s response: %w", req.URL.Path, err)
	}
	return nil
}

func (c *Client) withRetry(ctx context.Context, method, endpoint string, attempt func() error) error {
	for i := 0; ; i++ {
		err := attempt()
		if err == nil || !retryable(ctx, err) || i >= len(c.Backoff) {
			return err
		}
		wait := c.Backoff[i]
		c.logger().Warn("remote call failed, retrying", "method", method, "url", endpoint, "attempt", i+1, "wait", wait, "error", err)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Temporary()
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

func (c *Client) availabilityURL(base string) string {
	return base + "/hotels/" + url.PathEscape(c.HotelID) + "/availability"
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}

func (c *Client) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

var _ domainavailability.Store = (*Client)(nil)
