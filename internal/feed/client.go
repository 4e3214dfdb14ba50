package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Client interface for testability
type Client interface {
	LiveEvents(ctx context.Context, sport string) ([]Event, error)
	EventByID(ctx context.Context, id string) (*Event, error)
}

type HTTPClient struct {
	httpClient  *http.Client
	baseURL     string
	fallbackURL string
	apiKey      string
	limiter     *rate.Limiter
	retryCount  int
	retryDelay  time.Duration
	logger      *zap.Logger
}

func NewClient(baseURL, fallbackURL, apiKey string, ratePerSec int, timeout, retryDelay time.Duration, retryCount int, logger *zap.Logger) *HTTPClient {
	transport := &http.Transport{
		MaxIdleConns:       100,
		MaxConnsPerHost:    10,
		IdleConnTimeout:    90 * time.Second,
		DisableCompression: false,
	}

	return &HTTPClient{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
		baseURL:     baseURL,
		fallbackURL: fallbackURL,
		apiKey:      apiKey,
		limiter:     rate.NewLimiter(rate.Limit(ratePerSec), ratePerSec*2),
		retryCount:  retryCount,
		retryDelay:  retryDelay,
		logger:      logger,
	}
}

// LiveEvents returns the events the feed currently considers live,
// optionally restricted to one sport slug.
func (c *HTTPClient) LiveEvents(ctx context.Context, sport string) ([]Event, error) {
	path := "/v1/events/live"
	if sport != "" {
		path += "?sport=" + url.QueryEscape(sport)
	}

	body, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}

	var resp liveEventsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding live events: %w", err)
	}
	return resp.Events, nil
}

// EventByID returns one event by id, live or recently finished.
func (c *HTTPClient) EventByID(ctx context.Context, id string) (*Event, error) {
	body, err := c.get(ctx, "/v1/events/"+url.PathEscape(id))
	if err != nil {
		return nil, err
	}

	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, fmt.Errorf("decoding event: %w", err)
	}
	return &ev, nil
}

// get performs a rate-limited GET with retries against the primary host,
// falling back to the secondary host once the primary is exhausted.
func (c *HTTPClient) get(ctx context.Context, path string) ([]byte, error) {
	// Wait for rate limiter
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	body, err := c.getWithRetries(ctx, c.baseURL+path)
	if err == nil || c.fallbackURL == "" || err == ErrNotFound {
		return body, err
	}

	c.logger.Info("retrying with fallback host",
		zap.String("path", path),
		zap.Error(err),
	)
	return c.getWithRetries(ctx, c.fallbackURL+path)
}

func (c *HTTPClient) getWithRetries(ctx context.Context, url string) ([]byte, error) {
	c.logger.Debug("requesting", zap.String("url", url))

	var lastErr error
	for attempt := 0; attempt <= c.retryCount; attempt++ {
		if attempt > 0 {
			delay := c.retryDelay * time.Duration(1<<(attempt-1)) // Exponential backoff
			c.logger.Debug("retrying request", zap.Int("attempt", attempt), zap.Duration("delay", delay))

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}

		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		// Read body before closing for error messages
		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()

		if readErr != nil {
			lastErr = readErr
			continue
		}

		if resp.StatusCode == http.StatusNotFound {
			return nil, ErrNotFound
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = ErrRateLimited
			continue
		}

		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("%w: status %d", ErrFeedUnavailable, resp.StatusCode)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
		}

		return body, nil
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}
