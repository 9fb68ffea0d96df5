// Package remote issues rate-limited, circuit-broken GET requests against
// JSON HTTP APIs.
package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

const maxBodyBytes = 4 << 20

var (
	// ErrRateLimited is returned for HTTP 429.
	ErrRateLimited = errors.New("rate limited")
	// ErrCircuitOpen is returned while the provider's breaker is open.
	ErrCircuitOpen = errors.New("circuit breaker open")
)

// StatusError reports a non-2xx response.
type StatusError struct {
	Provider string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s API error: status %d: %s", e.Provider, e.Code, e.Body)
}

// Options configures a Client.
type Options struct {
	// RequestsPerSecond caps the request rate; zero disables limiting.
	RequestsPerSecond float64
	// ConsecutiveFailures opens the breaker; zero disables it.
	ConsecutiveFailures int
	// OpenTimeout is how long the breaker stays open before probing.
	OpenTimeout time.Duration
}

// Client performs GET requests for one provider.
type Client struct {
	provider   string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	logger     *slog.Logger
}

// NewClient creates a Client. Request deadlines come from the caller's context.
func NewClient(provider string, httpClient *http.Client, opts Options, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	c := &Client{
		provider:   provider,
		httpClient: httpClient,
		logger:     logger,
	}
	if opts.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	if opts.ConsecutiveFailures > 0 {
		openTimeout := opts.OpenTimeout
		if openTimeout <= 0 {
			openTimeout = 30 * time.Second
		}
		threshold := uint32(opts.ConsecutiveFailures)
		c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        provider,
			MaxRequests: 1,
			Timeout:     openTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
			IsSuccessful: countsAsHealthy,
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("circuit breaker state changed",
					"provider", name,
					"from", from.String(),
					"to", to.String(),
				)
			},
		})
	}
	return c
}

// countsAsHealthy reports whether err leaves the breaker's failure count
// alone. Client errors other than 429 are answers about one request, not
// provider outages.
func countsAsHealthy(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= 400 && se.Code < 500 && se.Code != http.StatusTooManyRequests
	}
	return false
}

// Provider returns the provider name the client was created for.
func (c *Client) Provider() string {
	return c.provider
}

// GetJSON fetches rawURL and returns the response body.
func (c *Client) GetJSON(ctx context.Context, rawURL string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%s rate limiter: %w", c.provider, err)
		}
	}

	if c.breaker == nil {
		return c.do(ctx, rawURL)
	}

	result, err := c.breaker.Execute(func() (any, error) {
		return c.do(ctx, rawURL)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%s: %w: %w", c.provider, ErrCircuitOpen, err)
	}
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

func (c *Client) do(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Drop the URL; it may carry credentials.
		var ue *url.Error
		if errors.As(err, &ue) {
			err = ue.Err
		}
		return nil, fmt.Errorf("%s request: %w", c.provider, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%s read body: %w", c.provider, err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("%s: %w", c.provider, ErrRateLimited)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Provider: c.provider, Code: resp.StatusCode, Body: truncate(string(body), 256)}
	}
	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
