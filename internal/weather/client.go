package weather

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
)

var (
	errNetwork            = errors.New("network error")
	errServiceUnavailable = errors.New("service unavailable")
	errServerError        = errors.New("server error")
	errUnexpectedStatus   = errors.New("unexpected status code")
	errCircuitOpen        = errors.New("circuit breaker open")
)

// BackoffConfig controls the retry loop's exponential backoff.
type BackoffConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// Config bundles the outbound API settings and resilience tuning.
type Config struct {
	BaseURL string
	APIKey  string
	City    string

	// Client is the HTTP client used for outbound calls. A default
	// client with a 10s timeout is used when nil.
	Client *http.Client

	// Backoff defaults to 3 retries at 1s, 2s, 4s.
	Backoff BackoffConfig
}

// Client fetches current weather from the configured API with retries,
// exponential backoff, a circuit breaker, and an outermost fallback that
// degrades to an empty result when retries exhaust against a network
// error or HTTP 503.
type Client struct {
	baseURL string
	apiKey  string
	city    string
	http    *http.Client
	backoff BackoffConfig
	circuit *gobreaker.CircuitBreaker
}

// NewClient creates a Client. Zero-value backoff fields are replaced
// with the defaults documented on Config.
func NewClient(cfg Config) *Client {
	httpClient := cfg.Client
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	backoff := cfg.Backoff
	if backoff.MaxRetries <= 0 {
		backoff.MaxRetries = 3
	}
	if backoff.InitialInterval <= 0 {
		backoff.InitialInterval = 1 * time.Second
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openweathermap",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		city:    cfg.City,
		http:    httpClient,
		backoff: backoff,
		circuit: cb,
	}
}

// FetchCurrentWeather issues one resilient request and returns the parsed
// snapshot. A nil snapshot with a nil error means the fallback substituted
// an empty success or the API returned an empty body; callers must treat
// that as "no data", not as a crash.
func (c *Client) FetchCurrentWeather(ctx context.Context) (*Snapshot, error) {
	resp, err := c.fetchWithRetry(ctx)
	if err != nil {
		if isFallback(err) {
			// Degraded empty success instead of propagating.
			return nil, nil
		}
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read weather response: %w", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}

	var snap Snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return nil, fmt.Errorf("decode weather response: %w", err)
	}
	return &snap, nil
}

// fetchWithRetry executes the request with retries, exponential backoff,
// and a circuit breaker. Only network errors and 5xx responses are
// retried; other error statuses surface immediately.
func (c *Client) fetchWithRetry(ctx context.Context) (*http.Response, error) {
	var attempt int

	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		req, err := c.buildRequest(ctx)
		if err != nil {
			return nil, err
		}

		result, err := c.circuit.Execute(func() (interface{}, error) {
			resp, execErr := c.http.Do(req)
			if execErr != nil {
				return nil, fmt.Errorf("%w: %v", errNetwork, execErr)
			}

			switch {
			case resp.StatusCode == http.StatusServiceUnavailable:
				resp.Body.Close()
				return nil, errServiceUnavailable
			case resp.StatusCode >= 500:
				resp.Body.Close()
				return nil, fmt.Errorf("%w: %d", errServerError, resp.StatusCode)
			case resp.StatusCode < 200 || resp.StatusCode >= 300:
				resp.Body.Close()
				return nil, fmt.Errorf("%w: %d", errUnexpectedStatus, resp.StatusCode)
			}

			return resp, nil
		})

		if err == nil {
			resp, ok := result.(*http.Response)
			if !ok {
				return nil, fmt.Errorf("unexpected result type from circuit breaker")
			}
			return resp, nil
		}

		// If the circuit is open, propagate immediately.
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", errCircuitOpen, err)
		}

		if !isTransient(err) {
			return nil, err
		}
		if attempt >= c.backoff.MaxRetries {
			return nil, err
		}

		delay := c.backoff.InitialInterval * time.Duration(math.Pow(2, float64(attempt)))
		if c.backoff.MaxInterval > 0 && delay > c.backoff.MaxInterval {
			delay = c.backoff.MaxInterval
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}

		attempt++
	}
}

func (c *Client) buildRequest(ctx context.Context) (*http.Request, error) {
	values := url.Values{}
	values.Set("q", c.city)
	values.Set("appid", c.apiKey)
	values.Set("units", "metric")

	u := fmt.Sprintf("%s?%s", c.baseURL, values.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	return req, nil
}

// isTransient reports whether the failure is worth retrying.
func isTransient(err error) bool {
	return errors.Is(err, errNetwork) ||
		errors.Is(err, errServiceUnavailable) ||
		errors.Is(err, errServerError)
}

// isFallback reports whether an exhausted failure should be substituted
// with an empty success: request-level failures and 503 only.
func isFallback(err error) bool {
	return errors.Is(err, errNetwork) || errors.Is(err, errServiceUnavailable)
}
