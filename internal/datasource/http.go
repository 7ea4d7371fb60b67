package datasource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/Alias1177/trapfade/models"
)

// ClientOptions holds options for creating a new Client
type ClientOptions struct {
	Timeout         time.Duration
	RequestsPerSec  int
	InitialInterval time.Duration
	MaxRetryTimeout time.Duration

	// Consecutive failed attempts that open the breaker, and how long it stays open
	BreakerFailures uint32
	BreakerTimeout  time.Duration
}

// Client is a wrapper for HTTP client with rate limiting
type Client struct {
	HTTPClient *http.Client
	Limiter    *rate.Limiter
	Breaker    *gobreaker.CircuitBreaker
	opts       ClientOptions
}

// NewClient creates a new HTTP client with rate limiting
func NewClient(opts ClientOptions) *Client {
	// Set default values if not provided
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RequestsPerSec == 0 {
		opts.RequestsPerSec = 5
	}
	if opts.InitialInterval == 0 {
		opts.InitialInterval = backoff.DefaultInitialInterval
	}
	if opts.MaxRetryTimeout == 0 {
		opts.MaxRetryTimeout = 30 * time.Second
	}
	if opts.BreakerFailures == 0 {
		opts.BreakerFailures = 5
	}
	if opts.BreakerTimeout == 0 {
		opts.BreakerTimeout = 30 * time.Second
	}

	failures := opts.BreakerFailures
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "klines",
		Timeout: opts.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("component", "http_client").Str("breaker", name).
				Str("from", from.String()).Str("to", to.String()).Msg("Circuit breaker state changed")
		},
	})

	return &Client{
		HTTPClient: &http.Client{
			Timeout: opts.Timeout,
		},
		Limiter: rate.NewLimiter(rate.Every(time.Second), opts.RequestsPerSec),
		Breaker: breaker,
		opts:    opts,
	}
}

// DoRequest performs an HTTP request with rate limiting and retries.
// Client errors other than 429 are not retried, and an open breaker stops retrying at once.
func (c *Client) DoRequest(ctx context.Context, req *http.Request) (*http.Response, error) {
	var resp *http.Response
	operation := func() error {
		// Wait for rate limiter
		if err := c.Limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		out, err := c.Breaker.Execute(func() (interface{}, error) {
			return c.attempt(req)
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return backoff.Permanent(err)
		}
		if err != nil {
			return err
		}
		resp = out.(*http.Response)
		return nil
	}

	backoffStrategy := backoff.NewExponentialBackOff()
	backoffStrategy.InitialInterval = c.opts.InitialInterval
	backoffStrategy.MaxElapsedTime = c.opts.MaxRetryTimeout

	if err := backoff.Retry(operation, backoff.WithContext(backoffStrategy, ctx)); err != nil {
		return nil, err
	}

	return resp, nil
}

// attempt sends req once and turns non-200 statuses into errors.
func (c *Client) attempt(req *http.Request) (*http.Response, error) {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		statusErr := &HTTPStatusError{StatusCode: resp.StatusCode}
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, backoff.Permanent(statusErr)
		}
		return nil, statusErr
	}
	return resp, nil
}

// HTTPStatusError represents an error due to a non-200 HTTP status code
type HTTPStatusError struct {
	StatusCode int
}

// Error implements the error interface
func (e *HTTPStatusError) Error() string {
	return "non-200 status code: " + http.StatusText(e.StatusCode)
}

// HTTPSource fetches kline rows, [[ts, open, high, low, close, volume, ...], ...],
// from an exchange-style REST endpoint.
type HTTPSource struct {
	BaseURL  string
	Symbol   string
	Interval string
	Limit    int

	client *Client
	logger zerolog.Logger
}

// NewHTTPSource builds a source against baseURL, e.g. https://api.binance.com/api/v3/klines.
func NewHTTPSource(baseURL, symbol, interval string, limit int, opts ClientOptions) *HTTPSource {
	return &HTTPSource{
		BaseURL:  baseURL,
		Symbol:   symbol,
		Interval: interval,
		Limit:    limit,
		client:   NewClient(opts),
		logger:   log.With().Str("component", "http_source").Logger(),
	}
}

// Candles implements models.CandleSource.
func (s *HTTPSource) Candles(ctx context.Context) ([]models.Candle, error) {
	query := url.Values{}
	query.Set("symbol", s.Symbol)
	query.Set("interval", s.Interval)
	if s.Limit > 0 {
		query.Set("limit", strconv.Itoa(s.Limit))
	}
	endpoint := s.BaseURL + "?" + query.Encode()

	s.logger.Debug().Str("url", endpoint).Msg("Fetching candles")

	// Create a new request with context
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := s.client.DoRequest(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	var rows [][]any
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		s.logger.Error().Err(err).Msg("Error parsing JSON")
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}

	if len(rows) == 0 {
		s.logger.Warn().Msg("No candles in response")
		return nil, models.ErrNoCandles
	}

	candles := make([]models.Candle, 0, len(rows))
	for i, row := range rows {
		c, err := candleFromRow(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		candles = append(candles, c)
	}

	// Sort candles by time (oldest first for proper calculations)
	sort.Slice(candles, func(i, j int) bool {
		return candles[i].Timestamp < candles[j].Timestamp
	})

	if err := models.ValidateCandles(candles); err != nil {
		return nil, err
	}

	s.logger.Debug().Int("count", len(candles)).Msg("Fetched candles")
	return candles, nil
}
