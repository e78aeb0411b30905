// Package pricefeed fetches reference stock prices from a Finnhub-compatible
// quote endpoint and caches them for a set of tracked symbols.
package pricefeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/livestock/internal/domain"
	"github.com/efreitasn/livestock/internal/metrics"
)

// DefaultBaseURL is the public Finnhub API root.
const DefaultBaseURL = "https://finnhub.io"

// defaultBackoff is the wait before the second and third attempts.
var defaultBackoff = []time.Duration{1 * time.Second, 2 * time.Second}

// Quote is the latest known price for a symbol.
type Quote struct {
	Symbol    string
	Price     decimal.Decimal
	FetchedAt time.Time
}

// quoteResponse is the subset of the upstream quote body that is used.
type quoteResponse struct {
	Current *decimal.Decimal `json:"c"`
}

// Client calls the upstream quote endpoint.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	backoff []time.Duration
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewClient creates a Client. An empty baseURL selects DefaultBaseURL. A
// client without an API key reports domain.ErrPriceFeedUnavailable on
// every call.
func NewClient(baseURL, apiKey string, timeout time.Duration, m *metrics.Metrics, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
		backoff: defaultBackoff,
		metrics: m,
		logger:  logger,
	}
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// retryableError marks failures worth another attempt.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

// Quote fetches the current price of symbol. Transport failures and 5xx or
// 429 responses are retried with backoff; other failures return at once.
func (c *Client) Quote(ctx context.Context, symbol string) (Quote, error) {
	symbol = domain.NormalizeSymbol(symbol)
	if !c.Configured() {
		c.metrics.PriceFetches.WithLabelValues("unconfigured").Inc()
		return Quote{}, domain.ErrPriceFeedUnavailable
	}

	var lastErr error
	for attempt := 0; attempt <= len(c.backoff); attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(c.backoff[attempt-1]):
			case <-ctx.Done():
				c.metrics.PriceFetches.WithLabelValues("error").Inc()
				return Quote{}, ctx.Err()
			}
		}

		q, err := c.fetch(ctx, symbol)
		if err == nil {
			c.metrics.PriceFetches.WithLabelValues("ok").Inc()
			return q, nil
		}
		lastErr = err

		var re *retryableError
		if !errors.As(err, &re) {
			break
		}
		c.logger.Debug("quote fetch failed, retrying",
			slog.String("symbol", symbol),
			slog.Int("attempt", attempt+1),
			slog.String("error", err.Error()),
		)
	}

	if errors.Is(lastErr, domain.ErrQuoteNotFound) {
		c.metrics.PriceFetches.WithLabelValues("not_found").Inc()
	} else {
		c.metrics.PriceFetches.WithLabelValues("error").Inc()
	}
	return Quote{}, lastErr
}

func (c *Client) fetch(ctx context.Context, symbol string) (Quote, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("token", c.apiKey)
	endpoint := c.baseURL + "/api/v1/quote?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Quote{}, fmt.Errorf("build quote request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return Quote{}, ctx.Err()
		}
		return Quote{}, &retryableError{fmt.Errorf("quote request failed: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		err := fmt.Errorf("quote request returned status %d", resp.StatusCode)
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return Quote{}, &retryableError{err}
		}
		return Quote{}, err
	}

	var body quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Quote{}, fmt.Errorf("decode quote response: %w", err)
	}
	// The upstream answers unknown symbols with a zero price.
	if body.Current == nil || body.Current.IsZero() {
		return Quote{}, fmt.Errorf("%w: %s", domain.ErrQuoteNotFound, symbol)
	}

	return Quote{
		Symbol:    symbol,
		Price:     *body.Current,
		FetchedAt: time.Now().UTC(),
	}, nil
}
