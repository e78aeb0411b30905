package pricefeed

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/efreitasn/livestock/internal/domain"
)

// DefaultPollInterval is how often tracked symbols are refreshed.
const DefaultPollInterval = 15 * time.Second

// QuoteFetcher fetches a single quote.
type QuoteFetcher interface {
	Quote(ctx context.Context, symbol string) (Quote, error)
}

// PriceCache keeps the latest quote of each tracked symbol, refreshed by a
// background poller.
type PriceCache struct {
	fetcher  QuoteFetcher
	symbols  []string
	interval time.Duration
	logger   *slog.Logger

	mu     sync.RWMutex
	quotes map[string]Quote
}

// NewPriceCache creates a cache for symbols. A non-positive interval
// selects DefaultPollInterval.
func NewPriceCache(fetcher QuoteFetcher, symbols []string, interval time.Duration, logger *slog.Logger) *PriceCache {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	tracked := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if s = domain.NormalizeSymbol(s); s != "" {
			tracked = append(tracked, s)
		}
	}
	return &PriceCache{
		fetcher:  fetcher,
		symbols:  tracked,
		interval: interval,
		logger:   logger,
		quotes:   make(map[string]Quote),
	}
}

// Start refreshes every tracked symbol immediately and then once per
// interval until ctx is cancelled. It blocks; run it in a goroutine.
func (c *PriceCache) Start(ctx context.Context) {
	c.logger.Info("price cache starting",
		slog.Int("symbols", len(c.symbols)),
		slog.Duration("interval", c.interval),
	)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		c.Refresh(ctx)
		select {
		case <-ctx.Done():
			c.logger.Info("price cache stopped")
			return
		case <-ticker.C:
		}
	}
}

// Refresh fetches every tracked symbol once. A failed symbol keeps its
// previous quote.
func (c *PriceCache) Refresh(ctx context.Context) {
	for _, symbol := range c.symbols {
		if ctx.Err() != nil {
			return
		}
		q, err := c.fetcher.Quote(ctx, symbol)
		if err != nil {
			c.logger.Warn("failed to update price",
				slog.String("symbol", symbol),
				slog.String("error", err.Error()),
			)
			continue
		}
		c.Set(q)
		c.logger.Debug("updated price",
			slog.String("symbol", symbol),
			slog.String("price", q.Price.String()),
		)
	}
}

// Set stores q as the latest quote for its symbol.
func (c *PriceCache) Set(q Quote) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.quotes[domain.NormalizeSymbol(q.Symbol)] = q
}

// Get returns the cached quote for symbol.
func (c *PriceCache) Get(symbol string) (Quote, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	q, ok := c.quotes[domain.NormalizeSymbol(symbol)]
	return q, ok
}

// Quote serves symbol from the cache, falling back to a live fetch.
func (c *PriceCache) Quote(ctx context.Context, symbol string) (Quote, error) {
	if q, ok := c.Get(symbol); ok {
		return q, nil
	}
	return c.fetcher.Quote(ctx, symbol)
}

// Tracked returns the symbols the poller refreshes.
func (c *PriceCache) Tracked() []string {
	out := make([]string, len(c.symbols))
	copy(out, c.symbols)
	return out
}
