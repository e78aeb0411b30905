package store

import (
	"sort"
	"sync"

	"github.com/efreitasn/livestock/internal/domain"
)

// DefaultTradeHistoryCap is the number of trades kept per symbol.
const DefaultTradeHistoryCap = 100

// TradeStore is a thread-safe in-memory store of recent trades, keyed by
// symbol. Each symbol keeps at most capacity trades ordered by execution
// time; the oldest are evicted first.
type TradeStore struct {
	mu       sync.RWMutex
	capacity int
	trades   map[string][]*domain.Trade // symbol → trades (oldest first)
}

// NewTradeStore creates an empty TradeStore. A non-positive capacity
// selects DefaultTradeHistoryCap.
func NewTradeStore(capacity int) *TradeStore {
	if capacity <= 0 {
		capacity = DefaultTradeHistoryCap
	}
	return &TradeStore{
		capacity: capacity,
		trades:   make(map[string][]*domain.Trade),
	}
}

// Capacity returns the per-symbol cap.
func (s *TradeStore) Capacity() int {
	return s.capacity
}

// Record adds a trade to its symbol's history, keeping the history sorted
// by ExecutedAt and evicting the oldest entries beyond the cap.
func (s *TradeStore) Record(t *domain.Trade) {
	s.mu.Lock()
	defer s.mu.Unlock()

	trades := s.trades[t.Symbol]

	// Binary search for the insertion point; equal timestamps keep
	// recording order.
	idx := sort.Search(len(trades), func(i int) bool {
		return trades[i].ExecutedAt.After(t.ExecutedAt)
	})
	trades = append(trades, nil)
	copy(trades[idx+1:], trades[idx:])
	trades[idx] = t

	if excess := len(trades) - s.capacity; excess > 0 {
		n := copy(trades, trades[excess:])
		clear(trades[n:])
		trades = trades[:n]
	}
	s.trades[t.Symbol] = trades
}

// Recent returns up to count trades for symbol, newest first. It returns an
// empty slice for an unknown symbol or a non-positive count.
func (s *TradeStore) Recent(symbol string, count int) []*domain.Trade {
	s.mu.RLock()
	defer s.mu.RUnlock()

	trades := s.trades[symbol]
	n := min(count, len(trades))
	if n <= 0 {
		return []*domain.Trade{}
	}

	result := make([]*domain.Trade, 0, n)
	for i := len(trades) - 1; i >= 0 && len(result) < n; i-- {
		result = append(result, trades[i])
	}
	return result
}

// RecentAll merges the trades of every symbol and returns up to count of
// them, newest first.
func (s *TradeStore) RecentAll(count int) []*domain.Trade {
	if count <= 0 {
		return []*domain.Trade{}
	}

	s.mu.RLock()
	all := make([]*domain.Trade, 0)
	for _, trades := range s.trades {
		all = append(all, trades...)
	}
	s.mu.RUnlock()

	// Map iteration order is random; ties break on symbol then id.
	sort.Slice(all, func(i, j int) bool {
		a, b := all[i], all[j]
		if !a.ExecutedAt.Equal(b.ExecutedAt) {
			return a.ExecutedAt.After(b.ExecutedAt)
		}
		if a.Symbol != b.Symbol {
			return a.Symbol < b.Symbol
		}
		return a.TradeID < b.TradeID
	})
	if len(all) > count {
		all = all[:count]
	}
	return all
}

// Len returns the number of trades held for symbol.
func (s *TradeStore) Len(symbol string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.trades[symbol])
}
