package service

import (
	"fmt"

	"github.com/efreitasn/livestock/internal/domain"
	"github.com/efreitasn/livestock/internal/store"
)

const (
	// DefaultTradeCount is the number of trades returned when the caller
	// does not ask for a specific count.
	DefaultTradeCount = 20

	// MaxTradeCount bounds a single trade history request.
	MaxTradeCount = 1000
)

// TradeService serves recent trade history.
type TradeService struct {
	trades *store.TradeStore
}

// NewTradeService creates a new TradeService.
func NewTradeService(trades *store.TradeStore) *TradeService {
	return &TradeService{trades: trades}
}

// RecentTrades returns up to count trades for symbol, newest first. Symbols
// that never traded yield an empty list.
func (s *TradeService) RecentTrades(symbol string, count int) ([]*domain.Trade, error) {
	if err := validateCount(count); err != nil {
		return nil, err
	}
	return s.trades.Recent(domain.NormalizeSymbol(symbol), count), nil
}

// AllRecentTrades returns up to count trades across every symbol, newest
// first.
func (s *TradeService) AllRecentTrades(count int) ([]*domain.Trade, error) {
	if err := validateCount(count); err != nil {
		return nil, err
	}
	return s.trades.RecentAll(count), nil
}

func validateCount(count int) error {
	if count <= 0 || count > MaxTradeCount {
		return &domain.ValidationError{
			Message: fmt.Sprintf("count must be between 1 and %d", MaxTradeCount),
		}
	}
	return nil
}
