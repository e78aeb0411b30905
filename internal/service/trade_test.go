package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/efreitasn/livestock/internal/domain"
	"github.com/efreitasn/livestock/internal/store"
)

func seedTrades(ts *store.TradeStore, symbol string, n int, start time.Time) {
	for i := 0; i < n; i++ {
		ts.Record(&domain.Trade{
			TradeID:    fmt.Sprintf("%s-%d", symbol, i),
			Symbol:     symbol,
			Price:      100,
			Quantity:   1,
			ExecutedAt: start.Add(time.Duration(i) * time.Second),
		})
	}
}

func TestRecentTrades(t *testing.T) {
	ts := store.NewTradeStore(0)
	svc := NewTradeService(ts)
	seedTrades(ts, "AAPL", 30, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))

	trades, err := svc.RecentTrades("aapl", DefaultTradeCount)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(trades) != DefaultTradeCount {
		t.Fatalf("got %d trades, want %d", len(trades), DefaultTradeCount)
	}
	if trades[0].TradeID != "AAPL-29" {
		t.Errorf("newest = %s, want AAPL-29", trades[0].TradeID)
	}

	none, err := svc.RecentTrades("MSFT", 5)
	if err != nil || len(none) != 0 {
		t.Errorf("RecentTrades(MSFT) = %v, %v, want empty", none, err)
	}
}

func TestAllRecentTrades(t *testing.T) {
	ts := store.NewTradeStore(0)
	svc := NewTradeService(ts)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	seedTrades(ts, "AAPL", 3, base)
	seedTrades(ts, "MSFT", 3, base.Add(500*time.Millisecond))

	trades, err := svc.AllRecentTrades(4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"MSFT-2", "AAPL-2", "MSFT-1", "AAPL-1"}
	for i, id := range want {
		if trades[i].TradeID != id {
			t.Errorf("trades[%d] = %s, want %s", i, trades[i].TradeID, id)
		}
	}
}

func TestRecentTrades_InvalidCount(t *testing.T) {
	svc := NewTradeService(store.NewTradeStore(0))
	for _, count := range []int{0, -1, MaxTradeCount + 1} {
		var ve *domain.ValidationError
		if _, err := svc.RecentTrades("AAPL", count); !errors.As(err, &ve) {
			t.Errorf("RecentTrades(count=%d) err = %v, want ValidationError", count, err)
		}
		if _, err := svc.AllRecentTrades(count); !errors.As(err, &ve) {
			t.Errorf("AllRecentTrades(count=%d) err = %v, want ValidationError", count, err)
		}
	}
}
