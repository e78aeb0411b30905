// Package wire holds the JSON shapes shared by the HTTP API and the push
// channels. Prices leave the service as decimal dollar amounts.
package wire

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/livestock/internal/domain"
	"github.com/efreitasn/livestock/internal/engine"
)

// Level is one aggregated price level.
type Level struct {
	Price         decimal.Decimal `json:"price"`
	TotalQuantity int64           `json:"total_quantity"`
	OrderCount    int             `json:"order_count"`
}

// Book is the JSON form of engine.BookSnapshot.
type Book struct {
	Version    int              `json:"version"`
	Sequence   uint64           `json:"sequence"`
	Symbol     string           `json:"symbol"`
	BestBid    *decimal.Decimal `json:"best_bid"`
	BestAsk    *decimal.Decimal `json:"best_ask"`
	Spread     *decimal.Decimal `json:"spread"`
	Bids       []Level          `json:"bids"`
	Asks       []Level          `json:"asks"`
	SnapshotAt string           `json:"snapshot_at"`
}

// Trade is the JSON form of domain.Trade.
type Trade struct {
	TradeID     string          `json:"trade_id"`
	Symbol      string          `json:"symbol"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int64           `json:"quantity"`
	BuyOrderID  string          `json:"buy_order_id"`
	SellOrderID string          `json:"sell_order_id"`
	ExecutedAt  string          `json:"executed_at"`
}

// Order is the JSON form of a resting domain.Order.
type Order struct {
	OrderID           string          `json:"order_id"`
	Symbol            string          `json:"symbol"`
	Side              string          `json:"side"`
	Price             decimal.Decimal `json:"price"`
	Quantity          int64           `json:"quantity"`
	RemainingQuantity int64           `json:"remaining_quantity"`
	FilledQuantity    int64           `json:"filled_quantity"`
	CreatedAt         string          `json:"created_at"`
}

// NewBook converts a snapshot.
func NewBook(s engine.BookSnapshot) Book {
	return Book{
		Version:    s.Version,
		Sequence:   s.Sequence,
		Symbol:     s.Symbol,
		BestBid:    optionalPrice(s.BestBid),
		BestAsk:    optionalPrice(s.BestAsk),
		Spread:     optionalPrice(s.Spread),
		Bids:       levels(s.Bids),
		Asks:       levels(s.Asks),
		SnapshotAt: FormatTime(s.TakenAt),
	}
}

// NewTrade converts a trade.
func NewTrade(t *domain.Trade) Trade {
	return Trade{
		TradeID:     t.TradeID,
		Symbol:      t.Symbol,
		Price:       domain.CentsToPrice(t.Price),
		Quantity:    t.Quantity,
		BuyOrderID:  t.BuyOrderID,
		SellOrderID: t.SellOrderID,
		ExecutedAt:  FormatTime(t.ExecutedAt),
	}
}

// NewTrades converts a slice of trades, never returning nil.
func NewTrades(trades []*domain.Trade) []Trade {
	out := make([]Trade, 0, len(trades))
	for _, t := range trades {
		out = append(out, NewTrade(t))
	}
	return out
}

// NewOrders converts a slice of orders, never returning nil.
func NewOrders(orders []domain.Order) []Order {
	out := make([]Order, 0, len(orders))
	for _, o := range orders {
		out = append(out, Order{
			OrderID:           o.OrderID,
			Symbol:            o.Symbol,
			Side:              string(o.Side),
			Price:             domain.CentsToPrice(o.Price),
			Quantity:          o.Quantity,
			RemainingQuantity: o.RemainingQuantity,
			FilledQuantity:    o.FilledQuantity(),
			CreatedAt:         FormatTime(o.CreatedAt),
		})
	}
	return out
}

// FormatTime renders t as UTC RFC 3339 with millisecond precision.
func FormatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

func levels(in []engine.PriceLevel) []Level {
	out := make([]Level, 0, len(in))
	for _, l := range in {
		out = append(out, Level{
			Price:         domain.CentsToPrice(l.Price),
			TotalQuantity: l.TotalQuantity,
			OrderCount:    l.OrderCount,
		})
	}
	return out
}

func optionalPrice(cents *int64) *decimal.Decimal {
	if cents == nil {
		return nil
	}
	d := domain.CentsToPrice(*cents)
	return &d
}
