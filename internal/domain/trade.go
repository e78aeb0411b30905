package domain

import "time"

// Trade represents a matched execution between a buy and a sell order.
type Trade struct {
	TradeID     string
	Symbol      string
	Price       int64 // cents
	Quantity    int64
	BuyOrderID  string
	SellOrderID string
	ExecutedAt  time.Time
}
