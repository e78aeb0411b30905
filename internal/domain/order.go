package domain

import (
	"fmt"
	"strings"
	"time"
)

// OrderSide indicates whether an order is a buy (bid) or a sell (ask).
type OrderSide string

const (
	OrderSideBuy  OrderSide = "Buy"
	OrderSideSell OrderSide = "Sell"
)

// ParseOrderSide accepts the side names case-insensitively.
func ParseOrderSide(s string) (OrderSide, error) {
	switch strings.ToLower(s) {
	case "buy":
		return OrderSideBuy, nil
	case "sell":
		return OrderSideSell, nil
	}
	return "", &ValidationError{Message: fmt.Sprintf("side must be one of: Buy, Sell (got %q)", s)}
}

// Order is a limit order for one symbol. Once admitted to a book it is owned
// by that book; RemainingQuantity only ever decreases.
type Order struct {
	OrderID           string
	Symbol            string
	Side              OrderSide
	Price             int64 // cents
	Quantity          int64 // as submitted
	RemainingQuantity int64
	CreatedAt         time.Time
	Active            bool
}

// FilledQuantity returns how much of the order has executed so far.
func (o *Order) FilledQuantity() int64 {
	return o.Quantity - o.RemainingQuantity
}
