package domain

import "errors"

// Sentinel errors for domain-level error handling.
// The handler layer maps these to HTTP status codes.
var (
	ErrInvariantViolation   = errors.New("invariant_violation")
	ErrSymbolNotFound       = errors.New("symbol_not_found")
	ErrQueueClosed          = errors.New("queue_closed")
	ErrPriceFeedUnavailable = errors.New("price_feed_unavailable")
	ErrQuoteNotFound        = errors.New("quote_not_found")
)

// ValidationError represents a request validation failure.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
