package engine

import "time"

// SnapshotVersion is the schema version carried by every BookSnapshot.
// Bump it whenever a field is added, removed or changes meaning.
const SnapshotVersion = 1

// BookSnapshot is a point-in-time view of one order book, published to the
// broadcast sink after every mutation and served by the book query.
type BookSnapshot struct {
	Version  int
	Sequence uint64 // per-book mutation counter
	Symbol   string
	BestBid  *int64 // nil when there are no bids
	BestAsk  *int64 // nil when there are no asks
	Spread   *int64 // nil unless both sides are present
	Bids     []PriceLevel
	Asks     []PriceLevel
	TakenAt  time.Time
}

// snapshot must be called with ob.mu held.
func (ob *OrderBook) snapshot(depth int) BookSnapshot {
	s := BookSnapshot{
		Version:  SnapshotVersion,
		Sequence: ob.seq,
		Symbol:   ob.symbol,
		Bids:     topLevels(ob.bids, depth),
		Asks:     topLevels(ob.asks, depth),
		TakenAt:  ob.now(),
	}
	if p, ok := bestPrice(ob.bids); ok {
		s.BestBid = &p
	}
	if p, ok := bestPrice(ob.asks); ok {
		s.BestAsk = &p
	}
	if s.BestBid != nil && s.BestAsk != nil {
		spread := *s.BestAsk - *s.BestBid
		s.Spread = &spread
	}
	return s
}
