package broadcast

import (
	"github.com/efreitasn/livestock/internal/domain"
	"github.com/efreitasn/livestock/internal/engine"
)

// Fanout forwards every event to each sink in order.
type Fanout []engine.Broadcaster

// PublishBook implements engine.Broadcaster.
func (f Fanout) PublishBook(snapshot engine.BookSnapshot) {
	for _, s := range f {
		s.PublishBook(snapshot)
	}
}

// PublishTrade implements engine.Broadcaster.
func (f Fanout) PublishTrade(trade *domain.Trade) {
	for _, s := range f {
		s.PublishTrade(trade)
	}
}
