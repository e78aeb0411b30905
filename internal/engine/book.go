package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/efreitasn/livestock/internal/domain"
	"github.com/google/btree"
	"github.com/google/uuid"
)

// PriceLevel represents an aggregated price level in the order book.
type PriceLevel struct {
	Price         int64
	TotalQuantity int64
	OrderCount    int
}

// level is the FIFO queue of resting orders at one price on one side.
// A level in the tree never holds a filled or inactive order and is
// removed as soon as its queue empties.
type level struct {
	price  int64
	orders []*domain.Order
}

// bidLess orders the bid side by price descending, so Min() is the best bid.
func bidLess(a, b *level) bool {
	return a.price > b.price
}

// askLess orders the ask side by price ascending, so Min() is the best ask.
func askLess(a, b *level) bool {
	return a.price < b.price
}

// Execution is the outcome of processing one incoming order: the trades it
// produced and a snapshot of the book after every mutation. Snapshots[0] is
// taken right after insertion and Snapshots[i+1] right after Trades[i].
type Execution struct {
	Trades    []*domain.Trade
	Snapshots []BookSnapshot
}

// OrderBook maintains the bid and ask sides for a single symbol as B-trees
// of price levels. All mutations take the write lock; queries take the
// read lock, so readers always see a book that is not crossed.
type OrderBook struct {
	symbol string
	mu     sync.RWMutex
	bids   *btree.BTreeG[*level]
	asks   *btree.BTreeG[*level]
	seq    uint64 // bumped on every mutation
	now    func() time.Time
}

// NewOrderBook creates an order book for the given symbol.
func NewOrderBook(symbol string) *OrderBook {
	const degree = 32
	return &OrderBook{
		symbol: symbol,
		bids:   btree.NewG[*level](degree, bidLess),
		asks:   btree.NewG[*level](degree, askLess),
		now:    time.Now,
	}
}

// Symbol returns the symbol this book holds orders for.
func (ob *OrderBook) Symbol() string {
	return ob.symbol
}

// AddOrder appends the order to the tail of its price level. It never
// matches; callers that need a consistent add-then-match sequence use Process.
func (ob *OrderBook) AddOrder(order *domain.Order) error {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	return ob.addOrder(order)
}

// TryMatch executes at most one trade between the head of the best bid
// level and the head of the best ask level. It returns false when the book
// is not crossed. Callers loop until it returns false.
func (ob *OrderBook) TryMatch() (*domain.Trade, bool) {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	return ob.tryMatch()
}

// Process inserts the order and drains every resulting match while holding
// the write lock for the whole sequence. depth bounds the number of levels
// per side in the returned snapshots.
func (ob *OrderBook) Process(order *domain.Order, depth int) (*Execution, error) {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	if err := ob.addOrder(order); err != nil {
		return nil, err
	}

	exec := &Execution{
		Snapshots: []BookSnapshot{ob.snapshot(depth)},
	}
	for {
		trade, ok := ob.tryMatch()
		if !ok {
			break
		}
		exec.Trades = append(exec.Trades, trade)
		exec.Snapshots = append(exec.Snapshots, ob.snapshot(depth))
	}
	return exec, nil
}

func (ob *OrderBook) addOrder(order *domain.Order) error {
	if order.Symbol != ob.symbol {
		return fmt.Errorf("order %s has symbol %q, book is %q: %w",
			order.OrderID, order.Symbol, ob.symbol, domain.ErrInvariantViolation)
	}
	if order.RemainingQuantity <= 0 {
		return fmt.Errorf("order %s has non-positive remaining quantity %d: %w",
			order.OrderID, order.RemainingQuantity, domain.ErrInvariantViolation)
	}

	tree, err := ob.side(order.Side)
	if err != nil {
		return err
	}

	if lv, ok := tree.Get(&level{price: order.Price}); ok {
		lv.orders = append(lv.orders, order)
	} else {
		tree.ReplaceOrInsert(&level{price: order.Price, orders: []*domain.Order{order}})
	}
	order.Active = true
	ob.seq++
	return nil
}

func (ob *OrderBook) tryMatch() (*domain.Trade, bool) {
	bid, ok := ob.bids.Min()
	if !ok {
		return nil, false
	}
	ask, ok := ob.asks.Min()
	if !ok {
		return nil, false
	}
	if bid.price < ask.price {
		return nil, false
	}

	buy := bid.orders[0]
	sell := ask.orders[0]
	qty := min(buy.RemainingQuantity, sell.RemainingQuantity)

	// The ask price always sets the execution price, whichever side arrived last.
	trade := &domain.Trade{
		TradeID:     uuid.NewString(),
		Symbol:      ob.symbol,
		Price:       ask.price,
		Quantity:    qty,
		BuyOrderID:  buy.OrderID,
		SellOrderID: sell.OrderID,
		ExecutedAt:  ob.now(),
	}

	buy.RemainingQuantity -= qty
	sell.RemainingQuantity -= qty
	popFilled(ob.bids, bid)
	popFilled(ob.asks, ask)
	ob.seq++

	return trade, true
}

// popFilled removes the head order of lv if it is filled, and removes lv
// from the tree if that empties it.
func popFilled(tree *btree.BTreeG[*level], lv *level) {
	head := lv.orders[0]
	if head.RemainingQuantity > 0 {
		return
	}
	head.Active = false
	lv.orders[0] = nil
	lv.orders = lv.orders[1:]
	if len(lv.orders) == 0 {
		tree.Delete(lv)
	}
}

func (ob *OrderBook) side(side domain.OrderSide) (*btree.BTreeG[*level], error) {
	switch side {
	case domain.OrderSideBuy:
		return ob.bids, nil
	case domain.OrderSideSell:
		return ob.asks, nil
	}
	return nil, fmt.Errorf("unknown order side %q: %w", side, domain.ErrInvariantViolation)
}

// BestBid returns the highest bid price, or false when there are no bids.
func (ob *OrderBook) BestBid() (int64, bool) {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	return bestPrice(ob.bids)
}

// BestAsk returns the lowest ask price, or false when there are no asks.
func (ob *OrderBook) BestAsk() (int64, bool) {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	return bestPrice(ob.asks)
}

func bestPrice(tree *btree.BTreeG[*level]) (int64, bool) {
	lv, ok := tree.Min()
	if !ok {
		return 0, false
	}
	return lv.price, true
}

// OrdersAt returns copies of the orders resting at price on the given side,
// in FIFO order. It returns an empty slice when the level does not exist.
func (ob *OrderBook) OrdersAt(side domain.OrderSide, price int64) []domain.Order {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	tree, err := ob.side(side)
	if err != nil {
		return []domain.Order{}
	}
	lv, ok := tree.Get(&level{price: price})
	if !ok {
		return []domain.Order{}
	}
	return copyOrders(lv)
}

// BestOrders returns copies of the orders at the best bid and the best ask,
// read under a single lock so both sides come from the same book state.
func (ob *OrderBook) BestOrders() (bids, asks []domain.Order) {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	bids, asks = []domain.Order{}, []domain.Order{}
	if lv, ok := ob.bids.Min(); ok {
		bids = copyOrders(lv)
	}
	if lv, ok := ob.asks.Min(); ok {
		asks = copyOrders(lv)
	}
	return bids, asks
}

func copyOrders(lv *level) []domain.Order {
	out := make([]domain.Order, len(lv.orders))
	for i, o := range lv.orders {
		out[i] = *o
	}
	return out
}

// Snapshot returns a consistent view of the book with at most depth levels
// per side.
func (ob *OrderBook) Snapshot(depth int) BookSnapshot {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	return ob.snapshot(depth)
}

// TopBids returns up to n aggregated price levels from the bid side,
// ordered by price descending.
func (ob *OrderBook) TopBids(n int) []PriceLevel {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	return topLevels(ob.bids, n)
}

// TopAsks returns up to n aggregated price levels from the ask side,
// ordered by price ascending.
func (ob *OrderBook) TopAsks(n int) []PriceLevel {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	return topLevels(ob.asks, n)
}

// topLevels iterates the B-tree in order and aggregates at most n levels.
func topLevels(tree *btree.BTreeG[*level], n int) []PriceLevel {
	if n <= 0 {
		return []PriceLevel{}
	}
	levels := make([]PriceLevel, 0, min(n, tree.Len()))
	tree.Ascend(func(lv *level) bool {
		if len(levels) >= n {
			return false
		}
		pl := PriceLevel{Price: lv.price, OrderCount: len(lv.orders)}
		for _, o := range lv.orders {
			pl.TotalQuantity += o.RemainingQuantity
		}
		levels = append(levels, pl)
		return true
	})
	return levels
}

// OrderCount returns the number of resting orders on the given side.
func (ob *OrderBook) OrderCount(side domain.OrderSide) int {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	tree, err := ob.side(side)
	if err != nil {
		return 0
	}
	n := 0
	tree.Ascend(func(lv *level) bool {
		n += len(lv.orders)
		return true
	})
	return n
}
