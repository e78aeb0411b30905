package service

import (
	"context"

	"github.com/efreitasn/livestock/internal/domain"
	"github.com/efreitasn/livestock/internal/engine"
	"github.com/efreitasn/livestock/internal/pricefeed"
)

// PriceSource supplies reference quotes from outside the exchange.
type PriceSource interface {
	Quote(ctx context.Context, symbol string) (pricefeed.Quote, error)
}

// OrdersView lists resting orders for one symbol, either at the best price
// on each side or at an explicit price.
type OrdersView struct {
	Symbol     string
	BuyOrders  []domain.Order
	SellOrders []domain.Order
}

// StockService answers read queries about books, symbols and prices.
type StockService struct {
	books        *engine.BookRegistry
	symbols      *domain.SymbolRegistry
	prices       PriceSource
	defaultDepth int
}

// NewStockService creates a new StockService. prices may be nil when no
// price feed is configured.
func NewStockService(
	books *engine.BookRegistry,
	symbols *domain.SymbolRegistry,
	prices PriceSource,
	defaultDepth int,
) *StockService {
	return &StockService{
		books:        books,
		symbols:      symbols,
		prices:       prices,
		defaultDepth: defaultDepth,
	}
}

// DefaultDepth is the book depth used when the caller does not pick one.
func (s *StockService) DefaultDepth() int {
	return s.defaultDepth
}

// GetBook returns a snapshot of the symbol's book limited to depth levels
// per side. A known symbol with no orders yet yields an empty snapshot.
func (s *StockService) GetBook(symbol string, depth int) (engine.BookSnapshot, error) {
	symbol = domain.NormalizeSymbol(symbol)
	if depth <= 0 {
		depth = s.defaultDepth
	}

	book, ok := s.books.Get(symbol)
	if !ok {
		if !s.symbols.Exists(symbol) {
			return engine.BookSnapshot{}, domain.ErrSymbolNotFound
		}
		book = engine.NewOrderBook(symbol)
	}
	return book.Snapshot(depth), nil
}

// GetOrders returns the resting orders at the best bid and best ask, or at
// price on both sides when price is non-nil.
func (s *StockService) GetOrders(symbol string, price *int64) (*OrdersView, error) {
	symbol = domain.NormalizeSymbol(symbol)
	view := &OrdersView{
		Symbol:     symbol,
		BuyOrders:  []domain.Order{},
		SellOrders: []domain.Order{},
	}

	book, ok := s.books.Get(symbol)
	if !ok {
		if !s.symbols.Exists(symbol) {
			return nil, domain.ErrSymbolNotFound
		}
		return view, nil
	}

	if price != nil {
		view.BuyOrders = book.OrdersAt(domain.OrderSideBuy, *price)
		view.SellOrders = book.OrdersAt(domain.OrderSideSell, *price)
	} else {
		view.BuyOrders, view.SellOrders = book.BestOrders()
	}
	return view, nil
}

// ListStocks returns every known symbol in ascending order.
func (s *StockService) ListStocks() []string {
	return s.symbols.List()
}

// GetPrice returns the reference price of symbol from the price feed.
func (s *StockService) GetPrice(ctx context.Context, symbol string) (pricefeed.Quote, error) {
	if s.prices == nil {
		return pricefeed.Quote{}, domain.ErrPriceFeedUnavailable
	}
	return s.prices.Quote(ctx, domain.NormalizeSymbol(symbol))
}
