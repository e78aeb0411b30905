package engine

import (
	"sort"
	"sync"
)

// BookRegistry is a thread-safe map of symbol → OrderBook. Books are
// created on first reference and live for the lifetime of the process.
type BookRegistry struct {
	mu    sync.RWMutex
	books map[string]*OrderBook
}

// NewBookRegistry creates an empty BookRegistry.
func NewBookRegistry() *BookRegistry {
	return &BookRegistry{
		books: make(map[string]*OrderBook),
	}
}

// GetOrCreate returns the order book for the given symbol, creating
// one if it doesn't already exist. Concurrent first calls for the same
// symbol all receive the same book.
func (r *BookRegistry) GetOrCreate(symbol string) *OrderBook {
	r.mu.RLock()
	book, ok := r.books[symbol]
	r.mu.RUnlock()
	if ok {
		return book
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Double-check after acquiring write lock.
	if book, ok = r.books[symbol]; ok {
		return book
	}
	book = NewOrderBook(symbol)
	r.books[symbol] = book
	return book
}

// Get returns the book for symbol without creating one.
func (r *BookRegistry) Get(symbol string) (*OrderBook, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	book, ok := r.books[symbol]
	return book, ok
}

// SymbolBook pairs a symbol with its book.
type SymbolBook struct {
	Symbol string
	Book   *OrderBook
}

// All returns every registered book sorted by symbol. The slice is a copy
// of the registry at call time; the books themselves keep changing.
func (r *BookRegistry) All() []SymbolBook {
	r.mu.RLock()
	out := make([]SymbolBook, 0, len(r.books))
	for symbol, book := range r.books {
		out = append(out, SymbolBook{Symbol: symbol, Book: book})
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].Symbol < out[j].Symbol
	})
	return out
}
