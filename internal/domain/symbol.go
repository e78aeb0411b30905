package domain

import (
	"sort"
	"strings"
	"sync"
)

// NormalizeSymbol trims and upper-cases a ticker symbol.
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// SymbolRegistry tracks known ticker symbols in a thread-safe manner.
// It is seeded with the configured stock list and grows as orders
// reference new symbols.
type SymbolRegistry struct {
	mu      sync.RWMutex
	symbols map[string]bool
}

// NewSymbolRegistry creates a SymbolRegistry holding the given symbols.
func NewSymbolRegistry(seed ...string) *SymbolRegistry {
	r := &SymbolRegistry{
		symbols: make(map[string]bool, len(seed)),
	}
	for _, s := range seed {
		if s = NormalizeSymbol(s); s != "" {
			r.symbols[s] = true
		}
	}
	return r
}

// Register adds a symbol to the registry. Safe for concurrent use.
func (r *SymbolRegistry) Register(symbol string) {
	symbol = NormalizeSymbol(symbol)
	if symbol == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.symbols[symbol] = true
}

// Exists returns true if the symbol has been registered. Safe for concurrent use.
func (r *SymbolRegistry) Exists(symbol string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.symbols[NormalizeSymbol(symbol)]
}

// List returns all registered symbols in ascending order.
func (r *SymbolRegistry) List() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.symbols))
	for s := range r.symbols {
		out = append(out, s)
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}
