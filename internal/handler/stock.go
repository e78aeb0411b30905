package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/efreitasn/livestock/internal/domain"
	"github.com/efreitasn/livestock/internal/service"
	"github.com/efreitasn/livestock/internal/wire"
)

// StockHandler handles HTTP requests for stock endpoints.
type StockHandler struct {
	stockSvc *service.StockService
}

// NewStockHandler creates a new StockHandler.
func NewStockHandler(stockSvc *service.StockService) *StockHandler {
	return &StockHandler{stockSvc: stockSvc}
}

// priceResponse is the JSON response for GET /api/stock/price/{symbol}.
type priceResponse struct {
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	FetchedAt string          `json:"fetched_at"`
}

// stocksResponse is the JSON response for GET /api/stocks.
type stocksResponse struct {
	Symbols []string `json:"symbols"`
}

// GetPrice handles GET /api/stock/price/{symbol}.
func (h *StockHandler) GetPrice(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	quote, err := h.stockSvc.GetPrice(r.Context(), symbol)
	if err != nil {
		mapStockError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, priceResponse{
		Symbol:    quote.Symbol,
		Price:     quote.Price,
		FetchedAt: wire.FormatTime(quote.FetchedAt),
	})
}

// ListStocks handles GET /api/stocks.
func (h *StockHandler) ListStocks(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, stocksResponse{Symbols: h.stockSvc.ListStocks()})
}

// mapStockError maps service errors to HTTP error responses for stock
// endpoints.
func mapStockError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrPriceFeedUnavailable):
		WriteError(w, http.StatusServiceUnavailable, "price_feed_unavailable", "Price feed is not configured")
	case errors.Is(err, domain.ErrQuoteNotFound):
		WriteError(w, http.StatusNotFound, "quote_not_found", "No price available for symbol")
	default:
		WriteError(w, http.StatusBadGateway, "upstream_error", "Failed to fetch price from upstream")
	}
}
