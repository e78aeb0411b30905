package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/efreitasn/livestock/internal/domain"
	"github.com/efreitasn/livestock/internal/service"
	"github.com/efreitasn/livestock/internal/wire"
)

// TradeHandler handles HTTP requests for trade history endpoints.
type TradeHandler struct {
	tradeSvc *service.TradeService
}

// NewTradeHandler creates a new TradeHandler.
func NewTradeHandler(tradeSvc *service.TradeService) *TradeHandler {
	return &TradeHandler{tradeSvc: tradeSvc}
}

// GetRecentTrades handles GET /api/tradehistory/{symbol}.
func (h *TradeHandler) GetRecentTrades(w http.ResponseWriter, r *http.Request) {
	count, ok := parseCount(w, r)
	if !ok {
		return
	}

	trades, err := h.tradeSvc.RecentTrades(chi.URLParam(r, "symbol"), count)
	if err != nil {
		mapTradeError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, wire.NewTrades(trades))
}

// GetAllRecentTrades handles GET /api/tradehistory.
func (h *TradeHandler) GetAllRecentTrades(w http.ResponseWriter, r *http.Request) {
	count, ok := parseCount(w, r)
	if !ok {
		return
	}

	trades, err := h.tradeSvc.AllRecentTrades(count)
	if err != nil {
		mapTradeError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, wire.NewTrades(trades))
}

// parseCount reads the count query parameter, writing a 400 when it is not
// an integer.
func parseCount(w http.ResponseWriter, r *http.Request) (int, bool) {
	v := r.URL.Query().Get("count")
	if v == "" {
		return service.DefaultTradeCount, true
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "validation_error", "count must be an integer")
		return 0, false
	}
	return n, true
}

func mapTradeError(w http.ResponseWriter, err error) {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		WriteError(w, http.StatusBadRequest, "validation_error", ve.Message)
		return
	}
	WriteError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
}
