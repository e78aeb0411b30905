package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/efreitasn/livestock/internal/domain"
	"github.com/efreitasn/livestock/internal/service"
	"github.com/efreitasn/livestock/internal/wire"
)

// OrderHandler handles HTTP requests for order endpoints.
type OrderHandler struct {
	orderSvc *service.OrderService
	stockSvc *service.StockService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(orderSvc *service.OrderService, stockSvc *service.StockService) *OrderHandler {
	return &OrderHandler{orderSvc: orderSvc, stockSvc: stockSvc}
}

// acceptedOrderResponse is the JSON response for POST /api/orders. The order
// has been queued, not yet matched.
type acceptedOrderResponse struct {
	OrderID   string          `json:"order_id"`
	Symbol    string          `json:"symbol"`
	Side      string          `json:"side"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int64           `json:"quantity"`
	CreatedAt string          `json:"created_at"`
}

// ordersResponse is the JSON response for GET /api/orders/{symbol}/orders.
type ordersResponse struct {
	Symbol     string       `json:"symbol"`
	BuyOrders  []wire.Order `json:"buy_orders"`
	SellOrders []wire.Order `json:"sell_orders"`
}

// SubmitOrder handles POST /api/orders.
func (h *OrderHandler) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	var req service.SubmitOrderRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	order, err := h.orderSvc.SubmitOrder(req)
	if err != nil {
		mapOrderError(w, err)
		return
	}

	WriteJSON(w, http.StatusAccepted, acceptedOrderResponse{
		OrderID:   order.OrderID,
		Symbol:    order.Symbol,
		Side:      string(order.Side),
		Price:     domain.CentsToPrice(order.Price),
		Quantity:  order.Quantity,
		CreatedAt: wire.FormatTime(order.CreatedAt),
	})
}

// GetBook handles GET /api/orders/{symbol}/book.
func (h *OrderHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	depth := h.stockSvc.DefaultDepth()
	if v := r.URL.Query().Get("depth"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			WriteError(w, http.StatusBadRequest, "validation_error", "depth must be a positive integer")
			return
		}
		depth = n
	}

	snapshot, err := h.stockSvc.GetBook(symbol, depth)
	if err != nil {
		mapOrderError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, wire.NewBook(snapshot))
}

// GetOrders handles GET /api/orders/{symbol}/orders.
func (h *OrderHandler) GetOrders(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	var price *int64
	if v := r.URL.Query().Get("price"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil || !d.IsPositive() {
			WriteError(w, http.StatusBadRequest, "validation_error", "price must be a positive decimal")
			return
		}
		cents, err := domain.PriceToCents(d)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "validation_error", "price "+err.Error())
			return
		}
		price = &cents
	}

	view, err := h.stockSvc.GetOrders(symbol, price)
	if err != nil {
		mapOrderError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, ordersResponse{
		Symbol:     view.Symbol,
		BuyOrders:  wire.NewOrders(view.BuyOrders),
		SellOrders: wire.NewOrders(view.SellOrders),
	})
}

// mapOrderError maps service errors to HTTP error responses for order
// endpoints.
func mapOrderError(w http.ResponseWriter, err error) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		WriteError(w, http.StatusBadRequest, "validation_error", ve.Message)
	case errors.Is(err, domain.ErrSymbolNotFound):
		WriteError(w, http.StatusNotFound, "symbol_not_found", "No order book found for symbol")
	case errors.Is(err, domain.ErrQueueClosed):
		WriteError(w, http.StatusServiceUnavailable, "service_unavailable", "Order intake is closed")
	default:
		WriteError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}
