package service

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/efreitasn/livestock/internal/domain"
	"github.com/efreitasn/livestock/internal/engine"
	"github.com/efreitasn/livestock/internal/metrics"
)

var orderSymbolRegex = regexp.MustCompile(`^[A-Z][A-Z0-9.]{0,9}$`)

// MaxOrderQuantity bounds a single order so aggregated level quantities
// cannot overflow.
const MaxOrderQuantity = 1_000_000_000

// SubmitOrderRequest represents the input for order submission.
type SubmitOrderRequest struct {
	Symbol   string          `json:"symbol" validate:"required"`
	Price    decimal.Decimal `json:"price" validate:"gt=0"`
	Quantity int64           `json:"quantity" validate:"gt=0,lte=1000000000"`
	Side     string          `json:"side" validate:"required"`
}

// OrderService validates incoming orders and hands them to the matching
// engine's queue. Matching happens asynchronously.
type OrderService struct {
	queue    *engine.OrderQueue
	symbols  *domain.SymbolRegistry
	metrics  *metrics.Metrics
	validate *validator.Validate
	now      func() time.Time
}

// NewOrderService creates a new OrderService with the given dependencies.
func NewOrderService(queue *engine.OrderQueue, symbols *domain.SymbolRegistry, m *metrics.Metrics) *OrderService {
	return &OrderService{
		queue:    queue,
		symbols:  symbols,
		metrics:  m,
		validate: newValidator(),
		now:      time.Now,
	}
}

// newValidator returns a validator that reports JSON field names and
// compares decimals numerically.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	return v
}

// SubmitOrder validates the request, assigns an id and enqueues the order.
// The returned order is a copy taken before the engine sees it.
func (s *OrderService) SubmitOrder(req SubmitOrderRequest) (*domain.Order, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, validationError(err)
	}

	symbol := domain.NormalizeSymbol(req.Symbol)
	if !orderSymbolRegex.MatchString(symbol) {
		return nil, &domain.ValidationError{
			Message: "symbol must match ^[A-Z][A-Z0-9.]{0,9}$",
		}
	}

	side, err := domain.ParseOrderSide(strings.TrimSpace(req.Side))
	if err != nil {
		return nil, err
	}

	cents, err := domain.PriceToCents(req.Price)
	if err != nil {
		return nil, &domain.ValidationError{Message: "price " + err.Error()}
	}
	if cents <= 0 {
		return nil, &domain.ValidationError{Message: "price must be at least 0.01"}
	}

	order := &domain.Order{
		OrderID:           uuid.NewString(),
		Symbol:            symbol,
		Side:              side,
		Price:             cents,
		Quantity:          req.Quantity,
		RemainingQuantity: req.Quantity,
		CreatedAt:         s.now().UTC(),
	}
	accepted := *order

	if err := s.queue.Enqueue(order); err != nil {
		return nil, err
	}
	s.symbols.Register(symbol)
	s.metrics.OrdersEnqueued.Inc()
	s.metrics.QueueDepth.Set(float64(s.queue.Len()))

	return &accepted, nil
}

// validationError turns validator output into a domain.ValidationError
// describing the first failing field.
func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &domain.ValidationError{Message: err.Error()}
	}

	fe := fieldErrs[0]
	switch fe.Tag() {
	case "required":
		return &domain.ValidationError{Message: fmt.Sprintf("%s is required", fe.Field())}
	case "gt":
		return &domain.ValidationError{Message: fmt.Sprintf("%s must be positive", fe.Field())}
	case "lte":
		return &domain.ValidationError{Message: fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())}
	default:
		return &domain.ValidationError{Message: fmt.Sprintf("%s is invalid", fe.Field())}
	}
}
