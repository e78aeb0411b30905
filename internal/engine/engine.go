package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/efreitasn/livestock/internal/domain"
	"github.com/efreitasn/livestock/internal/metrics"
	"github.com/efreitasn/livestock/internal/store"
)

// ErrAlreadyStarted is returned by Run when the engine has already run.
var ErrAlreadyStarted = errors.New("engine_already_started")

// Broadcaster receives book snapshots and trades from the engine. The
// engine calls it on its own goroutine, so implementations must not block.
type Broadcaster interface {
	PublishBook(snapshot BookSnapshot)
	PublishTrade(trade *domain.Trade)
}

// State is the lifecycle state of the matching engine.
type State int32

const (
	StateStopped State = iota
	StateRunning
	StateDraining
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	default:
		return "stopped"
	}
}

// Engine drains the order queue, matching each order against its symbol's
// book. A single Engine is the only consumer of its queue, so trades for a
// symbol are produced in the order their triggering orders were enqueued.
type Engine struct {
	queue   *OrderQueue
	books   *BookRegistry
	trades  *store.TradeStore
	sink    Broadcaster
	metrics *metrics.Metrics
	logger  *slog.Logger
	depth   int

	state   atomic.Int32
	started atomic.Bool
	done    chan struct{}
}

// NewEngine creates a stopped Engine. depth bounds the number of price
// levels per side in published snapshots.
func NewEngine(
	queue *OrderQueue,
	books *BookRegistry,
	trades *store.TradeStore,
	sink Broadcaster,
	m *metrics.Metrics,
	logger *slog.Logger,
	depth int,
) *Engine {
	return &Engine{
		queue:   queue,
		books:   books,
		trades:  trades,
		sink:    sink,
		metrics: m,
		logger:  logger,
		depth:   depth,
		done:    make(chan struct{}),
	}
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	return State(e.state.Load())
}

// Done is closed once Run has returned.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

// Start launches Run in a background goroutine.
func (e *Engine) Start(ctx context.Context) {
	go func() {
		if err := e.Run(ctx); err != nil {
			e.logger.Error("matching engine did not start", slog.String("error", err.Error()))
		}
	}()
}

// Run processes orders until the queue is closed and drained, or until ctx
// is cancelled. Cancellation lets the in-flight order finish; closing the
// queue additionally processes every order already buffered in it. Run may
// only be called once per Engine.
func (e *Engine) Run(ctx context.Context) error {
	if !e.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	defer close(e.done)

	e.state.Store(int32(StateRunning))
	e.logger.Info("matching engine started")
	defer func() {
		e.state.Store(int32(StateStopped))
		e.logger.Info("matching engine stopped")
	}()

	for {
		if ctx.Err() != nil {
			e.state.Store(int32(StateDraining))
			return nil
		}

		order, err := e.queue.Dequeue(ctx)
		if err != nil {
			// End of stream: queue closed and empty, or ctx cancelled.
			e.state.Store(int32(StateDraining))
			return nil
		}
		if e.queue.Closed() {
			e.state.Store(int32(StateDraining))
		}
		e.metrics.QueueDepth.Set(float64(e.queue.Len()))

		if err := e.process(order); err != nil {
			e.metrics.OrderFailures.Inc()
			e.logger.Error("order processing failed",
				slog.String("order_id", order.OrderID),
				slog.String("symbol", order.Symbol),
				slog.String("error", err.Error()),
			)
			continue
		}
		e.metrics.OrdersProcessed.Inc()
	}
}

// process inserts one order, drains its matches, records the trades and
// publishes every resulting book state. A panic is turned into an error so
// one bad order cannot stop the loop.
func (e *Engine) process(order *domain.Order) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while processing order: %v", r)
		}
	}()

	book := e.books.GetOrCreate(order.Symbol)
	exec, err := book.Process(order, e.depth)
	if err != nil {
		return err
	}

	e.sink.PublishBook(exec.Snapshots[0])
	for i, trade := range exec.Trades {
		e.trades.Record(trade)
		e.metrics.TradesExecuted.WithLabelValues(trade.Symbol).Inc()
		e.logger.Debug("trade executed",
			slog.String("trade_id", trade.TradeID),
			slog.String("symbol", trade.Symbol),
			slog.Int64("price", trade.Price),
			slog.Int64("quantity", trade.Quantity),
		)
		e.sink.PublishTrade(trade)
		e.sink.PublishBook(exec.Snapshots[i+1])
	}
	return nil
}
