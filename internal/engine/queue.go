package engine

import (
	"context"
	"sync"

	"github.com/eapache/queue"

	"github.com/efreitasn/livestock/internal/domain"
)

// OrderQueue is an unbounded FIFO carrying orders from any number of
// producers to the single matching engine consumer. Enqueue never blocks.
type OrderQueue struct {
	mu        sync.Mutex
	items     *queue.Queue
	closed    bool
	ready     chan struct{} // capacity 1, signalled on every Enqueue
	done      chan struct{} // closed by Close
	closeOnce sync.Once
}

// NewOrderQueue creates an empty, open OrderQueue.
func NewOrderQueue() *OrderQueue {
	return &OrderQueue{
		items: queue.New(),
		ready: make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

// Enqueue appends the order. It returns domain.ErrQueueClosed once the
// queue has been closed and otherwise always succeeds.
func (q *OrderQueue) Enqueue(order *domain.Order) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return domain.ErrQueueClosed
	}
	q.items.Add(order)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
	return nil
}

// Dequeue returns the oldest order, waiting until one is available. Orders
// enqueued before Close are still delivered after it; once they are gone
// Dequeue returns domain.ErrQueueClosed. It returns ctx.Err() if ctx ends
// while waiting.
func (q *OrderQueue) Dequeue(ctx context.Context) (*domain.Order, error) {
	for {
		q.mu.Lock()
		if q.items.Length() > 0 {
			order := q.items.Remove().(*domain.Order)
			q.mu.Unlock()
			return order, nil
		}
		closed := q.closed
		q.mu.Unlock()

		if closed {
			return nil, domain.ErrQueueClosed
		}

		select {
		case <-q.ready:
		case <-q.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Close stops the queue from accepting orders and wakes a waiting consumer.
// It is safe to call more than once.
func (q *OrderQueue) Close() {
	q.closeOnce.Do(func() {
		q.mu.Lock()
		q.closed = true
		q.mu.Unlock()
		close(q.done)
	})
}

// Closed reports whether Close has been called.
func (q *OrderQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Len returns the number of orders waiting to be dequeued.
func (q *OrderQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Length()
}
