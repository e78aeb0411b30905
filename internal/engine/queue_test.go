package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/efreitasn/livestock/internal/domain"
)

func TestOrderQueue_FIFO(t *testing.T) {
	q := NewOrderQueue()
	for i := 0; i < 5; i++ {
		if err := q.Enqueue(newOrder(fmt.Sprintf("o%d", i), domain.OrderSideBuy, 100, 1)); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}
	if q.Len() != 5 {
		t.Fatalf("Len() = %d, want 5", q.Len())
	}

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		o, err := q.Dequeue(ctx)
		if err != nil {
			t.Fatalf("Dequeue: %v", err)
		}
		if want := fmt.Sprintf("o%d", i); o.OrderID != want {
			t.Errorf("Dequeue() = %s, want %s", o.OrderID, want)
		}
	}
}

func TestOrderQueue_DequeueWaitsForEnqueue(t *testing.T) {
	q := NewOrderQueue()
	got := make(chan *domain.Order, 1)

	go func() {
		o, err := q.Dequeue(context.Background())
		if err == nil {
			got <- o
		}
	}()

	select {
	case <-got:
		t.Fatal("Dequeue returned before anything was enqueued")
	case <-time.After(20 * time.Millisecond):
	}

	if err := q.Enqueue(newOrder("late", domain.OrderSideSell, 100, 1)); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	select {
	case o := <-got:
		if o.OrderID != "late" {
			t.Errorf("Dequeue() = %s, want late", o.OrderID)
		}
	case <-time.After(time.Second):
		t.Fatal("Dequeue did not wake up after Enqueue")
	}
}

func TestOrderQueue_CloseUnblocksWaitingConsumer(t *testing.T) {
	q := NewOrderQueue()
	errCh := make(chan error, 1)

	go func() {
		_, err := q.Dequeue(context.Background())
		errCh <- err
	}()

	time.Sleep(10 * time.Millisecond)
	q.Close()

	select {
	case err := <-errCh:
		if !errors.Is(err, domain.ErrQueueClosed) {
			t.Errorf("Dequeue error = %v, want ErrQueueClosed", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Close did not unblock Dequeue")
	}
}

func TestOrderQueue_CloseDeliversBufferedOrders(t *testing.T) {
	q := NewOrderQueue()
	_ = q.Enqueue(newOrder("a", domain.OrderSideBuy, 100, 1))
	_ = q.Enqueue(newOrder("b", domain.OrderSideBuy, 100, 1))
	q.Close()
	q.Close() // idempotent

	if !q.Closed() {
		t.Fatal("Closed() = false after Close")
	}
	if err := q.Enqueue(newOrder("c", domain.OrderSideBuy, 100, 1)); !errors.Is(err, domain.ErrQueueClosed) {
		t.Errorf("Enqueue after Close error = %v, want ErrQueueClosed", err)
	}

	ctx := context.Background()
	for _, want := range []string{"a", "b"} {
		o, err := q.Dequeue(ctx)
		if err != nil {
			t.Fatalf("Dequeue: %v", err)
		}
		if o.OrderID != want {
			t.Errorf("Dequeue() = %s, want %s", o.OrderID, want)
		}
	}
	if _, err := q.Dequeue(ctx); !errors.Is(err, domain.ErrQueueClosed) {
		t.Errorf("Dequeue on drained closed queue error = %v, want ErrQueueClosed", err)
	}
}

func TestOrderQueue_DequeueHonoursContext(t *testing.T) {
	q := NewOrderQueue()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := q.Dequeue(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Dequeue error = %v, want context.DeadlineExceeded", err)
	}
}

func TestOrderQueue_ConcurrentProducers(t *testing.T) {
	q := NewOrderQueue()
	const producers, perProducer = 8, 250

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				if err := q.Enqueue(newOrder(fmt.Sprintf("p%d-%d", p, i), domain.OrderSideBuy, 100, 1)); err != nil {
					t.Errorf("Enqueue: %v", err)
					return
				}
			}
		}(p)
	}
	wg.Wait()
	q.Close()

	seen := make(map[string]bool)
	next := make(map[int]int) // per-producer FIFO check
	for {
		o, err := q.Dequeue(context.Background())
		if errors.Is(err, domain.ErrQueueClosed) {
			break
		}
		if err != nil {
			t.Fatalf("Dequeue: %v", err)
		}
		if seen[o.OrderID] {
			t.Fatalf("order %s delivered twice", o.OrderID)
		}
		seen[o.OrderID] = true

		var p, i int
		if _, err := fmt.Sscanf(o.OrderID, "p%d-%d", &p, &i); err != nil {
			t.Fatalf("parse %s: %v", o.OrderID, err)
		}
		if i != next[p] {
			t.Fatalf("producer %d: got item %d, want %d", p, i, next[p])
		}
		next[p]++
	}

	if len(seen) != producers*perProducer {
		t.Errorf("delivered %d orders, want %d", len(seen), producers*perProducer)
	}
}
