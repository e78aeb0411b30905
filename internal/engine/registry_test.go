package engine

import (
	"sync"
	"testing"
)

func TestBookRegistry_GetOrCreate_ReturnsSameBook(t *testing.T) {
	r := NewBookRegistry()
	a := r.GetOrCreate("AAPL")
	b := r.GetOrCreate("AAPL")
	if a != b {
		t.Error("GetOrCreate returned different books for the same symbol")
	}
	if a.Symbol() != "AAPL" {
		t.Errorf("Symbol() = %q, want AAPL", a.Symbol())
	}
}

func TestBookRegistry_Get_UnknownSymbol(t *testing.T) {
	r := NewBookRegistry()
	if _, ok := r.Get("NOPE"); ok {
		t.Fatal("Get returned a book for a never-referenced symbol")
	}

	book := r.GetOrCreate("NOPE")
	if _, ok := book.BestBid(); ok {
		t.Error("new book should have no best bid")
	}
	if _, ok := book.BestAsk(); ok {
		t.Error("new book should have no best ask")
	}
	if got, ok := r.Get("NOPE"); !ok || got != book {
		t.Error("Get should return the book created by GetOrCreate")
	}
}

func TestBookRegistry_ConcurrentFirstAccess(t *testing.T) {
	r := NewBookRegistry()
	const n = 100
	books := make([]*OrderBook, n)

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			books[i] = r.GetOrCreate("NEW")
		}(i)
	}
	close(start)
	wg.Wait()

	for i := 1; i < n; i++ {
		if books[i] != books[0] {
			t.Fatalf("goroutine %d got a different book", i)
		}
	}
	if got := len(r.All()); got != 1 {
		t.Errorf("All() has %d books, want 1", got)
	}
}

func TestBookRegistry_All_SortedBySymbol(t *testing.T) {
	r := NewBookRegistry()
	r.GetOrCreate("MSFT")
	r.GetOrCreate("AAPL")
	r.GetOrCreate("GOOG")

	all := r.All()
	want := []string{"AAPL", "GOOG", "MSFT"}
	if len(all) != len(want) {
		t.Fatalf("All() returned %d books, want %d", len(all), len(want))
	}
	for i, sb := range all {
		if sb.Symbol != want[i] || sb.Book.Symbol() != want[i] {
			t.Errorf("All()[%d] = %s, want %s", i, sb.Symbol, want[i])
		}
	}
}
