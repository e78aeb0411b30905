package broadcast

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/efreitasn/livestock/internal/domain"
	"github.com/efreitasn/livestock/internal/engine"
	"github.com/efreitasn/livestock/internal/metrics"
)

type received struct {
	Type    string          `json:"type"`
	Symbol  string          `json:"symbol"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestHub(t *testing.T, buffer int) (*Hub, *metrics.Metrics, string) {
	t.Helper()
	m := metrics.NewUnregistered()
	hub := NewHub(buffer, nil, m, discardLogger())
	srv := httptest.NewServer(hub)
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return hub, m, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, action, symbol string) {
	t.Helper()
	if err := conn.WriteJSON(clientMessage{Action: action, Symbol: symbol}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
}

func receive(t *testing.T, conn *websocket.Conn) received {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg received
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	return msg
}

func snapshotFor(symbol string) engine.BookSnapshot {
	bid := int64(10000)
	return engine.BookSnapshot{
		Version: engine.SnapshotVersion,
		Symbol:  symbol,
		BestBid: &bid,
		Bids:    []engine.PriceLevel{{Price: 10000, TotalQuantity: 5, OrderCount: 1}},
		TakenAt: time.Now(),
	}
}

func TestHub_SubscribeAndReceive(t *testing.T) {
	hub, _, url := newTestHub(t, 0)
	conn := dial(t, url)

	send(t, conn, "subscribe", "aapl")
	ack := receive(t, conn)
	if ack.Type != TypeSubscribed || ack.Symbol != "AAPL" {
		t.Fatalf("ack = %+v, want Subscribed AAPL", ack)
	}
	if got := hub.Subscribers("AAPL"); got != 1 {
		t.Fatalf("Subscribers(AAPL) = %d, want 1", got)
	}

	hub.PublishBook(snapshotFor("AAPL"))
	msg := receive(t, conn)
	if msg.Type != TypeOrderBookUpdate {
		t.Fatalf("type = %q, want %q", msg.Type, TypeOrderBookUpdate)
	}
	var book struct {
		Symbol  string `json:"symbol"`
		BestBid string `json:"best_bid"`
	}
	if err := json.Unmarshal(msg.Data, &book); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if book.Symbol != "AAPL" || book.BestBid != "100" {
		t.Errorf("book = %+v, want AAPL best bid 100", book)
	}

	hub.PublishTrade(&domain.Trade{TradeID: "t1", Symbol: "AAPL", Price: 10000, Quantity: 1, ExecutedAt: time.Now()})
	if msg := receive(t, conn); msg.Type != TypeTradeUpdate {
		t.Errorf("type = %q, want %q", msg.Type, TypeTradeUpdate)
	}
}

func TestHub_OnlySubscribedSymbols(t *testing.T) {
	hub, _, url := newTestHub(t, 0)
	conn := dial(t, url)

	send(t, conn, "subscribe", "MSFT")
	receive(t, conn)

	hub.PublishBook(snapshotFor("AAPL"))
	hub.PublishBook(snapshotFor("MSFT"))

	msg := receive(t, conn)
	if msg.Type != TypeOrderBookUpdate || !strings.Contains(string(msg.Data), `"MSFT"`) {
		t.Errorf("first pushed message = %+v, want MSFT book", msg)
	}
}

func TestHub_Unsubscribe(t *testing.T) {
	hub, _, url := newTestHub(t, 0)
	conn := dial(t, url)

	send(t, conn, "subscribe", "TSLA")
	receive(t, conn)
	send(t, conn, "unsubscribe", "tsla")
	ack := receive(t, conn)
	if ack.Type != TypeUnsubscribed || ack.Symbol != "TSLA" {
		t.Fatalf("ack = %+v, want Unsubscribed TSLA", ack)
	}
	if got := hub.Subscribers("TSLA"); got != 0 {
		t.Errorf("Subscribers(TSLA) = %d, want 0", got)
	}
}

func TestHub_InvalidMessages(t *testing.T) {
	_, _, url := newTestHub(t, 0)
	conn := dial(t, url)

	send(t, conn, "subscribe", "  ")
	if msg := receive(t, conn); msg.Type != TypeError {
		t.Errorf("empty symbol: type = %q, want Error", msg.Type)
	}

	send(t, conn, "watch", "AAPL")
	if msg := receive(t, conn); msg.Type != TypeError {
		t.Errorf("unknown action: type = %q, want Error", msg.Type)
	}
}

func TestHub_DisconnectLeavesGroups(t *testing.T) {
	hub, _, url := newTestHub(t, 0)
	conn := dial(t, url)

	send(t, conn, "subscribe", "GOOG")
	receive(t, conn)
	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Clients() != 0 || hub.Subscribers("GOOG") != 0 {
		if time.Now().After(deadline) {
			t.Fatal("client was not removed after disconnect")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHub_PublishWithoutSubscribers(t *testing.T) {
	hub, m, _ := newTestHub(t, 0)
	hub.PublishBook(snapshotFor("NONE"))
	if got := testutil.ToFloat64(m.BroadcastDropped.WithLabelValues("websocket")); got != 0 {
		t.Errorf("dropped = %v, want 0", got)
	}
}

func TestHub_FullClientBufferDrops(t *testing.T) {
	m := metrics.NewUnregistered()
	hub := NewHub(1, nil, m, discardLogger())

	// A client with no write pump never drains its queue.
	c := &client{
		hub:  hub,
		send: make(chan []byte, 1),
		done: make(chan struct{}),
		subs: make(map[string]struct{}),
	}
	hub.register(c)
	hub.join(c, "X")

	hub.PublishBook(snapshotFor("X"))
	hub.PublishBook(snapshotFor("X"))
	hub.PublishBook(snapshotFor("X"))

	if got := len(c.send); got != 1 {
		t.Errorf("queued = %d, want 1", got)
	}
	if got := testutil.ToFloat64(m.BroadcastDropped.WithLabelValues("websocket")); got != 2 {
		t.Errorf("dropped = %v, want 2", got)
	}
}
