// Package broadcast pushes book snapshots and trades from the matching
// engine to websocket subscribers and, optionally, to a Kafka topic.
package broadcast

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/efreitasn/livestock/internal/domain"
	"github.com/efreitasn/livestock/internal/engine"
	"github.com/efreitasn/livestock/internal/metrics"
	"github.com/efreitasn/livestock/internal/wire"
)

// Message types sent to websocket clients.
const (
	TypeOrderBookUpdate = "OrderBookUpdate"
	TypeTradeUpdate     = "TradeUpdate"
	TypeSubscribed      = "Subscribed"
	TypeUnsubscribed    = "Unsubscribed"
	TypeError           = "Error"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096

	// DefaultClientBuffer is the per-client outbound queue length.
	DefaultClientBuffer = 256
)

// clientMessage is what a websocket client sends.
type clientMessage struct {
	Action string `json:"action"`
	Symbol string `json:"symbol"`
}

// serverMessage is what the hub sends to a websocket client.
type serverMessage struct {
	Type    string `json:"type"`
	Symbol  string `json:"symbol,omitempty"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// Hub groups websocket clients by subscribed symbol. Publishing never
// blocks: each client has a bounded outbound queue and messages for a full
// queue are dropped.
type Hub struct {
	upgrader websocket.Upgrader
	buffer   int
	metrics  *metrics.Metrics
	logger   *slog.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
	groups  map[string]map[*client]struct{}
}

// NewHub creates a Hub. A non-positive buffer selects DefaultClientBuffer.
// checkOrigin may be nil to accept every origin.
func NewHub(buffer int, checkOrigin func(r *http.Request) bool, m *metrics.Metrics, logger *slog.Logger) *Hub {
	if buffer <= 0 {
		buffer = DefaultClientBuffer
	}
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		buffer:  buffer,
		metrics: m,
		logger:  logger,
		clients: make(map[*client]struct{}),
		groups:  make(map[string]map[*client]struct{}),
	}
}

// ServeHTTP upgrades the request and serves the client until it
// disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	c := &client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, h.buffer),
		done: make(chan struct{}),
		subs: make(map[string]struct{}),
	}
	h.register(c)
	h.logger.Debug("websocket client connected", slog.String("remote_addr", r.RemoteAddr))

	go c.writePump()
	c.readPump()
}

// PublishBook sends a snapshot to the symbol's subscribers.
func (h *Hub) PublishBook(snapshot engine.BookSnapshot) {
	h.publish(snapshot.Symbol, serverMessage{
		Type: TypeOrderBookUpdate,
		Data: wire.NewBook(snapshot),
	})
}

// PublishTrade sends a trade to the symbol's subscribers.
func (h *Hub) PublishTrade(trade *domain.Trade) {
	h.publish(trade.Symbol, serverMessage{
		Type: TypeTradeUpdate,
		Data: wire.NewTrade(trade),
	})
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Subscribers returns the number of clients subscribed to symbol.
func (h *Hub) Subscribers(symbol string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[domain.NormalizeSymbol(symbol)])
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.close()
	}
}

func (h *Hub) publish(symbol string, msg serverMessage) {
	h.mu.RLock()
	group := h.groups[symbol]
	if len(group) == 0 {
		h.mu.RUnlock()
		return
	}
	targets := make([]*client, 0, len(group))
	for c := range group {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to encode broadcast message",
			slog.String("type", msg.Type),
			slog.String("error", err.Error()),
		)
		return
	}

	for _, c := range targets {
		if !c.enqueue(payload) {
			h.metrics.BroadcastDropped.WithLabelValues("websocket").Inc()
		}
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
	for symbol := range c.subs {
		h.leaveLocked(c, symbol)
	}
}

func (h *Hub) join(c *client, symbol string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	group, ok := h.groups[symbol]
	if !ok {
		group = make(map[*client]struct{})
		h.groups[symbol] = group
	}
	group[c] = struct{}{}
	c.subs[symbol] = struct{}{}
}

func (h *Hub) leave(c *client, symbol string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(c, symbol)
}

func (h *Hub) leaveLocked(c *client, symbol string) {
	delete(c.subs, symbol)
	group := h.groups[symbol]
	delete(group, c)
	if len(group) == 0 {
		delete(h.groups, symbol)
	}
}

// client is one websocket connection. subs is guarded by hub.mu.
type client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	subs      map[string]struct{}
}

// enqueue queues payload without blocking and reports whether it was
// accepted.
func (c *client) enqueue(payload []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

func (c *client) reply(msg serverMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	if !c.enqueue(payload) {
		c.hub.metrics.BroadcastDropped.WithLabelValues("websocket").Inc()
	}
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

func (c *client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg clientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("websocket read failed", slog.String("error", err.Error()))
			}
			return
		}
		c.handle(msg)
	}
}

func (c *client) handle(msg clientMessage) {
	symbol := domain.NormalizeSymbol(msg.Symbol)
	if symbol == "" {
		c.reply(serverMessage{Type: TypeError, Message: "symbol is required"})
		return
	}

	switch msg.Action {
	case "subscribe":
		c.hub.join(c, symbol)
		c.reply(serverMessage{Type: TypeSubscribed, Symbol: symbol})
	case "unsubscribe":
		c.hub.leave(c, symbol)
		c.reply(serverMessage{Type: TypeUnsubscribed, Symbol: symbol})
	default:
		c.reply(serverMessage{Type: TypeError, Symbol: symbol, Message: "action must be one of: subscribe, unsubscribe"})
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case payload := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}
