package broadcast

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/efreitasn/livestock/internal/domain"
	"github.com/efreitasn/livestock/internal/engine"
	"github.com/efreitasn/livestock/internal/metrics"
	"github.com/efreitasn/livestock/internal/wire"
)

// DefaultPublishTimeout bounds a single Kafka write.
const DefaultPublishTimeout = 5 * time.Second

// messageWriter is the subset of *kafka.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher mirrors engine events to a Kafka topic, keyed by symbol.
// Events are written one at a time by a single worker in the order they
// were published. At most maxPending events wait for the worker; further
// events are dropped until it catches up.
type KafkaPublisher struct {
	writer  messageWriter
	timeout time.Duration
	events  chan kafka.Message
	done    chan struct{}
	metrics *metrics.Metrics
	logger  *slog.Logger

	mu     sync.RWMutex
	closed bool
}

// NewKafkaPublisher creates a publisher writing to topic on brokers.
func NewKafkaPublisher(brokers []string, topic string, timeout time.Duration, maxPending int, m *metrics.Metrics, logger *slog.Logger) *KafkaPublisher {
	return newKafkaPublisher(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
	}, timeout, maxPending, m, logger)
}

func newKafkaPublisher(w messageWriter, timeout time.Duration, maxPending int, m *metrics.Metrics, logger *slog.Logger) *KafkaPublisher {
	if timeout <= 0 {
		timeout = DefaultPublishTimeout
	}
	if maxPending <= 0 {
		maxPending = DefaultClientBuffer
	}
	p := &KafkaPublisher{
		writer:  w,
		timeout: timeout,
		events:  make(chan kafka.Message, maxPending),
		done:    make(chan struct{}),
		metrics: m,
		logger:  logger,
	}
	go p.run()
	return p
}

// PublishBook writes a snapshot event.
func (p *KafkaPublisher) PublishBook(snapshot engine.BookSnapshot) {
	p.publish(snapshot.Symbol, serverMessage{Type: TypeOrderBookUpdate, Symbol: snapshot.Symbol, Data: wire.NewBook(snapshot)})
}

// PublishTrade writes a trade event.
func (p *KafkaPublisher) PublishTrade(trade *domain.Trade) {
	p.publish(trade.Symbol, serverMessage{Type: TypeTradeUpdate, Symbol: trade.Symbol, Data: wire.NewTrade(trade)})
}

// Close stops accepting events, waits for pending ones to be written and
// closes the writer. It is safe to call more than once.
func (p *KafkaPublisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		<-p.done
		return nil
	}
	p.closed = true
	close(p.events)
	p.mu.Unlock()

	<-p.done
	return p.writer.Close()
}

func (p *KafkaPublisher) publish(symbol string, msg serverMessage) {
	value, err := json.Marshal(msg)
	if err != nil {
		p.logger.Error("failed to encode kafka message", slog.String("error", err.Error()))
		return
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.metrics.BroadcastDropped.WithLabelValues("kafka").Inc()
		return
	}

	select {
	case p.events <- kafka.Message{Key: []byte(symbol), Value: value}:
	default:
		p.metrics.BroadcastDropped.WithLabelValues("kafka").Inc()
	}
}

func (p *KafkaPublisher) run() {
	defer close(p.done)

	for msg := range p.events {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		err := p.writer.WriteMessages(ctx, msg)
		cancel()
		if err != nil {
			p.metrics.BroadcastDropped.WithLabelValues("kafka").Inc()
			p.logger.Warn("kafka publish failed",
				slog.String("symbol", string(msg.Key)),
				slog.String("error", err.Error()),
			)
		}
	}
}
