package notify

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	defaultQueueSize    = 256
	defaultWriteTimeout = 5 * time.Second
)

type messageWriter interface {
	WriteMessages(context.Context, string, ...kafka.Message) error
}

// KafkaNotifier publishes notifications to a topic keyed by player id. Notify
// only enqueues; a single background loop writes to the broker. A full queue
// drops the notification.
type KafkaNotifier struct {
	producer messageWriter
	topic    string
	logger   *slog.Logger

	mu     sync.Mutex
	closed bool
	queue  chan Notification
	done   chan struct{}
}

// NewKafkaNotifier starts the delivery loop.
func NewKafkaNotifier(producer messageWriter, topic string, logger *slog.Logger) *KafkaNotifier {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	k := &KafkaNotifier{
		producer: producer,
		topic:    topic,
		logger:   logger,
		queue:    make(chan Notification, defaultQueueSize),
		done:     make(chan struct{}),
	}
	go k.loop()
	return k
}

// Notify enqueues n for delivery.
func (k *KafkaNotifier) Notify(_ context.Context, n Notification) {
	if n.At.IsZero() {
		n.At = time.Now().UTC()
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	if k.closed {
		return
	}
	select {
	case k.queue <- n:
	default:
		k.logger.Warn("notification queue full, dropping", "player_id", n.PlayerID, "event", n.Event)
	}
}

// Close stops accepting notifications and waits for queued ones to be written.
func (k *KafkaNotifier) Close() {
	k.mu.Lock()
	if k.closed {
		k.mu.Unlock()
		return
	}
	k.closed = true
	close(k.queue)
	k.mu.Unlock()
	<-k.done
}

func (k *KafkaNotifier) loop() {
	defer close(k.done)
	for n := range k.queue {
		k.deliver(n)
	}
}

func (k *KafkaNotifier) deliver(n Notification) {
	value, err := json.Marshal(n)
	if err != nil {
		k.logger.Error("failed to encode notification", "player_id", n.PlayerID, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultWriteTimeout)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(n.PlayerID),
		Value: value,
		Time:  n.At,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte(n.Event)},
		},
	}
	if err := k.producer.WriteMessages(ctx, k.topic, msg); err != nil {
		k.logger.Warn("failed to publish notification", "player_id", n.PlayerID, "event", n.Event, "error", err)
	}
}

// KafkaProducer lazily manages writers per topic.
type KafkaProducer struct {
	brokers []string
	mu      sync.Mutex
	writers map[string]*kafka.Writer
}

// NewKafkaProducer creates a KafkaProducer.
func NewKafkaProducer(brokers []string) *KafkaProducer {
	return &KafkaProducer{
		brokers: brokers,
		writers: make(map[string]*kafka.Writer),
	}
}

// WriteMessages writes messages to the given topic, creating a writer if necessary.
func (p *KafkaProducer) WriteMessages(ctx context.Context, topic string, msgs ...kafka.Message) error {
	return p.writerForTopic(topic).WriteMessages(ctx, msgs...)
}

func (p *KafkaProducer) writerForTopic(topic string) *kafka.Writer {
	p.mu.Lock()
	defer p.mu.Unlock()

	if writer, ok := p.writers[topic]; ok {
		return writer
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(p.brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}
	p.writers[topic] = writer
	return writer
}

// Close releases all writers.
func (p *KafkaProducer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	for topic, writer := range p.writers {
		if err := writer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(p.writers, topic)
	}
	return firstErr
}
