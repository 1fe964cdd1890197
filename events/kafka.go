package events

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	apperrors "github.com/kbukum/scribe/errors"
	"github.com/kbukum/scribe/logger"
	"github.com/kbukum/scribe/resilience"
)

// messageWriter is the part of kafka-go's Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// KafkaPublisher writes events to one topic with retries.
type KafkaPublisher struct {
	writer messageWriter
	cfg    Config
	log    *logger.Logger
	mu     sync.RWMutex
	closed bool
}

var _ Publisher = (*KafkaPublisher)(nil)

// New returns a KafkaPublisher, or a NopPublisher when cfg is disabled.
func New(cfg Config) (Publisher, error) {
	if !cfg.Enabled {
		return NopPublisher{}, nil
	}
	return NewKafkaPublisher(cfg)
}

// NewKafkaPublisher creates a publisher backed by a kafka-go Writer. No
// connection is made until the first Publish.
func NewKafkaPublisher(cfg Config) (*KafkaPublisher, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	transport, err := newTransport(&cfg)
	if err != nil {
		return nil, fmt.Errorf("events: kafka transport: %w", err)
	}

	p := &KafkaPublisher{cfg: cfg, log: logger.Get("events")}
	p.writer = &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Transport:    transport,
		Balancer:     &kafkago.Hash{},
		BatchTimeout: cfg.BatchTimeout,
		RequiredAcks: kafkago.RequiredAcks(cfg.RequiredAcks),
		Compression:  resolveCompression(cfg.Compression),
		WriteTimeout: cfg.WriteTimeout,
		ErrorLogger: kafkago.LoggerFunc(func(msg string, args ...interface{}) {
			p.log.Error("writer: "+fmt.Sprintf(msg, args...), nil)
		}),
	}
	p.log.Info("kafka publisher initialized", logger.Fields(
		"brokers", cfg.Brokers, "topic", cfg.Topic, "compression", cfg.Compression,
	))
	return p, nil
}

// Publish writes event keyed by its Subject, retrying transient failures.
func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		return apperrors.ServiceUnavailable("events").WithDetail("reason", "publisher closed")
	}

	data, err := event.ToJSON()
	if err != nil {
		return fmt.Errorf("events: marshal: %w", err)
	}
	key := event.Subject
	if key == "" {
		key = event.ID
	}
	msg := kafkago.Message{
		Key:   []byte(key),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "event-id", Value: []byte(event.ID)},
			{Key: "event-type", Value: []byte(event.Type)},
			{Key: "event-source", Value: []byte(event.Source)},
			{Key: "content-type", Value: []byte("application/json")},
		},
		Time: event.Timestamp,
	}

	err = resilience.RetryFunc(ctx, resilience.RetryConfig{
		MaxAttempts:    p.cfg.Retries,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     2 * time.Second,
		BackoffFactor:  2,
		RetryIf:        isRetryable,
	}, func() error {
		return p.writer.WriteMessages(ctx, msg)
	})
	if err != nil {
		return fmt.Errorf("events: publish %s: %w", event.Type, err)
	}
	p.log.WithContext(ctx).Debug("event published", logger.Fields(
		"event_id", event.ID, "event_type", event.Type, logger.FieldSource, event.Subject,
	))
	return nil
}

// Close flushes and closes the writer.
func (p *KafkaPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.writer.Close()
}

// isRetryable treats connection-level and transient broker errors as
// retryable; everything else fails fast.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	for _, p := range []string{
		"message too large",
		"invalid topic",
		"unknown topic",
		"authorization failed",
	} {
		if strings.Contains(s, p) {
			return false
		}
	}
	for _, p := range []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"i/o timeout",
		"no route to host",
		"broker not available",
		"leader not available",
		"not enough replicas",
		"request timed out",
		"dial tcp",
		"temporary",
	} {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
