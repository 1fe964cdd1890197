package events

import (
	"context"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/kbukum/scribe/logger"
)

// MessageWriter exposes the writer seam to external tests.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// NewWithWriter builds a publisher over w without a broker.
func NewWithWriter(cfg Config, w MessageWriter) *KafkaPublisher {
	cfg.ApplyDefaults()
	return &KafkaPublisher{writer: w, cfg: cfg, log: logger.Nop()}
}

var IsRetryable = isRetryable
