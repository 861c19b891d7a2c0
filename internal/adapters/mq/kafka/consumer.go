// Package kafka feeds events from a Kafka topic into the ingestion pipeline.
package kafka

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/okian/gympulse/internal/app"
	"github.com/okian/gympulse/pkg/logger"
	"github.com/okian/gympulse/pkg/metrics"
)

// Reader is the part of *kafkago.Reader the consumer uses.
type Reader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Handler processes one message. Returning ErrRetry redelivers it; any other
// error drops it after logging.
type Handler func(ctx context.Context, key, value []byte) error

// Ingester accepts decoded envelopes.
type Ingester interface {
	Ingest(ctx context.Context, env app.Envelope) (app.IngestResult, error)
}

// NewReader opens a consumer group reader on topic.
func NewReader(brokers []string, topic, groupID string) *kafkago.Reader {
	return kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		MaxWait:        500 * time.Millisecond,
		CommitInterval: 0,
		StartOffset:    kafkago.FirstOffset,
	})
}

// IngestHandler decodes each message value as an event envelope and hands
// it to svc. A full queue asks for redelivery.
func IngestHandler(svc Ingester) Handler {
	return func(ctx context.Context, _, value []byte) error {
		env, err := app.DecodeEnvelopeBytes(value)
		if err != nil {
			return err
		}
		_, err = svc.Ingest(ctx, env)
		if errors.Is(err, app.ErrQueueFull) {
			return ErrRetry
		}
		return err
	}
}

// Consumer reads messages one at a time and commits each once handled.
type Consumer struct {
	reader     Reader
	handler    Handler
	retryDelay time.Duration
	healthy    atomic.Bool
	logger     logger.Logger
}

// NewConsumer creates a Consumer over r.
func NewConsumer(r Reader, h Handler, opts ...Option) *Consumer {
	c := &Consumer{
		reader:     r,
		handler:    h,
		retryDelay: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.Get().Named("kafka-consumer")
	}
	return c
}

var _ app.HealthChecker = (*Consumer)(nil)

// Healthy reports whether the last fetch succeeded.
func (c *Consumer) Healthy() bool {
	return c.healthy.Load()
}

// Run consumes until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info(ctx, "kafka consumer started")
	defer c.logger.Info(ctx, "kafka consumer stopped")

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.healthy.Store(false)
			metrics.RecordErrorByComponent("kafka", "fetch")
			c.logger.Error(ctx, "error fetching kafka message", logger.Error(err))
			if !c.sleep(ctx) {
				return nil
			}
			continue
		}
		c.healthy.Store(true)

		if !c.handle(ctx, msg) {
			return nil
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			metrics.RecordErrorByComponent("kafka", "commit")
			c.logger.Error(ctx, "error committing kafka message",
				logger.Int64("offset", msg.Offset),
				logger.Error(err),
			)
		}
	}
}

// handle runs the handler until it stops asking for a retry. It returns
// false when ctx ended first.
func (c *Consumer) handle(ctx context.Context, msg kafkago.Message) bool {
	for {
		err := c.handler(ctx, msg.Key, msg.Value)
		switch {
		case err == nil:
			metrics.RecordKafkaMessage("ingested")
			return true
		case errors.Is(err, ErrRetry):
			metrics.RecordKafkaMessage("retry")
			c.logger.Warn(ctx, "kafka message deferred",
				logger.Int("partition", msg.Partition),
				logger.Int64("offset", msg.Offset),
			)
			if !c.sleep(ctx) {
				return false
			}
		default:
			metrics.RecordKafkaMessage("rejected")
			c.logger.Warn(ctx, "kafka message dropped",
				logger.Int("partition", msg.Partition),
				logger.Int64("offset", msg.Offset),
				logger.Error(err),
			)
			return true
		}
	}
}

func (c *Consumer) sleep(ctx context.Context) bool {
	t := time.NewTimer(c.retryDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// Close closes the underlying reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
