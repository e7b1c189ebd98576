package kafka

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Handler processes one consumed message.
type Handler func(ctx context.Context, key, value []byte) error

type ConsumerConfig struct {
	Brokers       []string
	GroupID       string
	Topic         string
	FromBeginning bool
	Logger        *zap.Logger
}

// Consumer is a group consumer over a single topic with manual offset
// commits.
type Consumer struct {
	reader *kafka.Reader
	log    *zap.Logger
	cfg    *ConsumerConfig
}

func NewConsumer(cfg *ConsumerConfig) *Consumer {
	if cfg.Logger == nil {
		cfg.Logger = zap.L()
	}

	start := kafka.LastOffset
	if cfg.FromBeginning {
		start = kafka.FirstOffset
	}

	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:               cfg.Brokers,
		GroupID:               cfg.GroupID,
		Topic:                 cfg.Topic,
		StartOffset:           start,
		WatchPartitionChanges: true,

		MinBytes:          1e3,
		MaxBytes:          10e6,
		SessionTimeout:    10 * time.Second,
		RebalanceTimeout:  15 * time.Second,
		HeartbeatInterval: 3 * time.Second,
	})

	return &Consumer{reader: r, log: scopedLog(cfg.Logger, cfg), cfg: cfg}
}

func scopedLog(l *zap.Logger, cfg *ConsumerConfig) *zap.Logger {
	return l.With(
		zap.String("component", "kafka.consumer"),
		zap.String("topic", cfg.Topic),
		zap.String("group", cfg.GroupID),
	)
}

func (c *Consumer) WithLogger(l *zap.Logger) *Consumer {
	if l == nil {
		return c
	}
	cp := *c
	cp.log = scopedLog(l, c.cfg)
	return &cp
}

// fetchBackoff grows the pause between failed fetch attempts and resets it
// after a success.
type fetchBackoff struct{ cur time.Duration }

const (
	fetchBackoffMin = 200 * time.Millisecond
	fetchBackoffMax = 5 * time.Second
)

func (b *fetchBackoff) pause() time.Duration {
	if b.cur < fetchBackoffMin {
		b.cur = fetchBackoffMin
		return b.cur
	}
	b.cur *= 2
	if b.cur > fetchBackoffMax {
		b.cur = fetchBackoffMax
	}
	return b.cur
}

func (b *fetchBackoff) reset() { b.cur = 0 }

// Consume fetches messages until ctx is canceled. The trace context injected
// by the producer is restored from message headers, so a check request and
// the worker's fetch show up under one trace. Handler failures are logged and
// the offset is still committed: the check pipeline records its own failures
// on the monitor row, and redelivering the same request would just repeat
// them.
func (c *Consumer) Consume(ctx context.Context, h Handler) error {
	c.log.Info("consumer started")

	tracer := otel.Tracer("kafka.consumer")
	prop := otel.GetTextMapPropagator()

	var backoff fetchBackoff
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.log.Info("consumer stopped")
				return ctx.Err()
			}
			pause := backoff.pause()
			if errors.Is(err, io.EOF) {
				c.log.Debug("fetch EOF, retrying", zap.Duration("pause", pause))
			} else {
				c.log.Warn("fetch failed, retrying", zap.Error(err), zap.Duration("pause", pause))
			}
			select {
			case <-ctx.Done():
				c.log.Info("consumer stopped")
				return ctx.Err()
			case <-time.After(pause):
			}
			continue
		}
		backoff.reset()

		msgCtx := prop.Extract(ctx, extractCarrier(msg.Headers))
		msgCtx, span := tracer.Start(msgCtx, "kafka.consume "+c.cfg.Topic,
			trace.WithSpanKind(trace.SpanKindConsumer),
			trace.WithAttributes(
				semconv.MessagingSystemKafka,
				semconv.MessagingDestinationName(c.cfg.Topic),
				semconv.MessagingOperationReceive,
			),
		)

		if err := h(msgCtx, msg.Key, msg.Value); err != nil {
			span.RecordError(err)
			c.log.Error("handler failed",
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
				zap.Error(err))
		}
		span.End()

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				c.log.Info("consumer stopped during commit")
				return ctx.Err()
			}
			c.log.Warn("commit failed", zap.Error(err))
		}
	}
}

func (c *Consumer) Close() error { return c.reader.Close() }
