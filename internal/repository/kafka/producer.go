package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Producer writes JSON messages to a single topic, keyed so that all events
// for one monitor land on the same partition.
type Producer struct {
	w     *kafka.Writer
	topic string
	log   *zap.Logger
}

func NewProducer(brokers []string, topic string) *Producer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	return &Producer{
		w:     w,
		topic: topic,
		log:   producerLog(zap.L(), topic),
	}
}

func producerLog(l *zap.Logger, topic string) *zap.Logger {
	return l.With(zap.String("component", "kafka.producer"), zap.String("topic", topic))
}

func (p *Producer) WithLogger(l *zap.Logger) *Producer {
	if l == nil {
		return p
	}
	cp := *p
	cp.log = producerLog(l, p.topic)
	return &cp
}

// PublishJSON marshals v and writes it under key. The active trace context is
// injected into message headers so consumers can continue the trace.
func (p *Producer) PublishJSON(ctx context.Context, key []byte, v any) error {
	value, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal kafka payload: %w", err)
	}

	ctx, span := otel.Tracer("kafka.producer").Start(ctx, "kafka.produce "+p.topic,
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			semconv.MessagingSystemKafka,
			semconv.MessagingDestinationName(p.topic),
			semconv.MessagingOperationPublish,
		),
	)
	defer span.End()

	carrier := injectCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	err = p.w.WriteMessages(ctx, kafka.Message{
		Key:     key,
		Value:   value,
		Headers: carrier.headers(),
	})
	if err != nil {
		span.RecordError(err)
		p.log.Error("write failed", zap.Error(err))
		return err
	}

	p.log.Debug("published", zap.ByteString("key", key), zap.Int("bytes", len(value)))
	return nil
}

func (p *Producer) Close() error { return p.w.Close() }

// KeyFromInt64 renders a monitor id as a partition key.
func KeyFromInt64(id int64) []byte { return []byte(strconv.FormatInt(id, 10)) }
