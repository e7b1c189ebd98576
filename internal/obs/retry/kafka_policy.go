package retry

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// DefaultKafkaPolicy is the policy wrapped around outbox-to-Kafka publishes:
// six attempts with exponential backoff from 200ms to 30s. Every error is
// treated as transient since kafka-go surfaces broker and network failures
// the same way.
func DefaultKafkaPolicy(log *zap.Logger) Policy {
	return Policy{
		Name:     "kafka_publish",
		Attempts: 6,
		Backoff:  ExpoJitter{Base: 200 * time.Millisecond, Max: 30 * time.Second, Jitter: 0.2},
		OnAttempt: func(i int, err error) {
			if log != nil {
				log.Warn("publish retry", zap.Int("attempt", i+1), zap.Error(err))
			}
		},
		OnExhaust: func(err error) {
			if log == nil || errors.Is(err, context.Canceled) {
				return
			}
			log.Error("publish retries exhausted", zap.Error(err))
		},
	}
}
