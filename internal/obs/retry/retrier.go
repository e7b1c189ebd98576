// Package retry is the bounded-retry helper used around Kafka publishes and
// other side effects that may fail transiently.
package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel/trace"
)

type Backoff interface {
	Next(attempt int) time.Duration
}

// ExpoJitter doubles the wait per attempt up to Max, then spreads it by
// ±Jitter so a burst of failing outbox messages does not retry in lockstep.
type ExpoJitter struct {
	Base   time.Duration
	Max    time.Duration
	Jitter float64
}

func (b ExpoJitter) Next(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	wait := float64(b.Base) * math.Pow(2, float64(attempt))
	if b.Max > 0 {
		wait = math.Min(wait, float64(b.Max))
	}
	if b.Jitter > 0 {
		spread := (rand.Float64()*2 - 1) * b.Jitter
		wait *= 1 + spread
	}
	return time.Duration(wait)
}

// Policy configures one retried operation. Name labels the metrics;
// Retryable defaults to retrying every error.
type Policy struct {
	Name      string
	Attempts  int
	Backoff   Backoff
	Retryable func(error) bool
	OnAttempt func(attempt int, err error)
	OnExhaust func(lastErr error)
}

var (
	mAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "retry_attempts_total",
		Help: "Attempts made by retried operations, final one included.",
	}, []string{"name"})
	mExhausted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "retry_exhausted_total",
		Help: "Retried operations that still failed after the last attempt.",
	}, []string{"name"})
	mDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "retry_duration_seconds",
		Help:    "Wall time of a retried operation across all its attempts.",
		Buckets: prometheus.DefBuckets,
	}, []string{"name"})
)

// Do runs fn up to p.Attempts times. Context cancellation between attempts
// wins over the policy; a non-retryable error stops immediately.
func Do(ctx context.Context, fn func() error, p Policy) error {
	name := p.Name
	if name == "" {
		name = "default"
	}
	start := time.Now()
	defer func() { mDuration.WithLabelValues(name).Observe(time.Since(start).Seconds()) }()

	attempts := p.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	shouldRetry := p.Retryable
	if shouldRetry == nil {
		shouldRetry = func(err error) bool { return err != nil }
	}

	span := trace.SpanFromContext(ctx)

	var lastErr error
	for i := 0; i < attempts; i++ {
		mAttempts.WithLabelValues(name).Inc()
		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if p.OnAttempt != nil {
			p.OnAttempt(i, lastErr)
		}
		if span.IsRecording() {
			span.AddEvent("retry.attempt")
		}

		if i == attempts-1 || !shouldRetry(lastErr) {
			break
		}

		timer := time.NewTimer(p.Backoff.Next(i))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	mExhausted.WithLabelValues(name).Inc()
	if p.OnExhaust != nil {
		p.OnExhaust(lastErr)
	}
	return lastErr
}
