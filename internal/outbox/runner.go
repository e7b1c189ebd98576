package outbox

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/priceping/priceping/internal/domain/outbox"
	"github.com/priceping/priceping/internal/obs"
)

// Runner drains the outbox table. Each worker polls on its own ticker, claims
// a batch, dispatches every message through the kind handler, and marks the
// ones that went through. Failed messages keep their IN_PROGRESS status and
// are re-picked after the TTL expires.
type Runner struct {
	log      *zap.Logger
	repo     outbox.Repository
	dispatch outbox.GlobalHandler

	workers       int
	batchSize     int
	waitTime      time.Duration
	inProgressTTL time.Duration

	mPicked    prometheus.Counter
	mOk        prometheus.Counter
	mErr       prometheus.Counter
	mTickDur   prometheus.Histogram
	mBatchSize prometheus.Gauge

	tracer trace.Tracer
}

func NewRunner(
	log *zap.Logger,
	repo outbox.Repository,
	dispatch outbox.GlobalHandler,
	workers int,
	batchSize int,
	waitTime time.Duration,
	inProgressTTL time.Duration,
) *Runner {
	return &Runner{
		log:           log,
		repo:          repo,
		dispatch:      dispatch,
		workers:       workers,
		batchSize:     batchSize,
		waitTime:      waitTime,
		inProgressTTL: inProgressTTL,
		mPicked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "outbox_picked_total", Help: "Outbox rows claimed for dispatch.",
		}),
		mOk: promauto.NewCounter(prometheus.CounterOpts{
			Name: "outbox_processed_ok_total", Help: "Outbox rows dispatched and marked done.",
		}),
		mErr: promauto.NewCounter(prometheus.CounterOpts{
			Name: "outbox_processed_err_total", Help: "Outbox pick, dispatch, or mark failures.",
		}),
		mTickDur: promauto.NewHistogram(prometheus.HistogramOpts{
			Name: "outbox_tick_duration_seconds", Help: "Duration of one drain tick.",
			Buckets: prometheus.DefBuckets,
		}),
		mBatchSize: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "outbox_last_batch_size", Help: "Rows claimed by the most recent tick.",
		}),
		tracer: otel.Tracer("outbox.runner"),
	}
}

// Start launches the worker goroutines and returns. They stop when ctx is
// canceled.
func (r *Runner) Start(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < r.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.loop(ctx)
		}()
	}
}

func (r *Runner) loop(ctx context.Context) {
	r.log.Info("outbox worker started", zap.Duration("wait", r.waitTime))

	ticker := time.NewTicker(r.waitTime)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info("outbox worker stopped")
			return
		case <-ticker.C:
			start := time.Now()
			r.drainOnce(ctx)
			r.mTickDur.Observe(time.Since(start).Seconds())
		}
	}
}

func (r *Runner) drainOnce(ctx context.Context) {
	ctx, span := r.tracer.Start(ctx, "outbox.tick", trace.WithAttributes(
		attribute.Int("batch.limit", r.batchSize),
		attribute.String("in_progress_ttl", r.inProgressTTL.String()),
	))
	defer span.End()

	batch, err := r.repo.PickBatch(ctx, r.batchSize, r.inProgressTTL)
	if err != nil {
		span.RecordError(err)
		r.mErr.Inc()
		obs.WithTrace(ctx, r.log).Error("outbox pick failed", zap.Error(err))
		return
	}
	r.mPicked.Add(float64(len(batch)))
	r.mBatchSize.Set(float64(len(batch)))
	if len(batch) == 0 {
		return
	}

	done := make([]string, 0, len(batch))
	for _, m := range batch {
		if r.dispatchOne(ctx, m) {
			done = append(done, m.IdempotencyKey)
			r.mOk.Inc()
		}
	}

	if err := r.repo.MarkSuccess(ctx, done); err != nil {
		span.RecordError(err)
		r.mErr.Inc()
		obs.WithTrace(ctx, r.log).Error("outbox mark success failed", zap.Error(err))
	}
}

func (r *Runner) dispatchOne(ctx context.Context, m outbox.Message) bool {
	ctx, span := r.tracer.Start(ctx, "outbox.dispatch", trace.WithAttributes(
		attribute.String("outbox.key", m.IdempotencyKey),
		attribute.Int("outbox.kind", int(m.Kind)),
	))
	defer span.End()

	h, err := r.dispatch(m.Kind)
	if err != nil {
		span.RecordError(err)
		r.mErr.Inc()
		obs.WithTrace(ctx, r.log).Error("no handler for outbox kind",
			zap.Int("kind", int(m.Kind)), zap.Error(err))
		return false
	}

	if err := h(ctx, m.Data); err != nil {
		span.RecordError(err)
		r.mErr.Inc()
		obs.WithTrace(ctx, r.log).Error("outbox dispatch failed",
			zap.String("key", m.IdempotencyKey),
			zap.Int("kind", int(m.Kind)),
			zap.Error(err))
		return false
	}
	return true
}
