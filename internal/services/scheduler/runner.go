package scheduler

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	config "github.com/priceping/priceping/internal/config/scheduler"
)

// Runner drives the usecase on a fixed tick. One tick claims due monitors
// from the database and publishes a check request per monitor.
type Runner struct {
	Log *zap.Logger
	UC  *Usecase
	Cfg *config.SchedCfg

	mFetched prometheus.Counter
	mSent    prometheus.Counter
	mErr     prometheus.Counter
	mLoopDur prometheus.Histogram
}

func New(log *zap.Logger, uc *Usecase, cfg *config.SchedCfg) *Runner {
	return &Runner{
		Log: log,
		UC:  uc,
		Cfg: cfg,
		mFetched: promauto.NewCounter(prometheus.CounterOpts{
			Name: "scheduler_monitors_fetched_total", Help: "Due monitors claimed from the database.",
		}),
		mSent: promauto.NewCounter(prometheus.CounterOpts{
			Name: "scheduler_messages_sent_total", Help: "Check requests published to Kafka.",
		}),
		mErr: promauto.NewCounter(prometheus.CounterOpts{
			Name: "scheduler_errors_total", Help: "Fetch and publish failures.",
		}),
		mLoopDur: promauto.NewHistogram(prometheus.HistogramOpts{
			Name: "scheduler_loop_duration_seconds", Help: "Duration of one scheduling tick.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// Run ticks immediately, then on every Cfg.Tick until ctx is canceled. A
// failed tick is logged and the loop keeps going; monitors it missed stay
// due and are claimed on the next pass.
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.Cfg.Tick)
	defer ticker.Stop()

	r.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *Runner) tick(ctx context.Context) {
	start := time.Now()
	defer func() { r.mLoopDur.Observe(time.Since(start).Seconds()) }()

	fetched, sent, errs, err := r.UC.Tick(ctx, r.Cfg.BatchLimit)
	if err != nil {
		r.mErr.Inc()
		r.Log.Warn("tick failed", zap.Error(err))
		return
	}
	if fetched == 0 {
		return
	}

	r.mFetched.Add(float64(fetched))
	r.mSent.Add(float64(sent))
	if errs > 0 {
		r.mErr.Add(float64(errs))
	}
	r.Log.Debug("batch scheduled",
		zap.Int("fetched", fetched),
		zap.Int("sent", sent),
		zap.Int("errors", errs),
	)
}
