package api

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/priceping/priceping/internal/domain/monitor"
)

// Checker runs one monitor check end to end.
type Checker interface {
	HandleCheck(ctx context.Context, monitorID int64) error
}

// CronSummary is the response of one synchronous check-all run.
type CronSummary struct {
	Processed  int `json:"processed"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

var (
	mCronRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "api_cron_runs_total", Help: "Synchronous check-all invocations",
	})
	mCronProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "api_cron_monitors_processed_total", Help: "Monitors processed by cron runs",
	})
	mCronFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "api_cron_monitors_failed_total", Help: "Monitors whose check failed in cron runs",
	})
	mCronDur = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "api_cron_run_duration_seconds",
		Help:    "Duration of synchronous check-all runs",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300},
	})
)

// DueFetcher hands out the batch of monitors whose next check time passed.
type DueFetcher interface {
	FetchDue(ctx context.Context, limit int) ([]*monitor.Monitor, error)
}

// CronUsecase drains every due monitor in one call: the path for deployments
// where an external cron hits the API instead of running the Kafka scheduler.
type CronUsecase struct {
	Monitors    DueFetcher
	Checker     Checker
	Log         *zap.Logger
	Concurrency int
	Budget      time.Duration
	BatchLimit  int
}

func (c *CronUsecase) RunDue(ctx context.Context) (CronSummary, error) {
	mCronRuns.Inc()
	start := time.Now()
	defer func() { mCronDur.Observe(time.Since(start).Seconds()) }()

	budget := c.Budget
	if budget <= 0 {
		budget = 300 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	limit := c.BatchLimit
	if limit <= 0 {
		limit = 500
	}
	due, err := c.Monitors.FetchDue(ctx, limit)
	if err != nil {
		return CronSummary{}, err
	}

	conc := c.Concurrency
	if conc <= 0 {
		conc = 5
	}

	var ok, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(conc)
	for _, m := range due {
		m := m
		g.Go(func() error {
			if err := c.Checker.HandleCheck(gctx, m.ID); err != nil {
				failed.Add(1)
				c.Log.Warn("cron check failed", zap.Int64("monitor_id", m.ID), zap.Error(err))
				return nil // one bad monitor must not sink the batch
			}
			ok.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	sum := CronSummary{
		Processed:  len(due),
		Successful: int(ok.Load()),
		Failed:     int(failed.Load()),
	}
	mCronProcessed.Add(float64(sum.Processed))
	mCronFailed.Add(float64(sum.Failed))
	c.Log.Info("cron run finished",
		zap.Int("processed", sum.Processed),
		zap.Int("successful", sum.Successful),
		zap.Int("failed", sum.Failed),
		zap.Duration("elapsed", time.Since(start)))
	return sum, nil
}
