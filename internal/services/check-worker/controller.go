package check_worker

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	domkafka "github.com/priceping/priceping/internal/domain/kafka"
	kafkax "github.com/priceping/priceping/internal/repository/kafka"
)

var (
	mMsgs = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checker_messages_consumed_total", Help: "CheckRequest messages consumed",
	})
	mChecks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checker_checks_total", Help: "Checks attempted",
	})
	mErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checker_errors_total", Help: "Check handler errors",
	})
	mLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "checker_latency_seconds",
		Help:    "End-to-end check latency",
		Buckets: prometheus.DefBuckets,
	})
)

type Controller struct {
	Log *zap.Logger
	Sub *kafkax.Consumer
	UC  *Handler
}

func (c *Controller) Run(ctx context.Context) error {
	handler := kafkax.JSONHandler(
		func(ctx context.Context, _ []byte, msg *domkafka.CheckRequest) error {
			mMsgs.Inc()
			c.Log.Debug("check-request", zap.Int64("monitor_id", msg.MonitorID))

			mChecks.Inc()
			t := prometheus.NewTimer(mLatency)
			err := c.UC.HandleCheck(ctx, msg.MonitorID)
			t.ObserveDuration()
			if err != nil {
				mErrors.Inc()
			}
			return err
		},
	)
	return c.Sub.Consume(ctx, handler)
}
