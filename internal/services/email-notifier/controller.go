package notifier

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	domkafka "github.com/priceping/priceping/internal/domain/kafka"
	kafkax "github.com/priceping/priceping/internal/repository/kafka"
)

var (
	mConsumed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "email_notifier_messages_consumed_total",
		Help: "ValueChanged events consumed",
	})
	mSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "email_notifier_emails_sent_total",
		Help: "Emails sent",
	})
	mErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "email_notifier_errors_total",
		Help: "Errors",
	})
)

type Controller struct {
	Log *zap.Logger
	Sub *kafkax.Consumer
	UC  *Handler
}

func (c *Controller) Run(ctx context.Context) error {
	handler := kafkax.JSONHandler(
		func(ctx context.Context, _ []byte, ev *domkafka.ValueChanged) error {
			mConsumed.Inc()
			if ev.MonitorID <= 0 {
				c.Log.Warn("value-changed: invalid monitor_id", zap.Int64("monitor_id", ev.MonitorID))
				return nil
			}
			dto := ValueChange{
				MonitorID: ev.MonitorID,
				OldValue:  ev.OldValue,
				NewValue:  ev.NewValue,
				At:        ev.At,
			}
			if err := c.UC.HandleValueChange(ctx, dto); err != nil {
				mErrors.Inc()
				return err
			}
			mSent.Inc()
			return nil
		},
	)
	return c.Sub.Consume(ctx, handler)
}
