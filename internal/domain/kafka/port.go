package kafka

import (
	"context"
	"time"
)

type MonitorEvents interface {
	PublishCheckRequested(ctx context.Context, monitorID int64) error
	PublishValueChanged(ctx context.Context, monitorID int64, oldValue, newValue string, at time.Time) error
}
