package kafka

import (
	"context"
	"time"

	domkafka "github.com/priceping/priceping/internal/domain/kafka"
)

// MonitorEventsKafka publishes monitor lifecycle messages; check requests and
// value changes go to separate topics, so it holds one producer per topic.
type MonitorEventsKafka struct {
	requests *Producer
	changes  *Producer
}

func NewMonitorEventsKafka(requests, changes *Producer) *MonitorEventsKafka {
	return &MonitorEventsKafka{requests: requests, changes: changes}
}

var _ domkafka.MonitorEvents = (*MonitorEventsKafka)(nil)

func (e *MonitorEventsKafka) PublishCheckRequested(ctx context.Context, monitorID int64) error {
	return e.requests.PublishJSON(ctx, KeyFromInt64(monitorID), domkafka.CheckRequest{
		MonitorID: monitorID,
	})
}

func (e *MonitorEventsKafka) PublishValueChanged(ctx context.Context, monitorID int64, oldValue, newValue string, at time.Time) error {
	return e.changes.PublishJSON(ctx, KeyFromInt64(monitorID), domkafka.ValueChanged{
		MonitorID: monitorID,
		OldValue:  oldValue,
		NewValue:  newValue,
		At:        at,
	})
}
