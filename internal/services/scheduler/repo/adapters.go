package repo

import (
	"context"

	"github.com/priceping/priceping/internal/domain/kafka"
	"github.com/priceping/priceping/internal/domain/monitor"
)

// MonitorRepo narrows monitor.Repo to the due-fetch the scheduler needs.
type MonitorRepo interface {
	FetchDue(ctx context.Context, limit int) ([]*monitor.Monitor, error)
}

type Events interface {
	PublishCheckRequested(ctx context.Context, monitorID int64) error
}

type Monitors struct{ R monitor.Repo }
type MonitorEvents struct{ P kafka.MonitorEvents }

func (a Monitors) FetchDue(ctx context.Context, limit int) ([]*monitor.Monitor, error) {
	return a.R.FetchDue(ctx, limit)
}

func (e MonitorEvents) PublishCheckRequested(ctx context.Context, monitorID int64) error {
	return e.P.PublishCheckRequested(ctx, monitorID)
}
