package repo

import (
	"context"

	"github.com/priceping/priceping/internal/domain/monitor"
	"github.com/priceping/priceping/internal/domain/notification"
)

type MonitorReader interface {
	GetByID(ctx context.Context, id int64) (*monitor.Monitor, error)
}

type NotificationRepo interface {
	Create(ctx context.Context, n *notification.Notification) error
}

type Monitors struct{ R monitor.Repo }
type Notifications struct{ R notification.Repo }

func (a Monitors) GetByID(ctx context.Context, id int64) (*monitor.Monitor, error) {
	return a.R.GetByID(ctx, id)
}

func (a Notifications) Create(ctx context.Context, n *notification.Notification) error {
	return a.R.Create(ctx, n)
}
