package notification

import "context"

type Repo interface {
	Create(ctx context.Context, n *Notification) error
	ListByOwner(ctx context.Context, ownerID int64, limit int) ([]*Notification, error)
}
