// Package outbox defines the transactional outbox contract. Rows are written
// in the same transaction as the state change they announce and drained to
// Kafka by a background runner.
package outbox

import (
	"context"
	"time"
)

type Status string

const (
	StatusCreated    Status = "CREATED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusSuccess    Status = "SUCCESS"
)

// Kind selects the handler a message is dispatched to.
type Kind int

const (
	KindValueChanged Kind = 1
)

type Message struct {
	IdempotencyKey string
	Kind           Kind
	Data           []byte
	Status         Status
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Repository interface {
	// Enqueue inserts a row; duplicate keys are ignored.
	Enqueue(ctx context.Context, key string, kind Kind, data []byte) error

	// PickBatch claims up to batch rows, including IN_PROGRESS rows whose
	// claim is older than inProgressTTL.
	PickBatch(ctx context.Context, batch int, inProgressTTL time.Duration) ([]Message, error)

	MarkSuccess(ctx context.Context, keys []string) error
}

// KindHandler processes the payload of one message.
type KindHandler func(ctx context.Context, data []byte) error

// GlobalHandler resolves a Kind to its handler.
type GlobalHandler func(kind Kind) (KindHandler, error)
