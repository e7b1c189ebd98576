package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/priceping/priceping/internal/domain/outbox"
	"github.com/priceping/priceping/internal/obs/retry"
)

type capturePublisher struct {
	monitorID int64
	oldValue  string
	newValue  string
	at        time.Time
	calls     int
	err       error
}

func (c *capturePublisher) PublishCheckRequested(context.Context, int64) error { return nil }

func (c *capturePublisher) PublishValueChanged(_ context.Context, monitorID int64, oldValue, newValue string, at time.Time) error {
	c.calls++
	if c.err != nil {
		return c.err
	}
	c.monitorID, c.oldValue, c.newValue, c.at = monitorID, oldValue, newValue, at
	return nil
}

func onceOnly() retry.Policy {
	return retry.Policy{Attempts: 1, Backoff: retry.ExpoJitter{Base: time.Millisecond}}
}

func TestGlobalHandler_ValueChanged(t *testing.T) {
	pub := &capturePublisher{}
	gh := MakeGlobalOutboxHandler(pub, onceOnly())

	h, err := gh(outbox.KindValueChanged)
	require.NoError(t, err)

	at := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	data, _ := json.Marshal(ValueChangedPayload{
		MonitorID: 7, OldValue: "1299.00", NewValue: "999.00", At: at,
	})
	require.NoError(t, h(context.Background(), data))

	assert.Equal(t, int64(7), pub.monitorID)
	assert.Equal(t, "1299.00", pub.oldValue)
	assert.Equal(t, "999.00", pub.newValue)
	assert.True(t, at.Equal(pub.at))
}

func TestGlobalHandler_BadPayload(t *testing.T) {
	gh := MakeGlobalOutboxHandler(&capturePublisher{}, onceOnly())
	h, err := gh(outbox.KindValueChanged)
	require.NoError(t, err)
	assert.Error(t, h(context.Background(), []byte("{broken")))
}

func TestGlobalHandler_UnknownKind(t *testing.T) {
	gh := MakeGlobalOutboxHandler(&capturePublisher{}, onceOnly())
	_, err := gh(outbox.Kind(99))
	assert.Error(t, err)
}

func TestGlobalHandler_RetriesPublish(t *testing.T) {
	pub := &capturePublisher{err: errors.New("broker down")}
	pol := retry.Policy{Attempts: 3, Backoff: retry.ExpoJitter{Base: time.Millisecond}}
	gh := MakeGlobalOutboxHandler(pub, pol)
	h, err := gh(outbox.KindValueChanged)
	require.NoError(t, err)

	data, _ := json.Marshal(ValueChangedPayload{MonitorID: 1})
	assert.Error(t, h(context.Background(), data))
	assert.Equal(t, 3, pub.calls)
}
