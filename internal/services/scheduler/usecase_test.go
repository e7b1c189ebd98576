package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/priceping/priceping/internal/domain/monitor"
)

type fakeDue struct {
	monitors []*monitor.Monitor
	err      error
	gotLimit int
}

func (f *fakeDue) FetchDue(_ context.Context, limit int) ([]*monitor.Monitor, error) {
	f.gotLimit = limit
	return f.monitors, f.err
}

type fakePublisher struct {
	published []int64
	failFor   map[int64]error
}

func (f *fakePublisher) PublishCheckRequested(_ context.Context, monitorID int64) error {
	if err, ok := f.failFor[monitorID]; ok {
		return err
	}
	f.published = append(f.published, monitorID)
	return nil
}

func TestTick_PublishesAllDue(t *testing.T) {
	due := &fakeDue{monitors: []*monitor.Monitor{{ID: 1}, {ID: 2}, {ID: 3}}}
	pub := &fakePublisher{}
	uc := NewUC(due, pub)

	fetched, sent, errs, err := uc.Tick(context.Background(), 50)
	require.NoError(t, err)
	assert.Equal(t, 3, fetched)
	assert.Equal(t, 3, sent)
	assert.Zero(t, errs)
	assert.Equal(t, []int64{1, 2, 3}, pub.published)
	assert.Equal(t, 50, due.gotLimit)
}

func TestTick_EmptyBatch(t *testing.T) {
	uc := NewUC(&fakeDue{}, &fakePublisher{})
	fetched, sent, errs, err := uc.Tick(context.Background(), 10)
	require.NoError(t, err)
	assert.Zero(t, fetched)
	assert.Zero(t, sent)
	assert.Zero(t, errs)
}

func TestTick_PublishFailureDoesNotAbortBatch(t *testing.T) {
	due := &fakeDue{monitors: []*monitor.Monitor{{ID: 1}, {ID: 2}, {ID: 3}}}
	pub := &fakePublisher{failFor: map[int64]error{2: errors.New("broker down")}}
	uc := NewUC(due, pub)

	fetched, sent, errs, err := uc.Tick(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 3, fetched)
	assert.Equal(t, 2, sent)
	assert.Equal(t, 1, errs)
	assert.Equal(t, []int64{1, 3}, pub.published)
}

func TestTick_FetchError(t *testing.T) {
	uc := NewUC(&fakeDue{err: errors.New("db down")}, &fakePublisher{})
	_, _, errs, err := uc.Tick(context.Background(), 10)
	require.Error(t, err)
	assert.Equal(t, 1, errs)
}

func TestTick_DefaultsLimit(t *testing.T) {
	due := &fakeDue{}
	uc := NewUC(due, &fakePublisher{})
	_, _, _, err := uc.Tick(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 100, due.gotLimit)
}
