// Package change decides whether a freshly checked value counts as a change
// against a monitor's stored baseline. Pure; persistence and notification
// are the caller's business.
package change

import (
	"time"

	"github.com/priceping/priceping/internal/domain/event"
	"github.com/priceping/priceping/internal/domain/monitor"
	"github.com/priceping/priceping/internal/monitoring/checkerr"
	"github.com/priceping/priceping/internal/monitoring/textnorm"
)

// Outcome is the full consequence of one check: the monitor-state update to
// persist and, when a transition was observed, the event to record and
// notify about.
type Outcome struct {
	State   monitor.CheckState
	Event   *event.Event
	Changed bool
}

// OnSuccess compares the normalized value against the stored baseline.
// A monitor with no prior hash records a baseline and emits nothing: there
// is nothing to compare against, and "changed from nothing" alerts on
// creation would be noise.
func OnSuccess(m *monitor.Monitor, normalized string, now time.Time) Outcome {
	newHash := textnorm.Hash(normalized)

	st := monitor.CheckState{
		Value:     &normalized,
		Hash:      &newHash,
		CheckedAt: now,
		Status:    monitor.StatusOK,
	}

	if m.LastHash == nil || *m.LastHash == newHash {
		return Outcome{State: st}
	}

	oldValue := ""
	if m.LastValue != nil {
		oldValue = *m.LastValue
	}
	return Outcome{
		State:   st,
		Changed: true,
		Event: &event.Event{
			MonitorID: m.ID,
			OwnerID:   m.OwnerID,
			OldValue:  oldValue,
			NewValue:  normalized,
			OldHash:   *m.LastHash,
			NewHash:   newHash,
			ChangedAt: now,
		},
	}
}

// OnFailure maps a pipeline error onto the monitor's status fields. Value and
// hash are left untouched so the next successful check still compares against
// the last known-good baseline.
func OnFailure(err error, now time.Time) Outcome {
	kind := checkerr.KindOf(err)
	status := monitor.StatusError
	if kind == checkerr.KindBlockedBySite {
		status = monitor.StatusBlocked
	}
	msg := err.Error()
	return Outcome{
		State: monitor.CheckState{
			CheckedAt: now,
			Status:    status,
			Error:     &msg,
		},
	}
}
