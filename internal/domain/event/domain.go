package event

import "time"

// Event records one observed value transition for a monitor. Immutable once
// inserted; history retention is an external policy.
type Event struct {
	ID        int64     `json:"id"`
	MonitorID int64     `json:"monitor_id"`
	OwnerID   int64     `json:"owner_id"`
	OldValue  string    `json:"old_value"`
	NewValue  string    `json:"new_value"`
	OldHash   string    `json:"old_hash"`
	NewHash   string    `json:"new_hash"`
	ChangedAt time.Time `json:"changed_at"`
}
