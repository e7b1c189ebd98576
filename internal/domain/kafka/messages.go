package kafka

import "time"

// Wire payloads exchanged over the message bus, JSON-encoded.

type CheckRequest struct {
	MonitorID int64 `json:"monitor_id"`
}

type ValueChanged struct {
	MonitorID int64     `json:"monitor_id"`
	OldValue  string    `json:"old_value"`
	NewValue  string    `json:"new_value"`
	At        time.Time `json:"at"`
}
