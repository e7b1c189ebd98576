package monitor

import "time"

type ValueType string

const (
	ValueTypeText  ValueType = "text"
	ValueTypePrice ValueType = "price"
)

func (v ValueType) Valid() bool {
	return v == ValueTypeText || v == ValueTypePrice
}

type Status string

const (
	StatusOK      Status = "ok"
	StatusError   Status = "error"
	StatusBlocked Status = "blocked"
)

// Allowed check intervals, in minutes. Plan policy decides which of these a
// given owner may actually use.
var AllowedIntervals = []int{60, 240, 1440}

func IntervalAllowed(minutes int) bool {
	for _, m := range AllowedIntervals {
		if m == minutes {
			return true
		}
	}
	return false
}

type Monitor struct {
	ID                int64      `json:"id"`
	OwnerID           int64      `json:"owner_id"`
	URL               string     `json:"url"`
	Selector          string     `json:"selector"`
	Label             string     `json:"label"`
	ValueType         ValueType  `json:"value_type"`
	IntervalMinutes   int        `json:"interval_minutes"`
	NotificationEmail string     `json:"notification_email"`
	CooldownMinutes   int        `json:"cooldown_minutes"`
	Active            bool       `json:"active"`
	LastValue         *string    `json:"last_value"`
	LastHash          *string    `json:"last_hash"`
	LastCheckedAt     *time.Time `json:"last_checked_at"`
	LastStatus        *Status    `json:"last_status"`
	LastError         *string    `json:"last_error"`
	NextCheckAt       time.Time  `json:"next_check_at"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// CheckState is the slice of a Monitor the check pipeline is allowed to
// mutate. Config fields (url, selector, interval) stay owned by user edits.
type CheckState struct {
	Value     *string
	Hash      *string
	CheckedAt time.Time
	Status    Status
	Error     *string
}
