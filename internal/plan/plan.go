// Package plan holds the per-plan policy limits the API layer enforces.
package plan

type Plan string

const (
	Free Plan = "free"
	Pro  Plan = "pro"
)

type Limits struct {
	MaxMonitors        int
	MinIntervalMinutes int
}

func LimitsFor(p Plan) Limits {
	switch p {
	case Pro:
		return Limits{MaxMonitors: 20, MinIntervalMinutes: 60}
	default:
		return Limits{MaxMonitors: 1, MinIntervalMinutes: 1440}
	}
}

func CanCreateMonitor(p Plan, activeCount int) bool {
	return activeCount < LimitsFor(p).MaxMonitors
}

func CanUseInterval(p Plan, intervalMinutes int) bool {
	return intervalMinutes >= LimitsFor(p).MinIntervalMinutes
}
