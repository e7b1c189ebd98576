package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLimitsFor(t *testing.T) {
	assert.Equal(t, Limits{MaxMonitors: 1, MinIntervalMinutes: 1440}, LimitsFor(Free))
	assert.Equal(t, Limits{MaxMonitors: 20, MinIntervalMinutes: 60}, LimitsFor(Pro))

	// unknown plans get the free limits
	assert.Equal(t, LimitsFor(Free), LimitsFor(Plan("enterprise")))
	assert.Equal(t, LimitsFor(Free), LimitsFor(Plan("")))
}

func TestCanCreateMonitor(t *testing.T) {
	assert.True(t, CanCreateMonitor(Free, 0))
	assert.False(t, CanCreateMonitor(Free, 1))
	assert.True(t, CanCreateMonitor(Pro, 19))
	assert.False(t, CanCreateMonitor(Pro, 20))
}

func TestCanUseInterval(t *testing.T) {
	assert.True(t, CanUseInterval(Free, 1440))
	assert.False(t, CanUseInterval(Free, 240))
	assert.False(t, CanUseInterval(Free, 60))

	assert.True(t, CanUseInterval(Pro, 60))
	assert.True(t, CanUseInterval(Pro, 240))
	assert.True(t, CanUseInterval(Pro, 1440))
}
