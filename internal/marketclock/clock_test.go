package marketclock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var nairobi = time.FixedZone("EAT", 3*60*60)

func clockAt(t *testing.T, hour, minute int) *Clock {
	t.Helper()
	fixed := time.Date(2026, 9, 1, hour, minute, 30, 0, nairobi)
	return NewWithNow(nairobi, func() time.Time { return fixed })
}

func TestDynamicTTL_DuringMarketHours(t *testing.T) {
	c := clockAt(t, 9, 30)
	assert.Equal(t, 900*time.Second, c.DynamicTTL())
}

func TestDynamicTTL_AfterClose(t *testing.T) {
	// 15:01 -> 1439 minutes to midnight plus 540 to next open
	c := clockAt(t, 15, 1)
	assert.Equal(t, time.Duration(24*60-901+540)*time.Minute, c.DynamicTTL())
}

func TestDynamicTTL_BeforeOpen(t *testing.T) {
	// 07:00 -> two hours until open
	c := clockAt(t, 7, 0)
	assert.Equal(t, 120*time.Minute, c.DynamicTTL())
}

func TestDynamicTTL_Boundaries(t *testing.T) {
	// 09:00 exactly counts as market hours
	assert.Equal(t, 900*time.Second, clockAt(t, 9, 0).DynamicTTL())

	// 15:00 exactly counts as after hours
	assert.Equal(t, time.Duration(24*60-900+540)*time.Minute, clockAt(t, 15, 0).DynamicTTL())
}

func TestIsMarketOpen(t *testing.T) {
	assert.True(t, clockAt(t, 9, 0).IsMarketOpen())
	assert.True(t, clockAt(t, 14, 59).IsMarketOpen())
	assert.False(t, clockAt(t, 15, 0).IsMarketOpen())
	assert.False(t, clockAt(t, 8, 59).IsMarketOpen())
}

func TestTradingDate_UsesExchangeTimezone(t *testing.T) {
	// 23:30 UTC is already the next day in Nairobi
	fixed := time.Date(2026, 9, 1, 23, 30, 0, 0, time.UTC)
	c := NewWithNow(nairobi, func() time.Time { return fixed })

	assert.Equal(t, "2026-09-02", c.TradingDate())
}

func TestNew_LoadsTimezone(t *testing.T) {
	c, err := New()
	if err != nil {
		t.Skipf("tzdata not available: %v", err)
	}
	assert.Equal(t, "Africa/Nairobi", c.Location().String())
}
