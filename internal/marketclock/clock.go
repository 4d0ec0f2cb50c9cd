package marketclock

import (
	"time"

	"migitrader/pkg/errors"
)

// NSE trading session, minutes of day in exchange-local time
const (
	marketOpenMinute  = 9 * 60  // 09:00
	marketCloseMinute = 15 * 60 // 15:00

	// Intraday cache lifetime while the market is trading
	openSessionTTL = 900 * time.Second

	exchangeTimezone = "Africa/Nairobi"
)

// Clock answers market-hours questions in the exchange's fixed timezone.
// The time source is injectable for tests.
type Clock struct {
	loc *time.Location
	now func() time.Time
}

// New creates a clock pinned to the NSE timezone
func New() (*Clock, error) {
	loc, err := time.LoadLocation(exchangeTimezone)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load %s timezone", exchangeTimezone)
	}
	return &Clock{loc: loc, now: time.Now}, nil
}

// NewWithNow creates a clock with a fixed time source, for tests
func NewWithNow(loc *time.Location, now func() time.Time) *Clock {
	return &Clock{loc: loc, now: now}
}

// Location returns the exchange timezone
func (c *Clock) Location() *time.Location {
	return c.loc
}

// TradingDate returns the current trading-calendar date (YYYY-MM-DD)
// in exchange-local time, not UTC
func (c *Clock) TradingDate() string {
	return c.now().In(c.loc).Format("2006-01-02")
}

// IsMarketOpen reports whether the exchange is currently in session.
// 09:00 exactly counts as open, 15:00 exactly as closed.
func (c *Clock) IsMarketOpen() bool {
	m := c.minuteOfDay()
	return m >= marketOpenMinute && m < marketCloseMinute
}

// DynamicTTL computes the cache lifetime for a daily insights entry:
//   - during market hours: 15 minutes, fresh data matters while trading
//   - after close: until the next day's open, nothing changes overnight
//   - before open: until today's open
//
// The result keeps a single entry valid for at most one session slice.
func (c *Clock) DynamicTTL() time.Duration {
	m := c.minuteOfDay()

	if m >= marketOpenMinute && m < marketCloseMinute {
		return openSessionTTL
	}

	if m >= marketCloseMinute {
		minutesUntilNextOpen := 24*60 - m + marketOpenMinute
		return time.Duration(minutesUntilNextOpen) * time.Minute
	}

	minutesUntilOpen := marketOpenMinute - m
	return time.Duration(minutesUntilOpen) * time.Minute
}

func (c *Clock) minuteOfDay() int {
	t := c.now().In(c.loc)
	return t.Hour()*60 + t.Minute()
}
