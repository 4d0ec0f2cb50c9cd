package insights

import (
	"bytes"
	"encoding/json"
	"time"
)

// Yield is a dividend yield percentage that may be absent from the feed.
// It marshals to a JSON number, or null when unknown.
type Yield struct {
	Percent float64
	Known   bool
}

// KnownYield returns a yield with a known percentage
func KnownYield(percent float64) Yield {
	return Yield{Percent: percent, Known: true}
}

var jsonNull = []byte("null")

// MarshalJSON implements json.Marshaler
func (y Yield) MarshalJSON() ([]byte, error) {
	if !y.Known {
		return jsonNull, nil
	}
	return json.Marshal(y.Percent)
}

// UnmarshalJSON implements json.Unmarshaler; null means unknown
func (y *Yield) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, jsonNull) {
		*y = Yield{}
		return nil
	}
	var percent float64
	if err := json.Unmarshal(data, &percent); err != nil {
		return err
	}
	*y = Yield{Percent: percent, Known: true}
	return nil
}

// Instrument is an immutable snapshot of a single tradable equity,
// produced once per fetch cycle by the market-data client.
type Instrument struct {
	Ticker             string  `json:"ticker"`
	Name               string  `json:"name"`
	CurrentPrice       float64 `json:"currentPrice"`
	PreviousClose      float64 `json:"previousClose"`
	Volume             int64   `json:"volume"`
	AverageVolume      int64   `json:"averageVolume"`
	MarketCap          float64 `json:"marketCap"`
	DividendYield      Yield   `json:"dividendYield"`
	High52Week         float64 `json:"high52Week"`
	Low52Week          float64 `json:"low52Week"`
	MovingAverage20Day float64 `json:"movingAverage20Day"`
}

// DividendAnnouncement is a recent dividend declaration for a ticker.
// Dates arrive as strings on the wire, either RFC 3339 or plain YYYY-MM-DD.
type DividendAnnouncement struct {
	Ticker           string  `json:"ticker"`
	AnnouncementDate string  `json:"announcementDate"`
	ExDividendDate   string  `json:"exDividendDate"`
	DividendPerShare float64 `json:"dividendPerShare"`
	Yield            float64 `json:"yield"`
}

// ParseAnnouncementDate parses the announcement date, accepting RFC 3339
// timestamps and bare dates
func (d DividendAnnouncement) ParseAnnouncementDate() (time.Time, bool) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, d.AnnouncementDate); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Pick is a single ranked selection. Never mutated after scoring.
type Pick struct {
	Ticker        string  `json:"ticker"`
	Name          string  `json:"name"`
	CurrentPrice  float64 `json:"currentPrice"`
	EntryPoint    float64 `json:"entryPoint"`
	StopLoss      float64 `json:"stopLoss"`
	TargetPrice   float64 `json:"targetPrice"`
	Reasoning     string  `json:"reasoning"`
	MomentumScore int     `json:"momentumScore"`
	DividendScore int     `json:"dividendScore"`
	TotalScore    float64 `json:"totalScore"`
	VolumeSpike   float64 `json:"volumeSpike"`
}

// MarketSummary aggregates the day's breadth statistics
type MarketSummary struct {
	TotalVolume int64 `json:"totalVolume"`
	Advancers   int   `json:"advancers"`
	Decliners   int   `json:"decliners"`
	Unchanged   int   `json:"unchanged"`
}

// DailyInsights is the cache unit: one entry per trading-calendar day,
// created on a cache miss and read-only until it expires.
type DailyInsights struct {
	Date                 string        `json:"date"`
	MarketSummary        MarketSummary `json:"marketSummary"`
	Picks                []Pick        `json:"picks"`
	CacheHit             bool          `json:"cacheHit"`
	DataFreshnessMinutes int           `json:"dataFreshnessMinutes"`
	ComputedAt           time.Time     `json:"computedAt"`
}
