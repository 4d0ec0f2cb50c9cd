package strategy

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"migitrader/internal/domain/insights"
)

// Strategy constants: dividend yield plus momentum trading for NSE equities.
const (
	// Volume spike must reach 10% over average to qualify on momentum
	minQualifyingVolumeSpike = 10.0

	// Only large caps are considered (KES 5B floor)
	minMarketCap = 5_000_000_000

	// Weighted combination of the two signals
	momentumWeight = 0.6
	dividendWeight = 0.4

	// Announcements older than this carry no dividend-score bonus
	recentAnnouncementDays = 30
)

// Blue-chip tickers receive a dividend-score bonus
var blueChipTickers = map[string]struct{}{
	"SCOM": {},
	"EABL": {},
	"IMHC": {},
	"KCB":  {},
	"EQTY": {},
}

// VolumeSpikePercent is today's volume over the 20-day average, as a percentage
func VolumeSpikePercent(inst insights.Instrument) float64 {
	if inst.AverageVolume <= 0 {
		return 0
	}
	return float64(inst.Volume-inst.AverageVolume) / float64(inst.AverageVolume) * 100
}

// MomentumScore measures short-term volume and price strength, 0-100.
// Instruments without a qualifying volume spike score 0 outright; otherwise
// volume contributes up to 40 points, price momentum and trend confirmation
// up to 30 each.
func MomentumScore(inst insights.Instrument) int {
	volumeSpike := VolumeSpikePercent(inst)
	if volumeSpike < minQualifyingVolumeSpike {
		return 0
	}

	// Volume component: a 50% spike earns the full 40 points
	score := math.Min(volumeSpike/50*40, 40)

	// Price momentum: a 5% gain earns the full 30 points
	if inst.PreviousClose > 0 {
		priceChange := (inst.CurrentPrice - inst.PreviousClose) / inst.PreviousClose * 100
		if priceChange > 0 {
			score += math.Min(priceChange/5*30, 30)
		}
	}

	// Trend confirmation: 10% above the 20-day MA earns the full 30 points
	if inst.MovingAverage20Day > 0 {
		trendStrength := (inst.CurrentPrice - inst.MovingAverage20Day) / inst.MovingAverage20Day * 100
		if trendStrength > 0 {
			score += math.Min(trendStrength/10*30, 30)
		}
	}

	return int(math.Min(math.Round(score), 100))
}

// DividendScore measures income-yield attractiveness, 0-100.
// A recent announcement is worth 50 points (plus 20 for blue chips), and a
// known yield contributes up to 30 more.
func DividendScore(inst insights.Instrument, dividends []insights.DividendAnnouncement, now time.Time) int {
	score := 0.0

	if _, ok := recentAnnouncementFor(inst.Ticker, dividends, now); ok {
		score += 50

		if _, blueChip := blueChipTickers[inst.Ticker]; blueChip {
			score += 20
		}
	}

	// Yield component: a 10% yield earns the full 30 points
	if inst.DividendYield.Known {
		score += math.Min(inst.DividendYield.Percent/10*30, 30)
	}

	return int(math.Min(math.Round(score), 100))
}

// Rank scores, filters and orders instruments into at most topN picks.
// Instruments below their 20-day MA or under the market-cap floor are
// excluded before ranking. Sorting is stable: ties keep fetch order.
func Rank(instruments []insights.Instrument, dividends []insights.DividendAnnouncement, topN int, now time.Time) []insights.Pick {
	picks := make([]insights.Pick, 0, len(instruments))

	for _, inst := range instruments {
		if inst.CurrentPrice < inst.MovingAverage20Day || inst.MarketCap < minMarketCap {
			continue
		}

		momentumScore := MomentumScore(inst)
		dividendScore := DividendScore(inst, dividends, now)
		totalScore := float64(momentumScore)*momentumWeight + float64(dividendScore)*dividendWeight

		picks = append(picks, insights.Pick{
			Ticker:        inst.Ticker,
			Name:          inst.Name,
			CurrentPrice:  inst.CurrentPrice,
			EntryPoint:    EntryPoint(inst),
			StopLoss:      StopLoss(inst),
			TargetPrice:   TargetPrice(inst),
			Reasoning:     reasoning(inst, dividends, momentumScore, dividendScore, now),
			MomentumScore: momentumScore,
			DividendScore: dividendScore,
			TotalScore:    totalScore,
			VolumeSpike:   VolumeSpikePercent(inst),
		})
	}

	sort.SliceStable(picks, func(i, j int) bool {
		return picks[i].TotalScore > picks[j].TotalScore
	})

	if topN > 0 && len(picks) > topN {
		picks = picks[:topN]
	}
	return picks
}

// EntryPoint is the 20-day MA plus a 2% buffer
func EntryPoint(inst insights.Instrument) float64 {
	return mulRound2(inst.MovingAverage20Day, 1.02)
}

// StopLoss sits 5% under the 20-day MA
func StopLoss(inst insights.Instrument) float64 {
	return mulRound2(inst.MovingAverage20Day, 0.95)
}

// TargetPrice is a conservative 10% above the current price
func TargetPrice(inst insights.Instrument) float64 {
	return mulRound2(inst.CurrentPrice, 1.10)
}

// Summarize aggregates market breadth over the full instrument list
func Summarize(instruments []insights.Instrument) insights.MarketSummary {
	summary := insights.MarketSummary{}
	for _, inst := range instruments {
		summary.TotalVolume += inst.Volume
		switch {
		case inst.CurrentPrice > inst.PreviousClose:
			summary.Advancers++
		case inst.CurrentPrice < inst.PreviousClose:
			summary.Decliners++
		default:
			summary.Unchanged++
		}
	}
	return summary
}

func reasoning(inst insights.Instrument, dividends []insights.DividendAnnouncement, momentumScore, dividendScore int, now time.Time) string {
	if momentumScore > dividendScore {
		return fmt.Sprintf("%.1f%% volume spike with strong uptrend", VolumeSpikePercent(inst))
	}

	if ann, ok := recentAnnouncementFor(inst.Ticker, dividends, now); ok {
		return fmt.Sprintf("Recent dividend announcement (%.2f%% yield)", ann.Yield)
	}
	if inst.DividendYield.Known {
		return fmt.Sprintf("High dividend yield (%.2f%%)", inst.DividendYield.Percent)
	}
	return "Trading above 20-day moving average"
}

// recentAnnouncementFor finds the first announcement for a ticker made within
// the recency window. Announcements with unparseable dates are skipped.
func recentAnnouncementFor(ticker string, dividends []insights.DividendAnnouncement, now time.Time) (insights.DividendAnnouncement, bool) {
	for _, div := range dividends {
		if div.Ticker != ticker {
			continue
		}
		announced, ok := div.ParseAnnouncementDate()
		if !ok {
			continue
		}
		if now.Sub(announced) <= recentAnnouncementDays*24*time.Hour {
			return div, true
		}
	}
	return insights.DividendAnnouncement{}, false
}

// mulRound2 computes v*factor rounded to 2dp in decimal arithmetic
func mulRound2(v, factor float64) float64 {
	result, _ := decimal.NewFromFloat(v).
		Mul(decimal.NewFromFloat(factor)).
		Round(2).
		Float64()
	return result
}
