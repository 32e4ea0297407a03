// Package analytics computes per-round behavioral and performance metrics
// from a round log buffer snapshot: ROI, maximum drawdown, trade count,
// turnover, anchoring deviation, and Sharpe/Sortino ratios.
//
// Every function is pure and stateless, and tolerates missing or empty
// input by returning a neutral default (0.0 or 0) rather than failing:
// malformed or partial client data must never block round progression.
// All math is float64 — these are statistical ratios, not money.
package analytics

import (
	"math"

	"github.com/zts/round-engine/internal/model"
	"github.com/zts/round-engine/internal/roundlog"
)

// ROI returns the simple return on investment (end-start)/start.
// Returns 0.0 when start is not positive.
func ROI(start, end float64) float64 {
	if start <= 0 {
		return 0.0
	}
	return (end - start) / start
}

// MaxDrawdown returns the maximum drawdown of a value curve as a fraction
// <= 0. Tracks the running peak starting at values[0]; each drawdown is
// (v-peak)/peak. Returns 0.0 for fewer than 2 points or a monotonically
// non-decreasing curve.
func MaxDrawdown(values []float64) float64 {
	if len(values) < 2 {
		return 0.0
	}
	peak := values[0]
	maxDD := 0.0
	for _, v := range values {
		if v > peak {
			peak = v
		}
		dd := 0.0
		if peak > 0 {
			dd = (v - peak) / peak
		}
		if dd < maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// TradeCount counts executed trades, ignoring entries with zero quantity.
func TradeCount(trades []roundlog.Trade) int {
	n := 0
	for _, t := range trades {
		if math.Abs(t.Qty) > 0 {
			n++
		}
	}
	return n
}

// GrossVolume returns the absolute traded notional: Σ |qty| * price.
func GrossVolume(trades []roundlog.Trade) float64 {
	vol := 0.0
	for _, t := range trades {
		vol += math.Abs(t.Qty) * t.Price
	}
	return vol
}

// Turnover returns gross traded notional divided by the average of the
// positive portfolio values. Returns 0.0 when no positive values exist,
// regardless of trade volume.
func Turnover(trades []roundlog.Trade, values []float64) float64 {
	sum, n := 0.0, 0
	for _, v := range values {
		if v > 0 {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0.0
	}
	return GrossVolume(trades) / (sum / float64(n))
}

// AnchorDeviationBP returns the mean absolute deviation, in basis points,
// of trade prices from their nearest anchor: for each trade with a
// positive price, 10000*(price-anchor)/anchor against the anchor with the
// minimum absolute difference. Non-positive anchors are discarded.
// Returns 0.0 when there are no anchors or no valid trade prices.
// Order-independent in both trades and anchors.
func AnchorDeviationBP(trades []roundlog.Trade, anchors []float64) float64 {
	var positive []float64
	for _, a := range anchors {
		if a > 0 {
			positive = append(positive, a)
		}
	}
	if len(trades) == 0 || len(positive) == 0 {
		return 0.0
	}

	sum, n := 0.0, 0
	for _, t := range trades {
		if t.Price <= 0 {
			continue
		}
		anchor := nearestAnchor(t.Price, positive)
		bps := 10000.0 * (t.Price - anchor) / anchor
		sum += math.Abs(bps)
		n++
	}
	if n == 0 {
		return 0.0
	}
	return sum / float64(n)
}

// nearestAnchor returns the anchor with the minimum absolute difference
// from price. Callers guarantee anchors is non-empty and positive.
func nearestAnchor(price float64, anchors []float64) float64 {
	best := anchors[0]
	bestDiff := math.Abs(best - price)
	for _, a := range anchors[1:] {
		if diff := math.Abs(a - price); diff < bestDiff {
			best, bestDiff = a, diff
		}
	}
	return best
}

// ReturnsFromValues derives simple per-step returns v_t/v_{t-1} - 1 from
// a value series, skipping any step where either value is non-positive.
// The result holds at most len(values)-1 entries.
func ReturnsFromValues(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		prev, cur := values[i-1], values[i]
		if prev <= 0 || cur <= 0 {
			continue
		}
		returns = append(returns, cur/prev-1)
	}
	return returns
}

// SharpeSortino computes the Sharpe and Sortino ratios from per-period
// returns.
//
// When periodsPerYear > 0, the annual risk-free rate is converted to a
// per-period rate via (1+rf)^(1/periods)-1 and both ratios are scaled by
// sqrt(periods); otherwise the per-period rate is 0 and the raw
// (non-annualized) moments are returned.
//
// Sharpe divides the mean excess return by its sample standard deviation
// (ddof=1). Sortino uses only the negative-excess subset for the
// denominator, requiring at least 2 negative points. Fewer than 2 excess
// points, a zero denominator, or a non-finite result all yield 0.
func SharpeSortino(returns []float64, rfAnnual, periodsPerYear float64) (sharpe, sortino float64) {
	perPeriodRF := 0.0
	if periodsPerYear > 0 {
		perPeriodRF = math.Pow(1+rfAnnual, 1/periodsPerYear) - 1
	}

	excess := make([]float64, 0, len(returns))
	for _, r := range returns {
		excess = append(excess, r-perPeriodRF)
	}
	if len(excess) < 2 {
		return 0.0, 0.0
	}

	mean := meanOf(excess)
	sd := sampleStdev(excess, mean)
	if sd > 0 {
		sharpe = mean / sd
	}

	var negatives []float64
	for _, e := range excess {
		if e < 0 {
			negatives = append(negatives, e)
		}
	}
	if len(negatives) >= 2 {
		dsd := sampleStdev(negatives, meanOf(negatives))
		if dsd > 0 {
			sortino = mean / dsd
		}
	}

	if periodsPerYear > 0 {
		scale := math.Sqrt(periodsPerYear)
		sharpe *= scale
		sortino *= scale
	}

	return finiteOrZero(sharpe), finiteOrZero(sortino)
}

func meanOf(xs []float64) float64 {
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// sampleStdev computes the ddof=1 standard deviation around mean.
// Returns 0 for fewer than 2 points.
func sampleStdev(xs []float64, mean float64) float64 {
	if len(xs) < 2 {
		return 0.0
	}
	ss := 0.0
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0.0
	}
	return v
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

func round2(v float64) float64 {
	return math.Round(v*1e2) / 1e2
}

// SummarizeRound orchestrates all round metrics from a completed buffer
// snapshot. Ratios are rounded to 6 decimals, anchor deviation to 2.
// Pure: identical inputs always yield identical output.
func SummarizeRound(
	startValue, endValue float64,
	values []float64,
	trades []roundlog.Trade,
	anchors []float64,
	rfAnnual, periodsPerYear float64,
) model.RoundSummary {
	sharpe, sortino := SharpeSortino(ReturnsFromValues(values), rfAnnual, periodsPerYear)

	return model.RoundSummary{
		ROI:         round6(ROI(startValue, endValue)),
		MaxDrawdown: round6(MaxDrawdown(values)),
		TradeCount:  TradeCount(trades),
		Turnover:    round6(Turnover(trades, values)),
		AnchorBP:    round2(AnchorDeviationBP(trades, anchors)),
		Sharpe:      round6(sharpe),
		Sortino:     round6(sortino),
	}
}
