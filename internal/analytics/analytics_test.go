package analytics

import (
	"math"
	"testing"

	"github.com/zts/round-engine/internal/roundlog"
)

const epsilon = 1e-9

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) <= epsilon
}

// --- ROI ---

func TestROI_Simple(t *testing.T) {
	got := ROI(1000, 1100)
	if !almostEqual(got, 0.10) {
		t.Errorf("expected roi=0.10, got %f", got)
	}
}

func TestROI_NonPositiveStart(t *testing.T) {
	for _, start := range []float64{0, -100} {
		if got := ROI(start, 500); got != 0.0 {
			t.Errorf("roi with start=%f should be 0.0, got %f", start, got)
		}
	}
}

// --- Max drawdown ---

func TestMaxDrawdown_Scenario(t *testing.T) {
	got := MaxDrawdown([]float64{100, 120, 90, 150})
	want := (90.0 - 120.0) / 120.0 // -0.25
	if !almostEqual(got, want) {
		t.Errorf("expected max_dd=%f, got %f", want, got)
	}
}

func TestMaxDrawdown_NeverPositive(t *testing.T) {
	sequences := [][]float64{
		{100, 120, 90, 150},
		{50, 40, 30, 20},
		{100, 100, 100},
		{1, 1000, 1, 1000},
		{0, 10, 5},
	}
	for _, values := range sequences {
		if got := MaxDrawdown(values); got > 0 {
			t.Errorf("max_dd must be <= 0, got %f for %v", got, values)
		}
	}
}

func TestMaxDrawdown_MonotonicNonDecreasing(t *testing.T) {
	if got := MaxDrawdown([]float64{100, 100, 110, 150, 150}); got != 0.0 {
		t.Errorf("monotonic non-decreasing curve should have max_dd=0.0, got %f", got)
	}
}

func TestMaxDrawdown_TooFewPoints(t *testing.T) {
	if got := MaxDrawdown(nil); got != 0.0 {
		t.Errorf("expected 0.0 for empty series, got %f", got)
	}
	if got := MaxDrawdown([]float64{100}); got != 0.0 {
		t.Errorf("expected 0.0 for single point, got %f", got)
	}
}

// --- Trade count / volume / turnover ---

func TestTradeCount_IgnoresZeroQty(t *testing.T) {
	trades := []roundlog.Trade{
		{Qty: 10, Price: 100, Side: "Buy"},
		{Qty: 0, Price: 100, Side: "Buy"},
		{Qty: -5, Price: 100, Side: "Sell"},
	}
	if got := TradeCount(trades); got != 2 {
		t.Errorf("expected 2 trades, got %d", got)
	}
}

func TestGrossVolume_AbsoluteNotional(t *testing.T) {
	trades := []roundlog.Trade{
		{Qty: 10, Price: 100},
		{Qty: -5, Price: 200},
	}
	if got := GrossVolume(trades); !almostEqual(got, 2000) {
		t.Errorf("expected gross volume 2000, got %f", got)
	}
}

func TestTurnover_AveragesPositiveValuesOnly(t *testing.T) {
	trades := []roundlog.Trade{{Qty: 10, Price: 100}}
	// avg of positive values = (1000 + 3000) / 2 = 2000
	got := Turnover(trades, []float64{1000, 0, -500, 3000})
	if !almostEqual(got, 0.5) {
		t.Errorf("expected turnover 0.5, got %f", got)
	}
}

func TestTurnover_ZeroWhenNoPositiveValues(t *testing.T) {
	trades := []roundlog.Trade{{Qty: 1000, Price: 100}}
	if got := Turnover(trades, []float64{0, -1, -100}); got != 0.0 {
		t.Errorf("expected 0.0 turnover with non-positive values, got %f", got)
	}
	if got := Turnover(trades, nil); got != 0.0 {
		t.Errorf("expected 0.0 turnover with empty values, got %f", got)
	}
}

// --- Anchor deviation ---

func TestAnchorDeviationBP_Scenario(t *testing.T) {
	trades := []roundlog.Trade{{Qty: 10, Price: 101, Side: "Buy"}}
	got := AnchorDeviationBP(trades, []float64{100})
	if !almostEqual(got, 100.0) {
		t.Errorf("expected 100.0 bp, got %f", got)
	}
}

func TestAnchorDeviationBP_NearestAnchorWins(t *testing.T) {
	trades := []roundlog.Trade{{Qty: 1, Price: 98}}
	// 98 is nearer to 100 than to 50: |98-100|=2 vs |98-50|=48.
	got := AnchorDeviationBP(trades, []float64{50, 100})
	want := 10000.0 * 2.0 / 100.0 // 200 bp, absolute
	if !almostEqual(got, want) {
		t.Errorf("expected %f bp, got %f", want, got)
	}
}

func TestAnchorDeviationBP_OrderIndependent(t *testing.T) {
	trades := []roundlog.Trade{
		{Qty: 1, Price: 101},
		{Qty: 2, Price: 55},
	}
	anchors := []float64{100, 50}

	base := AnchorDeviationBP(trades, anchors)
	reorderedTrades := AnchorDeviationBP([]roundlog.Trade{trades[1], trades[0]}, anchors)
	reorderedAnchors := AnchorDeviationBP(trades, []float64{50, 100})

	if !almostEqual(base, reorderedTrades) {
		t.Errorf("trade order changed result: %f vs %f", base, reorderedTrades)
	}
	if !almostEqual(base, reorderedAnchors) {
		t.Errorf("anchor order changed result: %f vs %f", base, reorderedAnchors)
	}
}

func TestAnchorDeviationBP_NeutralDefaults(t *testing.T) {
	trades := []roundlog.Trade{{Qty: 1, Price: 100}}
	if got := AnchorDeviationBP(trades, nil); got != 0.0 {
		t.Errorf("expected 0.0 with no anchors, got %f", got)
	}
	if got := AnchorDeviationBP(nil, []float64{100}); got != 0.0 {
		t.Errorf("expected 0.0 with no trades, got %f", got)
	}
	// Anchors present but all non-positive.
	if got := AnchorDeviationBP(trades, []float64{0, -5}); got != 0.0 {
		t.Errorf("expected 0.0 with non-positive anchors, got %f", got)
	}
	// Trades present but no positive price.
	zeroPrice := []roundlog.Trade{{Qty: 1, Price: 0}}
	if got := AnchorDeviationBP(zeroPrice, []float64{100}); got != 0.0 {
		t.Errorf("expected 0.0 with no valid trade prices, got %f", got)
	}
}

// --- Returns ---

func TestReturnsFromValues_SkipsNonPositiveSteps(t *testing.T) {
	got := ReturnsFromValues([]float64{100, 110, 0, 120, 132})
	// 100→110 ok; 110→0 skipped; 0→120 skipped; 120→132 ok.
	if len(got) != 2 {
		t.Fatalf("expected 2 returns, got %d: %v", len(got), got)
	}
	if !almostEqual(got[0], 0.10) {
		t.Errorf("expected first return 0.10, got %f", got[0])
	}
	if !almostEqual(got[1], 0.10) {
		t.Errorf("expected second return 0.10, got %f", got[1])
	}
}

func TestReturnsFromValues_BoundedLength(t *testing.T) {
	values := []float64{100, 110, 121, 133}
	got := ReturnsFromValues(values)
	if len(got) > len(values)-1 {
		t.Errorf("returns longer than len(values)-1: %d", len(got))
	}
}

func TestReturnsFromValues_Short(t *testing.T) {
	if got := ReturnsFromValues([]float64{100}); got != nil {
		t.Errorf("expected nil for single value, got %v", got)
	}
}

// --- Sharpe / Sortino ---

func TestSharpeSortino_RawMoments(t *testing.T) {
	returns := []float64{0.01, -0.02, 0.015, -0.005}
	sharpe, sortino := SharpeSortino(returns, 0, 0)

	if math.IsNaN(sharpe) || math.IsInf(sharpe, 0) {
		t.Errorf("sharpe must be finite, got %f", sharpe)
	}
	if math.IsNaN(sortino) || math.IsInf(sortino, 0) {
		t.Errorf("sortino must be finite, got %f", sortino)
	}
	// Mean excess return is exactly 0 for this series.
	if !almostEqual(sharpe, 0) {
		t.Errorf("expected sharpe 0 for zero-mean returns, got %f", sharpe)
	}
	if !almostEqual(sortino, 0) {
		t.Errorf("expected sortino 0 for zero-mean returns, got %f", sortino)
	}
}

func TestSharpeSortino_PositiveMean(t *testing.T) {
	returns := []float64{0.02, -0.01, 0.03, -0.02, 0.01}
	sharpe, sortino := SharpeSortino(returns, 0, 0)
	if sharpe <= 0 {
		t.Errorf("expected positive sharpe, got %f", sharpe)
	}
	if sortino <= 0 {
		t.Errorf("expected positive sortino, got %f", sortino)
	}
}

func TestSharpeSortino_Annualization(t *testing.T) {
	returns := []float64{0.02, -0.01, 0.03, -0.02, 0.01}
	raw, rawSortino := SharpeSortino(returns, 0, 0)
	annual, annualSortino := SharpeSortino(returns, 0, 252)

	scale := math.Sqrt(252)
	if !almostEqual(annual, raw*scale) {
		t.Errorf("expected annualized sharpe %f, got %f", raw*scale, annual)
	}
	if !almostEqual(annualSortino, rawSortino*scale) {
		t.Errorf("expected annualized sortino %f, got %f", rawSortino*scale, annualSortino)
	}
}

func TestSharpeSortino_RiskFreeConversion(t *testing.T) {
	// With a positive risk-free rate, excess returns shrink, so the
	// sharpe must drop relative to rf=0.
	returns := []float64{0.02, 0.01, 0.03, 0.015}
	withoutRF, _ := SharpeSortino(returns, 0, 252)
	withRF, _ := SharpeSortino(returns, 0.05, 252)
	if withRF >= withoutRF {
		t.Errorf("positive rf should reduce sharpe: rf=0 → %f, rf=0.05 → %f", withoutRF, withRF)
	}
}

func TestSharpeSortino_TooFewPoints(t *testing.T) {
	sharpe, sortino := SharpeSortino([]float64{0.01}, 0, 252)
	if sharpe != 0 || sortino != 0 {
		t.Errorf("expected (0,0) for fewer than 2 points, got (%f,%f)", sharpe, sortino)
	}
}

func TestSharpeSortino_ZeroStdev(t *testing.T) {
	sharpe, sortino := SharpeSortino([]float64{0.01, 0.01, 0.01}, 0, 0)
	if sharpe != 0 {
		t.Errorf("expected sharpe 0 for zero stdev, got %f", sharpe)
	}
	if sortino != 0 {
		t.Errorf("expected sortino 0 with no negative excess points, got %f", sortino)
	}
}

func TestSharpeSortino_SingleNegativePoint(t *testing.T) {
	// Only one negative excess point: sortino denominator undefined → 0.
	_, sortino := SharpeSortino([]float64{0.02, -0.01, 0.03}, 0, 0)
	if sortino != 0 {
		t.Errorf("expected sortino 0 with a single negative point, got %f", sortino)
	}
}

// --- Round summary ---

func TestSummarizeRound_Idempotent(t *testing.T) {
	values := []float64{1000, 1050, 980, 1100}
	trades := []roundlog.Trade{
		{Qty: 10, Price: 101, Side: "Buy", TS: "t1"},
		{Qty: -5, Price: 105, Side: "Sell", TS: "t2"},
	}
	anchors := []float64{100}

	first := SummarizeRound(1000, 1100, values, trades, anchors, 0, 252)
	second := SummarizeRound(1000, 1100, values, trades, anchors, 0, 252)

	if first != second {
		t.Errorf("summarize must be pure: %+v vs %+v", first, second)
	}
}

func TestSummarizeRound_KnownValues(t *testing.T) {
	values := []float64{1000, 1100}
	trades := []roundlog.Trade{{Qty: 10, Price: 101, Side: "Buy"}}
	anchors := []float64{100}

	s := SummarizeRound(1000, 1100, values, trades, anchors, 0, 0)

	if !almostEqual(s.ROI, 0.10) {
		t.Errorf("expected roi=0.10, got %f", s.ROI)
	}
	if s.MaxDrawdown != 0.0 {
		t.Errorf("expected max_dd=0.0 for rising curve, got %f", s.MaxDrawdown)
	}
	if s.TradeCount != 1 {
		t.Errorf("expected trade_count=1, got %d", s.TradeCount)
	}
	if !almostEqual(s.AnchorBP, 100.0) {
		t.Errorf("expected anchor_bp=100.0, got %f", s.AnchorBP)
	}
	// gross=1010, avg positive value=1050 → turnover rounded to 6 dp.
	want := math.Round(1010.0/1050.0*1e6) / 1e6
	if !almostEqual(s.Turnover, want) {
		t.Errorf("expected turnover=%f, got %f", want, s.Turnover)
	}
}

func TestSummarizeRound_EmptyInputs(t *testing.T) {
	s := SummarizeRound(0, 0, nil, nil, nil, 0, 0)
	if s.ROI != 0 || s.MaxDrawdown != 0 || s.TradeCount != 0 ||
		s.Turnover != 0 || s.AnchorBP != 0 || s.Sharpe != 0 || s.Sortino != 0 {
		t.Errorf("expected all-neutral summary for empty inputs, got %+v", s)
	}
}
