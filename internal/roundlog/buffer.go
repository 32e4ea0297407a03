// Package roundlog provides the per-player, per-round mutable container
// buffering the value/trade/anchor history that the analytics engine
// consumes at round end.
//
// A Buffer replaces the loosely-typed participant scratch bag of earlier
// designs: it is owned by exactly one account and injected where needed,
// never looked up from ambient state.
package roundlog

// Trade is a minimal trade tuple logged for Buy/Sell actions with nonzero
// quantity and positive price.
type Trade struct {
	Qty   float64 `json:"qty"`
	Price float64 `json:"price"`
	Side  string  `json:"side"`
	TS    string  `json:"ts"`
}

// Buffer accumulates one round's portfolio-value series, trade log, and
// anchor observations. It is reset and value-seeded exactly once per
// round, on the first Start event; subsequent events append, never
// replace, until the next Start.
type Buffer struct {
	values  []float64
	trades  []Trade
	anchors []float64
}

// New returns an empty buffer.
func New() *Buffer {
	return &Buffer{}
}

// Reset clears all three logs and seeds the value series with the round's
// starting portfolio value.
func (b *Buffer) Reset(startValue float64) {
	b.values = []float64{startValue}
	b.trades = nil
	b.anchors = nil
}

// AppendValue appends a portfolio value observation.
func (b *Buffer) AppendValue(v float64) {
	b.values = append(b.values, v)
}

// AppendTrade appends a trade tuple.
func (b *Buffer) AppendTrade(t Trade) {
	b.trades = append(b.trades, t)
}

// AppendAnchor appends an anchor observation.
func (b *Buffer) AppendAnchor(a float64) {
	b.anchors = append(b.anchors, a)
}

// Values returns a copy of the portfolio-value series.
func (b *Buffer) Values() []float64 {
	out := make([]float64, len(b.values))
	copy(out, b.values)
	return out
}

// Trades returns a copy of the trade log.
func (b *Buffer) Trades() []Trade {
	out := make([]Trade, len(b.trades))
	copy(out, b.trades)
	return out
}

// Anchors returns a copy of the anchor observations.
func (b *Buffer) Anchors() []float64 {
	out := make([]float64, len(b.anchors))
	copy(out, b.anchors)
	return out
}

// Len returns the number of buffered portfolio values.
func (b *Buffer) Len() int {
	return len(b.values)
}
