// Package model defines the core domain types shared across the round engine.
// Monetary ledger values use shopspring/decimal — never float64 for money.
// Derived statistical ratios (ROI, drawdown, Sharpe) are float64.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade actions accepted from the front end.
const (
	ActionStart = "Start"
	ActionBuy   = "Buy"
	ActionSell  = "Sell"
	ActionEnd   = "End"
)

// AccountState is the authoritative per-player ledger state for one round.
// The values mirror the client-reported snapshot verbatim; see
// ledger.Account for the trust-boundary note.
type AccountState struct {
	PlayerID            string          `json:"player_id"`
	Round               int             `json:"round"`
	Cash                decimal.Decimal `json:"cash"`
	Shares              decimal.Decimal `json:"shares"`
	ShareValue          decimal.Decimal `json:"share_value"`
	PortfolioValue      decimal.Decimal `json:"portfolio_value"`
	PandL               decimal.Decimal `json:"pandl"`
	PortfolioValueStart decimal.Decimal `json:"portfolio_value_start"`

	// Payoff is this round's payoff (final portfolio value at End).
	// PayoffTotal is the running total across rounds after the payoff
	// resolver's subtractions.
	Payoff      decimal.Decimal `json:"payoff"`
	PayoffTotal decimal.Decimal `json:"payoff_total"`
}

// TradeActionRecord is an immutable, append-only row persisted for every
// inbound event, keyed by the owning player. Once created these are never
// modified or deleted.
type TradeActionRecord struct {
	ID             string          `json:"id" db:"id"`
	PlayerID       string          `json:"player_id" db:"player_id"`
	SessionID      string          `json:"session_id" db:"session_id"`
	Round          int             `json:"round" db:"round"`
	Action         string          `json:"action" db:"action"`
	Quantity       decimal.Decimal `json:"quantity" db:"quantity"`
	Time           string          `json:"time" db:"time"`
	PricePerShare  decimal.Decimal `json:"price_per_share" db:"price_per_share"`
	Cash           decimal.Decimal `json:"cash" db:"cash"`
	OwnedShares    decimal.Decimal `json:"owned_shares" db:"owned_shares"`
	ShareValue     decimal.Decimal `json:"share_value" db:"share_value"`
	PortfolioValue decimal.Decimal `json:"portfolio_value" db:"portfolio_value"`
	CurDay         int             `json:"cur_day" db:"cur_day"`
	Asset          string          `json:"asset" db:"asset"`
	ROI            float64         `json:"roi" db:"roi"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}

// RoundSummary holds the behavioral and performance metrics derived from a
// completed round. Immutable once computed: ratios are rounded to 6
// decimals, anchor deviation to 2 decimals (basis points).
type RoundSummary struct {
	PlayerID    string  `json:"player_id"`
	Round       int     `json:"round"`
	ROI         float64 `json:"roi"`
	MaxDrawdown float64 `json:"max_dd"`
	TradeCount  int     `json:"trade_count"`
	Turnover    float64 `json:"turnover"`
	AnchorBP    float64 `json:"anchor_bp"`
	Sharpe      float64 `json:"sharpe"`
	Sortino     float64 `json:"sortino"`
}
