// Package ledger maintains the authoritative per-player account state and
// folds normalized trade events into it, the round log buffer, and the
// durable trade action audit log.
//
// The ledger accepts the client-reported cash/shares/portfolio snapshot
// verbatim instead of recomputing it from trade history. This is a known
// integrity gap: a buggy or compromised client can desynchronize the
// ledger from reality. The behavior is kept intentionally to preserve the
// experiment's original semantics.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zts/round-engine/internal/analytics"
	"github.com/zts/round-engine/internal/event"
	"github.com/zts/round-engine/internal/model"
	"github.com/zts/round-engine/internal/payoff"
	"github.com/zts/round-engine/internal/roundlog"
	"github.com/zts/round-engine/internal/store"
)

// account pairs one player's state with their round log buffer. Events
// for one player are applied strictly in arrival order under the account
// mutex; different players never share state.
type account struct {
	mu     sync.Mutex
	state  model.AccountState
	buffer *roundlog.Buffer
}

// Ledger owns all player accounts for one session.
type Ledger struct {
	store    store.Store
	resolver *payoff.Resolver

	sessionID      string
	rfAnnual       float64
	periodsPerYear float64

	mu       sync.RWMutex
	accounts map[string]*account
}

// New creates a ledger backed by the given store and payoff resolver.
// rfAnnual and periodsPerYear parameterize the Sharpe/Sortino
// computation; periodsPerYear <= 0 disables annualization.
func New(st store.Store, resolver *payoff.Resolver, sessionID string, rfAnnual, periodsPerYear float64) *Ledger {
	return &Ledger{
		store:          st,
		resolver:       resolver,
		sessionID:      sessionID,
		rfAnnual:       rfAnnual,
		periodsPerYear: periodsPerYear,
		accounts:       make(map[string]*account),
	}
}

// ApplyEvent folds one normalized event into the player's account state,
// round log buffer, and audit log. On End it computes and persists the
// round summary, settles the round payoff, and returns the summary;
// otherwise it returns nil.
//
// The caller has already validated the event: primary fields are
// well-formed, so state mutation is all-or-nothing by construction.
func (l *Ledger) ApplyEvent(ctx context.Context, playerID string, round int, ev *event.Event) (*model.RoundSummary, error) {
	acct := l.getOrCreate(playerID)

	acct.mu.Lock()
	defer acct.mu.Unlock()

	// Copy the reported snapshot verbatim (trust boundary, see package doc).
	acct.state.Cash = ev.Cash
	acct.state.Shares = ev.OwnedShares
	acct.state.ShareValue = ev.ShareValue
	acct.state.PortfolioValue = ev.PortfolioValue
	acct.state.PandL = ev.PandL
	acct.state.Round = round

	pv := ev.PortfolioValue.InexactFloat64()

	if ev.Action == model.ActionStart {
		// Reset seeds the value series with the start value; the Start
		// event itself contributes no second entry.
		acct.buffer.Reset(pv)
		acct.state.PortfolioValueStart = ev.PortfolioValue
	} else {
		acct.buffer.AppendValue(pv)
	}

	if ev.IsTrade() {
		qty := ev.Quantity.InexactFloat64()
		price := ev.PricePerShare.InexactFloat64()
		if qty != 0 && price > 0 {
			ts := ev.Time
			if ts == "" {
				ts = strconv.Itoa(round)
			}
			acct.buffer.AppendTrade(roundlog.Trade{
				Qty:   qty,
				Price: price,
				Side:  ev.Action,
				TS:    ts,
			})
		}
	}

	if ev.HasAnchor {
		acct.buffer.AppendAnchor(ev.Anchor)
	}

	rec := &model.TradeActionRecord{
		ID:             uuid.New().String(),
		PlayerID:       playerID,
		SessionID:      l.sessionID,
		Round:          round,
		Action:         ev.Action,
		Quantity:       ev.Quantity,
		Time:           ev.Time,
		PricePerShare:  ev.PricePerShare,
		Cash:           ev.Cash,
		OwnedShares:    ev.OwnedShares,
		ShareValue:     ev.ShareValue,
		PortfolioValue: ev.PortfolioValue,
		CurDay:         ev.CurDay,
		Asset:          ev.Asset,
		ROI:            ev.ROIPercent,
		CreatedAt:      time.Now().UTC(),
	}
	if err := l.store.InsertTradeAction(ctx, rec); err != nil {
		return nil, fmt.Errorf("ledger: persist trade action: %w", err)
	}

	if ev.Action != model.ActionEnd {
		return nil, nil
	}

	summary := analytics.SummarizeRound(
		acct.state.PortfolioValueStart.InexactFloat64(),
		pv,
		acct.buffer.Values(),
		acct.buffer.Trades(),
		acct.buffer.Anchors(),
		l.rfAnnual,
		l.periodsPerYear,
	)
	summary.PlayerID = playerID
	summary.Round = round

	if err := l.store.SaveRoundSummary(ctx, &summary); err != nil {
		return nil, fmt.Errorf("ledger: persist round summary: %w", err)
	}

	l.resolver.Settle(&acct.state, round)

	slog.Info("round completed",
		"player", playerID,
		"round", round,
		"roi", summary.ROI,
		"max_dd", summary.MaxDrawdown,
		"trades", summary.TradeCount,
		"payoff", acct.state.Payoff.String(),
	)

	return &summary, nil
}

// State returns a copy of the player's current account state.
func (l *Ledger) State(playerID string) (model.AccountState, bool) {
	l.mu.RLock()
	acct, ok := l.accounts[playerID]
	l.mu.RUnlock()
	if !ok {
		return model.AccountState{}, false
	}

	acct.mu.Lock()
	defer acct.mu.Unlock()
	return acct.state, true
}

// BufferLen reports the number of buffered portfolio values for a player.
// Used by tests and diagnostics.
func (l *Ledger) BufferLen(playerID string) int {
	l.mu.RLock()
	acct, ok := l.accounts[playerID]
	l.mu.RUnlock()
	if !ok {
		return 0
	}

	acct.mu.Lock()
	defer acct.mu.Unlock()
	return acct.buffer.Len()
}

func (l *Ledger) getOrCreate(playerID string) *account {
	l.mu.RLock()
	acct, ok := l.accounts[playerID]
	l.mu.RUnlock()
	if ok {
		return acct
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if acct, ok := l.accounts[playerID]; ok {
		return acct
	}
	acct = &account{
		state:  model.AccountState{PlayerID: playerID},
		buffer: roundlog.New(),
	}
	l.accounts[playerID] = acct
	return acct
}
