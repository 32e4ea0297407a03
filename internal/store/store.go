// Package store defines the persistence interface for the round engine.
// Implementations include PostgreSQL (source of truth), Redis (read-through
// cache), and in-memory (for testing).
package store

import (
	"context"

	"github.com/zts/round-engine/internal/model"
)

// Store is the persistence interface. Trade action records are strictly
// append-only: one durable row per inbound event, queryable by player for
// export.
type Store interface {
	// --- Append-only trade action audit log ---

	// InsertTradeAction appends an immutable trade action record.
	InsertTradeAction(ctx context.Context, rec *model.TradeActionRecord) error

	// GetTradeActionsByPlayer returns all records for a player in
	// insertion order.
	GetTradeActionsByPlayer(ctx context.Context, playerID string) ([]model.TradeActionRecord, error)

	// ListPlayers returns the distinct player IDs with at least one
	// persisted record, for export iteration.
	ListPlayers(ctx context.Context) ([]string, error)

	// --- Round metrics summaries ---

	// SaveRoundSummary persists the metrics computed for a completed round.
	SaveRoundSummary(ctx context.Context, summary *model.RoundSummary) error

	// GetRoundSummary retrieves a player's summary for one round.
	GetRoundSummary(ctx context.Context, playerID string, round int) (*model.RoundSummary, error)
}
