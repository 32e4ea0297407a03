package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/zts/round-engine/internal/model"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache for per-player action history and round summaries. Writes go to
// the primary store and invalidate the cache; reads check Redis first and
// fall back to the primary.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

// --- Write-through (write to primary, invalidate cache) ---

func (s *CachedStore) InsertTradeAction(ctx context.Context, rec *model.TradeActionRecord) error {
	if err := s.primary.InsertTradeAction(ctx, rec); err != nil {
		return err
	}
	// Invalidate the player's action history; next read re-populates.
	s.rdb.Del(ctx, actionsKey(rec.PlayerID))
	return nil
}

func (s *CachedStore) SaveRoundSummary(ctx context.Context, summary *model.RoundSummary) error {
	if err := s.primary.SaveRoundSummary(ctx, summary); err != nil {
		return err
	}
	s.cacheSummary(ctx, summary)
	return nil
}

// --- Read-through (check cache first) ---

func (s *CachedStore) GetTradeActionsByPlayer(ctx context.Context, playerID string) ([]model.TradeActionRecord, error) {
	data, err := s.rdb.Get(ctx, actionsKey(playerID)).Bytes()
	if err == nil {
		var records []model.TradeActionRecord
		if json.Unmarshal(data, &records) == nil {
			return records, nil
		}
	}

	records, err := s.primary.GetTradeActionsByPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(records); err == nil {
		s.rdb.Set(ctx, actionsKey(playerID), data, s.ttl)
	}
	return records, nil
}

func (s *CachedStore) GetRoundSummary(ctx context.Context, playerID string, round int) (*model.RoundSummary, error) {
	data, err := s.rdb.Get(ctx, summaryKey(playerID, round)).Bytes()
	if err == nil {
		var summary model.RoundSummary
		if json.Unmarshal(data, &summary) == nil {
			return &summary, nil
		}
	}

	summary, err := s.primary.GetRoundSummary(ctx, playerID, round)
	if err != nil {
		return nil, err
	}

	s.cacheSummary(ctx, summary)
	return summary, nil
}

// --- Passthrough (not cached) ---

func (s *CachedStore) ListPlayers(ctx context.Context) ([]string, error) {
	return s.primary.ListPlayers(ctx)
}

// --- Cache helpers ---

func (s *CachedStore) cacheSummary(ctx context.Context, summary *model.RoundSummary) {
	if data, err := json.Marshal(summary); err == nil {
		s.rdb.Set(ctx, summaryKey(summary.PlayerID, summary.Round), data, s.ttl)
	}
}

func actionsKey(playerID string) string { return fmt.Sprintf("actions:%s", playerID) }

func summaryKey(playerID string, round int) string {
	return fmt.Sprintf("summary:%s:%d", playerID, round)
}
