package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/zts/round-engine/internal/model"
)

// MemoryStore implements Store with in-memory slices and maps. Used for
// testing and development. Not suitable for production (no persistence).
type MemoryStore struct {
	mu        sync.RWMutex
	actions   []model.TradeActionRecord
	summaries map[string]model.RoundSummary
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		summaries: make(map[string]model.RoundSummary),
	}
}

func (s *MemoryStore) InsertTradeAction(_ context.Context, rec *model.TradeActionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.actions = append(s.actions, *rec)
	return nil
}

func (s *MemoryStore) GetTradeActionsByPlayer(_ context.Context, playerID string) ([]model.TradeActionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.TradeActionRecord
	for _, rec := range s.actions {
		if rec.PlayerID == playerID {
			result = append(result, rec)
		}
	}
	return result, nil
}

func (s *MemoryStore) ListPlayers(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool)
	var players []string
	for _, rec := range s.actions {
		if !seen[rec.PlayerID] {
			seen[rec.PlayerID] = true
			players = append(players, rec.PlayerID)
		}
	}
	sort.Strings(players)
	return players, nil
}

func (s *MemoryStore) SaveRoundSummary(_ context.Context, summary *model.RoundSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.summaries[summaryKeyOf(summary.PlayerID, summary.Round)] = *summary
	return nil
}

func (s *MemoryStore) GetRoundSummary(_ context.Context, playerID string, round int) (*model.RoundSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary, ok := s.summaries[summaryKeyOf(playerID, round)]
	if !ok {
		return nil, fmt.Errorf("summary for player %s round %d not found", playerID, round)
	}
	return &summary, nil
}

func summaryKeyOf(playerID string, round int) string {
	return fmt.Sprintf("%s:%d", playerID, round)
}
