// Package session provides the HTTP and WebSocket surface of the round
// engine: inbound trade event ingestion, round summary queries, and the
// trade action CSV export.
package session

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zts/round-engine/internal/event"
	"github.com/zts/round-engine/internal/ledger"
	"github.com/zts/round-engine/internal/metrics"
	"github.com/zts/round-engine/internal/model"
	"github.com/zts/round-engine/internal/store"
)

// exportHeader is the fixed column order of the trade action export.
// Consumers (analysis notebooks) depend on it; do not reorder.
var exportHeader = []string{
	"session", "round_nr", "participant", "action", "quantity",
	"price_per_share", "cash", "owned_shares", "share_value",
	"portfolio_value", "cur_day", "asset", "roi",
}

// Service handles round engine operations over HTTP and WebSocket.
type Service struct {
	store  store.Store
	ledger *ledger.Ledger
	wsHub  *WSHub // optional, for observer broadcasts
}

// NewService creates a new session service.
// Pass nil for hub if WebSocket broadcasting is not needed.
func NewService(st store.Store, l *ledger.Ledger, hub *WSHub) *Service {
	return &Service{
		store:  st,
		ledger: l,
		wsHub:  hub,
	}
}

// --- Request/Response types ---

// EventRequest is the JSON body for POST /api/v1/events.
type EventRequest struct {
	Participant string         `json:"participant"`
	Round       int            `json:"round"`
	Payload     map[string]any `json:"payload"`
}

// EventResponse is returned for an applied event. Summary is set only
// when the event ended the round.
type EventResponse struct {
	Participant string              `json:"participant"`
	Round       int                 `json:"round"`
	Action      string              `json:"action"`
	State       model.AccountState  `json:"state"`
	Summary     *model.RoundSummary `json:"summary,omitempty"`
}

// --- HTTP Handlers ---

// SubmitEvent handles POST /api/v1/events.
// Normalizes the payload and folds it into the participant's account.
func (s *Service) SubmitEvent(w http.ResponseWriter, r *http.Request) {
	var req EventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.Participant == "" {
		writeError(w, "participant is required", http.StatusBadRequest)
		return
	}
	if req.Round < 1 {
		writeError(w, "round must be >= 1", http.StatusBadRequest)
		return
	}

	resp, err := s.applyEvent(r.Context(), req.Participant, req.Round, req.Payload)
	if err != nil {
		if errors.Is(err, event.ErrMalformedEvent) {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeError(w, "failed to apply event", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// applyEvent runs normalize + ledger apply and records metrics. Shared
// by the HTTP handler and the participant WebSocket loop.
func (s *Service) applyEvent(ctx context.Context, participant string, round int, payload map[string]any) (*EventResponse, error) {
	start := time.Now()

	ev, err := event.Normalize(payload)
	if err != nil {
		metrics.MalformedEventsTotal.Inc()
		slog.Warn("malformed event rejected", "participant", participant, "round", round, "err", err)
		return nil, err
	}

	summary, err := s.ledger.ApplyEvent(ctx, participant, round, ev)
	if err != nil {
		slog.Error("event apply failed", "participant", participant, "round", round, "err", err)
		return nil, err
	}

	metrics.EventsTotal.WithLabelValues(ev.Action).Inc()
	metrics.EventLatency.WithLabelValues(ev.Action).Observe(time.Since(start).Seconds())

	if summary != nil {
		metrics.RoundsCompleted.Inc()
		if s.wsHub != nil {
			s.wsHub.Broadcast(WSMessage{
				Type:        "round_completed",
				Participant: participant,
				Round:       round,
				Summary:     summary,
			})
		}
	}

	state, _ := s.ledger.State(participant)
	return &EventResponse{
		Participant: participant,
		Round:       round,
		Action:      ev.Action,
		State:       state,
		Summary:     summary,
	}, nil
}

// GetRoundSummary handles GET /api/v1/players/{playerID}/rounds/{round}/summary.
func (s *Service) GetRoundSummary(w http.ResponseWriter, r *http.Request) {
	playerID := chi.URLParam(r, "playerID")
	round, err := strconv.Atoi(chi.URLParam(r, "round"))
	if err != nil || round < 1 {
		writeError(w, "round must be a positive integer", http.StatusBadRequest)
		return
	}

	summary, err := s.store.GetRoundSummary(r.Context(), playerID, round)
	if err != nil {
		writeError(w, "summary not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summary)
}

// GetPlayerState handles GET /api/v1/players/{playerID}/state.
func (s *Service) GetPlayerState(w http.ResponseWriter, r *http.Request) {
	playerID := chi.URLParam(r, "playerID")

	state, ok := s.ledger.State(playerID)
	if !ok {
		writeError(w, "player not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(state)
}

// ExportActions handles GET /api/v1/export/actions.
// Streams every persisted trade action as CSV, one row per event,
// ordered by player and insertion time.
func (s *Service) ExportActions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	players, err := s.store.ListPlayers(ctx)
	if err != nil {
		writeError(w, "failed to list players", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="trade_actions.csv"`)

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return
	}

	for _, playerID := range players {
		records, err := s.store.GetTradeActionsByPlayer(ctx, playerID)
		if err != nil {
			slog.Error("export: load actions failed", "player", playerID, "err", err)
			return
		}
		for _, rec := range records {
			row := []string{
				rec.SessionID,
				strconv.Itoa(rec.Round),
				rec.PlayerID,
				rec.Action,
				rec.Quantity.String(),
				rec.PricePerShare.String(),
				rec.Cash.String(),
				rec.OwnedShares.String(),
				rec.ShareValue.String(),
				rec.PortfolioValue.String(),
				strconv.Itoa(rec.CurDay),
				rec.Asset,
				strconv.FormatFloat(rec.ROI, 'f', -1, 64),
			}
			if err := cw.Write(row); err != nil {
				return
			}
		}
	}
	cw.Flush()
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
