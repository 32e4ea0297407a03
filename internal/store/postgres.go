package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/zts/round-engine/internal/model"
)

// PostgresStore implements Store using PostgreSQL as the source of truth.
// All monetary values are stored as NUMERIC for exact decimal precision.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) InsertTradeAction(ctx context.Context, rec *model.TradeActionRecord) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO trade_actions
		   (id, player_id, session_id, round, action, quantity, time, price_per_share,
		    cash, owned_shares, share_value, portfolio_value, cur_day, asset, roi, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6::NUMERIC, $7, $8::NUMERIC,
		         $9::NUMERIC, $10::NUMERIC, $11::NUMERIC, $12::NUMERIC, $13, $14, $15, $16)`,
		rec.ID, rec.PlayerID, rec.SessionID, rec.Round, rec.Action,
		rec.Quantity.String(), rec.Time, rec.PricePerShare.String(),
		rec.Cash.String(), rec.OwnedShares.String(), rec.ShareValue.String(),
		rec.PortfolioValue.String(), rec.CurDay, rec.Asset, rec.ROI, rec.CreatedAt,
	)
	return err
}

func (s *PostgresStore) GetTradeActionsByPlayer(ctx context.Context, playerID string) ([]model.TradeActionRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, player_id, session_id, round, action,
		        quantity::TEXT, time, price_per_share::TEXT,
		        cash::TEXT, owned_shares::TEXT, share_value::TEXT, portfolio_value::TEXT,
		        cur_day, asset, roi, created_at
		 FROM trade_actions WHERE player_id = $1 ORDER BY created_at, id`, playerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []model.TradeActionRecord
	for rows.Next() {
		var rec model.TradeActionRecord
		var qtyS, priceS, cashS, sharesS, shareValS, pvS string

		if err := rows.Scan(&rec.ID, &rec.PlayerID, &rec.SessionID, &rec.Round, &rec.Action,
			&qtyS, &rec.Time, &priceS,
			&cashS, &sharesS, &shareValS, &pvS,
			&rec.CurDay, &rec.Asset, &rec.ROI, &rec.CreatedAt); err != nil {
			return nil, err
		}

		rec.Quantity, _ = decimal.NewFromString(qtyS)
		rec.PricePerShare, _ = decimal.NewFromString(priceS)
		rec.Cash, _ = decimal.NewFromString(cashS)
		rec.OwnedShares, _ = decimal.NewFromString(sharesS)
		rec.ShareValue, _ = decimal.NewFromString(shareValS)
		rec.PortfolioValue, _ = decimal.NewFromString(pvS)

		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *PostgresStore) ListPlayers(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT player_id FROM trade_actions ORDER BY player_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var players []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		players = append(players, id)
	}
	return players, rows.Err()
}

func (s *PostgresStore) SaveRoundSummary(ctx context.Context, summary *model.RoundSummary) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO round_summaries
		   (player_id, round, roi, max_dd, trade_count, turnover, anchor_bp, sharpe, sortino)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (player_id, round) DO UPDATE SET
		   roi = EXCLUDED.roi, max_dd = EXCLUDED.max_dd,
		   trade_count = EXCLUDED.trade_count, turnover = EXCLUDED.turnover,
		   anchor_bp = EXCLUDED.anchor_bp, sharpe = EXCLUDED.sharpe,
		   sortino = EXCLUDED.sortino`,
		summary.PlayerID, summary.Round, summary.ROI, summary.MaxDrawdown,
		summary.TradeCount, summary.Turnover, summary.AnchorBP,
		summary.Sharpe, summary.Sortino,
	)
	return err
}

func (s *PostgresStore) GetRoundSummary(ctx context.Context, playerID string, round int) (*model.RoundSummary, error) {
	var summary model.RoundSummary
	err := s.pool.QueryRow(ctx,
		`SELECT player_id, round, roi, max_dd, trade_count, turnover, anchor_bp, sharpe, sortino
		 FROM round_summaries WHERE player_id = $1 AND round = $2`, playerID, round).
		Scan(&summary.PlayerID, &summary.Round, &summary.ROI, &summary.MaxDrawdown,
			&summary.TradeCount, &summary.Turnover, &summary.AnchorBP,
			&summary.Sharpe, &summary.Sortino)
	if err != nil {
		return nil, fmt.Errorf("get summary for %s round %d: %w", playerID, round, err)
	}
	return &summary, nil
}
