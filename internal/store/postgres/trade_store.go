package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/spreadbot/internal/domain"
)

// TradeStore implements domain.TradeStore on the closed_trades table.
type TradeStore struct {
	pool *pgxpool.Pool
}

// NewTradeStore creates a TradeStore backed by the given pool.
func NewTradeStore(pool *pgxpool.Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

// Insert journals a closed trade. Re-inserting the same position is a no-op.
func (s *TradeStore) Insert(ctx context.Context, t domain.ClosedTrade) error {
	const q = `
		INSERT INTO closed_trades (position_id, symbol, direction, entry_spread_pct, exit_spread_pct,
			profit_pts, pnl_usd, fees_usd, net_pnl_usd, size_usd, opened_at, closed_at, held_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (position_id) DO NOTHING`
	_, err := s.pool.Exec(ctx, q,
		t.PositionID, t.Symbol, t.Direction.String(), t.EntrySpreadPct, t.ExitSpreadPct,
		t.ProfitPts, t.PnLUSD, t.FeesUSD, t.NetPnLUSD, t.SizeUSD,
		t.OpenedAt, t.ClosedAt, t.Held.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("postgres: insert closed trade %s: %w", t.PositionID, err)
	}
	return nil
}

// ListRecent returns the newest trades first. An empty symbol lists all.
func (s *TradeStore) ListRecent(ctx context.Context, symbol string, limit int) ([]domain.ClosedTrade, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `
		SELECT position_id, symbol, direction, entry_spread_pct, exit_spread_pct, profit_pts,
			pnl_usd, fees_usd, net_pnl_usd, size_usd, opened_at, closed_at, held_ms
		FROM closed_trades
		WHERE ($1 = '' OR symbol = $1)
		ORDER BY closed_at DESC
		LIMIT $2`
	rows, err := s.pool.Query(ctx, q, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list closed trades: %w", err)
	}
	defer rows.Close()

	var out []domain.ClosedTrade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list closed trades rows: %w", err)
	}
	return out, nil
}

func scanTrade(row pgx.Row) (domain.ClosedTrade, error) {
	var t domain.ClosedTrade
	var dir string
	var heldMs int64
	if err := row.Scan(&t.PositionID, &t.Symbol, &dir, &t.EntrySpreadPct, &t.ExitSpreadPct,
		&t.ProfitPts, &t.PnLUSD, &t.FeesUSD, &t.NetPnLUSD, &t.SizeUSD,
		&t.OpenedAt, &t.ClosedAt, &heldMs); err != nil {
		return domain.ClosedTrade{}, fmt.Errorf("postgres: scan closed trade: %w", err)
	}
	if err := t.Direction.UnmarshalText([]byte(dir)); err != nil {
		return domain.ClosedTrade{}, fmt.Errorf("postgres: scan closed trade: %w", err)
	}
	t.Held = time.Duration(heldMs) * time.Millisecond
	return t, nil
}

// SumPnL returns the gross PnL of trades closed at or after since.
func (s *TradeStore) SumPnL(ctx context.Context, since time.Time) (float64, error) {
	var sum float64
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(pnl_usd), 0) FROM closed_trades WHERE closed_at >= $1`, since,
	).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("postgres: sum closed trade pnl: %w", err)
	}
	return sum, nil
}

// Compile-time interface check.
var _ domain.TradeStore = (*TradeStore)(nil)
