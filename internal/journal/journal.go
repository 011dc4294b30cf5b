// Package journal persists orders, closed trades, and daily snapshots to
// PostgreSQL. The journal is optional: a nil repository disables recording
// without touching the trading path.
package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joonholab/argos/pkg/logger"
)

// Side marks the direction of an order.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// OrderRecord is one submitted order.
type OrderRecord struct {
	OrderNo   string
	Code      string
	Name      string
	Side      Side
	Quantity  int64
	Price     int64
	Reason    string
	CreatedAt time.Time
}

// TradeRecord is one closed round trip.
type TradeRecord struct {
	Code        string
	Name        string
	Quantity    int64
	EntryPrice  int64
	ExitPrice   int64
	RealizedPnL int64
	ExitReason  string
	ClosedAt    time.Time
}

// DailySnapshot is the end-of-day account summary.
type DailySnapshot struct {
	Date          time.Time
	TotalAsset    int64
	RealizedPnL   int64
	OpenPositions int
	RiskMode      string
}

// Repository writes trading activity to PostgreSQL.
// ⭐ SSOT: 매매 기록 저장은 여기서만
type Repository struct {
	pool   *pgxpool.Pool
	logger *logger.Logger
}

// NewRepository creates a journal over a connection pool.
func NewRepository(pool *pgxpool.Pool, log *logger.Logger) *Repository {
	return &Repository{pool: pool, logger: log}
}

// CreateSchema creates the journal tables when missing.
func (r *Repository) CreateSchema(ctx context.Context) error {
	if r == nil {
		return nil
	}

	ddl := `
		CREATE TABLE IF NOT EXISTS journal_orders (
			id          BIGSERIAL PRIMARY KEY,
			order_no    TEXT NOT NULL,
			stock_code  TEXT NOT NULL,
			stock_name  TEXT NOT NULL,
			side        TEXT NOT NULL,
			quantity    BIGINT NOT NULL,
			price       BIGINT NOT NULL,
			reason      TEXT NOT NULL DEFAULT '',
			created_at  TIMESTAMPTZ NOT NULL
		);
		CREATE TABLE IF NOT EXISTS journal_trades (
			id           BIGSERIAL PRIMARY KEY,
			stock_code   TEXT NOT NULL,
			stock_name   TEXT NOT NULL,
			quantity     BIGINT NOT NULL,
			entry_price  BIGINT NOT NULL,
			exit_price   BIGINT NOT NULL,
			realized_pnl BIGINT NOT NULL,
			exit_reason  TEXT NOT NULL,
			closed_at    TIMESTAMPTZ NOT NULL
		);
		CREATE TABLE IF NOT EXISTS journal_daily (
			snapshot_date  DATE PRIMARY KEY,
			total_asset    BIGINT NOT NULL,
			realized_pnl   BIGINT NOT NULL,
			open_positions INT NOT NULL,
			risk_mode      TEXT NOT NULL
		);
	`
	if _, err := r.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create journal schema: %w", err)
	}
	return nil
}

// RecordOrder stores one order. Journal failures never break trading; they
// are logged and swallowed.
func (r *Repository) RecordOrder(ctx context.Context, rec OrderRecord) {
	if r == nil {
		return
	}

	query := `
		INSERT INTO journal_orders
			(order_no, stock_code, stock_name, side, quantity, price, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.pool.Exec(ctx, query,
		rec.OrderNo, rec.Code, rec.Name, string(rec.Side),
		rec.Quantity, rec.Price, rec.Reason, rec.CreatedAt)
	if err != nil {
		r.logger.WithError(err).WithField("code", rec.Code).Error("주문 기록 실패")
	}
}

// RecordTrade stores one closed trade.
func (r *Repository) RecordTrade(ctx context.Context, rec TradeRecord) {
	if r == nil {
		return
	}

	query := `
		INSERT INTO journal_trades
			(stock_code, stock_name, quantity, entry_price, exit_price,
			 realized_pnl, exit_reason, closed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.pool.Exec(ctx, query,
		rec.Code, rec.Name, rec.Quantity, rec.EntryPrice, rec.ExitPrice,
		rec.RealizedPnL, rec.ExitReason, rec.ClosedAt)
	if err != nil {
		r.logger.WithError(err).WithField("code", rec.Code).Error("체결 기록 실패")
	}
}

// SnapshotDaily upserts the end-of-day summary.
func (r *Repository) SnapshotDaily(ctx context.Context, snap DailySnapshot) error {
	if r == nil {
		return nil
	}

	query := `
		INSERT INTO journal_daily
			(snapshot_date, total_asset, realized_pnl, open_positions, risk_mode)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (snapshot_date) DO UPDATE SET
			total_asset    = EXCLUDED.total_asset,
			realized_pnl   = EXCLUDED.realized_pnl,
			open_positions = EXCLUDED.open_positions,
			risk_mode      = EXCLUDED.risk_mode
	`
	_, err := r.pool.Exec(ctx, query,
		snap.Date, snap.TotalAsset, snap.RealizedPnL, snap.OpenPositions, snap.RiskMode)
	if err != nil {
		return fmt.Errorf("snapshot daily: %w", err)
	}
	return nil
}

// RecentTrades returns the latest closed trades, newest first.
func (r *Repository) RecentTrades(ctx context.Context, limit int) ([]TradeRecord, error) {
	if r == nil {
		return nil, nil
	}

	query := `
		SELECT stock_code, stock_name, quantity, entry_price, exit_price,
		       realized_pnl, exit_reason, closed_at
		FROM journal_trades
		ORDER BY closed_at DESC
		LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent trades: %w", err)
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		var rec TradeRecord
		if err := rows.Scan(&rec.Code, &rec.Name, &rec.Quantity, &rec.EntryPrice,
			&rec.ExitPrice, &rec.RealizedPnL, &rec.ExitReason, &rec.ClosedAt); err != nil {
			return nil, fmt.Errorf("scan trade row: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade rows: %w", err)
	}
	return out, nil
}
