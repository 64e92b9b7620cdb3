package datastore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// Pool abstracts pgxpool.Pool for testability.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Close()
}

var _ Store = (*Repository)(nil)

// Repository is the PostgreSQL-backed Store.
type Repository struct {
	pool   Pool
	logger *zap.Logger
}

// NewRepository creates a repository over an established pool.
func NewRepository(pool Pool, logger *zap.Logger) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repository{pool: pool, logger: logger.Named("datastore")}
}

// SaveSignal inserts one emitted signal.
func (r *Repository) SaveSignal(ctx context.Context, rec SignalRecord) error {
	query := `
        INSERT INTO signals (time, symbol, direction, confidence, price, risk, reasoning)
        VALUES ($1, $2, $3, $4, $5, $6, $7);
    `
	_, err := r.pool.Exec(ctx, query,
		rec.Time, rec.Symbol, rec.Direction, rec.Confidence, rec.Price, rec.Risk, rec.Reasoning)
	if err != nil {
		return fmt.Errorf("insert signal for %s: %w", rec.Symbol, err)
	}
	return nil
}

// SaveTrade inserts one order event.
func (r *Repository) SaveTrade(ctx context.Context, rec TradeRecord) error {
	query := `
        INSERT INTO trades (time, symbol, instrument, side, kind, order_id, quantity, price, notional, status, reason)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);
    `
	_, err := r.pool.Exec(ctx, query,
		rec.Time, rec.Symbol, rec.Instrument, rec.Side, rec.Kind, rec.OrderID,
		rec.Quantity, rec.Price, rec.Notional, rec.Status, rec.Reason)
	if err != nil {
		return fmt.Errorf("insert trade for %s: %w", rec.Symbol, err)
	}
	return nil
}

// UpsertPosition writes the current position state for a symbol.
func (r *Repository) UpsertPosition(ctx context.Context, rec PositionRecord) error {
	query := `
        INSERT INTO positions (
            symbol, instrument, side, quantity, entry_price, take_profit, stop_loss,
            entry_order_id, tp_order_id, sl_order_id, status, opened_at,
            closed_at, close_price, pnl, close_reason
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
        ON CONFLICT (symbol) DO UPDATE SET
            instrument = EXCLUDED.instrument,
            side = EXCLUDED.side,
            quantity = EXCLUDED.quantity,
            entry_price = EXCLUDED.entry_price,
            take_profit = EXCLUDED.take_profit,
            stop_loss = EXCLUDED.stop_loss,
            entry_order_id = EXCLUDED.entry_order_id,
            tp_order_id = EXCLUDED.tp_order_id,
            sl_order_id = EXCLUDED.sl_order_id,
            status = EXCLUDED.status,
            opened_at = EXCLUDED.opened_at,
            closed_at = EXCLUDED.closed_at,
            close_price = EXCLUDED.close_price,
            pnl = EXCLUDED.pnl,
            close_reason = EXCLUDED.close_reason;
    `
	_, err := r.pool.Exec(ctx, query,
		rec.Symbol, rec.Instrument, rec.Side, rec.Quantity, rec.EntryPrice,
		rec.TakeProfit, rec.StopLoss, rec.EntryOrderID, rec.TPOrderID, rec.SLOrderID,
		rec.Status, rec.OpenedAt, rec.ClosedAt, rec.ClosePrice, rec.PnL, rec.CloseReason)
	if err != nil {
		return fmt.Errorf("upsert position for %s: %w", rec.Symbol, err)
	}
	return nil
}

// ListOpenPositions returns positions that are not CLOSED, used to
// rehydrate the book on startup.
func (r *Repository) ListOpenPositions(ctx context.Context) ([]PositionRecord, error) {
	query := `
        SELECT symbol, instrument, side, quantity, entry_price, take_profit, stop_loss,
               entry_order_id, tp_order_id, sl_order_id, status, opened_at,
               closed_at, close_price, pnl, close_reason
        FROM positions
        WHERE status IN ('ACTIVE', 'CLOSING')
        ORDER BY opened_at ASC;
    `
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query open positions: %w", err)
	}
	defer rows.Close()

	var positions []PositionRecord
	for rows.Next() {
		var p PositionRecord
		if err := rows.Scan(&p.Symbol, &p.Instrument, &p.Side, &p.Quantity, &p.EntryPrice,
			&p.TakeProfit, &p.StopLoss, &p.EntryOrderID, &p.TPOrderID, &p.SLOrderID,
			&p.Status, &p.OpenedAt, &p.ClosedAt, &p.ClosePrice, &p.PnL, &p.CloseReason); err != nil {
			return nil, err
		}
		positions = append(positions, p)
	}
	return positions, rows.Err()
}

// ListWatchlist returns the watched symbols in insertion order.
func (r *Repository) ListWatchlist(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT symbol FROM watchlist ORDER BY added_at ASC;`)
	if err != nil {
		return nil, fmt.Errorf("query watchlist: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		symbols = append(symbols, s)
	}
	return symbols, rows.Err()
}

// AddWatch inserts a symbol into the watchlist. Duplicates are ignored.
func (r *Repository) AddWatch(ctx context.Context, symbol string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO watchlist (symbol) VALUES ($1) ON CONFLICT (symbol) DO NOTHING;`, symbol)
	if err != nil {
		return fmt.Errorf("add watch %s: %w", symbol, err)
	}
	return nil
}

// RemoveWatch deletes a symbol from the watchlist.
func (r *Repository) RemoveWatch(ctx context.Context, symbol string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM watchlist WHERE symbol = $1;`, symbol)
	if err != nil {
		return fmt.Errorf("remove watch %s: %w", symbol, err)
	}
	return nil
}

// GetSetting reads one stored setting override.
func (r *Repository) GetSetting(ctx context.Context, category, key string) (string, bool, error) {
	var value string
	err := r.pool.QueryRow(ctx,
		`SELECT value FROM settings WHERE category = $1 AND key = $2;`, category, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get setting %s.%s: %w", category, key, err)
	}
	return value, true, nil
}

// SetSetting writes one setting override.
func (r *Repository) SetSetting(ctx context.Context, category, key, value string) error {
	_, err := r.pool.Exec(ctx, `
        INSERT INTO settings (category, key, value, updated_at)
        VALUES ($1, $2, $3, now())
        ON CONFLICT (category, key) DO UPDATE SET value = EXCLUDED.value, updated_at = now();
    `, category, key, value)
	if err != nil {
		return fmt.Errorf("set setting %s.%s: %w", category, key, err)
	}
	return nil
}

// Close releases the underlying pool.
func (r *Repository) Close() {
	r.logger.Info("closing datastore")
	r.pool.Close()
}
