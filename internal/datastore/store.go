// Package datastore persists signals, trades, positions, the watchlist
// and runtime settings.
package datastore

import (
	"context"
	"time"
)

// SignalRecord is one emitted trading signal.
type SignalRecord struct {
	Time       time.Time `db:"time"`
	Symbol     string    `db:"symbol"`
	Direction  string    `db:"direction"`
	Confidence float64   `db:"confidence"`
	Price      float64   `db:"price"`
	Risk       string    `db:"risk"`
	Reasoning  []string  `db:"reasoning"`
}

// TradeRecord is one order event (entry, bracket placement or close).
type TradeRecord struct {
	Time       time.Time `db:"time"`
	Symbol     string    `db:"symbol"`
	Instrument string    `db:"instrument"`
	Side       string    `db:"side"`
	Kind       string    `db:"kind"` // ENTRY, TAKE_PROFIT, STOP_LOSS, CLOSE
	OrderID    string    `db:"order_id"`
	Quantity   float64   `db:"quantity"`
	Price      float64   `db:"price"`
	Notional   float64   `db:"notional"`
	Status     string    `db:"status"`
	Reason     string    `db:"reason"`
}

// Trade kinds.
const (
	TradeKindEntry      = "ENTRY"
	TradeKindTakeProfit = "TAKE_PROFIT"
	TradeKindStopLoss   = "STOP_LOSS"
	TradeKindClose      = "CLOSE"
)

// PositionRecord mirrors the in-memory position book; one row per
// symbol, overwritten as the position evolves.
type PositionRecord struct {
	Symbol       string     `db:"symbol"`
	Instrument   string     `db:"instrument"`
	Side         string     `db:"side"`
	Quantity     float64    `db:"quantity"`
	EntryPrice   float64    `db:"entry_price"`
	TakeProfit   float64    `db:"take_profit"`
	StopLoss     float64    `db:"stop_loss"`
	EntryOrderID string     `db:"entry_order_id"`
	TPOrderID    string     `db:"tp_order_id"`
	SLOrderID    string     `db:"sl_order_id"`
	Status       string     `db:"status"`
	OpenedAt     time.Time  `db:"opened_at"`
	ClosedAt     *time.Time `db:"closed_at"`
	ClosePrice   float64    `db:"close_price"`
	PnL          float64    `db:"pnl"`
	CloseReason  string     `db:"close_reason"`
}

// Store is the persistence boundary of the bot. The pgx repository and
// the in-memory store both implement it; the settings methods satisfy
// config.SettingsStore.
type Store interface {
	SaveSignal(ctx context.Context, rec SignalRecord) error
	SaveTrade(ctx context.Context, rec TradeRecord) error

	UpsertPosition(ctx context.Context, rec PositionRecord) error
	ListOpenPositions(ctx context.Context) ([]PositionRecord, error)

	ListWatchlist(ctx context.Context) ([]string, error)
	AddWatch(ctx context.Context, symbol string) error
	RemoveWatch(ctx context.Context, symbol string) error

	GetSetting(ctx context.Context, category, key string) (string, bool, error)
	SetSetting(ctx context.Context, category, key, value string) error

	Close()
}
