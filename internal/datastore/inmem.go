package datastore

import (
	"context"
	"sync"
)

var _ Store = (*Memory)(nil)

// Memory is an in-memory Store used for tests and for running without a
// database.
type Memory struct {
	mu        sync.Mutex
	signals   []SignalRecord
	trades    []TradeRecord
	positions map[string]PositionRecord
	watchlist []string
	settings  map[string]string
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		positions: make(map[string]PositionRecord),
		settings:  make(map[string]string),
	}
}

// SaveSignal appends a signal record.
func (m *Memory) SaveSignal(_ context.Context, rec SignalRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signals = append(m.signals, rec)
	return nil
}

// SaveTrade appends a trade record.
func (m *Memory) SaveTrade(_ context.Context, rec TradeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trades = append(m.trades, rec)
	return nil
}

// UpsertPosition overwrites the position row for a symbol.
func (m *Memory) UpsertPosition(_ context.Context, rec PositionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions[rec.Symbol] = rec
	return nil
}

// ListOpenPositions returns positions that are not CLOSED.
func (m *Memory) ListOpenPositions(_ context.Context) ([]PositionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []PositionRecord
	for _, p := range m.positions {
		if p.Status == "ACTIVE" || p.Status == "CLOSING" {
			out = append(out, p)
		}
	}
	return out, nil
}

// ListWatchlist returns the watched symbols in insertion order.
func (m *Memory) ListWatchlist(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.watchlist))
	copy(out, m.watchlist)
	return out, nil
}

// AddWatch appends a symbol, ignoring duplicates.
func (m *Memory) AddWatch(_ context.Context, symbol string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.watchlist {
		if s == symbol {
			return nil
		}
	}
	m.watchlist = append(m.watchlist, symbol)
	return nil
}

// RemoveWatch deletes a symbol.
func (m *Memory) RemoveWatch(_ context.Context, symbol string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, s := range m.watchlist {
		if s == symbol {
			m.watchlist = append(m.watchlist[:i], m.watchlist[i+1:]...)
			return nil
		}
	}
	return nil
}

// GetSetting reads one stored override.
func (m *Memory) GetSetting(_ context.Context, category, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.settings[category+"."+key]
	return v, ok, nil
}

// SetSetting writes one override.
func (m *Memory) SetSetting(_ context.Context, category, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[category+"."+key] = value
	return nil
}

// Close is a no-op.
func (m *Memory) Close() {}

// Signals returns a copy of the stored signals, newest last.
func (m *Memory) Signals() []SignalRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SignalRecord, len(m.signals))
	copy(out, m.signals)
	return out
}

// Trades returns a copy of the stored trades, newest last.
func (m *Memory) Trades() []TradeRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]TradeRecord, len(m.trades))
	copy(out, m.trades)
	return out
}

// Position returns the stored row for a symbol.
func (m *Memory) Position(symbol string) (PositionRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.positions[symbol]
	return p, ok
}
