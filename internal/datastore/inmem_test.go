package datastore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_SignalsAndTrades(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.SaveSignal(ctx, SignalRecord{
		Time: time.Now(), Symbol: "BTC", Direction: "BUY", Confidence: 0.9, Price: 100, Risk: "LOW",
		Reasoning: []string{"RSI 25.0 oversold (<30)"},
	}))
	require.NoError(t, m.SaveTrade(ctx, TradeRecord{
		Time: time.Now(), Symbol: "BTC", Instrument: "BTC_USDT", Side: "BUY",
		Kind: TradeKindEntry, OrderID: "o-1", Quantity: 0.001, Price: 100, Notional: 10, Status: "FILLED",
	}))

	require.Len(t, m.Signals(), 1)
	require.Len(t, m.Trades(), 1)
	assert.Equal(t, "BUY", m.Signals()[0].Direction)
	assert.Equal(t, TradeKindEntry, m.Trades()[0].Kind)
}

func TestMemory_PositionLifecycle(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	rec := PositionRecord{
		Symbol: "BTC", Instrument: "BTC_USDT", Side: "BUY", Quantity: 0.001,
		EntryPrice: 100, Status: "ACTIVE", OpenedAt: time.Now(),
	}
	require.NoError(t, m.UpsertPosition(ctx, rec))

	open, err := m.ListOpenPositions(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)

	closedAt := time.Now()
	rec.Status = "CLOSED"
	rec.ClosedAt = &closedAt
	rec.ClosePrice = 94
	rec.CloseReason = "SL hit"
	require.NoError(t, m.UpsertPosition(ctx, rec))

	open, err = m.ListOpenPositions(ctx)
	require.NoError(t, err)
	assert.Empty(t, open, "closed positions do not rehydrate")

	stored, ok := m.Position("BTC")
	require.True(t, ok)
	assert.Equal(t, "SL hit", stored.CloseReason)
}

func TestMemory_Watchlist(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.AddWatch(ctx, "BTC"))
	require.NoError(t, m.AddWatch(ctx, "ETH"))
	require.NoError(t, m.AddWatch(ctx, "BTC"), "duplicates are ignored")

	list, err := m.ListWatchlist(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"BTC", "ETH"}, list)

	require.NoError(t, m.RemoveWatch(ctx, "BTC"))
	list, err = m.ListWatchlist(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"ETH"}, list)
}

func TestMemory_Settings(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_, found, err := m.GetSetting(ctx, "trading", "trade_amount")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, m.SetSetting(ctx, "trading", "trade_amount", "25"))
	v, found, err := m.GetSetting(ctx, "trading", "trade_amount")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "25", v)
}
