package report

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/signal-trader/internal/datastore"
)

func entry(symbol string, at time.Time, price, qty float64) datastore.TradeRecord {
	return datastore.TradeRecord{
		Time: at, Symbol: symbol, Side: "BUY",
		Kind: datastore.TradeKindEntry, Quantity: qty, Price: price,
	}
}

func closeTrade(symbol string, at time.Time, price, qty float64, reason string) datastore.TradeRecord {
	return datastore.TradeRecord{
		Time: at, Symbol: symbol, Side: "SELL",
		Kind: datastore.TradeKindClose, Quantity: qty, Price: price, Reason: reason,
	}
}

func TestPairRounds(t *testing.T) {
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	trades := []datastore.TradeRecord{
		entry("BTC", t0, 100, 1),
		entry("ETH", t0.Add(time.Minute), 50, 2),
		closeTrade("BTC", t0.Add(2*time.Hour), 105, 1, "TP hit"),
		closeTrade("ETH", t0.Add(3*time.Hour), 48, 2, "SL hit"),
		// Close without a preceding entry is skipped.
		closeTrade("SOL", t0.Add(4*time.Hour), 20, 1, "sell signal"),
		// Entry still open is skipped.
		entry("BTC", t0.Add(5*time.Hour), 110, 1),
	}

	rounds := PairRounds(trades)
	require.Len(t, rounds, 2)

	assert.Equal(t, "BTC", rounds[0].Symbol)
	assert.True(t, rounds[0].PnL.Equal(decimal.NewFromInt(5)), rounds[0].PnL.String())
	assert.Equal(t, "TP hit", rounds[0].CloseReason)

	assert.Equal(t, "ETH", rounds[1].Symbol)
	assert.True(t, rounds[1].PnL.Equal(decimal.NewFromInt(-4)), rounds[1].PnL.String())
}

func TestPairRounds_PartialClose(t *testing.T) {
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	trades := []datastore.TradeRecord{
		entry("BTC", t0, 100, 1),
		closeTrade("BTC", t0.Add(time.Hour), 110, 0.4, "TP hit"),
	}

	rounds := PairRounds(trades)
	require.Len(t, rounds, 1)
	assert.InDelta(t, 0.4, rounds[0].Quantity, 1e-9)
	assert.True(t, rounds[0].PnL.Equal(decimal.NewFromInt(4)), rounds[0].PnL.String())
}

func TestAnalyze(t *testing.T) {
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	mk := func(pnl float64, reason string, hold time.Duration) ClosedRound {
		return ClosedRound{
			Symbol: "BTC", Side: "BUY", PnL: decimal.NewFromFloat(pnl),
			CloseReason: reason, OpenedAt: t0, ClosedAt: t0.Add(hold),
		}
	}
	rounds := []ClosedRound{
		mk(10, "TP hit", time.Hour),
		mk(-4, "SL hit", 30*time.Minute),
		mk(-6, "SL hit", time.Hour),
		mk(8, "TP hit", 90*time.Minute),
	}

	r, err := Analyze(rounds)
	require.NoError(t, err)

	assert.Equal(t, 4, r.TotalRounds)
	assert.Equal(t, 2, r.WinningRounds)
	assert.Equal(t, 2, r.LosingRounds)
	assert.InDelta(t, 50, r.WinRate, 1e-9)
	assert.True(t, r.TotalPnL.Equal(decimal.NewFromInt(8)), r.TotalPnL.String())
	assert.True(t, r.AverageProfit.Equal(decimal.NewFromInt(9)), r.AverageProfit.String())
	assert.True(t, r.AverageLoss.Equal(decimal.NewFromInt(5)), r.AverageLoss.String())
	assert.InDelta(t, 1.8, r.ProfitFactor, 1e-9)
	// Equity path 10, 6, 0, 8: the deepest drop from the peak of 10 is 10.
	assert.True(t, r.MaxDrawdown.Equal(decimal.NewFromInt(10)), r.MaxDrawdown.String())
	assert.Equal(t, 1, r.MaxConsecutiveWins)
	assert.Equal(t, 2, r.MaxConsecutiveLosses)
	assert.Equal(t, 2, r.TakeProfitCloses)
	assert.Equal(t, 2, r.StopLossCloses)
	assert.InDelta(t, 3600, r.AverageHoldSeconds, 1e-9)
}

func TestAnalyze_Empty(t *testing.T) {
	_, err := Analyze(nil)
	require.Error(t, err)
}
