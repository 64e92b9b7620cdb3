package signal

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/signal-trader/internal/config"
	"github.com/your-org/signal-trader/internal/indicator"
	"github.com/your-org/signal-trader/internal/marketdata"
)

func testSettings() config.TradingSettings {
	return config.TradingSettings{
		RSIPeriod:     14,
		RSIOversold:   30,
		RSIOverbought: 70,
		MAPeriod:      20,
		EMAPeriod:     12,
		ATRPeriod:     14,
	}
}

func ok(v float64) indicator.Value { return indicator.Value{V: v, OK: true} }

func TestDecide_OversoldAlignmentIsBuy(t *testing.T) {
	set := indicator.Set{
		RSI: ok(25),
		MA:  ok(90),
		EMA: ok(95),
	}
	market := marketdata.Ticker{Symbol: "BTC", Price: 100}

	sig := decide("BTC", set, market, testSettings())

	assert.Equal(t, DirectionBuy, sig.Direction)
	assert.InDelta(t, 0.9, sig.Confidence, 1e-9, "0.5+0.3+0.2 caps at 0.9")
	assert.Equal(t, RiskLow, sig.Risk)
	assert.NotEmpty(t, sig.Reasoning)
}

func TestDecide_OverboughtBelowAveragesIsSell(t *testing.T) {
	set := indicator.Set{
		RSI: ok(78),
		MA:  ok(110),
		EMA: ok(108),
	}
	sig := decide("ETH", set, marketdata.Ticker{Price: 100}, testSettings())

	assert.Equal(t, DirectionSell, sig.Direction)
	assert.InDelta(t, 0.9, sig.Confidence, 1e-9)
}

func TestDecide_TieIsWait(t *testing.T) {
	// RSI gives two buy votes; stochastic and MACD give two sell votes.
	set := indicator.Set{
		RSI:      ok(25),
		StochK:   ok(85),
		MACDLine: ok(-1),
	}
	sig := decide("BTC", set, marketdata.Ticker{Price: 100}, testSettings())

	assert.Equal(t, DirectionWait, sig.Direction, "equal vote counts never act")
}

func TestDecide_SingleVoteIsNotEnough(t *testing.T) {
	set := indicator.Set{MACDLine: ok(2)}
	sig := decide("BTC", set, marketdata.Ticker{Price: 100}, testSettings())

	assert.Equal(t, DirectionWait, sig.Direction, "winning side needs at least two votes")
}

func TestDecide_NoSetupIsMidConfidenceWait(t *testing.T) {
	sig := decide("BTC", indicator.Set{}, marketdata.Ticker{Price: 100}, testSettings())

	assert.Equal(t, DirectionWait, sig.Direction)
	assert.Equal(t, 0.5, sig.Confidence)
	assert.Equal(t, RiskHigh, sig.Risk, "confidence at or below 0.6 grades high risk")
}

func TestDecide_VolumeSpikeOnlyRaisesConfidence(t *testing.T) {
	set := indicator.Set{
		VolumeSMA:  ok(100),
		LastVolume: 200,
	}
	sig := decide("BTC", set, marketdata.Ticker{Price: 100}, testSettings())

	assert.Equal(t, DirectionWait, sig.Direction, "volume spike carries no vote")
	assert.InDelta(t, 0.6, sig.Confidence, 1e-9)
}

func TestDecide_StrongMoveIsContrarianAndHighRisk(t *testing.T) {
	set := indicator.Set{
		RSI: ok(78),
		MA:  ok(110),
		EMA: ok(108),
	}
	market := marketdata.Ticker{Price: 100, ChangePct24h: 6.5}

	sig := decide("BTC", set, market, testSettings())

	assert.Equal(t, DirectionSell, sig.Direction)
	assert.Equal(t, RiskHigh, sig.Risk, "a move beyond 5%% forces high risk regardless of confidence")
	assert.InDelta(t, 0.9, sig.Confidence, 1e-9, "contrarian vote adds no confidence")
}

func TestDecide_StrongDropVotesBuy(t *testing.T) {
	market := marketdata.Ticker{Price: 100, ChangePct24h: -7}
	set := indicator.Set{RSI: ok(25)}

	sig := decide("BTC", set, market, testSettings())

	assert.Equal(t, DirectionBuy, sig.Direction, "oversold RSI plus contrarian drop vote reach the threshold")
	assert.Equal(t, RiskHigh, sig.Risk)
}

func TestDecide_Deterministic(t *testing.T) {
	set := indicator.Set{RSI: ok(25), MA: ok(90), EMA: ok(95), StochK: ok(15)}
	market := marketdata.Ticker{Price: 100, ChangePct24h: 1}
	settings := testSettings()

	a := decide("BTC", set, market, settings)
	b := decide("BTC", set, market, settings)

	assert.Equal(t, a.Direction, b.Direction)
	assert.Equal(t, a.Confidence, b.Confidence)
	assert.Equal(t, a.Risk, b.Risk)
	assert.Equal(t, a.Reasoning, b.Reasoning)
}

// fakeProvider implements marketdata.Provider for Evaluate tests.
type fakeProvider struct {
	ticker  *marketdata.Ticker
	candles []marketdata.Candle
	err     error
}

func (f *fakeProvider) GetTicker(context.Context, string) (*marketdata.Ticker, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.ticker, nil
}

func (f *fakeProvider) GetOHLCV(context.Context, string, int) ([]marketdata.Candle, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.candles, nil
}

func (f *fakeProvider) LastPrice(context.Context, string) (float64, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.ticker.Price, nil
}

type staticSettings struct{ s config.TradingSettings }

func (s staticSettings) Snapshot(context.Context) config.TradingSettings { return s.s }

func TestEvaluate_UnavailableDataSkips(t *testing.T) {
	e := NewEngine(&fakeProvider{err: marketdata.ErrUnavailable}, staticSettings{testSettings()})

	sig, err := e.Evaluate(context.Background(), "BTC")
	require.NoError(t, err)
	assert.Nil(t, sig, "unavailable data is a skip, not an error")
}

func TestEvaluate_ShortHistorySkips(t *testing.T) {
	// 30 steadily declining bars would scream BUY, but a decision needs
	// at least 50 bars of history.
	candles := make([]marketdata.Candle, 30)
	price := 200.0
	for i := range candles {
		price -= 2
		candles[i] = marketdata.Candle{
			Open: price + 2, High: price + 3, Low: price - 1, Close: price, Volume: 100,
		}
	}
	provider := &fakeProvider{
		ticker:  &marketdata.Ticker{Symbol: "BTC", Price: candles[len(candles)-1].Close},
		candles: candles,
	}
	e := NewEngine(provider, staticSettings{testSettings()})

	sig, err := e.Evaluate(context.Background(), "BTC")
	require.NoError(t, err)
	assert.Nil(t, sig, "fewer than 50 bars reads as not available")
}

func TestEvaluate_FallingMarketProducesBuy(t *testing.T) {
	// A long steady decline: RSI 0, stochastic 0, lower band touch.
	candles := make([]marketdata.Candle, 60)
	price := 200.0
	for i := range candles {
		price -= 2
		candles[i] = marketdata.Candle{
			Open: price + 2, High: price + 3, Low: price - 1, Close: price, Volume: 100,
		}
	}
	last := candles[len(candles)-1].Close
	provider := &fakeProvider{
		ticker:  &marketdata.Ticker{Symbol: "BTC", Price: last},
		candles: candles,
	}
	e := NewEngine(provider, staticSettings{testSettings()})

	sig, err := e.Evaluate(context.Background(), "BTC")
	require.NoError(t, err)
	require.NotNil(t, sig)
	assert.Equal(t, DirectionBuy, sig.Direction)
	assert.True(t, sig.Indicators.RSI.OK)
	assert.Less(t, sig.Indicators.RSI.V, 30.0)
}
