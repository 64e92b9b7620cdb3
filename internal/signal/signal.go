// Package signal turns indicator snapshots into trading decisions.
package signal

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/your-org/signal-trader/internal/config"
	"github.com/your-org/signal-trader/internal/indicator"
	"github.com/your-org/signal-trader/internal/marketdata"
	"github.com/your-org/signal-trader/pkg/logger"
)

// Direction is the decision for one instrument.
type Direction int

const (
	// DirectionWait indicates no actionable setup.
	DirectionWait Direction = iota
	// DirectionBuy indicates a long entry.
	DirectionBuy
	// DirectionSell indicates an exit / short-side signal.
	DirectionSell
)

// String returns the wire representation of a Direction.
func (d Direction) String() string {
	switch d {
	case DirectionBuy:
		return "BUY"
	case DirectionSell:
		return "SELL"
	case DirectionWait:
		return "WAIT"
	default:
		return "UNKNOWN"
	}
}

// RiskLevel grades how aggressive acting on a signal would be.
type RiskLevel int

const (
	RiskLow RiskLevel = iota
	RiskMedium
	RiskHigh
)

// String returns the wire representation of a RiskLevel.
func (r RiskLevel) String() string {
	switch r {
	case RiskLow:
		return "LOW"
	case RiskMedium:
		return "MEDIUM"
	case RiskHigh:
		return "HIGH"
	default:
		return "UNKNOWN"
	}
}

// Signal is a fully-reasoned decision for one instrument at one time.
type Signal struct {
	Symbol     string
	Direction  Direction
	Confidence float64
	Price      float64
	Risk       RiskLevel
	Reasoning  []string
	Indicators indicator.Set
	Market     marketdata.Ticker
	Time       time.Time
}

const (
	// candleLookback is how many bars the engine requests per evaluation.
	candleLookback = 250

	// minCandleHistory is the fewest bars a decision may be based on.
	// Shorter histories read as "not available" and the symbol is skipped.
	minCandleHistory = 50

	baseConfidence = 0.5
	maxConfidence  = 0.9

	volumeSpikeRatio = 1.5
	strongMovePct    = 5.0

	minVotesToAct = 2

	lowRiskConfidence  = 0.8
	highRiskConfidence = 0.6
)

// SettingsSource yields the decision-time settings snapshot.
type SettingsSource interface {
	Snapshot(ctx context.Context) config.TradingSettings
}

// Engine evaluates instruments on demand. It is stateless across calls;
// for a fixed settings snapshot and market data the output is
// deterministic.
type Engine struct {
	data     marketdata.Provider
	settings SettingsSource
}

// NewEngine creates a signal engine.
func NewEngine(data marketdata.Provider, settings SettingsSource) *Engine {
	return &Engine{data: data, settings: settings}
}

// Evaluate produces a decision for one symbol. It returns (nil, nil)
// when market data is unavailable, which callers treat as "skip".
func (e *Engine) Evaluate(ctx context.Context, symbol string) (*Signal, error) {
	settings := e.settings.Snapshot(ctx)

	ticker, err := e.data.GetTicker(ctx, symbol)
	if err != nil {
		if errors.Is(err, marketdata.ErrUnavailable) {
			logger.Debugf("ticker unavailable for %s, skipping", symbol)
			return nil, nil
		}
		return nil, fmt.Errorf("ticker for %s: %w", symbol, err)
	}
	candles, err := e.data.GetOHLCV(ctx, symbol, candleLookback)
	if err != nil {
		if errors.Is(err, marketdata.ErrUnavailable) {
			logger.Debugf("candles unavailable for %s, skipping", symbol)
			return nil, nil
		}
		return nil, fmt.Errorf("candles for %s: %w", symbol, err)
	}
	if len(candles) < minCandleHistory {
		logger.Debugf("only %d candles for %s, need %d, skipping", len(candles), symbol, minCandleHistory)
		return nil, nil
	}

	highs := make([]float64, len(candles))
	lows := make([]float64, len(candles))
	closes := make([]float64, len(candles))
	volumes := make([]float64, len(candles))
	for i, c := range candles {
		highs[i] = c.High
		lows[i] = c.Low
		closes[i] = c.Close
		volumes[i] = c.Volume
	}
	set := indicator.Compute(highs, lows, closes, volumes, indicator.Config{
		RSIPeriod: settings.RSIPeriod,
		MAPeriod:  settings.MAPeriod,
		EMAPeriod: settings.EMAPeriod,
		ATRPeriod: settings.ATRPeriod,
	})

	sig := decide(symbol, set, *ticker, settings)
	logger.Debugf("evaluated %s: %s confidence=%.2f risk=%s",
		symbol, sig.Direction, sig.Confidence, sig.Risk)
	return sig, nil
}

// decide applies the weighted vote rule to an indicator snapshot.
func decide(symbol string, set indicator.Set, market marketdata.Ticker, settings config.TradingSettings) *Signal {
	var (
		buyVotes, sellVotes int
		confidence          = baseConfidence
		reasoning           []string
		forcedHighRisk      bool
	)
	price := market.Price

	if set.RSI.OK {
		switch {
		case set.RSI.V < settings.RSIOversold:
			buyVotes += 2
			confidence += 0.30
			reasoning = append(reasoning, fmt.Sprintf("RSI %.1f oversold (<%.0f)", set.RSI.V, settings.RSIOversold))
		case set.RSI.V > settings.RSIOverbought:
			sellVotes += 2
			confidence += 0.30
			reasoning = append(reasoning, fmt.Sprintf("RSI %.1f overbought (>%.0f)", set.RSI.V, settings.RSIOverbought))
		}
	}

	if set.MA.OK && set.EMA.OK && price > 0 {
		switch {
		case price > set.MA.V && price > set.EMA.V:
			buyVotes++
			confidence += 0.20
			reasoning = append(reasoning, "price above MA and EMA")
		case price < set.MA.V && price < set.EMA.V:
			sellVotes++
			confidence += 0.20
			reasoning = append(reasoning, "price below MA and EMA")
		}
	}

	if set.BollUpper.OK && price > 0 {
		switch {
		case price <= set.BollLower.V:
			buyVotes++
			confidence += 0.25
			reasoning = append(reasoning, "price at lower Bollinger band")
		case price >= set.BollUpper.V:
			sellVotes++
			confidence += 0.25
			reasoning = append(reasoning, "price at upper Bollinger band")
		}
	}

	if set.MACDLine.OK {
		switch {
		case set.MACDLine.V > 0:
			buyVotes++
			confidence += 0.15
			reasoning = append(reasoning, "MACD above zero line")
		case set.MACDLine.V < 0:
			sellVotes++
			confidence += 0.15
			reasoning = append(reasoning, "MACD below zero line")
		}
	}

	if set.StochK.OK {
		switch {
		case set.StochK.V < 20:
			buyVotes++
			confidence += 0.10
			reasoning = append(reasoning, fmt.Sprintf("stochastic %.1f oversold", set.StochK.V))
		case set.StochK.V > 80:
			sellVotes++
			confidence += 0.10
			reasoning = append(reasoning, fmt.Sprintf("stochastic %.1f overbought", set.StochK.V))
		}
	}

	if set.VolumeSMA.OK && set.VolumeSMA.V > 0 && set.LastVolume > set.VolumeSMA.V*volumeSpikeRatio {
		confidence += 0.10
		reasoning = append(reasoning, "volume spike above average")
	}

	if math.Abs(market.ChangePct24h) > strongMovePct {
		forcedHighRisk = true
		if market.ChangePct24h > 0 {
			sellVotes++
			reasoning = append(reasoning, fmt.Sprintf("strong 24h move +%.1f%%, contrarian", market.ChangePct24h))
		} else {
			buyVotes++
			reasoning = append(reasoning, fmt.Sprintf("strong 24h move %.1f%%, contrarian", market.ChangePct24h))
		}
	}

	direction := DirectionWait
	switch {
	case buyVotes > sellVotes && buyVotes >= minVotesToAct:
		direction = DirectionBuy
	case sellVotes > buyVotes && sellVotes >= minVotesToAct:
		direction = DirectionSell
	}

	confidence = math.Min(confidence, maxConfidence)

	risk := RiskMedium
	switch {
	case forcedHighRisk:
		risk = RiskHigh
	case confidence >= lowRiskConfidence:
		risk = RiskLow
	case confidence <= highRiskConfidence:
		risk = RiskHigh
	}

	return &Signal{
		Symbol:     symbol,
		Direction:  direction,
		Confidence: confidence,
		Price:      price,
		Risk:       risk,
		Reasoning:  reasoning,
		Indicators: set,
		Market:     market,
		Time:       time.Now().UTC(),
	}
}
