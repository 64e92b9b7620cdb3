// Package marketdata provides the price and candle data feeding the
// signal engine and the position monitor.
package marketdata

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable is returned when data for an instrument cannot be
// obtained right now. Callers treat it as "skip", not as a fault.
var ErrUnavailable = errors.New("market data unavailable")

// Ticker is a 24h market snapshot for one instrument.
type Ticker struct {
	Symbol       string
	Instrument   string
	Price        float64
	Volume24h    float64
	High24h      float64
	Low24h       float64
	ChangePct24h float64
	Time         time.Time
}

// Candle is one OHLCV bar.
type Candle struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Provider supplies market data. Implementations must map transient
// upstream failures to ErrUnavailable.
type Provider interface {
	// GetTicker returns the full 24h snapshot.
	GetTicker(ctx context.Context, symbol string) (*Ticker, error)
	// GetOHLCV returns up to limit bars, oldest first.
	GetOHLCV(ctx context.Context, symbol string, limit int) ([]Candle, error)
	// LastPrice returns just the current price, served from the stream
	// cache when fresh.
	LastPrice(ctx context.Context, symbol string) (float64, error)
}
