package marketdata

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/your-org/signal-trader/internal/exchange/cryptocom"
)

// candleInterval is the bar size fed to the indicators.
const candleInterval = "1h"

// exchangeClient is the slice of the protocol client this provider uses.
type exchangeClient interface {
	GetTicker(ctx context.Context, instrument string) (*cryptocom.TickerData, error)
	GetCandles(ctx context.Context, instrument, interval string, limit int) ([]cryptocom.CandleData, error)
}

// priceStream is the websocket cache fast path. Nil disables it.
type priceStream interface {
	Subscribe(instrument string)
	Price(instrument string) (float64, bool)
}

// ExchangeProvider serves market data from the exchange's public
// endpoints, preferring the streamed price cache where it is fresh.
type ExchangeProvider struct {
	client exchangeClient
	stream priceStream
	quote  string
}

// NewExchangeProvider creates a provider. stream may be nil.
func NewExchangeProvider(client exchangeClient, stream priceStream, quote string) *ExchangeProvider {
	return &ExchangeProvider{client: client, stream: stream, quote: quote}
}

func mapUnavailable(err error) error {
	if errors.Is(err, cryptocom.ErrUnavailable) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}

// GetTicker returns the full 24h snapshot for a symbol.
func (p *ExchangeProvider) GetTicker(ctx context.Context, symbol string) (*Ticker, error) {
	instrument := NormalizeInstrument(symbol, p.quote)
	data, err := p.client.GetTicker(ctx, instrument)
	if err != nil {
		return nil, mapUnavailable(err)
	}
	last := data.Last.Float()
	change := data.Change.Float()
	var changePct float64
	if prev := last - change; prev != 0 {
		changePct = change / prev * 100
	}
	return &Ticker{
		Symbol:       symbol,
		Instrument:   instrument,
		Price:        last,
		Volume24h:    data.Volume.Float(),
		High24h:      data.High.Float(),
		Low24h:       data.Low.Float(),
		ChangePct24h: changePct,
		Time:         time.UnixMilli(data.Timestamp),
	}, nil
}

// GetOHLCV returns up to limit hourly bars, oldest first.
func (p *ExchangeProvider) GetOHLCV(ctx context.Context, symbol string, limit int) ([]Candle, error) {
	instrument := NormalizeInstrument(symbol, p.quote)
	data, err := p.client.GetCandles(ctx, instrument, candleInterval, limit)
	if err != nil {
		return nil, mapUnavailable(err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: no candles for %s", ErrUnavailable, instrument)
	}
	candles := make([]Candle, len(data))
	for i, d := range data {
		candles[i] = Candle{
			Time:   time.UnixMilli(d.Time),
			Open:   d.Open.Float(),
			High:   d.High.Float(),
			Low:    d.Low.Float(),
			Close:  d.Close.Float(),
			Volume: d.Volume.Float(),
		}
	}
	return candles, nil
}

// LastPrice returns the current price, consulting the stream cache
// before the REST ticker.
func (p *ExchangeProvider) LastPrice(ctx context.Context, symbol string) (float64, error) {
	instrument := NormalizeInstrument(symbol, p.quote)
	if p.stream != nil {
		p.stream.Subscribe(instrument)
		if price, ok := p.stream.Price(instrument); ok {
			return price, nil
		}
	}
	ticker, err := p.GetTicker(ctx, symbol)
	if err != nil {
		return 0, err
	}
	if ticker.Price <= 0 {
		return 0, fmt.Errorf("%w: no price for %s", ErrUnavailable, instrument)
	}
	return ticker.Price, nil
}
