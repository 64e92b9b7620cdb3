package cryptocom

import (
	"context"
	"encoding/json"
	"fmt"
)

// GetTicker fetches the public 24h ticker for one instrument.
func (c *Client) GetTicker(ctx context.Context, instrument string) (*TickerData, error) {
	result, err := c.call(ctx, "public/get-ticker", map[string]interface{}{
		"instrument_name": instrument,
	})
	if err != nil {
		return nil, err
	}
	var ticker tickerResult
	if err := json.Unmarshal(result, &ticker); err != nil {
		return nil, &MalformedResponseError{Method: "public/get-ticker", Body: result, Err: err}
	}
	if len(ticker.Data) == 0 {
		return nil, &MalformedResponseError{Method: "public/get-ticker", Body: result,
			Err: fmt.Errorf("empty ticker data for %s", instrument)}
	}
	return &ticker.Data[0], nil
}

// GetCandles fetches public OHLCV bars, oldest first.
func (c *Client) GetCandles(ctx context.Context, instrument, interval string, limit int) ([]CandleData, error) {
	result, err := c.call(ctx, "public/get-candlestick", map[string]interface{}{
		"instrument_name": instrument,
		"timeframe":       interval,
	})
	if err != nil {
		return nil, err
	}
	var candles candlestickResult
	if err := json.Unmarshal(result, &candles); err != nil {
		return nil, &MalformedResponseError{Method: "public/get-candlestick", Body: result, Err: err}
	}
	data := candles.Data
	if limit > 0 && len(data) > limit {
		data = data[len(data)-limit:]
	}
	return data, nil
}
