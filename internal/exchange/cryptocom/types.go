package cryptocom

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Number is a float64 that unmarshals from either a JSON number or a
// numeric string. The exchange mixes both representations across
// endpoints.
type Number float64

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*n = 0
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		*n = Number(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*n = Number(f)
	return nil
}

// Float returns the plain float64 value.
func (n Number) Float() float64 { return float64(n) }

// request is the signed JSON-RPC style envelope sent to the exchange.
type request struct {
	ID     int64                  `json:"id"`
	Method string                 `json:"method"`
	APIKey string                 `json:"api_key,omitempty"`
	Params map[string]interface{} `json:"params,omitempty"`
	Nonce  int64                  `json:"nonce,omitempty"`
	Sig    string                 `json:"sig,omitempty"`
}

// response is the common envelope of every exchange reply. Code zero
// means success; anything else is an application error.
type response struct {
	ID      int64           `json:"id"`
	Method  string          `json:"method"`
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

// Account is one currency row of the account summary.
type Account struct {
	Currency  string `json:"currency"`
	Balance   Number `json:"balance"`
	Available Number `json:"available"`
	Order     Number `json:"order"`
	Stake     Number `json:"stake"`
}

type accountSummaryResult struct {
	Accounts []Account `json:"accounts"`
}

type createOrderResult struct {
	OrderID   string `json:"order_id"`
	ClientOID string `json:"client_oid"`
}

// Order statuses reported by the exchange.
const (
	StatusActive   = "ACTIVE"
	StatusFilled   = "FILLED"
	StatusCanceled = "CANCELED"
	StatusRejected = "REJECTED"
	StatusExpired  = "EXPIRED"
)

// IsTerminalStatus reports whether an order can no longer change.
func IsTerminalStatus(status string) bool {
	switch status {
	case StatusFilled, StatusCanceled, StatusRejected, StatusExpired:
		return true
	}
	return false
}

// OrderDetail is the state of a single order.
type OrderDetail struct {
	OrderID            string `json:"order_id"`
	ClientOID          string `json:"client_oid"`
	InstrumentName     string `json:"instrument_name"`
	Side               string `json:"side"`
	Type               string `json:"type"`
	Status             string `json:"status"`
	Price              Number `json:"price"`
	Quantity           Number `json:"quantity"`
	CumulativeQuantity Number `json:"cumulative_quantity"`
	CumulativeValue    Number `json:"cumulative_value"`
	AvgPrice           Number `json:"avg_price"`
	CreateTime         int64  `json:"create_time"`
}

// FillPrice returns the best-known execution price: the average fill
// price when reported, otherwise the order price.
func (d *OrderDetail) FillPrice() float64 {
	if d.AvgPrice != 0 {
		return d.AvgPrice.Float()
	}
	return d.Price.Float()
}

type orderDetailResult struct {
	OrderInfo *OrderDetail `json:"order_info"`
	// Some endpoint versions inline the detail instead of nesting it.
	OrderDetail
}

// TickerData is one instrument row of the public ticker endpoint. The
// exchange uses single-letter field names on this surface.
type TickerData struct {
	Instrument string `json:"i"`
	Bid        Number `json:"b"`
	Ask        Number `json:"k"`
	Last       Number `json:"a"`
	Volume     Number `json:"v"`
	High       Number `json:"h"`
	Low        Number `json:"l"`
	Change     Number `json:"c"`
	Timestamp  int64  `json:"t"`
}

type tickerResult struct {
	Data []TickerData `json:"data"`
}

// CandleData is one OHLCV bar of the public candlestick endpoint.
type CandleData struct {
	Time   int64  `json:"t"`
	Open   Number `json:"o"`
	High   Number `json:"h"`
	Low    Number `json:"l"`
	Close  Number `json:"c"`
	Volume Number `json:"v"`
}

type candlestickResult struct {
	InstrumentName string       `json:"instrument_name"`
	Interval       string       `json:"interval"`
	Data           []CandleData `json:"data"`
}
