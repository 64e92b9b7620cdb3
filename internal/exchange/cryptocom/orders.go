package cryptocom

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// GetAccountSummary returns all currency accounts.
func (c *Client) GetAccountSummary(ctx context.Context) ([]Account, error) {
	result, err := c.call(ctx, "private/get-account-summary", map[string]interface{}{})
	if err != nil {
		return nil, err
	}
	var summary accountSummaryResult
	if err := json.Unmarshal(result, &summary); err != nil {
		return nil, &MalformedResponseError{Method: "private/get-account-summary", Body: result, Err: err}
	}
	return summary.Accounts, nil
}

// GetBalance returns the available balance for one currency. An account
// the exchange has never seen reports zero.
func (c *Client) GetBalance(ctx context.Context, currency string) (float64, error) {
	accounts, err := c.GetAccountSummary(ctx)
	if err != nil {
		return 0, err
	}
	for _, a := range accounts {
		if strings.EqualFold(a.Currency, currency) {
			return a.Available.Float(), nil
		}
	}
	return 0, nil
}

// CreateMarketBuy places a market buy spending the given notional amount
// of quote currency. A client order id tags the request so a retried
// submission stays idempotent on the exchange side.
func (c *Client) CreateMarketBuy(ctx context.Context, instrument string, notional float64) (string, error) {
	params := map[string]interface{}{
		"instrument_name": instrument,
		"side":            "BUY",
		"type":            "MARKET",
		"notional":        FormatPrice(notional),
		"client_oid":      uuid.NewString(),
	}
	return c.createOrder(ctx, params)
}

// CreateMarketSell places a market sell of the given base quantity.
func (c *Client) CreateMarketSell(ctx context.Context, instrument string, quantity float64) (string, error) {
	params := map[string]interface{}{
		"instrument_name": instrument,
		"side":            "SELL",
		"type":            "MARKET",
		"quantity":        FormatQuantity(instrument, quantity),
		"client_oid":      uuid.NewString(),
	}
	return c.createOrder(ctx, params)
}

// CreateLimitOrder places a limit order.
func (c *Client) CreateLimitOrder(ctx context.Context, instrument, side string, price, quantity float64) (string, error) {
	params := map[string]interface{}{
		"instrument_name": instrument,
		"side":            side,
		"type":            "LIMIT",
		"price":           FormatPrice(price),
		"quantity":        FormatQuantity(instrument, quantity),
		"client_oid":      uuid.NewString(),
	}
	return c.createOrder(ctx, params)
}

func (c *Client) createOrder(ctx context.Context, params map[string]interface{}) (string, error) {
	result, err := c.call(ctx, "private/create-order", params)
	if err != nil {
		return "", err
	}
	var created createOrderResult
	if err := json.Unmarshal(result, &created); err != nil {
		return "", &MalformedResponseError{Method: "private/create-order", Body: result, Err: err}
	}
	if created.OrderID == "" {
		return "", &MalformedResponseError{Method: "private/create-order", Body: result,
			Err: fmt.Errorf("missing order_id")}
	}
	return created.OrderID, nil
}

// GetOrderDetail fetches the current state of an order.
func (c *Client) GetOrderDetail(ctx context.Context, orderID string) (*OrderDetail, error) {
	result, err := c.call(ctx, "private/get-order-detail", map[string]interface{}{
		"order_id": orderID,
	})
	if err != nil {
		return nil, err
	}
	var detail orderDetailResult
	if err := json.Unmarshal(result, &detail); err != nil {
		return nil, &MalformedResponseError{Method: "private/get-order-detail", Body: result, Err: err}
	}
	if detail.OrderInfo != nil {
		return detail.OrderInfo, nil
	}
	return &detail.OrderDetail, nil
}

// CancelOrder cancels an open order.
func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	_, err := c.call(ctx, "private/cancel-order", map[string]interface{}{
		"order_id": orderID,
	})
	return err
}
