package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/your-org/signal-trader/internal/config"
	"github.com/your-org/signal-trader/internal/datastore"
	"github.com/your-org/signal-trader/internal/exchange/cryptocom"
	"github.com/your-org/signal-trader/pkg/logger"
)

// Bracket clamp bands around the current market price. A take-profit
// closer than 0.5% or further than 5% from market gets rejected or sits
// unfillable; same for the stop-loss on the downside.
const (
	tpMinRatio = 1.005
	tpMaxRatio = 1.05
	slMinRatio = 0.95
	slMaxRatio = 0.995
)

// BracketPrices computes take-profit and stop-loss levels for a BUY
// position from the configured percentages off the entry price, clamped
// into the tradable band around the current market price.
func BracketPrices(entryPrice, marketPrice, tpPct, slPct float64) (tp, sl float64) {
	tp = entryPrice * (1 + tpPct/100)
	sl = entryPrice * (1 - slPct/100)

	if min := marketPrice * tpMinRatio; tp < min {
		tp = min
	}
	if max := marketPrice * tpMaxRatio; tp > max {
		tp = max
	}
	if min := marketPrice * slMinRatio; sl < min {
		sl = min
	}
	if max := marketPrice * slMaxRatio; sl > max {
		sl = max
	}
	return tp, sl
}

// placeBrackets submits the TP and SL limit sells for a filled BUY entry
// and records their ids on the position. Bracket failures notify but do
// not unwind the entry; the monitor still supervises the raw position.
func (m *Manager) placeBrackets(ctx context.Context, instrument, symbol string,
	entryPrice, quantity float64, settings config.TradingSettings) (tp, sl float64) {

	marketPrice, err := m.data.LastPrice(ctx, symbol)
	if err != nil || marketPrice <= 0 {
		marketPrice = entryPrice
	}
	tp, sl = BracketPrices(entryPrice, marketPrice, settings.TakeProfitPct, settings.StopLossPct)

	tpOrderID, err := m.exchange.CreateLimitOrder(ctx, instrument, "SELL", tp, quantity)
	if err != nil {
		m.notify(fmt.Sprintf("take-profit placement failed for %s: %v", symbol, err))
		logger.Errorf("take-profit order failed for %s: %v", symbol, err)
	} else {
		m.saveTrade(ctx, datastore.TradeRecord{
			Time: time.Now().UTC(), Symbol: symbol, Instrument: instrument,
			Side: "SELL", Kind: datastore.TradeKindTakeProfit, OrderID: tpOrderID,
			Quantity: quantity, Price: tp, Status: cryptocom.StatusActive,
		})
	}

	slQuantity := quantity
	slOrderID, err := m.exchange.CreateLimitOrder(ctx, instrument, "SELL", sl, slQuantity)
	if err != nil && cryptocom.IsInsufficientBalance(err) {
		slQuantity = quantity * slRetryShrink
		logger.Warnf("stop-loss for %s rejected on balance, retrying with qty %.8g", symbol, slQuantity)
		slOrderID, err = m.exchange.CreateLimitOrder(ctx, instrument, "SELL", sl, slQuantity)
	}
	if err != nil {
		m.notify(fmt.Sprintf("stop-loss placement failed for %s: %v", symbol, err))
		logger.Errorf("stop-loss order failed for %s: %v", symbol, err)
	} else {
		m.saveTrade(ctx, datastore.TradeRecord{
			Time: time.Now().UTC(), Symbol: symbol, Instrument: instrument,
			Side: "SELL", Kind: datastore.TradeKindStopLoss, OrderID: slOrderID,
			Quantity: slQuantity, Price: sl, Status: cryptocom.StatusActive,
		})
	}

	m.book.SetBrackets(symbol, tp, sl, tpOrderID, slOrderID)
	return tp, sl
}
