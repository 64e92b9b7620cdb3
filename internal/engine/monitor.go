package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/your-org/signal-trader/internal/datastore"
	"github.com/your-org/signal-trader/internal/exchange/cryptocom"
	"github.com/your-org/signal-trader/internal/pnl"
	"github.com/your-org/signal-trader/internal/position"
	"github.com/your-org/signal-trader/pkg/logger"
)

// startMonitor launches the single monitor worker on first use. The
// worker keeps polling for the life of the manager; an empty book just
// makes a cheap pass.
func (m *Manager) startMonitor() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.monitorOn {
		return
	}
	select {
	case <-m.done:
		return
	default:
	}
	m.monitorOn = true
	m.wg.Add(1)
	go m.monitorLoop()
}

func (m *Manager) monitorLoop() {
	defer m.wg.Done()
	ticker := time.NewTicker(m.monitorInterval)
	defer ticker.Stop()
	logger.Infof("position monitor started, interval %s", m.monitorInterval)
	for {
		select {
		case <-m.done:
			logger.Infof("position monitor stopped")
			return
		case <-ticker.C:
			m.checkPositions(context.Background())
		}
	}
}

// checkPositions makes one supervision pass over every ACTIVE position.
// A missing price skips the position for this pass; a breached threshold
// claims the position and runs the close path.
func (m *Manager) checkPositions(ctx context.Context) {
	for _, p := range m.book.Active() {
		price, err := m.data.LastPrice(ctx, p.Symbol)
		if err != nil || price <= 0 {
			logger.Debugf("no price for %s, skipping supervision this pass", p.Symbol)
			continue
		}
		reason, breached := breachReason(p, price)
		if !breached {
			continue
		}
		claimed, ok := m.book.Claim(p.Symbol)
		if !ok {
			// Another close is already in flight.
			continue
		}
		if err := m.closePosition(ctx, claimed, price, reason); err != nil {
			logger.Errorf("close failed for %s: %v", p.Symbol, err)
			if errors.Is(err, cryptocom.ErrUnavailable) {
				// Transient: return the position to ACTIVE and retry on a
				// later pass.
				m.book.Release(p.Symbol)
				continue
			}
			m.book.Release(p.Symbol)
			m.notify(fmt.Sprintf("close failed for %s (%s): %v", p.Symbol, reason, err))
		}
	}
}

// breachReason tests a position's thresholds against the current price.
// Unset brackets (zero) never trigger.
func breachReason(p position.Position, price float64) (string, bool) {
	if p.Side == position.SideBuy {
		if p.TakeProfit > 0 && price >= p.TakeProfit {
			return "TP hit", true
		}
		if p.StopLoss > 0 && price <= p.StopLoss {
			return "SL hit", true
		}
		return "", false
	}
	if p.TakeProfit > 0 && price <= p.TakeProfit {
		return "TP hit", true
	}
	if p.StopLoss > 0 && price >= p.StopLoss {
		return "SL hit", true
	}
	return "", false
}

// closePosition runs a claimed close to completion: cancel the surviving
// bracket, flatten at market, record P&L, persist and notify once.
func (m *Manager) closePosition(ctx context.Context, p position.Position, price float64, reason string) error {
	surviving := p.SLOrderID
	if reason == "SL hit" {
		surviving = p.TPOrderID
	}
	if surviving != "" {
		if err := m.exchange.CancelOrder(ctx, surviving); err != nil {
			// The bracket may have filled or expired already; flattening
			// still proceeds.
			logger.Warnf("cancel of surviving bracket %s for %s failed: %v", surviving, p.Symbol, err)
		}
	}

	var orderID string
	var err error
	if p.Side == position.SideBuy {
		orderID, err = m.exchange.CreateMarketSell(ctx, p.Instrument, p.Quantity)
	} else {
		orderID, err = m.exchange.CreateMarketBuy(ctx, p.Instrument, p.Quantity*price)
	}
	if err != nil {
		return fmt.Errorf("flatten %s: %w", p.Symbol, err)
	}

	exitPrice := price
	if detail, derr := m.exchange.GetOrderDetail(ctx, orderID); derr == nil && detail.FillPrice() > 0 {
		exitPrice = detail.FillPrice()
	}

	amount, pct := pnl.Realized(p.Side, p.EntryPrice, exitPrice, p.Quantity)
	if m.calc != nil {
		m.calc.Record(amount)
	}

	closed, ok := m.book.Close(p.Symbol, exitPrice, amount, reason)
	if !ok {
		return fmt.Errorf("position %s vanished during close", p.Symbol)
	}

	closeSide := "SELL"
	if p.Side == position.SideSell {
		closeSide = "BUY"
	}
	m.saveTrade(ctx, datastore.TradeRecord{
		Time: time.Now().UTC(), Symbol: p.Symbol, Instrument: p.Instrument,
		Side: closeSide, Kind: datastore.TradeKindClose, OrderID: orderID,
		Quantity: p.Quantity, Price: exitPrice, Status: cryptocom.StatusFilled,
		Reason: reason,
	})
	m.upsertPosition(ctx, closed)

	m.notify(fmt.Sprintf("closed %s (%s): exit %.8g, P&L %.4f (%.2f%%)",
		p.Symbol, reason, exitPrice, amount, pct))
	logger.Infof("closed position %s reason=%q exit=%.8g pnl=%.4f", p.Symbol, reason, exitPrice, amount)
	return nil
}
