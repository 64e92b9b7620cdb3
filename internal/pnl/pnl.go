// Package pnl computes realized profit and loss for closed positions.
package pnl

import (
	"sync"

	"github.com/your-org/signal-trader/internal/position"
)

// Realized returns the absolute and percentage P&L of a closed position.
// BUY positions profit when exit > entry; SELL positions are inverted.
func Realized(side position.Side, entryPrice, exitPrice, quantity float64) (amount, pct float64) {
	amount = (exitPrice - entryPrice) * quantity
	if side == position.SideSell {
		amount = -amount
	}
	if entryPrice != 0 {
		pct = (exitPrice - entryPrice) / entryPrice * 100
		if side == position.SideSell {
			pct = -pct
		}
	}
	return amount, pct
}

// Unrealized returns the mark-to-market P&L of an open position.
func Unrealized(side position.Side, entryPrice, currentPrice, quantity float64) float64 {
	amount := (currentPrice - entryPrice) * quantity
	if side == position.SideSell {
		amount = -amount
	}
	return amount
}

// Calculator accumulates realized P&L across the session.
type Calculator struct {
	mu       sync.RWMutex
	realized float64
	closed   int
}

// NewCalculator creates an empty calculator.
func NewCalculator() *Calculator {
	return &Calculator{}
}

// Record adds one closed position's realized P&L.
func (c *Calculator) Record(amount float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.realized += amount
	c.closed++
}

// RealizedTotal returns the accumulated realized P&L.
func (c *Calculator) RealizedTotal() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.realized
}

// ClosedCount returns how many positions have been closed.
func (c *Calculator) ClosedCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}
