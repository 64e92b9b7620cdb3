package pnl

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/your-org/signal-trader/internal/position"
)

func TestRealized_Buy(t *testing.T) {
	amount, pct := Realized(position.SideBuy, 100, 110, 2)
	assert.Equal(t, 20.0, amount)
	assert.Equal(t, 10.0, pct)

	amount, pct = Realized(position.SideBuy, 100, 94, 2)
	assert.Equal(t, -12.0, amount)
	assert.Equal(t, -6.0, pct)
}

func TestRealized_SellInverts(t *testing.T) {
	amount, pct := Realized(position.SideSell, 100, 90, 3)
	assert.Equal(t, 30.0, amount)
	assert.Equal(t, 10.0, pct)
}

func TestRealized_ZeroEntryHasNoPercent(t *testing.T) {
	amount, pct := Realized(position.SideBuy, 0, 10, 1)
	assert.Equal(t, 10.0, amount)
	assert.Equal(t, 0.0, pct)
}

func TestUnrealized(t *testing.T) {
	assert.Equal(t, 15.0, Unrealized(position.SideBuy, 100, 105, 3))
	assert.Equal(t, -15.0, Unrealized(position.SideSell, 100, 105, 3))
}

func TestCalculator_Accumulates(t *testing.T) {
	c := NewCalculator()
	c.Record(10)
	c.Record(-4)
	assert.Equal(t, 6.0, c.RealizedTotal())
	assert.Equal(t, 2, c.ClosedCount())
}
