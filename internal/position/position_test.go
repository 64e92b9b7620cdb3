package position

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBook_OpenRejectsDuplicate(t *testing.T) {
	b := NewBook()
	require.NoError(t, b.Open(Position{Symbol: "BTC", Side: SideBuy, Quantity: 1, EntryPrice: 100}))

	err := b.Open(Position{Symbol: "BTC", Side: SideBuy, Quantity: 1, EntryPrice: 101})
	assert.ErrorIs(t, err, ErrPositionOpen)

	require.NoError(t, b.Open(Position{Symbol: "ETH", Side: SideBuy, Quantity: 1, EntryPrice: 100}),
		"other symbols are unaffected")
}

func TestBook_ClaimIsExclusive(t *testing.T) {
	b := NewBook()
	require.NoError(t, b.Open(Position{Symbol: "BTC", Quantity: 1, EntryPrice: 100}))

	p, ok := b.Claim("BTC")
	require.True(t, ok)
	assert.Equal(t, 100.0, p.EntryPrice)

	_, ok = b.Claim("BTC")
	assert.False(t, ok, "second claim must lose")

	err := b.Open(Position{Symbol: "BTC"})
	assert.ErrorIs(t, err, ErrPositionOpen, "a CLOSING position still blocks entries")
}

func TestBook_ReleaseReturnsToActive(t *testing.T) {
	b := NewBook()
	require.NoError(t, b.Open(Position{Symbol: "BTC", Quantity: 1, EntryPrice: 100}))

	_, ok := b.Claim("BTC")
	require.True(t, ok)
	b.Release("BTC")

	_, ok = b.Claim("BTC")
	assert.True(t, ok, "released position can be claimed again")
}

func TestBook_CloseFinalizesOnce(t *testing.T) {
	b := NewBook()
	require.NoError(t, b.Open(Position{Symbol: "BTC", Side: SideBuy, Quantity: 2, EntryPrice: 100}))

	_, ok := b.Close("BTC", 94, -12, "SL hit")
	assert.False(t, ok, "close requires a prior claim")

	_, ok = b.Claim("BTC")
	require.True(t, ok)
	closed, ok := b.Close("BTC", 94, -12, "SL hit")
	require.True(t, ok)
	assert.Equal(t, StatusClosed, closed.Status)
	assert.Equal(t, 94.0, closed.ClosePrice)
	assert.Equal(t, -12.0, closed.PnL)
	assert.Equal(t, "SL hit", closed.CloseReason)
	assert.False(t, closed.ClosedAt.IsZero())

	_, ok = b.Close("BTC", 94, -12, "SL hit")
	assert.False(t, ok, "a position closes exactly once")

	assert.NoError(t, b.Open(Position{Symbol: "BTC", Quantity: 1, EntryPrice: 95}),
		"closed symbols accept new entries")
}

func TestBook_SetBracketsRecordsIdsOnce(t *testing.T) {
	b := NewBook()
	require.NoError(t, b.Open(Position{Symbol: "BTC", Quantity: 1, EntryPrice: 100}))

	b.SetBrackets("BTC", 105, 95, "tp-1", "sl-1")
	b.SetBrackets("BTC", 111, 91, "tp-2", "sl-2")

	p, ok := b.Get("BTC")
	require.True(t, ok)
	assert.Equal(t, "tp-1", p.TPOrderID)
	assert.Equal(t, "sl-1", p.SLOrderID)
	assert.Equal(t, 105.0, p.TakeProfit)
	assert.Equal(t, 95.0, p.StopLoss)
}

func TestBook_ConcurrentOpensAdmitExactlyOne(t *testing.T) {
	b := NewBook()
	const attempts = 32

	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = b.Open(Position{Symbol: "BTC", Quantity: 1, EntryPrice: 100})
		}(i)
	}
	wg.Wait()

	var opened int
	for _, err := range errs {
		if err == nil {
			opened++
		}
	}
	assert.Equal(t, 1, opened, "exactly one concurrent entry wins")
	assert.Len(t, b.Active(), 1)
}

func TestBook_ConcurrentClaimsAdmitExactlyOne(t *testing.T) {
	b := NewBook()
	require.NoError(t, b.Open(Position{Symbol: "BTC", Quantity: 1, EntryPrice: 100}))

	const attempts = 32
	var wg sync.WaitGroup
	wins := make([]bool, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, wins[i] = b.Claim("BTC")
		}(i)
	}
	wg.Wait()

	var claimed int
	for _, won := range wins {
		if won {
			claimed++
		}
	}
	assert.Equal(t, 1, claimed)
}
