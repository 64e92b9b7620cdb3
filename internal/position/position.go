// Package position tracks open positions and their lifecycle states.
package position

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// Status is a position lifecycle state.
type Status int

const (
	// StatusActive is an open position under bracket supervision.
	StatusActive Status = iota
	// StatusClosing marks a position claimed by a close in progress.
	StatusClosing
	// StatusClosed is terminal.
	StatusClosed
)

// String returns the wire representation of a Status.
func (s Status) String() string {
	switch s {
	case StatusActive:
		return "ACTIVE"
	case StatusClosing:
		return "CLOSING"
	case StatusClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Side is the direction of a position.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// ErrPositionOpen is returned when an entry is attempted for a symbol
// that already has a live position.
var ErrPositionOpen = errors.New("position already open")

// Position is one supervised holding.
type Position struct {
	Symbol     string
	Instrument string
	Side       Side
	Quantity   float64
	EntryPrice float64

	TakeProfit float64
	StopLoss   float64

	EntryOrderID string
	TPOrderID    string
	SLOrderID    string

	Status   Status
	OpenedAt time.Time

	ClosedAt    time.Time
	ClosePrice  float64
	PnL         float64
	CloseReason string
}

// Book is the in-memory authority over positions. All status changes go
// through its compare-and-swap style methods, so a symbol can hold at
// most one live position and a close can never run twice.
type Book struct {
	mu        sync.Mutex
	positions map[string]*Position
}

// NewBook creates an empty book.
func NewBook() *Book {
	return &Book{positions: make(map[string]*Position)}
}

// Open registers a new ACTIVE position. It fails with ErrPositionOpen if
// the symbol already has a live (ACTIVE or CLOSING) position.
func (b *Book) Open(p Position) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if existing, ok := b.positions[p.Symbol]; ok && existing.Status != StatusClosed {
		return fmt.Errorf("%w: %s", ErrPositionOpen, p.Symbol)
	}
	p.Status = StatusActive
	if p.OpenedAt.IsZero() {
		p.OpenedAt = time.Now().UTC()
	}
	stored := p
	b.positions[p.Symbol] = &stored
	return nil
}

// Claim atomically moves a symbol's position from ACTIVE to CLOSING and
// returns a copy. It reports false when there is nothing to claim, which
// also covers a concurrent claimer having won.
func (b *Book) Claim(symbol string) (Position, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.positions[symbol]
	if !ok || p.Status != StatusActive {
		return Position{}, false
	}
	p.Status = StatusClosing
	return *p, true
}

// Release returns a CLOSING position to ACTIVE after a retryable close
// failure.
func (b *Book) Release(symbol string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if p, ok := b.positions[symbol]; ok && p.Status == StatusClosing {
		p.Status = StatusActive
	}
}

// Close finalizes a CLOSING position and returns the closed copy.
func (b *Book) Close(symbol string, closePrice, pnl float64, reason string) (Position, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.positions[symbol]
	if !ok || p.Status != StatusClosing {
		return Position{}, false
	}
	p.Status = StatusClosed
	p.ClosedAt = time.Now().UTC()
	p.ClosePrice = closePrice
	p.PnL = pnl
	p.CloseReason = reason
	closed := *p
	delete(b.positions, symbol)
	return closed, true
}

// SetBrackets records the bracket order ids and levels for a live
// position. Ids are recorded at most once; later calls are ignored.
func (b *Book) SetBrackets(symbol string, takeProfit, stopLoss float64, tpOrderID, slOrderID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.positions[symbol]
	if !ok || p.Status == StatusClosed {
		return
	}
	if p.TPOrderID == "" {
		p.TPOrderID = tpOrderID
		p.TakeProfit = takeProfit
	}
	if p.SLOrderID == "" {
		p.SLOrderID = slOrderID
		p.StopLoss = stopLoss
	}
}

// Get returns a copy of the live position for a symbol.
func (b *Book) Get(symbol string) (Position, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.positions[symbol]
	if !ok {
		return Position{}, false
	}
	return *p, true
}

// Active returns copies of all ACTIVE positions.
func (b *Book) Active() []Position {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Position, 0, len(b.positions))
	for _, p := range b.positions {
		if p.Status == StatusActive {
			out = append(out, *p)
		}
	}
	return out
}

// Len returns the number of live positions.
func (b *Book) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.positions)
}
