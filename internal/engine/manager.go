// Package engine turns actionable signals into supervised exchange
// positions: market entry with fill confirmation, bracket placement and
// a monitor that closes positions on threshold breach.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/your-org/signal-trader/internal/alert"
	"github.com/your-org/signal-trader/internal/config"
	"github.com/your-org/signal-trader/internal/datastore"
	"github.com/your-org/signal-trader/internal/exchange/cryptocom"
	"github.com/your-org/signal-trader/internal/marketdata"
	"github.com/your-org/signal-trader/internal/pnl"
	"github.com/your-org/signal-trader/internal/position"
	"github.com/your-org/signal-trader/internal/signal"
	"github.com/your-org/signal-trader/pkg/logger"
)

// Exchange is the trading surface the manager needs. *cryptocom.Client
// satisfies it.
type Exchange interface {
	GetBalance(ctx context.Context, currency string) (float64, error)
	CreateMarketBuy(ctx context.Context, instrument string, notional float64) (string, error)
	CreateMarketSell(ctx context.Context, instrument string, quantity float64) (string, error)
	CreateLimitOrder(ctx context.Context, instrument, side string, price, quantity float64) (string, error)
	GetOrderDetail(ctx context.Context, orderID string) (*cryptocom.OrderDetail, error)
	CancelOrder(ctx context.Context, orderID string) error
}

// Settings yields the decision-time settings snapshot.
type Settings interface {
	Snapshot(ctx context.Context) config.TradingSettings
}

const (
	// feeBuffer inflates the required quote balance so an entry never
	// fails on fees after passing the balance check.
	feeBuffer = 1.05

	// slRetryShrink is applied to the stop-loss quantity on a single
	// insufficient-balance retry.
	slRetryShrink = 0.95
)

// Manager owns the order lifecycle. All entries and closes go through
// it; the position book enforces the one-live-position-per-symbol
// invariant.
type Manager struct {
	exchange Exchange
	data     marketdata.Provider
	settings Settings
	book     *position.Book
	store    datastore.Store
	notifier alert.Notifier
	calc     *pnl.Calculator
	quote    string

	fillPollInterval time.Duration
	fillPollChecks   int
	monitorInterval  time.Duration

	mu        sync.Mutex
	pending   map[string]struct{}
	monitorOn bool
	done      chan struct{}
	wg        sync.WaitGroup
}

// NewManager wires the order-lifecycle manager.
func NewManager(exchange Exchange, data marketdata.Provider, settings Settings,
	book *position.Book, store datastore.Store, notifier alert.Notifier,
	calc *pnl.Calculator, quoteCurrency string) *Manager {
	return &Manager{
		exchange:         exchange,
		data:             data,
		settings:         settings,
		book:             book,
		store:            store,
		notifier:         notifier,
		calc:             calc,
		quote:            quoteCurrency,
		fillPollInterval: 2 * time.Second,
		fillPollChecks:   30,
		monitorInterval:  30 * time.Second,
		pending:          make(map[string]struct{}),
		done:             make(chan struct{}),
	}
}

// Close stops the monitor worker and waits for an in-progress check to
// finish.
func (m *Manager) Close() {
	m.mu.Lock()
	select {
	case <-m.done:
	default:
		close(m.done)
	}
	m.mu.Unlock()
	m.wg.Wait()
}

// Resume rehydrates supervision of positions a previous run left open
// and starts the monitor when any survive. A CLOSING position resumes
// as ACTIVE; the monitor re-detects the breach and retries the close.
func (m *Manager) Resume(recs []datastore.PositionRecord) {
	for _, rec := range recs {
		p := position.Position{
			Symbol:       rec.Symbol,
			Instrument:   rec.Instrument,
			Side:         position.Side(rec.Side),
			Quantity:     rec.Quantity,
			EntryPrice:   rec.EntryPrice,
			EntryOrderID: rec.EntryOrderID,
			OpenedAt:     rec.OpenedAt,
		}
		if err := m.book.Open(p); err != nil {
			logger.Warnf("could not resume position %s: %v", rec.Symbol, err)
			continue
		}
		m.book.SetBrackets(rec.Symbol, rec.TakeProfit, rec.StopLoss, rec.TPOrderID, rec.SLOrderID)
		logger.Infof("resumed supervision of %s (%s %.8g @ %.8g)",
			rec.Symbol, rec.Side, rec.Quantity, rec.EntryPrice)
	}
	if m.book.Len() > 0 {
		m.startMonitor()
	}
}

// ExecuteSignal runs the entry path for an actionable signal. A WAIT
// signal and a disabled auto-trading switch are both no-ops. The
// one-live-position invariant is checked before any network call.
func (m *Manager) ExecuteSignal(ctx context.Context, sig *signal.Signal) error {
	if sig == nil || sig.Direction == signal.DirectionWait {
		return nil
	}
	settings := m.settings.Snapshot(ctx)
	if !settings.AutoTrading {
		logger.Debugf("auto trading disabled, not executing %s %s", sig.Direction, sig.Symbol)
		return nil
	}

	if err := m.beginEntry(sig.Symbol); err != nil {
		return err
	}
	defer m.endEntry(sig.Symbol)

	switch sig.Direction {
	case signal.DirectionBuy:
		return m.enterLong(ctx, sig, settings)
	case signal.DirectionSell:
		return m.flatten(ctx, sig)
	}
	return nil
}

// beginEntry reserves a symbol for one in-flight entry. It rejects
// symbols that already hold a live position or a pending entry.
func (m *Manager) beginEntry(symbol string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, live := m.book.Get(symbol); live {
		return fmt.Errorf("%w: %s", position.ErrPositionOpen, symbol)
	}
	if _, inflight := m.pending[symbol]; inflight {
		return fmt.Errorf("%w: %s (entry in progress)", position.ErrPositionOpen, symbol)
	}
	m.pending[symbol] = struct{}{}
	return nil
}

func (m *Manager) endEntry(symbol string) {
	m.mu.Lock()
	delete(m.pending, symbol)
	m.mu.Unlock()
}

func (m *Manager) enterLong(ctx context.Context, sig *signal.Signal, settings config.TradingSettings) error {
	balance, err := m.exchange.GetBalance(ctx, m.quote)
	if err != nil {
		return fmt.Errorf("balance check for %s: %w", sig.Symbol, err)
	}
	required := settings.TradeAmount * feeBuffer
	if required < settings.MinBalance {
		required = settings.MinBalance
	}
	if balance < required {
		m.notify(fmt.Sprintf("entry rejected for %s: balance %.2f %s below required %.2f",
			sig.Symbol, balance, m.quote, required))
		return nil
	}

	instrument, orderID, err := m.placeEntry(ctx, sig.Symbol, settings.TradeAmount)
	if err != nil {
		m.notify(fmt.Sprintf("entry failed for %s: %v", sig.Symbol, err))
		return err
	}

	fill, err := m.awaitFill(ctx, orderID)
	if err != nil {
		m.notify(fmt.Sprintf("entry not filled for %s (order %s): %v", sig.Symbol, orderID, err))
		return err
	}
	quantity := fill.CumulativeQuantity.Float()
	if quantity == 0 {
		quantity = fill.Quantity.Float()
	}
	entryPrice := fill.FillPrice()
	if entryPrice == 0 {
		entryPrice = sig.Price
	}

	pos := position.Position{
		Symbol:       sig.Symbol,
		Instrument:   instrument,
		Side:         position.SideBuy,
		Quantity:     quantity,
		EntryPrice:   entryPrice,
		EntryOrderID: orderID,
		OpenedAt:     time.Now().UTC(),
	}
	if err := m.book.Open(pos); err != nil {
		// Lost a race after the order filled: flatten immediately rather
		// than hold an untracked exposure.
		if _, sellErr := m.exchange.CreateMarketSell(ctx, instrument, quantity); sellErr != nil {
			logger.Errorf("failed to flatten duplicate entry for %s: %v", sig.Symbol, sellErr)
		}
		m.notify(fmt.Sprintf("duplicate entry for %s flattened", sig.Symbol))
		return err
	}

	m.saveTrade(ctx, datastore.TradeRecord{
		Time: time.Now().UTC(), Symbol: sig.Symbol, Instrument: instrument,
		Side: "BUY", Kind: datastore.TradeKindEntry, OrderID: orderID,
		Quantity: quantity, Price: entryPrice, Notional: settings.TradeAmount,
		Status: fill.Status,
	})

	tp, sl := m.placeBrackets(ctx, instrument, sig.Symbol, entryPrice, quantity, settings)

	if p, ok := m.book.Get(sig.Symbol); ok {
		m.upsertPosition(ctx, p)
	}
	m.startMonitor()

	m.notify(fmt.Sprintf("opened %s: %.8g @ %.8g, TP %.8g, SL %.8g",
		sig.Symbol, quantity, entryPrice, tp, sl))
	logger.Infof("opened position %s qty=%.8g entry=%.8g tp=%.8g sl=%.8g",
		sig.Symbol, quantity, entryPrice, tp, sl)
	return nil
}

// placeEntry submits the market buy, probing the ordered instrument
// spellings. Only an unknown-instrument rejection advances the probe.
func (m *Manager) placeEntry(ctx context.Context, symbol string, notional float64) (instrument, orderID string, err error) {
	for _, candidate := range marketdata.InstrumentCandidates(symbol, m.quote) {
		orderID, err = m.exchange.CreateMarketBuy(ctx, candidate, notional)
		if err == nil {
			return candidate, orderID, nil
		}
		if cryptocom.IsUnknownInstrument(err) {
			logger.Debugf("instrument %s not recognized, trying next spelling", candidate)
			continue
		}
		return "", "", err
	}
	return "", "", fmt.Errorf("no accepted instrument spelling for %s: %w", symbol, err)
}

// awaitFill polls the order until it fills or goes terminal. A terminal
// non-filled order with non-zero cumulative quantity counts as a partial
// fill; terminal with zero quantity is a hard failure.
func (m *Manager) awaitFill(ctx context.Context, orderID string) (*cryptocom.OrderDetail, error) {
	var last *cryptocom.OrderDetail
	for i := 0; i < m.fillPollChecks; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(m.fillPollInterval):
			}
		}
		detail, err := m.exchange.GetOrderDetail(ctx, orderID)
		if err != nil {
			logger.Warnf("order detail poll failed for %s: %v", orderID, err)
			continue
		}
		last = detail
		if detail.Status == cryptocom.StatusFilled {
			return detail, nil
		}
		if cryptocom.IsTerminalStatus(detail.Status) {
			if detail.CumulativeQuantity > 0 {
				logger.Warnf("order %s terminal %s with partial fill %.8g",
					orderID, detail.Status, detail.CumulativeQuantity.Float())
				return detail, nil
			}
			return nil, fmt.Errorf("order %s ended %s with no fill", orderID, detail.Status)
		}
	}
	if last != nil {
		return nil, fmt.Errorf("order %s still %s after %d checks", orderID, last.Status, m.fillPollChecks)
	}
	return nil, fmt.Errorf("order %s status unknown after %d checks", orderID, m.fillPollChecks)
}

// flatten sells the full available base balance for a SELL signal. No
// brackets are placed; a live position for the symbol is closed through
// the book so its state stays consistent.
func (m *Manager) flatten(ctx context.Context, sig *signal.Signal) error {
	base := marketdata.BaseCurrency(sig.Symbol)
	balance, err := m.exchange.GetBalance(ctx, base)
	if err != nil {
		return fmt.Errorf("balance check for %s: %w", base, err)
	}
	if balance <= 0 {
		logger.Debugf("no %s balance to sell", base)
		return nil
	}

	var orderID, instrument string
	for _, candidate := range marketdata.InstrumentCandidates(sig.Symbol, m.quote) {
		orderID, err = m.exchange.CreateMarketSell(ctx, candidate, balance)
		if err == nil {
			instrument = candidate
			break
		}
		if cryptocom.IsUnknownInstrument(err) {
			continue
		}
		m.notify(fmt.Sprintf("sell failed for %s: %v", sig.Symbol, err))
		return err
	}
	if instrument == "" {
		m.notify(fmt.Sprintf("sell failed for %s: %v", sig.Symbol, err))
		return fmt.Errorf("no accepted instrument spelling for %s: %w", sig.Symbol, err)
	}

	exitPrice := sig.Price
	if detail, derr := m.exchange.GetOrderDetail(ctx, orderID); derr == nil && detail.FillPrice() > 0 {
		exitPrice = detail.FillPrice()
	}

	m.saveTrade(ctx, datastore.TradeRecord{
		Time: time.Now().UTC(), Symbol: sig.Symbol, Instrument: instrument,
		Side: "SELL", Kind: datastore.TradeKindClose, OrderID: orderID,
		Quantity: balance, Price: exitPrice, Status: cryptocom.StatusFilled,
		Reason: "sell signal",
	})
	m.notify(fmt.Sprintf("sold %s: %.8g @ %.8g", sig.Symbol, balance, exitPrice))
	return nil
}

func (m *Manager) notify(message string) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.Send(message); err != nil {
		logger.Warnf("notification failed: %v", err)
	}
}

func (m *Manager) saveTrade(ctx context.Context, rec datastore.TradeRecord) {
	if m.store == nil {
		return
	}
	if err := m.store.SaveTrade(ctx, rec); err != nil {
		logger.Errorf("failed to save trade record for %s: %v", rec.Symbol, err)
	}
}

func (m *Manager) upsertPosition(ctx context.Context, p position.Position) {
	if m.store == nil {
		return
	}
	if err := m.store.UpsertPosition(ctx, positionRecord(p)); err != nil {
		logger.Errorf("failed to persist position %s: %v", p.Symbol, err)
	}
}

func positionRecord(p position.Position) datastore.PositionRecord {
	rec := datastore.PositionRecord{
		Symbol:       p.Symbol,
		Instrument:   p.Instrument,
		Side:         string(p.Side),
		Quantity:     p.Quantity,
		EntryPrice:   p.EntryPrice,
		TakeProfit:   p.TakeProfit,
		StopLoss:     p.StopLoss,
		EntryOrderID: p.EntryOrderID,
		TPOrderID:    p.TPOrderID,
		SLOrderID:    p.SLOrderID,
		Status:       p.Status.String(),
		OpenedAt:     p.OpenedAt,
		ClosePrice:   p.ClosePrice,
		PnL:          p.PnL,
		CloseReason:  p.CloseReason,
	}
	if !p.ClosedAt.IsZero() {
		closedAt := p.ClosedAt
		rec.ClosedAt = &closedAt
	}
	return rec
}
