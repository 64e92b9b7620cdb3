// Package analyzer drives the continuous evaluation of the watched
// instrument set: batching, priority for newly watched symbols, repeat
// suppression under a cooldown, and per-symbol failure backoff.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/your-org/signal-trader/internal/alert"
	"github.com/your-org/signal-trader/internal/config"
	"github.com/your-org/signal-trader/internal/datastore"
	"github.com/your-org/signal-trader/internal/position"
	"github.com/your-org/signal-trader/internal/signal"
	"github.com/your-org/signal-trader/pkg/logger"
)

// Evaluator produces a decision for one symbol. (nil, nil) means data
// was unavailable and the symbol is skipped this cycle.
type Evaluator interface {
	Evaluate(ctx context.Context, symbol string) (*signal.Signal, error)
}

// Executor runs the entry path for an emitted signal.
type Executor interface {
	ExecuteSignal(ctx context.Context, sig *signal.Signal) error
}

// Settings yields the cycle-time settings snapshot.
type Settings interface {
	Snapshot(ctx context.Context) config.TradingSettings
}

const (
	// failureBackoff is how long a failing symbol sits out before being
	// retried, unless it is a priority symbol.
	failureBackoff = 5 * time.Minute

	// maxCycleFailures consecutive whole-cycle failures stop the analyzer.
	maxCycleFailures = 5
)

// memoryEntry is the per-symbol emission memory used for repeat
// suppression. It lives for the process lifetime and resets on restart.
type memoryEntry struct {
	lastDirection signal.Direction
	lastEmit      map[signal.Direction]time.Time
}

type failureEntry struct {
	count       int
	lastAttempt time.Time
}

// cycleState carries everything one cycle needs from the previous one.
// Keeping it an explicit struct makes a single cycle testable in
// isolation.
type cycleState struct {
	watched    map[string]bool
	memory     map[string]*memoryEntry
	failures   map[string]*failureEntry
	cycleFails int
}

func newCycleState() *cycleState {
	return &cycleState{
		watched:  make(map[string]bool),
		memory:   make(map[string]*memoryEntry),
		failures: make(map[string]*failureEntry),
	}
}

// Analyzer is the continuous scheduler.
type Analyzer struct {
	evaluator Evaluator
	executor  Executor
	store     datastore.Store
	settings  Settings
	notifier  alert.Notifier

	interBatchPause time.Duration
	now             func() time.Time
}

// New wires the analyzer. executor may be nil when automated execution
// is not configured; emitted signals are then only recorded and
// notified.
func New(evaluator Evaluator, executor Executor, store datastore.Store,
	settings Settings, notifier alert.Notifier) *Analyzer {
	return &Analyzer{
		evaluator:       evaluator,
		executor:        executor,
		store:           store,
		settings:        settings,
		notifier:        notifier,
		interBatchPause: time.Second,
		now:             time.Now,
	}
}

// Run loops until the context is canceled or too many consecutive
// cycles fail.
func (a *Analyzer) Run(ctx context.Context) error {
	state := newCycleState()
	logger.Infof("analyzer started")
	for {
		if err := a.runCycle(ctx, state); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			state.cycleFails++
			logger.Errorf("analysis cycle failed (%d consecutive): %v", state.cycleFails, err)
			if state.cycleFails >= maxCycleFailures {
				a.notify(fmt.Sprintf("analyzer stopped after %d consecutive cycle failures: %v",
					state.cycleFails, err))
				return fmt.Errorf("%d consecutive cycle failures, last: %w", state.cycleFails, err)
			}
		} else {
			state.cycleFails = 0
		}

		interval := a.settings.Snapshot(ctx).Interval()
		select {
		case <-ctx.Done():
			logger.Infof("analyzer stopped")
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

type evalResult struct {
	symbol string
	sig    *signal.Signal
	err    error
}

// runCycle makes one pass over the watched set. Only a failure to read
// the watchlist counts as a cycle failure; per-symbol evaluation errors
// are tracked individually.
func (a *Analyzer) runCycle(ctx context.Context, state *cycleState) error {
	settings := a.settings.Snapshot(ctx)

	watched, err := a.store.ListWatchlist(ctx)
	if err != nil {
		return fmt.Errorf("read watchlist: %w", err)
	}

	current := make(map[string]bool, len(watched))
	var priority, remainder []string
	for _, symbol := range watched {
		current[symbol] = true
		if !state.watched[symbol] {
			priority = append(priority, symbol)
		} else {
			remainder = append(remainder, symbol)
		}
	}
	for symbol := range state.watched {
		if !current[symbol] {
			delete(state.memory, symbol)
			delete(state.failures, symbol)
		}
	}
	state.watched = current

	now := a.now()

	// Priority symbols are evaluated first, in watch order, and skip the
	// failure backoff.
	for _, symbol := range priority {
		if ctx.Err() != nil {
			return nil
		}
		res := a.evaluate(ctx, symbol)
		a.apply(ctx, state, res, true, now, settings)
	}

	batchSize := settings.BatchSize
	if batchSize < 1 {
		batchSize = 1
	}
	for start := 0; start < len(remainder); start += batchSize {
		if ctx.Err() != nil {
			return nil
		}
		end := start + batchSize
		if end > len(remainder) {
			end = len(remainder)
		}
		batch := remainder[start:end]

		eligible := batch[:0:0]
		for _, symbol := range batch {
			if f, ok := state.failures[symbol]; ok && f.count > 0 && now.Sub(f.lastAttempt) < failureBackoff {
				logger.Debugf("skipping %s, backing off after %d failures", symbol, f.count)
				continue
			}
			eligible = append(eligible, symbol)
		}

		results := make([]evalResult, len(eligible))
		var wg sync.WaitGroup
		for i, symbol := range eligible {
			wg.Add(1)
			go func(i int, symbol string) {
				defer wg.Done()
				results[i] = a.evaluate(ctx, symbol)
			}(i, symbol)
		}
		wg.Wait()

		// Emission decisions are applied sequentially in watch order so
		// the cooldown bookkeeping stays deterministic.
		for _, res := range results {
			a.apply(ctx, state, res, false, now, settings)
		}

		if end < len(remainder) && a.interBatchPause > 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(a.interBatchPause):
			}
		}
	}
	return nil
}

func (a *Analyzer) evaluate(ctx context.Context, symbol string) evalResult {
	sig, err := a.evaluator.Evaluate(ctx, symbol)
	return evalResult{symbol: symbol, sig: sig, err: err}
}

// apply records the evaluation outcome and emits the signal when the
// suppression rule allows it.
func (a *Analyzer) apply(ctx context.Context, state *cycleState, res evalResult,
	priority bool, now time.Time, settings config.TradingSettings) {

	if res.err != nil {
		f := state.failures[res.symbol]
		if f == nil {
			f = &failureEntry{}
			state.failures[res.symbol] = f
		}
		f.count++
		f.lastAttempt = now
		logger.Warnf("evaluation of %s failed (%d in a row): %v", res.symbol, f.count, res.err)
		return
	}
	delete(state.failures, res.symbol)

	if res.sig == nil || res.sig.Direction == signal.DirectionWait {
		return
	}
	if !a.shouldEmit(state, res.symbol, res.sig.Direction, priority, now, settings.Cooldown()) {
		logger.Debugf("suppressing repeated %s signal for %s", res.sig.Direction, res.symbol)
		return
	}
	a.emit(ctx, state, res.sig, now)
}

// shouldEmit implements the suppression rule: emit on priority, on a
// direction change, or once the same-direction cooldown has elapsed
// (boundary inclusive).
func (a *Analyzer) shouldEmit(state *cycleState, symbol string, dir signal.Direction,
	priority bool, now time.Time, cooldown time.Duration) bool {
	if priority {
		return true
	}
	mem, ok := state.memory[symbol]
	if !ok {
		return true
	}
	if dir != mem.lastDirection {
		return true
	}
	last, ok := mem.lastEmit[dir]
	if !ok {
		return true
	}
	return now.Sub(last) >= cooldown
}

func (a *Analyzer) emit(ctx context.Context, state *cycleState, sig *signal.Signal, now time.Time) {
	mem, ok := state.memory[sig.Symbol]
	if !ok {
		mem = &memoryEntry{lastEmit: make(map[signal.Direction]time.Time)}
		state.memory[sig.Symbol] = mem
	}
	mem.lastDirection = sig.Direction
	mem.lastEmit[sig.Direction] = now

	logger.Infof("signal %s %s @ %.8g confidence=%.2f risk=%s",
		sig.Direction, sig.Symbol, sig.Price, sig.Confidence, sig.Risk)
	a.notify(fmt.Sprintf("%s signal for %s @ %.8g (confidence %.2f, risk %s)",
		sig.Direction, sig.Symbol, sig.Price, sig.Confidence, sig.Risk))

	if err := a.store.SaveSignal(ctx, datastore.SignalRecord{
		Time:       sig.Time,
		Symbol:     sig.Symbol,
		Direction:  sig.Direction.String(),
		Confidence: sig.Confidence,
		Price:      sig.Price,
		Risk:       sig.Risk.String(),
		Reasoning:  sig.Reasoning,
	}); err != nil {
		logger.Errorf("failed to save signal for %s: %v", sig.Symbol, err)
	}

	if a.executor == nil {
		return
	}
	if err := a.executor.ExecuteSignal(ctx, sig); err != nil {
		if errors.Is(err, position.ErrPositionOpen) {
			logger.Debugf("not entering %s: %v", sig.Symbol, err)
			return
		}
		logger.Errorf("execution of %s signal for %s failed: %v", sig.Direction, sig.Symbol, err)
	}
}

func (a *Analyzer) notify(message string) {
	if a.notifier == nil {
		return
	}
	if err := a.notifier.Send(message); err != nil {
		logger.Warnf("notification failed: %v", err)
	}
}
