// Package report derives trading performance statistics from the
// recorded trade history.
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/your-org/signal-trader/internal/datastore"
)

// ClosedRound is one completed entry/close pair for a symbol.
type ClosedRound struct {
	Symbol      string          `json:"symbol"`
	Side        string          `json:"side"`
	Quantity    float64         `json:"quantity"`
	EntryPrice  float64         `json:"entry_price"`
	ClosePrice  float64         `json:"close_price"`
	PnL         decimal.Decimal `json:"pnl"`
	CloseReason string          `json:"close_reason"`
	OpenedAt    time.Time       `json:"opened_at"`
	ClosedAt    time.Time       `json:"closed_at"`
}

// Report summarizes a sequence of closed rounds.
type Report struct {
	StartDate            time.Time       `json:"start_date"`
	EndDate              time.Time       `json:"end_date"`
	TotalRounds          int             `json:"total_rounds"`
	WinningRounds        int             `json:"winning_rounds"`
	LosingRounds         int             `json:"losing_rounds"`
	WinRate              float64         `json:"win_rate"`
	TotalPnL             decimal.Decimal `json:"total_pnl"`
	AverageProfit        decimal.Decimal `json:"average_profit"`
	AverageLoss          decimal.Decimal `json:"average_loss"`
	ProfitFactor         float64         `json:"profit_factor"`
	MaxDrawdown          decimal.Decimal `json:"max_drawdown"`
	MaxConsecutiveWins   int             `json:"max_consecutive_wins"`
	MaxConsecutiveLosses int             `json:"max_consecutive_losses"`
	TakeProfitCloses     int             `json:"take_profit_closes"`
	StopLossCloses       int             `json:"stop_loss_closes"`
	AverageHoldSeconds   float64         `json:"average_hold_seconds"`
}

// PairRounds matches each entry trade with the next close trade for the
// same symbol, in time order. Unmatched entries (still open) and closes
// without a preceding entry (balance flattened out of band) are skipped.
func PairRounds(trades []datastore.TradeRecord) []ClosedRound {
	open := make(map[string]*datastore.TradeRecord)
	var rounds []ClosedRound
	for i := range trades {
		t := trades[i]
		switch t.Kind {
		case datastore.TradeKindEntry:
			open[t.Symbol] = &trades[i]
		case datastore.TradeKindClose:
			entry, ok := open[t.Symbol]
			if !ok {
				continue
			}
			delete(open, t.Symbol)

			quantity := entry.Quantity
			if t.Quantity > 0 && t.Quantity < quantity {
				quantity = t.Quantity
			}
			gross := decimal.NewFromFloat(t.Price).
				Sub(decimal.NewFromFloat(entry.Price)).
				Mul(decimal.NewFromFloat(quantity))
			if entry.Side == "SELL" {
				gross = gross.Neg()
			}
			rounds = append(rounds, ClosedRound{
				Symbol:      t.Symbol,
				Side:        entry.Side,
				Quantity:    quantity,
				EntryPrice:  entry.Price,
				ClosePrice:  t.Price,
				PnL:         gross,
				CloseReason: t.Reason,
				OpenedAt:    entry.Time,
				ClosedAt:    t.Time,
			})
		}
	}
	return rounds
}

// Analyze computes the performance report for a set of closed rounds.
func Analyze(rounds []ClosedRound) (Report, error) {
	if len(rounds) == 0 {
		return Report{}, fmt.Errorf("no closed rounds to analyze")
	}

	r := Report{
		StartDate:   rounds[0].OpenedAt,
		EndDate:     rounds[len(rounds)-1].ClosedAt,
		TotalRounds: len(rounds),
	}

	var (
		grossProfit, grossLoss decimal.Decimal
		equity, peak, drawdown decimal.Decimal
		winStreak, lossStreak  int
		holdSeconds            float64
	)
	for _, round := range rounds {
		r.TotalPnL = r.TotalPnL.Add(round.PnL)
		holdSeconds += round.ClosedAt.Sub(round.OpenedAt).Seconds()

		switch round.CloseReason {
		case "TP hit":
			r.TakeProfitCloses++
		case "SL hit":
			r.StopLossCloses++
		}

		if round.PnL.IsPositive() {
			r.WinningRounds++
			grossProfit = grossProfit.Add(round.PnL)
			winStreak++
			lossStreak = 0
			if winStreak > r.MaxConsecutiveWins {
				r.MaxConsecutiveWins = winStreak
			}
		} else {
			r.LosingRounds++
			grossLoss = grossLoss.Add(round.PnL.Abs())
			lossStreak++
			winStreak = 0
			if lossStreak > r.MaxConsecutiveLosses {
				r.MaxConsecutiveLosses = lossStreak
			}
		}

		equity = equity.Add(round.PnL)
		if equity.GreaterThan(peak) {
			peak = equity
		}
		if dd := peak.Sub(equity); dd.GreaterThan(drawdown) {
			drawdown = dd
		}
	}

	r.WinRate = float64(r.WinningRounds) / float64(r.TotalRounds) * 100
	r.MaxDrawdown = drawdown
	r.AverageHoldSeconds = holdSeconds / float64(r.TotalRounds)
	if r.WinningRounds > 0 {
		r.AverageProfit = grossProfit.Div(decimal.NewFromInt(int64(r.WinningRounds)))
	}
	if r.LosingRounds > 0 {
		r.AverageLoss = grossLoss.Div(decimal.NewFromInt(int64(r.LosingRounds)))
	}
	if grossLoss.IsPositive() {
		pf, _ := grossProfit.Div(grossLoss).Float64()
		r.ProfitFactor = pf
	}
	return r, nil
}

// Service loads trade history from the database for reporting.
type Service struct {
	db *pgxpool.Pool
}

// NewService creates a report service.
func NewService(db *pgxpool.Pool) *Service {
	return &Service{db: db}
}

// Trades returns all trade records in a time window, oldest first.
func (s *Service) Trades(ctx context.Context, from, to time.Time) ([]datastore.TradeRecord, error) {
	rows, err := s.db.Query(ctx, `
		SELECT time, symbol, instrument, side, kind, order_id,
		       quantity, price, notional, status, reason
		FROM trades
		WHERE time >= $1 AND time < $2
		ORDER BY time ASC`, from, to)
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer rows.Close()

	var trades []datastore.TradeRecord
	for rows.Next() {
		var t datastore.TradeRecord
		if err := rows.Scan(&t.Time, &t.Symbol, &t.Instrument, &t.Side, &t.Kind,
			&t.OrderID, &t.Quantity, &t.Price, &t.Notional, &t.Status, &t.Reason); err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// Generate loads the window's trades and analyzes the closed rounds.
func (s *Service) Generate(ctx context.Context, from, to time.Time) (Report, error) {
	trades, err := s.Trades(ctx, from, to)
	if err != nil {
		return Report{}, err
	}
	return Analyze(PairRounds(trades))
}
