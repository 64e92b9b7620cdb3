package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/your-org/signal-trader/internal/pnl"
	"github.com/your-org/signal-trader/internal/position"
)

// StatusHandler serves the bot's runtime state: open positions and the
// session P&L counters.
type StatusHandler struct {
	book *position.Book
	calc *pnl.Calculator
}

// NewStatusHandler creates a StatusHandler.
func NewStatusHandler(book *position.Book, calc *pnl.Calculator) *StatusHandler {
	return &StatusHandler{book: book, calc: calc}
}

// RegisterRoutes registers the status routes on a chi router.
func (h *StatusHandler) RegisterRoutes(r chi.Router) {
	r.Get("/positions", h.GetPositions)
	r.Get("/pnl", h.GetPnl)
}

type positionView struct {
	Symbol     string    `json:"symbol"`
	Instrument string    `json:"instrument"`
	Side       string    `json:"side"`
	Quantity   float64   `json:"quantity"`
	EntryPrice float64   `json:"entry_price"`
	TakeProfit float64   `json:"take_profit"`
	StopLoss   float64   `json:"stop_loss"`
	Status     string    `json:"status"`
	OpenedAt   time.Time `json:"opened_at"`
}

// GetPositions returns all ACTIVE positions.
func (h *StatusHandler) GetPositions(w http.ResponseWriter, r *http.Request) {
	active := h.book.Active()
	views := make([]positionView, 0, len(active))
	for _, p := range active {
		views = append(views, positionView{
			Symbol:     p.Symbol,
			Instrument: p.Instrument,
			Side:       string(p.Side),
			Quantity:   p.Quantity,
			EntryPrice: p.EntryPrice,
			TakeProfit: p.TakeProfit,
			StopLoss:   p.StopLoss,
			Status:     p.Status.String(),
			OpenedAt:   p.OpenedAt,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(views); err != nil {
		http.Error(w, "Failed to encode positions to JSON", http.StatusInternalServerError)
	}
}

type pnlView struct {
	RealizedTotal float64 `json:"realized_total"`
	ClosedCount   int     `json:"closed_count"`
}

// GetPnl returns the session's realized P&L summary.
func (h *StatusHandler) GetPnl(w http.ResponseWriter, r *http.Request) {
	view := pnlView{
		RealizedTotal: h.calc.RealizedTotal(),
		ClosedCount:   h.calc.ClosedCount(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(view); err != nil {
		http.Error(w, "Failed to encode PnL summary to JSON", http.StatusInternalServerError)
	}
}
