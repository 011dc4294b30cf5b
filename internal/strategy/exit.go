package strategy

import (
	"fmt"
	"time"

	"github.com/joonholab/argos/internal/rules"
)

// ExitReason explains an exit decision.
type ExitReason string

const (
	ExitStopLoss      ExitReason = "STOP_LOSS"
	ExitTakeProfit    ExitReason = "TAKE_PROFIT"
	ExitMarketClosing ExitReason = "MARKET_CLOSING"
	ExitHold          ExitReason = "HOLD"
)

// ExitDecision is the outcome of evaluating one position.
type ExitDecision struct {
	Sell   bool
	Reason ExitReason
	PnLPct float64
}

// ExitEvaluator decides when a position must close. Checks run in fixed
// order: stop loss, take profit, market-closing cutoff, hold.
type ExitEvaluator struct {
	cutoffHour   int
	cutoffMinute int

	now func() time.Time
}

// NewExitEvaluator parses the HH:MM closing cutoff.
func NewExitEvaluator(cutoff string) (*ExitEvaluator, error) {
	t, err := time.Parse("15:04", cutoff)
	if err != nil {
		return nil, fmt.Errorf("parse market close cutoff %q: %w", cutoff, err)
	}
	return &ExitEvaluator{
		cutoffHour:   t.Hour(),
		cutoffMinute: t.Minute(),
		now:          time.Now,
	}, nil
}

// Evaluate applies the exit checks for one position under the given risk
// parameters.
func (e *ExitEvaluator) Evaluate(p *Position, currentPrice int64, params rules.ModeParams) ExitDecision {
	pnlPct := p.PnLPct(currentPrice)

	if pnlPct <= params.StopLossPct {
		return ExitDecision{Sell: true, Reason: ExitStopLoss, PnLPct: pnlPct}
	}
	if pnlPct >= params.TakeProfitPct {
		return ExitDecision{Sell: true, Reason: ExitTakeProfit, PnLPct: pnlPct}
	}
	if e.marketClosing() {
		return ExitDecision{Sell: true, Reason: ExitMarketClosing, PnLPct: pnlPct}
	}
	return ExitDecision{Sell: false, Reason: ExitHold, PnLPct: pnlPct}
}

// marketClosing reports whether the wall clock passed the cutoff.
func (e *ExitEvaluator) marketClosing() bool {
	now := e.now()
	if now.Hour() != e.cutoffHour {
		return now.Hour() > e.cutoffHour
	}
	return now.Minute() >= e.cutoffMinute
}
