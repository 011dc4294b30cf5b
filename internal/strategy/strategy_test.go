package strategy

import (
	"testing"
	"time"

	"github.com/joonholab/argos/internal/rules"
	"github.com/joonholab/argos/pkg/logger"
)

func testModes() rules.RiskModes {
	return rules.RiskModes{
		Profit:           rules.ModeParams{MaxPositions: 10, PositionSizePct: 5, StopLossPct: -3, TakeProfitPct: 5, MinAdvisoryConfidence: 0.75},
		Normal:           rules.ModeParams{MaxPositions: 8, PositionSizePct: 4, StopLossPct: -2.5, TakeProfitPct: 4, MinAdvisoryConfidence: 0.80},
		Conservative:     rules.ModeParams{MaxPositions: 5, PositionSizePct: 3, StopLossPct: -2, TakeProfitPct: 3, MinAdvisoryConfidence: 0.85},
		VeryConservative: rules.ModeParams{MaxPositions: 3, PositionSizePct: 2, StopLossPct: -1.5, TakeProfitPct: 2.5, MinAdvisoryConfidence: 0.90},
	}
}

func TestModeForRatio(t *testing.T) {
	tests := []struct {
		ratio float64
		want  Mode
	}{
		{1.05, ModeProfit},
		{1.00, ModeProfit},
		{0.95, ModeNormal},
		{0.90, ModeNormal},
		{0.85, ModeConservative},
		{0.80, ModeConservative},
		{0.79, ModeVeryConservative},
		{0.50, ModeVeryConservative},
	}
	for _, tt := range tests {
		if got := ModeForRatio(tt.ratio); got != tt.want {
			t.Errorf("ModeForRatio(%.2f) = %s, want %s", tt.ratio, got, tt.want)
		}
	}
}

func TestUpdateModeNoHysteresis(t *testing.T) {
	r := NewRiskManager(10_000_000, testModes(), logger.NewNop())

	// Oscillating right at the boundary flips the mode every call.
	r.UpdateMode(9_000_000) // 0.90 → normal
	if r.Mode() != ModeNormal {
		t.Fatalf("mode = %s, want normal", r.Mode())
	}
	r.UpdateMode(8_999_999) // just below → conservative
	if r.Mode() != ModeConservative {
		t.Fatalf("mode = %s, want conservative", r.Mode())
	}
	r.UpdateMode(9_000_000)
	if r.Mode() != ModeNormal {
		t.Fatalf("mode flipped back = %s, want normal", r.Mode())
	}
}

func TestShouldBuyPositionLimit(t *testing.T) {
	r := NewRiskManager(10_000_000, testModes(), logger.NewNop())

	d := r.ShouldBuy(10_000_000, 10, 0.95) // profit mode allows 10
	if d.Allow {
		t.Error("buy allowed at max positions")
	}
	if d.Mode != ModeProfit {
		t.Errorf("mode = %s, want profit", d.Mode)
	}

	d = r.ShouldBuy(10_000_000, 9, 0.95)
	if !d.Allow {
		t.Errorf("buy denied below limit: %s", d.Reason)
	}
}

func TestShouldBuyConfidenceGate(t *testing.T) {
	r := NewRiskManager(10_000_000, testModes(), logger.NewNop())

	// 0.5 ratio → very conservative → min confidence 0.90.
	d := r.ShouldBuy(5_000_000, 0, 0.85)
	if d.Allow {
		t.Error("buy allowed below mode confidence floor")
	}
	d = r.ShouldBuy(5_000_000, 0, 0.92)
	if !d.Allow {
		t.Errorf("buy denied with sufficient confidence: %s", d.Reason)
	}
}

func TestPositionSize(t *testing.T) {
	r := NewRiskManager(1_000_000, testModes(), logger.NewNop())
	r.UpdateMode(1_000_000) // profit mode, 5%

	if got := r.PositionSize(1_000_000, 10_000); got != 5 {
		t.Errorf("PositionSize = %d, want 5", got)
	}
	if got := r.PositionSize(1_000_000, 0); got != 0 {
		t.Errorf("PositionSize with zero price = %d, want 0", got)
	}
	// Fractional shares floor down.
	if got := r.PositionSize(1_000_000, 7_000); got != 7 {
		t.Errorf("PositionSize = %d, want 7", got)
	}
}

func TestLedgerOpenClose(t *testing.T) {
	l := NewLedger(logger.NewNop())

	l.Open("005930", "삼성전자", 10, 70000)
	l.Open("000660", "SK하이닉스", 5, 180000)
	if l.Len() != 2 {
		t.Fatalf("Len = %d, want 2", l.Len())
	}

	realized, ok := l.Close("005930", 72000)
	if !ok {
		t.Fatal("Close of open position failed")
	}
	if realized != 20000 {
		t.Errorf("realized = %d, want 20000", realized)
	}
	if l.DailyRealizedPnL() != 20000 {
		t.Errorf("daily PnL = %d, want 20000", l.DailyRealizedPnL())
	}

	// Closing again is a no-op.
	if _, ok := l.Close("005930", 72000); ok {
		t.Error("Close of absent position should report false")
	}

	realized, _ = l.Close("000660", 175000)
	if realized != -25000 {
		t.Errorf("realized = %d, want -25000", realized)
	}
	if l.DailyRealizedPnL() != -5000 {
		t.Errorf("daily PnL = %d, want -5000", l.DailyRealizedPnL())
	}

	l.ResetDailyPnL()
	if l.DailyRealizedPnL() != 0 {
		t.Error("daily PnL not reset")
	}
}

func TestPositionPnL(t *testing.T) {
	p := &Position{Code: "005930", Quantity: 10, EntryPrice: 70000}

	if got := p.UnrealizedPnL(71000); got != 10000 {
		t.Errorf("unrealized = %d, want 10000", got)
	}
	if got := p.PnLPct(73500); got != 5.0 {
		t.Errorf("pnl pct = %f, want 5.0", got)
	}

	zero := &Position{EntryPrice: 0, Quantity: 1}
	if got := zero.PnLPct(100); got != 0 {
		t.Errorf("zero entry pnl pct = %f, want 0", got)
	}
}

func newTestEvaluator(t *testing.T, clock time.Time) *ExitEvaluator {
	t.Helper()
	e, err := NewExitEvaluator("15:10")
	if err != nil {
		t.Fatalf("NewExitEvaluator failed: %v", err)
	}
	e.now = func() time.Time { return clock }
	return e
}

func TestEvaluateExitOrdering(t *testing.T) {
	params := testModes().Profit // stop -3, take +5
	pos := &Position{Code: "005930", Quantity: 10, EntryPrice: 100000}

	midday := time.Date(2026, 8, 31, 11, 0, 0, 0, time.Local)
	pastCutoff := time.Date(2026, 8, 31, 15, 10, 0, 0, time.Local)

	tests := []struct {
		name  string
		price int64
		clock time.Time
		want  ExitReason
	}{
		{"stop loss", 96_000, midday, ExitStopLoss},
		{"take profit", 105_000, midday, ExitTakeProfit},
		{"hold midday", 101_000, midday, ExitHold},
		{"closing flat", 101_000, pastCutoff, ExitMarketClosing},
		// Take profit outranks the closing cutoff.
		{"take profit past cutoff", 106_000, pastCutoff, ExitTakeProfit},
		// Stop loss outranks everything.
		{"stop loss past cutoff", 90_000, pastCutoff, ExitStopLoss},
	}
	for _, tt := range tests {
		e := newTestEvaluator(t, tt.clock)
		d := e.Evaluate(pos, tt.price, params)
		if d.Reason != tt.want {
			t.Errorf("%s: reason = %s, want %s", tt.name, d.Reason, tt.want)
		}
		if d.Sell != (tt.want != ExitHold) {
			t.Errorf("%s: sell = %v inconsistent with reason", tt.name, d.Sell)
		}
	}
}

func TestEvaluateExitBoundary(t *testing.T) {
	params := testModes().Profit
	pos := &Position{Quantity: 10, EntryPrice: 100000}
	midday := time.Date(2026, 8, 31, 11, 0, 0, 0, time.Local)

	// Exactly at the stop and take thresholds triggers.
	e := newTestEvaluator(t, midday)
	if d := e.Evaluate(pos, 97_000, params); d.Reason != ExitStopLoss {
		t.Errorf("at stop threshold: %s", d.Reason)
	}
	if d := e.Evaluate(pos, 105_000, params); d.Reason != ExitTakeProfit {
		t.Errorf("at take threshold: %s", d.Reason)
	}

	// One minute before the cutoff holds.
	before := time.Date(2026, 8, 31, 15, 9, 59, 0, time.Local)
	e = newTestEvaluator(t, before)
	if d := e.Evaluate(pos, 101_000, params); d.Reason != ExitHold {
		t.Errorf("before cutoff: %s", d.Reason)
	}
}
