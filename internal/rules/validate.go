package rules

import (
	"fmt"
	"regexp"
)

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var hhmmRe = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// Validate checks all required constraints.
// 실패 시 error 반환 (프로그램 중단)
func Validate(r *Rules) error {
	// === Scanning criteria: first-match scans need descending thresholds ===
	steps := map[string][]Step{
		"scanning.criteria.volume":                  r.Scanning.Criteria.Volume,
		"scanning.criteria.price":                   r.Scanning.Criteria.Price,
		"scanning.criteria.price_proximity_to_high": r.Scanning.Criteria.PriceProximityToHigh,
		"scanning.criteria.bid_ask_ratio":           r.Scanning.Criteria.BidAskRatio,
		"scanning.criteria.trade_strength":          r.Scanning.Criteria.TradeStrength,
	}
	for field, list := range steps {
		if len(list) == 0 {
			return ValidationError{field, "at least one step required"}
		}
		for i := 1; i < len(list); i++ {
			if list[i].Threshold >= list[i-1].Threshold {
				return ValidationError{field, "thresholds must be strictly descending"}
			}
		}
	}
	for i := 1; i < len(r.Scanning.Criteria.Foreign); i++ {
		if r.Scanning.Criteria.Foreign[i].ConsecutiveDays >= r.Scanning.Criteria.Foreign[i-1].ConsecutiveDays {
			return ValidationError{"scanning.criteria.foreign", "consecutive_days must be strictly descending"}
		}
	}
	for i := 1; i < len(r.Scanning.Criteria.Institute); i++ {
		if r.Scanning.Criteria.Institute[i].AmountBillion >= r.Scanning.Criteria.Institute[i-1].AmountBillion {
			return ValidationError{"scanning.criteria.institute", "amount_billion must be strictly descending"}
		}
	}

	// === Grading: cuts must be ordered S > A > B > C ===
	g := r.Scanning.Grading
	if !(g.SGrade > g.AGrade && g.AGrade > g.BGrade && g.BGrade > g.CGrade) {
		return ValidationError{"scanning.grading", "cuts must satisfy s > a > b > c"}
	}

	// === Filters ===
	if r.Scanning.Filters.MinTradingValue < 0 {
		return ValidationError{"scanning.filters.min_trading_value", "must be >= 0"}
	}

	// === Selection ===
	sel := r.Scanning.Selection
	if sel.CoarseTopN <= 0 {
		return ValidationError{"scanning.selection.coarse_top_n", "must be > 0"}
	}
	if sel.DeepTopK <= 0 {
		return ValidationError{"scanning.selection.deep_top_k", "must be > 0"}
	}
	if sel.BatchSize <= 0 {
		return ValidationError{"scanning.selection.batch_size", "must be > 0"}
	}
	if sel.AdvisoryTopN <= 0 {
		return ValidationError{"scanning.selection.advisory_top_n", "must be > 0"}
	}

	// === Intervals ===
	iv := r.Scanning.Intervals
	if iv.FastScan <= 0 || iv.DeepScan <= 0 || iv.AdvisoryScan <= 0 ||
		iv.PositionMonitor <= 0 || iv.AccountRefresh <= 0 {
		return ValidationError{"scanning.intervals", "all intervals must be > 0"}
	}

	// === Trading ===
	if !hhmmRe.MatchString(r.Trading.MarketCloseCutoff) {
		return ValidationError{"trading.market_close_cutoff", "must be HH:MM"}
	}
	modes := map[string]ModeParams{
		"trading.risk_modes.profit":            r.Trading.RiskModes.Profit,
		"trading.risk_modes.normal":            r.Trading.RiskModes.Normal,
		"trading.risk_modes.conservative":      r.Trading.RiskModes.Conservative,
		"trading.risk_modes.very_conservative": r.Trading.RiskModes.VeryConservative,
	}
	for field, m := range modes {
		if m.MaxPositions < 0 {
			return ValidationError{field + ".max_positions", "must be >= 0"}
		}
		if m.PositionSizePct <= 0 || m.PositionSizePct > 100 {
			return ValidationError{field + ".position_size_pct", "must be in (0, 100]"}
		}
		if m.StopLossPct >= 0 {
			return ValidationError{field + ".stop_loss_pct", "must be < 0"}
		}
		if m.TakeProfitPct <= 0 {
			return ValidationError{field + ".take_profit_pct", "must be > 0"}
		}
		if m.MinAdvisoryConfidence < 0 || m.MinAdvisoryConfidence > 1 {
			return ValidationError{field + ".min_advisory_confidence", "must be in [0, 1]"}
		}
	}

	return nil
}
