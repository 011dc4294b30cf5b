package rules

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration lets YAML carry human-readable values like "3s" or "5m".
type Duration time.Duration

// UnmarshalYAML parses a duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Rules는 스캐닝/매매 전략의 전체 설정
// ⭐ SSOT: 점수 기준과 리스크 파라미터는 YAML에서만
type Rules struct {
	Scanning Scanning `yaml:"scanning" json:"scanning"`
	Trading  Trading  `yaml:"trading" json:"trading"`
}

// Scanning covers the scan pipeline: criteria tables, weights, grading,
// filters, and selection parameters.
type Scanning struct {
	Weights   Weights   `yaml:"weights" json:"weights"`
	Criteria  Criteria  `yaml:"criteria" json:"criteria"`
	Grading   Grading   `yaml:"grading" json:"grading"`
	Filters   Filters   `yaml:"filters" json:"filters"`
	Selection Selection `yaml:"selection" json:"selection"`
	Intervals Intervals `yaml:"intervals" json:"intervals"`
}

// Weights scale each criterion's sub-score before summing.
type Weights struct {
	Volume           float64 `yaml:"volume" json:"volume"`
	Price            float64 `yaml:"price" json:"price"`
	ForeignInstitute float64 `yaml:"foreign_institute" json:"foreign_institute"`
	BidAsk           float64 `yaml:"bid_ask" json:"bid_ask"`
	Strength         float64 `yaml:"strength" json:"strength"`
}

// Step is one (threshold, score) row. Rows are scanned top-down and the
// first matching threshold wins, so lists must be sorted descending.
type Step struct {
	Threshold float64 `yaml:"threshold" json:"threshold"`
	Score     float64 `yaml:"score" json:"score"`
}

// ForeignStep scores consecutive foreign net-buy days.
type ForeignStep struct {
	ConsecutiveDays int     `yaml:"consecutive_days" json:"consecutive_days"`
	Score           float64 `yaml:"score" json:"score"`
}

// InstituteStep scores institute net buying in billions of KRW.
type InstituteStep struct {
	AmountBillion float64 `yaml:"amount_billion" json:"amount_billion"`
	Score         float64 `yaml:"score" json:"score"`
}

// Criteria holds the per-criterion step tables.
type Criteria struct {
	Volume               []Step          `yaml:"volume" json:"volume"`
	Price                []Step          `yaml:"price" json:"price"`
	PriceProximityToHigh []Step          `yaml:"price_proximity_to_high" json:"price_proximity_to_high"`
	Foreign              []ForeignStep   `yaml:"foreign" json:"foreign"`
	Institute            []InstituteStep `yaml:"institute" json:"institute"`
	BidAskRatio          []Step          `yaml:"bid_ask_ratio" json:"bid_ask_ratio"`
	TradeStrength        []Step          `yaml:"trade_strength" json:"trade_strength"`
}

// Grading maps total scores to letter grades, first matching cut wins.
type Grading struct {
	SGrade             float64 `yaml:"s_grade" json:"s_grade"`
	AGrade             float64 `yaml:"a_grade" json:"a_grade"`
	BGrade             float64 `yaml:"b_grade" json:"b_grade"`
	CGrade             float64 `yaml:"c_grade" json:"c_grade"`
	AIAnalysisMinScore float64 `yaml:"ai_analysis_min_score" json:"ai_analysis_min_score"`
}

// Filters drop candidates before scoring.
type Filters struct {
	MinTradingValue   int64    `yaml:"min_trading_value" json:"min_trading_value"`
	ExcludeConditions []string `yaml:"exclude_conditions" json:"exclude_conditions"`
}

// Selection controls how many candidates survive each stage.
type Selection struct {
	CoarseTopN      int      `yaml:"coarse_top_n" json:"coarse_top_n"`
	DeepTopK        int      `yaml:"deep_top_k" json:"deep_top_k"`
	QualifyingScore float64  `yaml:"qualifying_score" json:"qualifying_score"`
	BatchSize       int      `yaml:"batch_size" json:"batch_size"`
	BatchDelay      Duration `yaml:"batch_delay" json:"batch_delay"`
	AdvisoryTopN    int      `yaml:"advisory_top_n" json:"advisory_top_n"`
}

// Intervals are the loop periods of the orchestrator.
type Intervals struct {
	FastScan        Duration `yaml:"fast_scan" json:"fast_scan"`
	DeepScan        Duration `yaml:"deep_scan" json:"deep_scan"`
	AdvisoryScan    Duration `yaml:"advisory_scan" json:"advisory_scan"`
	PositionMonitor Duration `yaml:"position_monitor" json:"position_monitor"`
	AccountRefresh  Duration `yaml:"account_refresh" json:"account_refresh"`
}

// Trading covers risk-mode parameters and session boundaries.
type Trading struct {
	MarketCloseCutoff string    `yaml:"market_close_cutoff" json:"market_close_cutoff"` // HH:MM
	RiskModes         RiskModes `yaml:"risk_modes" json:"risk_modes"`
}

// RiskModes holds one parameter set per capital-ratio band.
type RiskModes struct {
	Profit           ModeParams `yaml:"profit" json:"profit"`
	Normal           ModeParams `yaml:"normal" json:"normal"`
	Conservative     ModeParams `yaml:"conservative" json:"conservative"`
	VeryConservative ModeParams `yaml:"very_conservative" json:"very_conservative"`
}

// ModeParams are the per-mode trading limits.
type ModeParams struct {
	MaxPositions          int     `yaml:"max_positions" json:"max_positions"`
	PositionSizePct       float64 `yaml:"position_size_pct" json:"position_size_pct"`
	StopLossPct           float64 `yaml:"stop_loss_pct" json:"stop_loss_pct"`
	TakeProfitPct         float64 `yaml:"take_profit_pct" json:"take_profit_pct"`
	MinAdvisoryConfidence float64 `yaml:"min_advisory_confidence" json:"min_advisory_confidence"`
}
