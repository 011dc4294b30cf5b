// Package strategy holds the risk-mode state machine, the position ledger,
// and exit evaluation.
package strategy

import (
	"fmt"
	"sync"

	"github.com/joonholab/argos/internal/rules"
	"github.com/joonholab/argos/pkg/logger"
)

// Mode is a capital-ratio band with its own trading limits.
type Mode string

const (
	ModeProfit           Mode = "profit"
	ModeNormal           Mode = "normal"
	ModeConservative     Mode = "conservative"
	ModeVeryConservative Mode = "very_conservative"
)

// 한글 모드명 (로그용)
func (m Mode) Korean() string {
	switch m {
	case ModeProfit:
		return "공격적 (수익)"
	case ModeNormal:
		return "정상"
	case ModeConservative:
		return "보수적"
	case ModeVeryConservative:
		return "매우 보수적"
	default:
		return string(m)
	}
}

// ModeForRatio maps a capital ratio to its mode. Pure, no hysteresis: the
// band boundaries decide every call independently.
func ModeForRatio(ratio float64) Mode {
	switch {
	case ratio >= 1.00:
		return ModeProfit
	case ratio >= 0.90:
		return ModeNormal
	case ratio >= 0.80:
		return ModeConservative
	default:
		return ModeVeryConservative
	}
}

// Decision is the outcome of a buy gate check.
type Decision struct {
	Allow  bool
	Reason string
	Mode   Mode
}

// RiskManager adjusts trading limits from the capital ratio.
// ⭐ SSOT: 리스크 모드 전환은 이 매니저에서만
type RiskManager struct {
	initialCapital int64
	modes          rules.RiskModes
	logger         *logger.Logger

	mu      sync.RWMutex
	current Mode
}

// NewRiskManager creates a manager starting in normal mode.
func NewRiskManager(initialCapital int64, modes rules.RiskModes, log *logger.Logger) *RiskManager {
	log.Infof("동적 리스크 관리 초기화 - 원금: %d원", initialCapital)
	return &RiskManager{
		initialCapital: initialCapital,
		modes:          modes,
		logger:         log,
		current:        ModeNormal,
	}
}

// UpdateMode recomputes the mode from the current capital and returns the
// active parameters.
func (r *RiskManager) UpdateMode(currentCapital int64) rules.ModeParams {
	ratio := float64(currentCapital) / float64(r.initialCapital)
	mode := ModeForRatio(ratio)

	r.mu.Lock()
	if mode != r.current {
		old := r.current
		r.current = mode
		r.mu.Unlock()
		r.logger.Warnf("🔄 투자 모드 변경: %s → %s (원금 대비 %.1f%%)",
			old.Korean(), mode.Korean(), ratio*100)
	} else {
		r.mu.Unlock()
	}

	return r.params(mode)
}

// Mode returns the current mode.
func (r *RiskManager) Mode() Mode {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// Params returns the parameters of the current mode.
func (r *RiskManager) Params() rules.ModeParams {
	return r.params(r.Mode())
}

func (r *RiskManager) params(mode Mode) rules.ModeParams {
	switch mode {
	case ModeProfit:
		return r.modes.Profit
	case ModeNormal:
		return r.modes.Normal
	case ModeConservative:
		return r.modes.Conservative
	default:
		return r.modes.VeryConservative
	}
}

// ShouldBuy gates a buy on position count and advisory confidence under the
// mode for the given capital.
func (r *RiskManager) ShouldBuy(currentCapital int64, openPositions int, confidence float64) Decision {
	params := r.UpdateMode(currentCapital)
	mode := r.Mode()

	if openPositions >= params.MaxPositions {
		return Decision{
			Allow:  false,
			Reason: fmt.Sprintf("최대 포지션 수 도달 (%d/%d)", openPositions, params.MaxPositions),
			Mode:   mode,
		}
	}
	if confidence < params.MinAdvisoryConfidence {
		return Decision{
			Allow:  false,
			Reason: fmt.Sprintf("AI 신뢰도 부족 (%.2f < %.2f)", confidence, params.MinAdvisoryConfidence),
			Mode:   mode,
		}
	}
	return Decision{Allow: true, Reason: "매수 조건 충족", Mode: mode}
}

// PositionSize returns how many shares the current mode allows at the given
// price: floor(capital × pct/100 / price).
func (r *RiskManager) PositionSize(currentCapital, price int64) int64 {
	if price <= 0 {
		return 0
	}
	params := r.Params()
	investment := float64(currentCapital) * params.PositionSizePct / 100
	return int64(investment / float64(price))
}
