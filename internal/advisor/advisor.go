// Package advisor asks an LLM for a second opinion on scan candidates.
// The opinion is advisory only; any failure degrades to a safe HOLD.
package advisor

import "context"

// Recommendation is the advisory verdict.
type Recommendation string

const (
	Buy  Recommendation = "BUY"
	Sell Recommendation = "SELL"
	Hold Recommendation = "HOLD"
)

// Summary is the candidate snapshot submitted for analysis.
type Summary struct {
	Code            string
	Name            string
	Price           int64
	PriceChangePct  float64
	VolumeChangePct float64
	TotalScore      float64
	Grade           string
}

// Opinion is the advisory result.
type Opinion struct {
	Recommendation Recommendation `json:"recommendation"`
	Confidence     float64        `json:"confidence"`
	Probability    float64        `json:"probability"`
	TargetPrice    int64          `json:"target_price"`
	RiskLevel      string         `json:"risk_level"`
	Reason         string         `json:"reason"`
}

// DefaultOpinion is returned whenever analysis fails for any reason.
// 분석 불가 시 안전한 기본값
func DefaultOpinion() *Opinion {
	return &Opinion{
		Recommendation: Hold,
		Confidence:     0.3,
		Probability:    50,
		TargetPrice:    0,
		RiskLevel:      "HIGH",
		Reason:         "분석 불가",
	}
}

// Advisor produces an opinion for one candidate.
type Advisor interface {
	Advise(ctx context.Context, s Summary) *Opinion
}
