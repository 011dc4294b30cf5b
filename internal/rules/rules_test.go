package rules

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRules() *Rules {
	return &Rules{
		Scanning: Scanning{
			Weights: Weights{Volume: 1, Price: 1, ForeignInstitute: 1, BidAsk: 1, Strength: 1},
			Criteria: Criteria{
				Volume:               []Step{{300, 100}, {100, 60}},
				Price:                []Step{{5, 60}, {3, 40}},
				PriceProximityToHigh: []Step{{95, 40}, {90, 30}},
				Foreign:              []ForeignStep{{5, 50}, {3, 30}},
				Institute:            []InstituteStep{{10, 50}, {5, 30}},
				BidAskRatio:          []Step{{150, 60}, {120, 40}},
				TradeStrength:        []Step{{150, 80}, {120, 60}},
			},
			Grading: Grading{SGrade: 400, AGrade: 300, BGrade: 200, CGrade: 100, AIAnalysisMinScore: 200},
			Filters: Filters{MinTradingValue: 1_000_000_000, ExcludeConditions: []string{"관리"}},
			Selection: Selection{
				CoarseTopN: 50, DeepTopK: 20, QualifyingScore: 200,
				BatchSize: 10, BatchDelay: Duration(3 * time.Second), AdvisoryTopN: 10,
			},
			Intervals: Intervals{
				FastScan:        Duration(5 * time.Minute),
				DeepScan:        Duration(10 * time.Minute),
				AdvisoryScan:    Duration(15 * time.Minute),
				PositionMonitor: Duration(10 * time.Second),
				AccountRefresh:  Duration(5 * time.Minute),
			},
		},
		Trading: Trading{
			MarketCloseCutoff: "15:10",
			RiskModes: RiskModes{
				Profit:           ModeParams{10, 5, -3, 5, 0.75},
				Normal:           ModeParams{8, 4, -2.5, 4, 0.80},
				Conservative:     ModeParams{5, 3, -2, 3, 0.85},
				VeryConservative: ModeParams{3, 2, -1.5, 2.5, 0.90},
			},
		},
	}
}

func TestValidateOK(t *testing.T) {
	assert.NoError(t, Validate(validRules()))
}

func TestValidateRejectsUnsortedThresholds(t *testing.T) {
	r := validRules()
	r.Scanning.Criteria.Volume = []Step{{100, 60}, {300, 100}}
	err := Validate(r)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "descending")
}

func TestValidateRejectsBadGradeOrder(t *testing.T) {
	r := validRules()
	r.Scanning.Grading.AGrade = 450 // above S
	assert.Error(t, Validate(r))
}

func TestValidateRejectsBadCutoff(t *testing.T) {
	r := validRules()
	r.Trading.MarketCloseCutoff = "25:99"
	assert.Error(t, Validate(r))
}

func TestValidateRejectsPositiveStopLoss(t *testing.T) {
	r := validRules()
	r.Trading.RiskModes.Normal.StopLossPct = 2.0
	assert.Error(t, Validate(r))
}

func TestLoadSampleConfig(t *testing.T) {
	r, err := Load(filepath.Join("..", "..", "config", "rules.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 50, r.Scanning.Selection.CoarseTopN)
	assert.Equal(t, 20, r.Scanning.Selection.DeepTopK)
	assert.Equal(t, 200.0, r.Scanning.Selection.QualifyingScore)
	assert.Equal(t, 3*time.Second, r.Scanning.Selection.BatchDelay.Std())
	assert.Equal(t, "15:10", r.Trading.MarketCloseCutoff)
	assert.Equal(t, 10, r.Trading.RiskModes.Profit.MaxPositions)
	assert.InDelta(t, 0.90, r.Trading.RiskModes.VeryConservative.MinAdvisoryConfidence, 1e-9)
}

func TestLoadRejectsUnknownField(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	bad := []byte("scanning:\n  weigths:\n    volume: 1.0\n")
	require.NoError(t, os.WriteFile(path, bad, 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
