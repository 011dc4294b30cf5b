package scanner

import "github.com/joonholab/argos/internal/rules"

// ScoreResult is the outcome of scoring one candidate.
type ScoreResult struct {
	Total    float64
	Grade    string
	Scores   map[string]float64
	Weighted map[string]float64
}

// Score computes the weighted criterion score and grade for a candidate.
// Pure: no I/O, no state, same input always gives the same output.
// ⭐ SSOT: 점수 계산은 이 함수에서만
func Score(c Candidate, s *rules.Scanning) ScoreResult {
	scores := map[string]float64{
		"volume":            scoreSteps(c.VolumeChangePct, s.Criteria.Volume),
		"price":             scorePrice(c, s),
		"foreign_institute": scoreForeignInstitute(c, s),
		"bid_ask":           scoreSteps(c.BidAskRatio, s.Criteria.BidAskRatio),
		"strength":          scoreSteps(c.TradeStrength, s.Criteria.TradeStrength),
	}

	w := s.Weights
	weighted := map[string]float64{
		"volume":            scores["volume"] * w.Volume,
		"price":             scores["price"] * w.Price,
		"foreign_institute": scores["foreign_institute"] * w.ForeignInstitute,
		"bid_ask":           scores["bid_ask"] * w.BidAsk,
		"strength":          scores["strength"] * w.Strength,
	}

	total := 0.0
	for _, v := range weighted {
		total += v
	}

	return ScoreResult{
		Total:    total,
		Grade:    grade(total, s.Grading),
		Scores:   scores,
		Weighted: weighted,
	}
}

// scoreSteps walks a descending (threshold, score) table, first match wins.
func scoreSteps(value float64, steps []rules.Step) float64 {
	for _, step := range steps {
		if value >= step.Threshold {
			return step.Score
		}
	}
	return 0
}

// scorePrice is two-part: price change plus proximity to the day high.
func scorePrice(c Candidate, s *rules.Scanning) float64 {
	score := scoreSteps(c.PriceChangePct, s.Criteria.Price)
	score += scoreSteps(c.HighProximityPct, s.Criteria.PriceProximityToHigh)
	return score
}

// scoreForeignInstitute is two-part: foreign consecutive net-buy days plus
// institute net buying.
func scoreForeignInstitute(c Candidate, s *rules.Scanning) float64 {
	score := 0.0
	for _, step := range s.Criteria.Foreign {
		if c.ForeignDays >= step.ConsecutiveDays {
			score += step.Score
			break
		}
	}
	for _, step := range s.Criteria.Institute {
		if c.InstituteBuyBillion >= step.AmountBillion {
			score += step.Score
			break
		}
	}
	return score
}

// grade maps a total score to S/A/B/C/D by descending cuts, first match.
func grade(total float64, g rules.Grading) string {
	switch {
	case total >= g.SGrade:
		return "S"
	case total >= g.AGrade:
		return "A"
	case total >= g.BGrade:
		return "B"
	case total >= g.CGrade:
		return "C"
	default:
		return "D"
	}
}
