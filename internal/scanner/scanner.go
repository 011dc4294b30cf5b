// Package scanner implements the three-stage scan pipeline: coarse ranking
// merge, detailed scoring, and advisory analysis.
package scanner

import (
	"context"
	"sort"
	"strings"

	"github.com/joonholab/argos/internal/advisor"
	"github.com/joonholab/argos/internal/kiwoom"
	"github.com/joonholab/argos/internal/rules"
	"github.com/joonholab/argos/pkg/backoff"
	"github.com/joonholab/argos/pkg/logger"
)

// Candidate is one stock moving through the pipeline.
type Candidate struct {
	Code           string  `json:"code"`
	Name           string  `json:"name"`
	Price          int64   `json:"price"`
	PriceChangePct float64 `json:"price_change_pct"`
	Volume         int64   `json:"volume"`
	TradingValue   int64   `json:"trading_value"`
	Status         string  `json:"status"`

	// Deep-scan enrichment
	VolumeChangePct     float64 `json:"volume_change_pct"`
	HighProximityPct    float64 `json:"high_proximity_pct"`
	ForeignDays         int     `json:"foreign_days"`
	InstituteBuyBillion float64 `json:"institute_buy_billion"`
	BidAskRatio         float64 `json:"bid_ask_ratio"`
	TradeStrength       float64 `json:"trade_strength"`

	TotalScore float64 `json:"total_score"`
	Grade      string  `json:"grade"`

	Opinion *advisor.Opinion `json:"opinion,omitempty"`
}

// Gateway is the market-data surface the pipeline needs.
type Gateway interface {
	GetVolumeSurge(ctx context.Context) ([]kiwoom.RankedStock, error)
	GetVolumeLeaders(ctx context.Context) ([]kiwoom.RankedStock, error)
	GetValueLeaders(ctx context.Context) ([]kiwoom.RankedStock, error)
	GetPriceChangeLeaders(ctx context.Context) ([]kiwoom.RankedStock, error)
	GetQuote(ctx context.Context, code string) (*kiwoom.Quote, error)
	GetOrderBook(ctx context.Context, code string) (*kiwoom.OrderBook, error)
}

// Scanner runs the pipeline stages.
type Scanner struct {
	gw      Gateway
	advisor advisor.Advisor
	rules   *rules.Rules
	logger  *logger.Logger
}

// New creates a scanner. adv may be nil when advisory analysis is off.
func New(gw Gateway, adv advisor.Advisor, r *rules.Rules, log *logger.Logger) *Scanner {
	return &Scanner{gw: gw, advisor: adv, rules: r, logger: log}
}

// CoarseScan merges the four ranking queries into a filtered top-N list.
// Individual query failures are logged and tolerated; an empty market view
// simply yields an empty result.
func (s *Scanner) CoarseScan(ctx context.Context) []Candidate {
	s.logger.Info("=== Fast Scan ===")

	queries := []struct {
		name string
		fn   func(context.Context) ([]kiwoom.RankedStock, error)
	}{
		{"거래량 급증", s.gw.GetVolumeSurge},
		{"거래량 상위", s.gw.GetVolumeLeaders},
		{"거래대금 상위", s.gw.GetValueLeaders},
		{"등락률 상위", s.gw.GetPriceChangeLeaders},
	}

	// 같은 종목이 여러 순위에 나오면 마지막 소스가 이긴다
	merged := make(map[string]kiwoom.RankedStock)
	var order []string
	for _, q := range queries {
		stocks, err := q.fn(ctx)
		if err != nil {
			s.logger.WithError(err).Warnf("%s 조회 실패", q.name)
			continue
		}
		for _, stock := range stocks {
			if _, seen := merged[stock.Code]; !seen {
				order = append(order, stock.Code)
			}
			merged[stock.Code] = stock
		}
	}

	filters := s.rules.Scanning.Filters
	candidates := make([]Candidate, 0, len(merged))
	for _, code := range order {
		stock := merged[code]
		if stock.TradingValue < filters.MinTradingValue {
			continue
		}
		if excluded(stock.Status, filters.ExcludeConditions) {
			continue
		}
		candidates = append(candidates, Candidate{
			Code:           stock.Code,
			Name:           stock.Name,
			Price:          stock.Price,
			PriceChangePct: stock.PriceChangePct,
			Volume:         stock.Volume,
			TradingValue:   stock.TradingValue,
			Status:         stock.Status,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].TradingValue > candidates[j].TradingValue
	})
	if n := s.rules.Scanning.Selection.CoarseTopN; len(candidates) > n {
		candidates = candidates[:n]
	}

	s.logger.Infof("Fast Scan 완료: %d개", len(candidates))
	return candidates
}

// DetailedScan enriches and scores candidates in batches, then selects the
// final deep-scan set.
func (s *Scanner) DetailedScan(ctx context.Context, candidates []Candidate) []Candidate {
	s.logger.Infof("=== Deep Scan: %d개 ===", len(candidates))

	sel := s.rules.Scanning.Selection
	scored := make([]Candidate, 0, len(candidates))

	for i := 0; i < len(candidates); i += sel.BatchSize {
		end := i + sel.BatchSize
		if end > len(candidates) {
			end = len(candidates)
		}
		batch := candidates[i:end]
		s.logger.Infof("배치 %d/%d 처리 중 (%d개)",
			i/sel.BatchSize+1, (len(candidates)-1)/sel.BatchSize+1, len(batch))

		for _, c := range batch {
			enriched, err := s.enrich(ctx, c)
			if err != nil {
				s.logger.WithError(err).WithField("code", c.Code).Error("점수 계산 실패")
				continue
			}
			result := Score(enriched, &s.rules.Scanning)
			enriched.TotalScore = result.Total
			enriched.Grade = result.Grade
			scored = append(scored, enriched)
		}

		// Rate-limit headroom between batches.
		if end < len(candidates) {
			if err := backoff.Wait(ctx, sel.BatchDelay.Std()); err != nil {
				return selectTop(scored, sel.DeepTopK, sel.QualifyingScore)
			}
		}
	}

	top := selectTop(scored, sel.DeepTopK, sel.QualifyingScore)
	s.logger.Infof("Deep Scan 완료: %d개 선택", len(top))
	return top
}

// AdvisoryScan submits the best candidates for an advisory opinion and
// orders the result by confidence.
func (s *Scanner) AdvisoryScan(ctx context.Context, candidates []Candidate) []Candidate {
	if s.advisor == nil || len(candidates) == 0 {
		return candidates
	}

	n := s.rules.Scanning.Selection.AdvisoryTopN
	if len(candidates) > n {
		candidates = candidates[:n]
	}

	s.logger.Infof("=== AI Scan: %d개 ===", len(candidates))

	out := make([]Candidate, len(candidates))
	for i, c := range candidates {
		if ctx.Err() != nil {
			return out[:i]
		}
		c.Opinion = s.advisor.Advise(ctx, advisor.Summary{
			Code:            c.Code,
			Name:            c.Name,
			Price:           c.Price,
			PriceChangePct:  c.PriceChangePct,
			VolumeChangePct: c.VolumeChangePct,
			TotalScore:      c.TotalScore,
			Grade:           c.Grade,
		})
		out[i] = c
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Opinion.Confidence > out[j].Opinion.Confidence
	})
	return out
}

// enrich collects quote and orderbook detail for one candidate.
func (s *Scanner) enrich(ctx context.Context, c Candidate) (Candidate, error) {
	quote, err := s.gw.GetQuote(ctx, c.Code)
	if err != nil {
		return c, err
	}
	book, err := s.gw.GetOrderBook(ctx, c.Code)
	if err != nil {
		return c, err
	}

	c.Price = quote.Price
	c.HighProximityPct = quote.HighProximity
	c.TradeStrength = quote.Strength
	c.BidAskRatio = bidAskRatio(book)
	return c, nil
}

// bidAskRatio is total bid volume over total ask volume, as a percentage.
func bidAskRatio(book *kiwoom.OrderBook) float64 {
	var bid, ask int64
	for _, l := range book.Bids {
		bid += l.Volume
	}
	for _, l := range book.Asks {
		ask += l.Volume
	}
	if ask == 0 {
		return 0
	}
	return float64(bid) / float64(ask) * 100
}

// selectTop picks the deep-scan survivors: when at least k candidates meet
// the qualifying score, the top k of that set; otherwise the top k of
// everything scored. Pure.
func selectTop(scored []Candidate, k int, qualifying float64) []Candidate {
	qualified := make([]Candidate, 0, len(scored))
	for _, c := range scored {
		if c.TotalScore >= qualifying {
			qualified = append(qualified, c)
		}
	}

	pool := scored
	if len(qualified) >= k {
		pool = qualified
	}

	out := make([]Candidate, len(pool))
	copy(out, pool)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TotalScore > out[j].TotalScore
	})
	if len(out) > k {
		out = out[:k]
	}
	return out
}

// excluded reports whether a status string carries any excluded condition.
func excluded(status string, conditions []string) bool {
	if status == "" {
		return false
	}
	for _, cond := range conditions {
		if strings.Contains(status, cond) {
			return true
		}
	}
	return false
}
