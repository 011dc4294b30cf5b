package trader

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joonholab/argos/internal/advisor"
	"github.com/joonholab/argos/internal/api"
	"github.com/joonholab/argos/internal/journal"
	"github.com/joonholab/argos/internal/kiwoom"
	"github.com/joonholab/argos/internal/realtime"
	"github.com/joonholab/argos/internal/realtime/cache"
	"github.com/joonholab/argos/internal/realtime/feed"
	"github.com/joonholab/argos/internal/rules"
	"github.com/joonholab/argos/internal/scanner"
	"github.com/joonholab/argos/internal/strategy"
	"github.com/joonholab/argos/pkg/backoff"
	"github.com/joonholab/argos/pkg/config"
	"github.com/joonholab/argos/pkg/logger"
)

// Loop stagger so the scan stages never fire on the same tick at startup.
const (
	deepScanInitialDelay       = 5 * time.Second
	advisoryScanInitialDelay   = 10 * time.Second
	accountRefreshInitialDelay = 15 * time.Second
)

// Gateway is the broker surface the orchestrator needs beyond market data.
type Gateway interface {
	Authenticate(ctx context.Context) error
	GetAccountEvaluation(ctx context.Context) (*kiwoom.AccountEvaluation, error)
	GetHoldings(ctx context.Context) ([]kiwoom.Holding, error)
	GetQuote(ctx context.Context, code string) (*kiwoom.Quote, error)
	OrderBuy(ctx context.Context, code string, quantity, price int64) (*kiwoom.OrderResult, error)
	OrderSell(ctx context.Context, code string, quantity, price int64) (*kiwoom.OrderResult, error)
}

// Feed is the realtime side: subscriptions, handlers, connection lifecycle.
type Feed interface {
	Run(ctx context.Context) error
	OnEvent(topic realtime.Topic, h feed.Handler)
	Subscribe(topic realtime.Topic, code string) error
	Unsubscribe(topic realtime.Topic, code string) error
	State() feed.State
}

// Pipeline runs the three scan stages.
type Pipeline interface {
	CoarseScan(ctx context.Context) []scanner.Candidate
	DetailedScan(ctx context.Context, candidates []scanner.Candidate) []scanner.Candidate
	AdvisoryScan(ctx context.Context, candidates []scanner.Candidate) []scanner.Candidate
}

// Trader wires the gateway, feed, scanner and strategy into the trading loops.
// ⭐ SSOT: 자동매매 오케스트레이션은 이 구조체에서만
type Trader struct {
	cfg      *config.Config
	rules    *rules.Rules
	gateway  Gateway
	feed     Feed
	pipeline Pipeline
	cache    *cache.PriceCache
	risk     *strategy.RiskManager
	ledger   *strategy.Ledger
	exit     *strategy.ExitEvaluator
	journal  *journal.Repository
	logger   *logger.Logger

	capital atomic.Int64 // 최신 추정예탁자산

	mu        sync.RWMutex
	coarse    []scanner.Candidate
	deep      []scanner.Candidate
	lastScan  []scanner.Candidate
	updatedAt time.Time
}

// New creates the orchestrator. jr may be nil when the journal is disabled.
func New(
	cfg *config.Config,
	r *rules.Rules,
	gw Gateway,
	fd Feed,
	pipeline Pipeline,
	priceCache *cache.PriceCache,
	risk *strategy.RiskManager,
	ledger *strategy.Ledger,
	exit *strategy.ExitEvaluator,
	jr *journal.Repository,
	log *logger.Logger,
) *Trader {
	t := &Trader{
		cfg:      cfg,
		rules:    r,
		gateway:  gw,
		feed:     fd,
		pipeline: pipeline,
		cache:    priceCache,
		risk:     risk,
		ledger:   ledger,
		exit:     exit,
		journal:  jr,
		logger:   log.WithField("service", "trader"),
	}
	t.capital.Store(cfg.Trading.InitialCapital)
	return t
}

// Run authenticates, restores state, and drives all loops until ctx ends.
// Startup failures are fatal; a terminal feed fault cancels everything.
func (t *Trader) Run(ctx context.Context) error {
	if err := t.gateway.Authenticate(ctx); err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}
	t.logger.Info("키움 REST 인증 완료")

	if err := t.refreshAccount(ctx); err != nil {
		return fmt.Errorf("initial account check: %w", err)
	}
	if err := t.restorePositions(ctx); err != nil {
		return fmt.Errorf("restore positions: %w", err)
	}

	t.feed.OnEvent(realtime.TopicPrice, t.onPriceEvent)
	t.feed.OnEvent(realtime.TopicExecution, t.onExecutionEvent)

	// 계좌 단위 구독: 체결/잔고는 종목 구분 없이 전체
	_ = t.feed.Subscribe(realtime.TopicExecution, realtime.CodeAll)
	_ = t.feed.Subscribe(realtime.TopicBalance, realtime.CodeAll)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	var feedErr error

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := t.feed.Run(ctx); err != nil {
			t.logger.WithError(err).Error("실시간 피드 종료")
			feedErr = err
			cancel()
		}
	}()

	iv := t.rules.Scanning.Intervals
	t.spawn(ctx, &wg, "fast_scan", 0, iv.FastScan.Std(), t.fastScan)
	t.spawn(ctx, &wg, "deep_scan", deepScanInitialDelay, iv.DeepScan.Std(), t.deepScan)
	t.spawn(ctx, &wg, "advisory_scan", advisoryScanInitialDelay, iv.AdvisoryScan.Std(), t.advisoryScan)
	t.spawn(ctx, &wg, "position_monitor", 0, iv.PositionMonitor.Std(), t.monitorPositions)
	t.spawn(ctx, &wg, "account_refresh", accountRefreshInitialDelay, iv.AccountRefresh.Std(), func(ctx context.Context) {
		if err := t.refreshAccount(ctx); err != nil {
			t.logger.WithError(err).Warn("계좌 갱신 실패")
		}
	})

	t.logger.Info("🚀 자동매매 시작")
	wg.Wait()

	if feedErr != nil {
		return feedErr
	}
	return nil
}

// spawn runs fn immediately after the initial delay, then on every tick.
func (t *Trader) spawn(ctx context.Context, wg *sync.WaitGroup, name string, initial, interval time.Duration, fn func(context.Context)) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		if initial > 0 {
			if err := backoff.Wait(ctx, initial); err != nil {
				return
			}
		}
		log := t.logger.WithField("loop", name)
		log.Debugf("루프 시작 (주기 %s)", interval)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		fn(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fn(ctx)
			}
		}
	}()
}

// refreshAccount pulls the estimated total asset and re-bands the risk mode.
func (t *Trader) refreshAccount(ctx context.Context) error {
	eval, err := t.gateway.GetAccountEvaluation(ctx)
	if err != nil {
		return err
	}
	t.capital.Store(eval.TotalAsset)
	t.risk.UpdateMode(eval.TotalAsset)

	invested := int64(0)
	unrealized := int64(0)
	for _, p := range t.ledger.All() {
		price := t.currentPrice(ctx, p.Code, p.EntryPrice)
		invested += p.Investment()
		unrealized += p.UnrealizedPnL(price)
	}

	t.logger.WithFields(map[string]interface{}{
		"total_asset":    eval.TotalAsset,
		"invested":       invested,
		"unrealized_pnl": unrealized,
		"realized_pnl":   t.ledger.DailyRealizedPnL(),
		"risk_mode":      string(t.risk.Mode()),
		"positions":      t.ledger.Len(),
	}).Info("계좌 현황")
	return nil
}

// restorePositions rebuilds the ledger from brokerage holdings so a restart
// does not orphan open positions.
func (t *Trader) restorePositions(ctx context.Context) error {
	holdings, err := t.gateway.GetHoldings(ctx)
	if err != nil {
		return err
	}
	for _, h := range holdings {
		if h.Quantity <= 0 {
			continue
		}
		t.ledger.Open(h.Code, h.Name, h.Quantity, h.AvgPrice)
		if err := t.feed.Subscribe(realtime.TopicPrice, h.Code); err != nil {
			t.logger.WithError(err).Warnf("시세 구독 실패: %s", h.Code)
		}
	}
	if len(holdings) > 0 {
		t.logger.Infof("기존 보유 종목 %d개 복원", t.ledger.Len())
	}
	return nil
}

// onPriceEvent feeds realtime ticks into the price cache.
func (t *Trader) onPriceEvent(ev realtime.Event) {
	if tick, ok := realtime.TickFromEvent(ev); ok {
		t.cache.Update(tick)
	}
}

func (t *Trader) onExecutionEvent(ev realtime.Event) {
	t.logger.WithField("code", ev.Code).Debug("주문 체결 통지")
}

// fastScan refreshes the coarse candidate pool from the ranking queries.
func (t *Trader) fastScan(ctx context.Context) {
	pool := t.pipeline.CoarseScan(ctx)
	t.mu.Lock()
	t.coarse = pool
	t.mu.Unlock()
}

// deepScan scores the latest coarse pool and keeps the selection.
func (t *Trader) deepScan(ctx context.Context) {
	t.mu.RLock()
	pool := t.coarse
	t.mu.RUnlock()
	if len(pool) == 0 {
		return
	}

	selected := t.pipeline.DetailedScan(ctx, pool)
	t.mu.Lock()
	t.deep = selected
	t.lastScan = selected
	t.updatedAt = time.Now()
	t.mu.Unlock()
}

// advisoryScan asks the advisor about the deep selection, then tries entries.
func (t *Trader) advisoryScan(ctx context.Context) {
	t.mu.RLock()
	pool := t.deep
	t.mu.RUnlock()
	if len(pool) == 0 {
		return
	}

	advised := t.pipeline.AdvisoryScan(ctx, pool)
	t.mu.Lock()
	t.lastScan = advised
	t.updatedAt = time.Now()
	t.mu.Unlock()

	for _, c := range advised {
		if ctx.Err() != nil {
			return
		}
		t.tryBuy(ctx, c)
	}
}

// tryBuy runs the entry path for one advised candidate.
// Order failure never creates a ledger position.
func (t *Trader) tryBuy(ctx context.Context, c scanner.Candidate) {
	if c.Opinion == nil || c.Opinion.Recommendation != advisor.Buy {
		return
	}
	if _, held := t.ledger.Get(c.Code); held {
		return
	}

	capital := t.capital.Load()
	decision := t.risk.ShouldBuy(capital, t.ledger.Len(), c.Opinion.Confidence)
	if !decision.Allow {
		t.logger.WithField("code", c.Code).Debugf("매수 보류: %s", decision.Reason)
		return
	}

	quote, err := t.gateway.GetQuote(ctx, c.Code)
	if err != nil {
		t.logger.WithError(err).Warnf("매수 전 시세 조회 실패: %s", c.Code)
		return
	}
	quantity := t.risk.PositionSize(capital, quote.Price)
	if quantity <= 0 {
		return
	}

	result, err := t.gateway.OrderBuy(ctx, c.Code, quantity, quote.Price)
	if err != nil {
		t.logger.WithError(err).Errorf("매수 주문 실패: %s", c.Code)
		return
	}

	t.ledger.Open(c.Code, c.Name, quantity, quote.Price)
	if err := t.feed.Subscribe(realtime.TopicPrice, c.Code); err != nil {
		t.logger.WithError(err).Warnf("시세 구독 실패: %s", c.Code)
	}
	t.journal.RecordOrder(ctx, journal.OrderRecord{
		OrderNo:   result.OrderNo,
		Code:      c.Code,
		Name:      c.Name,
		Side:      journal.SideBuy,
		Quantity:  quantity,
		Price:     quote.Price,
		Reason:    decision.Reason,
		CreatedAt: time.Now(),
	})
	t.logger.WithFields(map[string]interface{}{
		"code":       c.Code,
		"name":       c.Name,
		"quantity":   quantity,
		"price":      quote.Price,
		"confidence": c.Opinion.Confidence,
	}).Info("💰 매수 체결")
}

// monitorPositions evaluates every open position against the exit rules.
func (t *Trader) monitorPositions(ctx context.Context) {
	params := t.risk.Params()
	for _, p := range t.ledger.All() {
		if ctx.Err() != nil {
			return
		}
		price := t.currentPrice(ctx, p.Code, 0)
		if price <= 0 {
			continue
		}
		decision := t.exit.Evaluate(p, price, params)
		if decision.Sell {
			t.sell(ctx, p, price, decision)
		}
	}
}

// sell runs the exit path. Order failure never removes the ledger position.
func (t *Trader) sell(ctx context.Context, p *strategy.Position, price int64, decision strategy.ExitDecision) {
	result, err := t.gateway.OrderSell(ctx, p.Code, p.Quantity, price)
	if err != nil {
		t.logger.WithError(err).Errorf("매도 주문 실패: %s", p.Code)
		return
	}

	realized, ok := t.ledger.Close(p.Code, price)
	if !ok {
		return
	}
	if err := t.feed.Unsubscribe(realtime.TopicPrice, p.Code); err != nil {
		t.logger.WithError(err).Warnf("시세 구독 해제 실패: %s", p.Code)
	}
	t.cache.Delete(p.Code)

	now := time.Now()
	t.journal.RecordOrder(ctx, journal.OrderRecord{
		OrderNo:   result.OrderNo,
		Code:      p.Code,
		Name:      p.Name,
		Side:      journal.SideSell,
		Quantity:  p.Quantity,
		Price:     price,
		Reason:    string(decision.Reason),
		CreatedAt: now,
	})
	t.journal.RecordTrade(ctx, journal.TradeRecord{
		Code:        p.Code,
		Name:        p.Name,
		Quantity:    p.Quantity,
		EntryPrice:  p.EntryPrice,
		ExitPrice:   price,
		RealizedPnL: realized,
		ExitReason:  string(decision.Reason),
		ClosedAt:    now,
	})
	t.logger.WithFields(map[string]interface{}{
		"code":     p.Code,
		"name":     p.Name,
		"reason":   string(decision.Reason),
		"pnl":      realized,
		"pnl_pct":  decision.PnLPct,
		"quantity": p.Quantity,
	}).Info("📤 매도 체결")
}

// currentPrice prefers the realtime cache and falls back to a REST quote.
// fallback is returned when both sources fail.
func (t *Trader) currentPrice(ctx context.Context, code string, fallback int64) int64 {
	if tick, ok := t.cache.Get(code); ok {
		return tick.Price
	}
	quote, err := t.gateway.GetQuote(ctx, code)
	if err != nil {
		t.logger.WithError(err).Debugf("시세 조회 실패: %s", code)
		return fallback
	}
	return quote.Price
}

// Status implements api.StatusProvider.
func (t *Trader) Status() api.Status {
	capital := t.capital.Load()
	ratio := 0.0
	if t.cfg.Trading.InitialCapital > 0 {
		ratio = float64(capital) / float64(t.cfg.Trading.InitialCapital)
	}

	t.mu.RLock()
	updatedAt := t.updatedAt
	t.mu.RUnlock()

	return api.Status{
		Env:              t.cfg.Env,
		RiskMode:         string(t.risk.Mode()),
		FeedState:        t.feed.State().String(),
		CapitalRatio:     ratio,
		TotalAsset:       capital,
		DailyRealizedPnL: t.ledger.DailyRealizedPnL(),
		OpenPositions:    t.ledger.Len(),
		UpdatedAt:        updatedAt,
	}
}

// Positions implements api.StatusProvider.
func (t *Trader) Positions() []api.PositionView {
	positions := t.ledger.All()
	views := make([]api.PositionView, 0, len(positions))
	for _, p := range positions {
		price := p.EntryPrice
		if tick, ok := t.cache.Get(p.Code); ok {
			price = tick.Price
		}
		views = append(views, api.PositionView{
			Code:          p.Code,
			Name:          p.Name,
			Quantity:      p.Quantity,
			EntryPrice:    p.EntryPrice,
			CurrentPrice:  price,
			UnrealizedPnL: p.UnrealizedPnL(price),
			PnLPct:        p.PnLPct(price),
		})
	}
	return views
}

// LastScan implements api.StatusProvider.
func (t *Trader) LastScan() []scanner.Candidate {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]scanner.Candidate, len(t.lastScan))
	copy(out, t.lastScan)
	return out
}

// Snapshot builds the end-of-day summary for the journal.
func (t *Trader) Snapshot() journal.DailySnapshot {
	return journal.DailySnapshot{
		Date:          time.Now(),
		TotalAsset:    t.capital.Load(),
		RealizedPnL:   t.ledger.DailyRealizedPnL(),
		OpenPositions: t.ledger.Len(),
		RiskMode:      string(t.risk.Mode()),
	}
}
