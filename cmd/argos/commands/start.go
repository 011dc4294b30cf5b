package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/joonholab/argos/internal/advisor"
	"github.com/joonholab/argos/internal/api"
	"github.com/joonholab/argos/internal/journal"
	"github.com/joonholab/argos/internal/kiwoom"
	"github.com/joonholab/argos/internal/realtime/cache"
	"github.com/joonholab/argos/internal/realtime/feed"
	"github.com/joonholab/argos/internal/rules"
	"github.com/joonholab/argos/internal/scanner"
	"github.com/joonholab/argos/internal/scheduler"
	"github.com/joonholab/argos/internal/scheduler/jobs"
	"github.com/joonholab/argos/internal/strategy"
	"github.com/joonholab/argos/internal/trader"
	"github.com/joonholab/argos/pkg/config"
	"github.com/joonholab/argos/pkg/database"
	"github.com/joonholab/argos/pkg/logger"
)

// 실시간 틱이 이 시간 이상 멈춘 종목은 캐시에서 청소된다.
const priceCacheTTL = 5 * time.Minute

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "자동매매 시작",
	Long: `자동매매 오케스트레이터를 시작합니다.

이 명령어는:
- 키움 REST 인증 및 계좌 확인
- 실시간 WebSocket 피드 연결
- 스캔/매매/모니터링 루프 시작
- 상태 조회 API 서버 시작 (옵션)
- Graceful shutdown (Ctrl+C)

Example:
  go run ./cmd/argos start
  go run ./cmd/argos start --rules config/rules.yaml`,
	RunE: runStart,
}

func init() {
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Argos Auto Trader ===")

	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	if rulesFile != "" {
		cfg.Trading.RulesPath = rulesFile
	}

	// 2. Initialize logger
	log := logger.New(cfg)
	log.WithFields(map[string]interface{}{
		"env":   cfg.Env,
		"rules": cfg.Trading.RulesPath,
	}).Info("Initializing trader")

	// 3. Load strategy rules
	r, err := rules.Load(cfg.Trading.RulesPath)
	if err != nil {
		return fmt.Errorf("load rules: %w", err)
	}

	// 4. Broker gateway + realtime feed
	client := kiwoom.NewClient(cfg.Kiwoom, log)
	fd := feed.NewClient(cfg.Kiwoom.WebsocketURL, client.Token, log)
	priceCache := cache.NewPriceCache(priceCacheTTL, log)

	// 5. Advisor (optional)
	var adv advisor.Advisor
	if cfg.Gemini.APIKey != "" {
		adv = advisor.NewGeminiAdvisor(cfg.Gemini, log)
	} else {
		log.Warn("GEMINI_API_KEY 미설정 - AI 분석 없이 동작")
	}

	// 6. Scan pipeline + strategy
	pipeline := scanner.New(client, adv, r, log)
	risk := strategy.NewRiskManager(cfg.Trading.InitialCapital, r.Trading.RiskModes, log)
	ledger := strategy.NewLedger(log)
	exit, err := strategy.NewExitEvaluator(r.Trading.MarketCloseCutoff)
	if err != nil {
		return fmt.Errorf("parse market close cutoff: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 7. Trade journal (optional, DATABASE_URL 설정 시)
	var jr *journal.Repository
	if cfg.Database.URL != "" {
		db, err := database.New(cfg)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer db.Close()

		jr = journal.NewRepository(db.Pool, log)
		if err := jr.CreateSchema(ctx); err != nil {
			return fmt.Errorf("create journal schema: %w", err)
		}
		log.Info("매매 일지 저장 활성화")
	} else {
		log.Info("DATABASE_URL 미설정 - 매매 일지 비활성화")
	}

	tr := trader.New(cfg, r, client, fd, pipeline, priceCache, risk, ledger, exit, jr, log)

	// 8. Status API server (optional)
	if cfg.API.Enabled {
		srv := api.New(cfg, log, api.NewRouter(tr, log))
		go func() {
			if err := srv.Start(); err != nil {
				log.WithError(err).Error("API 서버 종료")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	// 9. Maintenance jobs
	sched := scheduler.New(log)
	if err := sched.AddJob(jobs.NewDailyResetJob(ledger, log)); err != nil {
		return fmt.Errorf("add daily reset job: %w", err)
	}
	if err := sched.AddJob(jobs.NewCacheSweepJob(priceCache, log)); err != nil {
		return fmt.Errorf("add cache sweep job: %w", err)
	}
	if jr != nil {
		if err := sched.AddJob(jobs.NewDailySnapshotJob(jr, tr.Snapshot, log)); err != nil {
			return fmt.Errorf("add daily snapshot job: %w", err)
		}
	}
	sched.Start()
	defer sched.Stop()

	// 10. Run until signal
	if err := tr.Run(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("trader: %w", err)
	}

	log.Info("✅ 정상 종료")
	return nil
}
