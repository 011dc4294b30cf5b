package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/joonholab/argos/internal/advisor"
	"github.com/joonholab/argos/internal/kiwoom"
	"github.com/joonholab/argos/internal/rules"
	"github.com/joonholab/argos/internal/scanner"
	"github.com/joonholab/argos/pkg/config"
	"github.com/joonholab/argos/pkg/logger"
)

var scanWithAdvisor bool

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "급등주 스캔 1회 실행",
	Long: `스캔 파이프라인을 1회 실행하고 결과를 출력합니다.

단계:
1. 순위 조회로 후보군 수집 (coarse)
2. 종목별 상세 조회 및 점수 계산 (detailed)
3. AI 분석 (--advisor 옵션)

Example:
  go run ./cmd/argos scan
  go run ./cmd/argos scan --advisor`,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().BoolVar(&scanWithAdvisor, "advisor", false, "AI 분석 포함")
}

func runScan(cmd *cobra.Command, args []string) error {
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
	log := logger.New(cfg)

	r, err := rules.Load(cfg.Trading.RulesPath)
	if err != nil {
		return fmt.Errorf("load rules: %w", err)
	}

	client := kiwoom.NewClient(cfg.Kiwoom, log)

	var adv advisor.Advisor
	if scanWithAdvisor {
		if cfg.Gemini.APIKey == "" {
			return fmt.Errorf("--advisor requires GEMINI_API_KEY")
		}
		adv = advisor.NewGeminiAdvisor(cfg.Gemini, log)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
	defer cancel()

	if err := client.Authenticate(ctx); err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}

	pipeline := scanner.New(client, adv, r, log)

	fmt.Println("🔍 후보군 수집 중...")
	coarse := pipeline.CoarseScan(ctx)
	fmt.Printf("   후보 %d개\n", len(coarse))
	if len(coarse) == 0 {
		return nil
	}

	fmt.Println("📊 상세 분석 중...")
	selected := pipeline.DetailedScan(ctx, coarse)

	if scanWithAdvisor {
		fmt.Println("🤖 AI 분석 중...")
		selected = pipeline.AdvisoryScan(ctx, selected)
	}

	fmt.Printf("\n=== 스캔 결과 (%d종목) ===\n", len(selected))
	for i, c := range selected {
		line := fmt.Sprintf("%2d. [%s] %-12s %8d원 %+6.2f%% 점수 %5.1f (%s)",
			i+1, c.Code, c.Name, c.Price, c.PriceChangePct, c.TotalScore, c.Grade)
		if c.Opinion != nil {
			line += fmt.Sprintf("  → %s (신뢰도 %.2f)", c.Opinion.Recommendation, c.Opinion.Confidence)
		}
		fmt.Println(line)
	}
	return nil
}
