package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	rulesFile string
	verbose   bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "argos",
	Short: "Argos - 키움 REST 기반 자동매매 시스템",
	Long: `Argos Unified CLI

키움증권 REST/WebSocket API 기반 자동매매 시스템.
급등주 스캔부터 리스크 관리, 주문 실행까지.

Usage:
  go run ./cmd/argos [command]

Examples:
  go run ./cmd/argos start
  go run ./cmd/argos scan
  go run ./cmd/argos version`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&rulesFile, "rules", "", "전략 규칙 파일 (기본: TRADING_RULES_PATH)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
