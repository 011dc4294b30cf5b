// Package jobs holds the concrete maintenance jobs.
package jobs

import (
	"context"

	"github.com/joonholab/argos/internal/strategy"
	"github.com/joonholab/argos/pkg/logger"
)

// DailyResetJob zeroes the ledger's daily realized PnL before the session
// opens.
type DailyResetJob struct {
	ledger *strategy.Ledger
	logger *logger.Logger
}

// NewDailyResetJob creates the pre-session reset job.
func NewDailyResetJob(ledger *strategy.Ledger, log *logger.Logger) *DailyResetJob {
	return &DailyResetJob{ledger: ledger, logger: log}
}

func (j *DailyResetJob) Name() string { return "daily_pnl_reset" }

// 장 시작 전 08:30
func (j *DailyResetJob) Schedule() string { return "0 30 8 * * 1-5" }

func (j *DailyResetJob) Run(ctx context.Context) error {
	j.ledger.ResetDailyPnL()
	return nil
}
