package jobs

import (
	"context"

	"github.com/joonholab/argos/internal/journal"
	"github.com/joonholab/argos/pkg/logger"
)

// DailySnapshotJob writes the end-of-day account summary to the journal.
type DailySnapshotJob struct {
	journal  *journal.Repository
	snapshot func() journal.DailySnapshot
	logger   *logger.Logger
}

// NewDailySnapshotJob creates the post-close snapshot job. snapshot is
// called at run time so the freshest figures are recorded.
func NewDailySnapshotJob(repo *journal.Repository, snapshot func() journal.DailySnapshot, log *logger.Logger) *DailySnapshotJob {
	return &DailySnapshotJob{journal: repo, snapshot: snapshot, logger: log}
}

func (j *DailySnapshotJob) Name() string { return "daily_snapshot" }

// 장 마감 후 15:40
func (j *DailySnapshotJob) Schedule() string { return "0 40 15 * * 1-5" }

func (j *DailySnapshotJob) Run(ctx context.Context) error {
	if j.journal == nil {
		return nil
	}
	return j.journal.SnapshotDaily(ctx, j.snapshot())
}
