package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/collections/backend/internal/infrastructure/logger"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"go.uber.org/zap"
)

// RiskSweepJobKind is the river job kind for the periodic risk sweep
const RiskSweepJobKind = "collections_risk_sweep"

// RiskSweepArgs triggers one pass of risk reclassification over open tasks
type RiskSweepArgs struct{}

// Kind implements river.JobArgs
func (RiskSweepArgs) Kind() string { return RiskSweepJobKind }

// InsertOpts keeps at most one sweep queued at a time
func (RiskSweepArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		MaxAttempts: 3,
		UniqueOpts: river.UniqueOpts{
			ByState: []rivertype.JobState{
				rivertype.JobStateAvailable,
				rivertype.JobStatePending,
				rivertype.JobStateRunning,
				rivertype.JobStateRetryable,
				rivertype.JobStateScheduled,
			},
		},
	}
}

// SweepResult summarizes a risk sweep
type SweepResult struct {
	Examined     int
	Reclassified int
	Conflicts    int
}

// RiskSweeper reclassifies the risk of open overdue tasks
type RiskSweeper interface {
	SweepRisk(ctx context.Context) (SweepResult, error)
}

// RiskSweepWorker runs the risk sweep
type RiskSweepWorker struct {
	river.WorkerDefaults[RiskSweepArgs]
	sweeper RiskSweeper
	logger  *zap.Logger
}

// NewRiskSweepWorker creates a risk sweep worker
func NewRiskSweepWorker(sweeper RiskSweeper, l *zap.Logger) *RiskSweepWorker {
	if l == nil {
		l = zap.NewNop()
	}
	return &RiskSweepWorker{sweeper: sweeper, logger: l}
}

// Timeout bounds a single sweep
func (w *RiskSweepWorker) Timeout(*river.Job[RiskSweepArgs]) time.Duration {
	return 10 * time.Minute
}

// Work implements river.Worker
func (w *RiskSweepWorker) Work(ctx context.Context, job *river.Job[RiskSweepArgs]) error {
	ctx = logger.WithJobID(ctx, fmt.Sprintf("%d", job.ID))
	log := logger.With(ctx, w.logger)
	started := time.Now()

	res, err := w.sweeper.SweepRisk(ctx)
	if err != nil {
		log.Error("Risk sweep failed", zap.Error(err))
		return err
	}
	log.Info("Risk sweep completed",
		zap.Int("examined", res.Examined),
		zap.Int("reclassified", res.Reclassified),
		zap.Int("conflicts", res.Conflicts),
		zap.Duration("duration", time.Since(started)),
	)
	return nil
}

// RiskSweepPeriodicJob schedules the sweep every interval and once at start
func RiskSweepPeriodicJob(interval time.Duration) *river.PeriodicJob {
	return river.NewPeriodicJob(
		river.PeriodicInterval(interval),
		func() (river.JobArgs, *river.InsertOpts) {
			return RiskSweepArgs{}, nil
		},
		&river.PeriodicJobOpts{RunOnStart: true},
	)
}
