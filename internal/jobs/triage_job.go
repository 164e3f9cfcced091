package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// TriageSweepJobName is the scheduler name of the triage sweep
const TriageSweepJobName = "triage_sweep"

const (
	defaultTriageBatch   = 200
	defaultTriageTimeout = 2 * time.Minute
)

// AutoAssigner retries area auto-assignment for issues still waiting for an
// assignee and reports how many were assigned
type AutoAssigner interface {
	RetryAutoAssign(ctx context.Context, limit int) (int, error)
}

// TriageSweepJob picks up issues that were filed before their area had a
// verified admin
type TriageSweepJob struct {
	assigner AutoAssigner
	logger   *zap.Logger
	batch    int
	timeout  time.Duration
}

func NewTriageSweepJob(assigner AutoAssigner, logger *zap.Logger) *TriageSweepJob {
	return &TriageSweepJob{
		assigner: assigner,
		logger:   logger,
		batch:    defaultTriageBatch,
		timeout:  defaultTriageTimeout,
	}
}

func (j *TriageSweepJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	start := time.Now()
	assigned, err := j.assigner.RetryAutoAssign(ctx, j.batch)
	if err != nil {
		j.logger.Error("triage sweep failed",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)))
		return
	}
	if assigned > 0 {
		j.logger.Info("triage sweep assigned issues",
			zap.Int("assigned", assigned),
			zap.Duration("duration", time.Since(start)))
	}
}

// RegisterTriageSweepJob schedules the sweep on cronExpr
func RegisterTriageSweepJob(scheduler *Scheduler, assigner AutoAssigner, logger *zap.Logger, cronExpr string) error {
	job := NewTriageSweepJob(assigner, logger)
	return scheduler.AddJob(TriageSweepJobName, cronExpr, job.Run)
}
