package maintenance

import (
	"context"

	"github.com/orb-chat/orb/internal/history/sqlitekv"
)

// VacuumJob compacts the history database: a WAL checkpoint followed by
// VACUUM to reclaim space freed by evicted conversation turns.
type VacuumJob struct {
	store    *sqlitekv.Store
	schedule string
}

// NewVacuumJob creates the job with the given cron schedule.
func NewVacuumJob(store *sqlitekv.Store, schedule string) *VacuumJob {
	return &VacuumJob{store: store, schedule: schedule}
}

// Interface guard.
var _ Job = (*VacuumJob)(nil)

func (j *VacuumJob) Name() string { return "history-vacuum" }

func (j *VacuumJob) Schedule() string { return j.schedule }

// Run checkpoints the WAL and vacuums the database.
func (j *VacuumJob) Run(ctx context.Context) error {
	if err := j.store.Checkpoint(ctx); err != nil {
		return err
	}
	return j.store.Vacuum(ctx)
}
