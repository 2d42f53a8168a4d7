// Package scheduler drives the job catalogue: it attaches every enabled
// config.JobSpec to a gocron trigger (cron or interval) and dispatches
// runs through the internal/jobs.Registry, generalizing the teacher's
// tag-based gocron wrapper into a catalogue-bound one.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/mrab54/football-ingestor/internal/config"
	"github.com/mrab54/football-ingestor/internal/jobs"
)

// Scheduler attaches catalogue entries to gocron triggers and dispatches
// them through jobs.Registry.
type Scheduler struct {
	cron  *gocron.Scheduler
	deps  *jobs.Deps
	cat   *config.Catalogue
	logger *zap.Logger
}

// New builds a Scheduler over cat, dispatching every enabled job through
// deps.
func New(cat *config.Catalogue, deps *jobs.Deps, logger *zap.Logger) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{cron: s, deps: deps, cat: cat, logger: logger}
}

// Start attaches every enabled job in the catalogue to its trigger and
// starts the underlying gocron scheduler. Unknown job types and
// unparseable triggers are logged and skipped rather than aborting
// startup - a typo in one job shouldn't take the whole catalogue down.
func (s *Scheduler) Start() error {
	for _, spec := range s.cat.Jobs {
		if !spec.Enabled {
			continue
		}
		job, ok := jobs.Registry[spec.Type]
		if !ok {
			s.logger.Error("unknown_job_type", zap.String("job_id", spec.ID), zap.String("type", spec.Type))
			continue
		}
		spec := spec
		runFn := func() {
			ctx := context.Background()
			start := time.Now()
			if err := job.Run(ctx, s.deps, spec); err != nil {
				s.logger.Error("job_failed", zap.String("job_id", spec.ID), zap.String("type", spec.Type), zap.Error(err), zap.Duration("elapsed", time.Since(start)))
				return
			}
			s.logger.Info("job_complete", zap.String("job_id", spec.ID), zap.String("type", spec.Type), zap.Duration("elapsed", time.Since(start)))
		}

		var err error
		switch {
		case spec.Trigger.Cron != "":
			_, err = s.cron.Cron(spec.Trigger.Cron).Tag(spec.ID).Do(runFn)
		case spec.Trigger.IntervalSeconds > 0:
			_, err = s.cron.Every(spec.Trigger.IntervalSeconds).Seconds().Tag(spec.ID).Do(runFn)
		default:
			s.logger.Error("job_missing_trigger", zap.String("job_id", spec.ID))
			continue
		}
		if err != nil {
			s.logger.Error("job_attach_failed", zap.String("job_id", spec.ID), zap.Error(err))
			continue
		}
		s.logger.Info("job_attached", zap.String("job_id", spec.ID), zap.String("type", spec.Type))
	}

	s.cron.StartAsync()
	s.logger.Info("scheduler_started", zap.Int("job_count", len(s.cat.Jobs)))
	return nil
}

// Stop stops trigger dispatch without waiting for running jobs, matching
// spec.md's "stops triggers without waiting for running jobs" shutdown.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.logger.Info("scheduler_stopped")
}

// NextRun returns the next scheduled run time for a job id.
func (s *Scheduler) NextRun(jobID string) (time.Time, error) {
	found, err := s.cron.FindJobsByTag(jobID)
	if err != nil || len(found) == 0 {
		return time.Time{}, fmt.Errorf("job %s not found: %w", jobID, err)
	}
	return found[0].NextRun(), nil
}
