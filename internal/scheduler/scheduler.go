// Package scheduler runs ingestion on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/sshaikhIntervision/Brinkmann/internal/domain"
	"github.com/sshaikhIntervision/Brinkmann/internal/logger"
)

// FullRunner triggers a full ingestion run.
type FullRunner interface {
	Run(ctx context.Context) (*domain.RunSummary, error)
}

// Scheduler triggers full ingestion runs on a cron schedule. Overlapping
// runs are suppressed: a tick fired while the previous run is still going
// is skipped.
type Scheduler struct {
	cron    *cron.Cron
	runner  FullRunner
	spec    string
	running atomic.Bool
	log     logger.Interface
}

// NewScheduler creates a scheduler for the given five-field cron spec.
func NewScheduler(runner FullRunner, spec string, log logger.Interface) *Scheduler {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	c := cron.New(cron.WithParser(parser), cron.WithChain(cron.Recover(cron.DefaultLogger)))

	return &Scheduler{
		cron:   c,
		runner: runner,
		spec:   spec,
		log:    log,
	}
}

// Start registers the schedule and begins firing. No-op spec means the
// scheduler stays idle.
func (s *Scheduler) Start() error {
	if s.spec == "" {
		s.log.Info("no ingestion schedule configured")
		return nil
	}

	if _, err := s.cron.AddFunc(s.spec, s.tick); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", s.spec, err)
	}

	s.cron.Start()
	s.log.Info("ingestion schedule active", "spec", s.spec)
	return nil
}

// Stop halts the schedule and waits for an in-flight run to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("scheduler stopped")
}

func (s *Scheduler) tick() {
	if !s.running.CompareAndSwap(false, true) {
		s.log.Warn("previous ingestion run still active, skipping tick")
		return
	}
	defer s.running.Store(false)

	start := time.Now()
	summary, err := s.runner.Run(context.Background())
	if err != nil {
		s.log.Error("scheduled ingestion failed", "error", err)
		return
	}
	s.log.Info("scheduled ingestion finished",
		"run_id", summary.RunID,
		"ingested", summary.Ingested,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		"duration", time.Since(start))
}
