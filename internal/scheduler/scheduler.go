// Package scheduler invokes the run operation on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job is one scheduled run. It reports overall success.
type Job func(ctx context.Context) bool

// RunStatus describes the most recent finished run.
type RunStatus struct {
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`
	OK       bool      `json:"ok"`
}

// Scheduler runs a Job on a standard five-field cron spec. A tick that fires
// while the previous run is still going is skipped.
type Scheduler struct {
	cron    *cron.Cron
	entry   cron.EntryID
	job     Job
	logger  *zap.Logger
	baseCtx context.Context

	mu      sync.RWMutex
	running bool
	last    *RunStatus
	now     func() time.Time
}

// New parses spec in loc and registers job. baseCtx is handed to every run.
func New(baseCtx context.Context, spec string, loc *time.Location, job Job, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	if loc == nil {
		loc = time.Local
	}

	s := &Scheduler{
		cron:    cron.New(cron.WithLocation(loc)),
		job:     job,
		logger:  logger,
		baseCtx: baseCtx,
		now:     time.Now,
	}
	id, err := s.cron.AddFunc(spec, s.tick)
	if err != nil {
		return nil, fmt.Errorf("invalid cron spec %q: %w", spec, err)
	}
	s.entry = id
	return s, nil
}

// Start begins firing in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", zap.Time("next", s.Next()))
}

// Stop halts the schedule and waits for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// Next returns the next fire time, or zero before Start.
func (s *Scheduler) Next() time.Time {
	return s.cron.Entry(s.entry).Next
}

// LastRun returns the most recent finished run, if any.
func (s *Scheduler) LastRun() (RunStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return RunStatus{}, false
	}
	return *s.last, true
}

func (s *Scheduler) tick() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Warn("previous run still in progress, skipping tick")
		return
	}
	s.running = true
	s.mu.Unlock()

	started := s.now()
	s.logger.Info("scheduled run starting")
	ok := s.job(s.baseCtx)

	status := RunStatus{Started: started, Finished: s.now(), OK: ok}
	s.mu.Lock()
	s.running = false
	s.last = &status
	s.mu.Unlock()

	s.logger.Info("scheduled run finished",
		zap.Bool("ok", ok),
		zap.Duration("elapsed", status.Finished.Sub(started)),
		zap.Time("next", s.Next()))
}
