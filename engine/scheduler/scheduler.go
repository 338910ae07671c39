// Package scheduler binds workflows to their triggers (spec.md §4.6,
// component E). It wraps robfig/cron/v3, translating the string job
// identities the registry and reconciler use ("Workflow Job " + id) into the
// library's numeric cron.EntryID.
package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/flowforge/engine/pkg/logger"
)

// Scheduler installs and removes cron/periodic jobs by string identity,
// guaranteeing I3 (at most one installed job per identity) by deleting any
// existing job with the same identity before installing a new one.
type Scheduler struct {
	cron *cron.Cron

	mu      sync.Mutex
	entries map[string]cron.EntryID
	started bool
}

// New creates a Scheduler. The underlying cron instance recovers panics from
// job actions so one misbehaving workflow can't take down the scheduler
// loop, matching spec.md §4.6's "if Start() throws, the exception is
// swallowed by the scheduler and logged".
func New() *Scheduler {
	logAdapter := cronLogAdapter{}
	c := cron.New(
		cron.WithParser(cron.NewParser(
			cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow|cron.Descriptor,
		)),
		cron.WithChain(cron.Recover(logAdapter)),
		cron.WithLogger(logAdapter),
	)
	return &Scheduler{cron: c, entries: make(map[string]cron.EntryID)}
}

// Start begins firing installed jobs.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cron.Start()
	s.started = true
}

// Shutdown stops the scheduler, waiting for any in-flight job actions to
// return.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	<-s.cron.Stop().Done()
	s.started = false
}

// IsStarted reports whether Start has been called without a following
// Shutdown.
func (s *Scheduler) IsStarted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// Exists reports whether a job with jobID is currently installed.
func (s *Scheduler) Exists(jobID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[jobID]
	return ok
}

// SchedulePeriodic installs a job firing every period, starting immediately
// and repeating forever, under jobID. Idempotent: a prior job with the same
// jobID is removed first (I3).
func (s *Scheduler) SchedulePeriodic(jobID string, period time.Duration, action func()) error {
	return s.schedule(jobID, fmt.Sprintf("@every %s", period), action)
}

// ScheduleCron installs a job whose firing times follow cronExpression,
// starting immediately. Idempotent for the same reason as SchedulePeriodic.
func (s *Scheduler) ScheduleCron(jobID string, cronExpression string, action func()) error {
	return s.schedule(jobID, cronExpression, action)
}

func (s *Scheduler) schedule(jobID, spec string, action func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.entries[jobID]; ok {
		s.cron.Remove(id)
		delete(s.entries, jobID)
	}
	id, err := s.cron.AddFunc(spec, func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("scheduler: job action panicked", "job_id", jobID, "recovered", r)
			}
		}()
		action()
	})
	if err != nil {
		return fmt.Errorf("scheduler: install job %s: %w", jobID, err)
	}
	s.entries[jobID] = id
	return nil
}

// Unschedule removes the job identified by jobID, if present. It reports
// whether a job was actually removed.
func (s *Scheduler) Unschedule(jobID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.entries[jobID]
	if !ok {
		return false
	}
	s.cron.Remove(id)
	delete(s.entries, jobID)
	return true
}

// cronLogAdapter satisfies cron.Logger by forwarding to the package logger,
// so job panics and scheduling errors surface through the same structured
// logging pipeline as the rest of the engine.
type cronLogAdapter struct{}

func (cronLogAdapter) Info(msg string, keysAndValues ...any) {
	logger.Debug(msg, keysAndValues...)
}

func (cronLogAdapter) Error(err error, msg string, keysAndValues ...any) {
	kv := append([]any{"error", err}, keysAndValues...)
	logger.Error(msg, kv...)
}
