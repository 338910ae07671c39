// Package workflow defines the Workflow value the orchestration core
// observes and mutates: identity, launch policy, and the Idle/Running/
// Suspended lifecycle described in spec.md §4.7.
package workflow

import (
	"context"
	"sync"
	"time"

	"github.com/flowforge/engine/pkg/logger"
)

// LaunchType selects how a workflow is bound to a trigger (spec.md §3).
type LaunchType string

const (
	LaunchStartup  LaunchType = "startup"
	LaunchPeriodic LaunchType = "periodic"
	LaunchCron     LaunchType = "cron"
)

// Status is the workflow's own lifecycle state (spec.md §4.7).
type Status string

const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusSuspended Status = "suspended"
)

// TaskRef is an opaque reference into the definition's task graph. The core
// never interprets it; it is handed to the Executor collaborator verbatim.
type TaskRef struct {
	Name     string
	Settings map[string]string
}

// Executor runs a workflow's task graph. It is the collaborator spec.md §1
// places out of scope; the core only needs something it can call Run on so
// Start() has an observable effect.
type Executor interface {
	Run(ctx context.Context, w *Workflow) error
}

// Config is the value the loader (engine/loader) produces from a definition
// file. It carries every attribute the core observes (spec.md §3) plus the
// fields this expansion restores from the original format (description,
// task graph, onSuccess/onError chaining).
type Config struct {
	ID             int
	Name           string
	Description    string
	FilePath       string
	Enabled        bool
	LaunchType     LaunchType
	Period         time.Duration
	CronExpression string
	OnSuccess      *int
	OnError        *int
	Tasks          []TaskRef
}

// Workflow is the in-memory, runnable unit the registry holds. Identity
// (ID, FilePath) is immutable after construction; Status and the run's
// cancel func are the only internally-mutated fields, guarded by mu.
type Workflow struct {
	mu sync.Mutex

	id             int
	name           string
	description    string
	filePath       string
	enabled        bool
	launchType     LaunchType
	period         time.Duration
	cronExpression string
	onSuccess      *int
	onError        *int
	tasks          []TaskRef
	createdAt      time.Time
	updatedAt      time.Time

	status   Status
	executor Executor
	cancel   context.CancelFunc
}

// New constructs a Workflow from a loaded Config. executor may be nil, in
// which case Start() transitions the state machine but runs no task graph —
// useful for tests that only exercise lifecycle semantics.
func New(cfg Config, executor Executor) *Workflow {
	now := time.Now()
	return &Workflow{
		id:             cfg.ID,
		name:           cfg.Name,
		description:    cfg.Description,
		filePath:       cfg.FilePath,
		enabled:        cfg.Enabled,
		launchType:     cfg.LaunchType,
		period:         cfg.Period,
		cronExpression: cfg.CronExpression,
		onSuccess:      cfg.OnSuccess,
		onError:        cfg.OnError,
		tasks:          cfg.Tasks,
		createdAt:      now,
		updatedAt:      now,
		status:         StatusIdle,
		executor:       executor,
	}
}

func (w *Workflow) ID() int                    { return w.id }
func (w *Workflow) Name() string                { return w.name }
func (w *Workflow) Description() string         { return w.description }
func (w *Workflow) FilePath() string            { return w.filePath }
func (w *Workflow) Enabled() bool               { return w.enabled }
func (w *Workflow) LaunchType() LaunchType       { return w.launchType }
func (w *Workflow) Period() time.Duration        { return w.period }
func (w *Workflow) CronExpression() string       { return w.cronExpression }
func (w *Workflow) OnSuccess() *int              { return w.onSuccess }
func (w *Workflow) OnError() *int                { return w.onError }
func (w *Workflow) Tasks() []TaskRef             { return w.tasks }
func (w *Workflow) CreatedAt() time.Time         { return w.createdAt }
func (w *Workflow) UpdatedAt() time.Time         { return w.updatedAt }

// Status returns the current lifecycle state.
func (w *Workflow) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

// IsRunning reports whether the workflow is currently Running.
func (w *Workflow) IsRunning() bool {
	return w.Status() == StatusRunning
}

// Start transitions Idle -> Running and launches the executor on a detached
// goroutine. Idempotent: starting an already-Running or Suspended workflow
// is a no-op, matching spec.md §3's "operations are idempotent from the
// core's view".
func (w *Workflow) Start() error {
	w.mu.Lock()
	if w.status != StatusIdle {
		w.mu.Unlock()
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.status = StatusRunning
	executor := w.executor
	w.mu.Unlock()
	if executor == nil {
		return nil
	}
	go w.run(ctx, executor)
	return nil
}

func (w *Workflow) run(ctx context.Context, executor Executor) {
	err := executor.Run(ctx, w)
	w.mu.Lock()
	if w.status == StatusRunning {
		w.status = StatusIdle
	}
	w.mu.Unlock()
	if err != nil && ctx.Err() == nil {
		logger.Error("workflow run failed", "workflow_id", w.id, "workflow_name", w.name, "error", err)
	}
}

// Stop transitions Running or Suspended back to Idle. Best-effort: it
// cancels the run context and returns promptly without waiting for the
// executor goroutine to drain (spec.md §5).
func (w *Workflow) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.status == StatusIdle {
		return nil
	}
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	w.status = StatusIdle
	return nil
}

// Suspend transitions Running -> Suspended. A no-op from any other state.
func (w *Workflow) Suspend() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.status != StatusRunning {
		return nil
	}
	w.status = StatusSuspended
	return nil
}

// Resume transitions Suspended -> Running. A no-op from any other state.
func (w *Workflow) Resume() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.status != StatusSuspended {
		return nil
	}
	w.status = StatusRunning
	return nil
}
