// Package facade is the engine façade (spec.md §4.8, component G): it boots
// the registry, scheduler, directory watcher and reconciler, exposes the
// lifecycle control operations, and owns shutdown.
package facade

import (
	"context"
	"fmt"
	"sync"

	"github.com/flowforge/engine/engine/core"
	"github.com/flowforge/engine/engine/fswatch"
	"github.com/flowforge/engine/engine/lifecycle"
	"github.com/flowforge/engine/engine/loader"
	"github.com/flowforge/engine/engine/metrics"
	"github.com/flowforge/engine/engine/persistence"
	"github.com/flowforge/engine/engine/registry"
	"github.com/flowforge/engine/engine/scheduler"
	"github.com/flowforge/engine/engine/workflow"
	"github.com/flowforge/engine/pkg/logger"
)

// Config is the set of collaborators and paths the façade needs to boot.
type Config struct {
	WorkflowsFolder string
	LoaderOptions   loader.Options
	Store           persistence.Store
}

// Engine is the orchestration core's entry point. The registry and
// scheduler together form one critical section (spec.md §5), guarded by mu.
type Engine struct {
	mu sync.Mutex

	cfg        Config
	registry   *registry.Registry
	scheduler  *scheduler.Scheduler
	lifecycle  *lifecycle.Controller
	watcher    *fswatch.Watcher
	store      persistence.Store
	cancelLoop context.CancelFunc
}

// New constructs an Engine. Boot work (discovering existing definition
// files, starting the watcher) happens in Run, not here, so construction
// never fails on I/O.
func New(cfg Config) *Engine {
	reg := registry.New()
	return &Engine{
		cfg:       cfg,
		registry:  reg,
		scheduler: scheduler.New(),
		lifecycle: lifecycle.New(reg),
		store:     cfg.Store,
	}
}

// Run loads every *.xml definition already present in the workflows folder,
// schedules each (invoking Start() inline for Startup workflows per
// spec.md §4.6), starts the scheduler, starts the directory watcher, and
// launches the reconciler goroutine that drains its events. Run returns
// once boot is complete; the watcher and reconciler continue on their own
// goroutines until Stop is called.
func (e *Engine) Run(ctx context.Context) error {
	if err := metrics.RegisterRegistrySize(func() int64 { return int64(e.registry.Count()) }); err != nil {
		logger.Warn("facade: failed to register registry size gauge", "error", err)
	}

	w, err := fswatch.New(e.cfg.WorkflowsFolder)
	if err != nil {
		return fmt.Errorf("facade: start watcher: %w", err)
	}
	e.watcher = w

	e.bootExistingDefinitions(ctx)

	e.mu.Lock()
	e.scheduler.Start()
	e.mu.Unlock()

	loopCtx, cancel := context.WithCancel(ctx)
	e.cancelLoop = cancel
	go w.Start(loopCtx)
	go e.reconcileLoop(loopCtx)

	return nil
}

func (e *Engine) bootExistingDefinitions(ctx context.Context) {
	paths, err := fswatch.ListDefinitions(e.cfg.WorkflowsFolder)
	if err != nil {
		logger.Error("facade: failed to discover workflow definitions", "dir", e.cfg.WorkflowsFolder, "error", err)
		return
	}
	for _, path := range paths {
		e.handleCreated(ctx, path)
	}
}

// reconcileLoop is the single consumer draining watcher events (the
// message-passing redesign spec.md §9 calls for), serializing them against
// operator and scheduler threads through mu.
func (e *Engine) reconcileLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-e.watcher.C:
			if !ok {
				return
			}
			e.reconcile(ctx, ev)
		}
	}
}

func (e *Engine) reconcile(ctx context.Context, ev fswatch.Event) {
	switch ev.Kind {
	case fswatch.Created:
		e.handleCreated(ctx, ev.Path)
	case fswatch.Changed:
		e.handleChanged(ctx, ev.Path)
	case fswatch.Deleted:
		e.handleDeleted(ev.Path)
	}
}

// handleCreated implements spec.md §4.5 "On Created(path)".
func (e *Engine) handleCreated(ctx context.Context, path string) {
	w, err := loader.Load(ctx, path, e.cfg.LoaderOptions)
	if err != nil {
		logger.Error("facade: failed to load workflow definition", "path", path, "error", err)
		metrics.RecordReconcile(ctx, "created", metrics.OutcomeLoadFailed)
		return
	}
	e.insertAndSchedule(ctx, "created", w)
}

// handleDeleted implements spec.md §4.5 "On Deleted(path)".
func (e *Engine) handleDeleted(path string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	w := e.registry.LookupByFilePath(path)
	if w == nil {
		return
	}
	_ = w.Stop()
	e.scheduler.Unschedule(core.JobID(w.ID()))
	e.registry.RemoveByID(w.ID())
	logger.Info("facade: workflow removed", "workflow_id", w.ID(), "path", path)
	metrics.RecordReconcile(context.Background(), "deleted", metrics.OutcomeRemoved)
}

// handleChanged implements spec.md §4.5 "On Changed(path)" under the
// resolved open design question (SPEC_FULL.md §4.5): the old workflow is
// stopped and its scheduler job removed immediately, but its registry entry
// is kept until the reload has been attempted and any ID collision check
// against some *other* entry has passed — a load failure removes it (the
// documented "workflow is simply gone" case), but a reload that collides
// with a different file's id leaves the old entry exactly as it was.
func (e *Engine) handleChanged(ctx context.Context, path string) {
	e.mu.Lock()
	old := e.registry.LookupByFilePath(path)
	if old != nil {
		_ = old.Stop()
		e.scheduler.Unschedule(core.JobID(old.ID()))
	}
	e.mu.Unlock()

	w, err := loader.Load(ctx, path, e.cfg.LoaderOptions)
	if err != nil {
		logger.Error("facade: failed to reload workflow definition, leaving it gone", "path", path, "error", err)
		if old != nil {
			e.mu.Lock()
			e.registry.RemoveByID(old.ID())
			e.mu.Unlock()
		}
		metrics.RecordReconcile(ctx, "changed", metrics.OutcomeLoadFailed)
		return
	}

	e.replaceAndSchedule(ctx, old, w)
}

// replaceAndSchedule atomically swaps old for w. If w's id collides with
// some other registry entry, the swap is rejected, old's entry is left in
// place, and its scheduler job (torn down before the reload attempt) is
// reinstated since nothing about old actually changed.
func (e *Engine) replaceAndSchedule(ctx context.Context, old, w *workflow.Workflow) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.registry.ReplaceByFilePath(old, w); err != nil {
		logger.Error("facade: reload collides with another workflow, keeping the previous entry",
			"workflow_id", w.ID(), "path", w.FilePath(), "error", err)
		metrics.RecordReconcile(ctx, "changed", metrics.OutcomeDuplicateID)
		if old != nil {
			e.scheduleLocked(old)
		}
		return
	}
	e.scheduleLocked(w)
	metrics.RecordReconcile(ctx, "changed", metrics.OutcomeInserted)
}

// insertAndSchedule performs the Created-event insert-or-discard-on-collision
// step, then schedules the workflow (spec.md §4.5 step 3, §4.6). Changed
// events go through replaceAndSchedule instead.
func (e *Engine) insertAndSchedule(ctx context.Context, kind string, w *workflow.Workflow) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.registry.Insert(w); err != nil {
		logger.Error("facade: duplicate workflow on insert, discarding new arrival",
			"workflow_id", w.ID(), "path", w.FilePath(), "error", err)
		metrics.RecordReconcile(ctx, kind, metrics.OutcomeDuplicateID)
		return
	}
	e.scheduleLocked(w)
	metrics.RecordReconcile(ctx, kind, metrics.OutcomeInserted)
}

// scheduleLocked binds w to its trigger per spec.md §4.6. Caller must hold mu.
func (e *Engine) scheduleLocked(w *workflow.Workflow) {
	if !w.Enabled() {
		return
	}
	switch w.LaunchType() {
	case workflow.LaunchStartup:
		_ = w.Start()
	case workflow.LaunchPeriodic:
		id := w.ID()
		_ = e.scheduler.SchedulePeriodic(core.JobID(id), w.Period(), func() {
			metrics.RecordSchedulerFire(context.Background(), id)
			e.fireScheduled(id)
		})
	case workflow.LaunchCron:
		id := w.ID()
		_ = e.scheduler.ScheduleCron(core.JobID(id), w.CronExpression(), func() {
			metrics.RecordSchedulerFire(context.Background(), id)
			e.fireScheduled(id)
		})
	}
}

// fireScheduled is the job action spec.md §4.6 describes: look up the
// workflow by id and call Start() on it. Runs on the scheduler's own worker
// goroutine; the brief lock acquisition is the "no I/O beyond the lock"
// boundary from spec.md §5.
func (e *Engine) fireScheduled(id int) {
	e.mu.Lock()
	w := e.registry.LookupByID(id)
	e.mu.Unlock()
	if w == nil {
		return
	}
	if err := w.Start(); err != nil {
		logger.Error("facade: scheduled firing failed", "workflow_id", id, "error", err)
	}
}

// Stop implements spec.md §4.8: shut down the scheduler first (if
// stopScheduler) so new firings never race with per-workflow stops, then
// Stop() every running workflow, then optionally clear persisted state.
func (e *Engine) Stop(ctx context.Context, stopScheduler, clearState bool) error {
	if e.cancelLoop != nil {
		e.cancelLoop()
	}
	if e.watcher != nil {
		_ = e.watcher.Close()
	}
	e.mu.Lock()
	if stopScheduler {
		e.scheduler.Shutdown()
	}
	for _, w := range e.registry.Snapshot() {
		if w.IsRunning() {
			_ = w.Stop()
		}
	}
	e.mu.Unlock()

	if clearState && e.store != nil {
		if err := e.store.ClearStatusCount(ctx); err != nil {
			return fmt.Errorf("facade: clear status count: %w", err)
		}
		if err := e.store.ClearEntries(ctx); err != nil {
			return fmt.Errorf("facade: clear entries: %w", err)
		}
	}
	return nil
}

// GetWorkflow looks up a workflow by id under the registry+scheduler
// critical section (spec.md §5), so a caller never observes a workflow
// mid-reconcile.
func (e *Engine) GetWorkflow(id int) (*workflow.Workflow, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lifecycle.GetWorkflow(id)
}

// StartWorkflow, StopWorkflow, SuspendWorkflow and ResumeWorkflow are the
// four mutating control operations (spec.md §4.7), each taking mu so a
// control op can never interleave with a Changed event's multi-step
// stop/reload/replace sequence in handleChanged.
func (e *Engine) StartWorkflow(ctx context.Context, id int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lifecycle.Start(ctx, id)
}

func (e *Engine) StopWorkflow(ctx context.Context, id int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lifecycle.Stop(ctx, id)
}

func (e *Engine) SuspendWorkflow(ctx context.Context, id int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lifecycle.Suspend(ctx, id)
}

func (e *Engine) ResumeWorkflow(ctx context.Context, id int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lifecycle.Resume(ctx, id)
}

// Registry exposes the registry for read-only inspection.
func (e *Engine) Registry() *registry.Registry {
	return e.registry
}

// Scheduler exposes the scheduler for read-only inspection.
func (e *Engine) Scheduler() *scheduler.Scheduler {
	return e.scheduler
}

// Store exposes the persistence collaborator for the query pass-through
// operations named in spec.md §6.
func (e *Engine) Store() persistence.Store {
	return e.store
}
