package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/flowforge/engine/engine/core"
	"github.com/flowforge/engine/engine/persistence"
	"github.com/flowforge/engine/pkg/logger"
)

// TaskRunner executes a single task. Real task interpretation lives outside
// this spec (spec.md §1); production deployments supply a runner backed by
// the actual task graph engine.
type TaskRunner interface {
	RunTask(ctx context.Context, ref TaskRef) error
}

// SequentialExecutor is the default Executor: it runs a workflow's tasks one
// after another and records the outcome through the persistence
// collaborator, so the engine is exercisable end-to-end without a real task
// engine wired in.
type SequentialExecutor struct {
	Runner  TaskRunner
	Entries persistence.EntryWriter
}

// NewSequentialExecutor builds a SequentialExecutor. entries may be nil, in
// which case run outcomes are logged but not persisted.
func NewSequentialExecutor(runner TaskRunner, entries persistence.EntryWriter) *SequentialExecutor {
	return &SequentialExecutor{Runner: runner, Entries: entries}
}

// Run executes w's task graph in order, stopping at the first failing task
// or at ctx cancellation, then writes an Entry recording the outcome.
func (e *SequentialExecutor) Run(ctx context.Context, w *Workflow) error {
	runID := core.NewRunID()
	launchedAt := time.Now()
	runErr := e.runTasks(ctx, w)
	status := persistence.EntrySuccess
	if runErr != nil {
		status = persistence.EntryFailed
	}
	if ctx.Err() != nil {
		status = persistence.EntryStoppedManually
	}
	if e.Entries != nil {
		entry := persistence.Entry{
			RunID:        runID.String(),
			WorkflowID:   w.ID(),
			WorkflowName: w.Name(),
			LaunchedAt:   launchedAt,
			Status:       status,
			JobID:        "",
		}
		if werr := e.Entries.WriteEntry(ctx, entry); werr != nil {
			logger.Error("failed to persist run entry", "workflow_id", w.ID(), "error", werr)
		}
	}
	return runErr
}

func (e *SequentialExecutor) runTasks(ctx context.Context, w *Workflow) error {
	if e.Runner == nil {
		return nil
	}
	for _, ref := range w.Tasks() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.Runner.RunTask(ctx, ref); err != nil {
			return fmt.Errorf("task %q: %w", ref.Name, err)
		}
	}
	return nil
}
