// Package lifecycle implements the five control operations keyed by
// workflow id (spec.md §4.7, component F): GetWorkflow, Start, Stop,
// Suspend, Resume.
package lifecycle

import (
	"context"
	"fmt"

	"github.com/flowforge/engine/engine/metrics"
	"github.com/flowforge/engine/engine/registry"
	"github.com/flowforge/engine/engine/workflow"
	"github.com/flowforge/engine/pkg/logger"
)

// Controller performs control operations against a Registry. It assumes the
// caller already holds whatever coarse lock guards the registry+scheduler
// critical section (spec.md §5); Controller itself does not lock.
type Controller struct {
	registry *registry.Registry
}

// New creates a Controller over reg.
func New(reg *registry.Registry) *Controller {
	return &Controller{registry: reg}
}

// GetWorkflow is the one read-only control operation: look up by id, with no
// action applied.
func (c *Controller) GetWorkflow(id int) (*workflow.Workflow, error) {
	w := c.registry.LookupByID(id)
	if w == nil {
		return nil, fmt.Errorf("lifecycle: unknown workflow id %d", id)
	}
	return w, nil
}

// Start delegates to the workflow's own Start(), unless it is disabled.
func (c *Controller) Start(ctx context.Context, id int) error {
	return c.controlOp(ctx, "start", id, (*workflow.Workflow).Start)
}

// Stop delegates to the workflow's own Stop(), unless it is disabled.
func (c *Controller) Stop(ctx context.Context, id int) error {
	return c.controlOp(ctx, "stop", id, (*workflow.Workflow).Stop)
}

// Suspend delegates to the workflow's own Suspend(), unless it is disabled.
func (c *Controller) Suspend(ctx context.Context, id int) error {
	return c.controlOp(ctx, "suspend", id, (*workflow.Workflow).Suspend)
}

// Resume delegates to the workflow's own Resume(), unless it is disabled.
func (c *Controller) Resume(ctx context.Context, id int) error {
	return c.controlOp(ctx, "resume", id, (*workflow.Workflow).Resume)
}

// controlOp is the fan-out helper spec.md §9 calls for: look up by id, skip
// disabled workflows (control ops do not override enabled), otherwise apply
// action to the workflow's state machine. Every resolved invocation is
// recorded against op regardless of whether the workflow was enabled.
func (c *Controller) controlOp(ctx context.Context, op string, id int, action func(*workflow.Workflow) error) error {
	w := c.registry.LookupByID(id)
	if w == nil {
		logger.Error("lifecycle: unknown control target", "workflow_id", id)
		return fmt.Errorf("lifecycle: unknown workflow id %d", id)
	}
	metrics.RecordControlOp(ctx, op)
	if !w.Enabled() {
		return nil
	}
	return action(w)
}
