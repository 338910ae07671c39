package core

import (
	"fmt"

	"github.com/segmentio/ksuid"
)

// RunID identifies a single firing of a workflow (one Start() call), used to
// correlate log lines and history entries. Unlike the workflow's own integer
// ID, RunID is never read by the core itself — it exists so the Executor
// collaborator and the persistence pass-through have a stable key.
type RunID string

// NewRunID generates a new, sortable, time-ordered RunID.
func NewRunID() RunID {
	return RunID(ksuid.New().String())
}

// String returns the string representation of the RunID.
func (r RunID) String() string { return string(r) }

// JobID returns the scheduler job identity for a workflow ID, per invariant
// I3: "Workflow Job " + id.
func JobID(workflowID int) string {
	return fmt.Sprintf("Workflow Job %d", workflowID)
}

// TriggerID returns the scheduler trigger identity for a workflow ID.
func TriggerID(workflowID int) string {
	return fmt.Sprintf("Workflow Trigger %d", workflowID)
}
