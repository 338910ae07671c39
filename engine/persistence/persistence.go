// Package persistence is the query/history pass-through collaborator
// (spec.md §6, component I). The core never embeds storage logic; every
// method here is a thin delegation called unchanged from the engine façade
// and from the default Executor.
package persistence

import (
	"context"
	"time"
)

// EntryStatus is the outcome of one workflow run.
type EntryStatus string

const (
	EntryPending         EntryStatus = "pending"
	EntrySuccess         EntryStatus = "success"
	EntryFailed          EntryStatus = "failed"
	EntryDisabled        EntryStatus = "disabled"
	EntryStoppedManually EntryStatus = "stopped_manually"
)

// Entry is one row of the run history, supplementing the feature the
// distillation dropped (spec.md §6 names GetEntries/GetHistoryEntries but
// not the row shape).
type Entry struct {
	RunID        string
	WorkflowID   int
	WorkflowName string
	LaunchedAt   time.Time
	Status       EntryStatus
	JobID        string
}

// EntryFilter narrows a history query.
type EntryFilter struct {
	WorkflowID *int
	Status     *EntryStatus
	Page       int
	PageSize   int
	OrderDesc  bool
}

// StatusCount is the per-status tally spec.md §6's GetStatusCount returns.
type StatusCount struct {
	Status EntryStatus
	Count  int64
}

// User is the minimal shape behind InsertUser/GetUser/GetPassword.
type User struct {
	Name           string
	HashedPassword string
}

// EntryWriter is the narrow slice of Store the default Executor needs; kept
// separate so callers that only run workflows don't have to satisfy the
// full collaborator interface.
type EntryWriter interface {
	WriteEntry(ctx context.Context, entry Entry) error
}

// Store is the full persistence collaborator named in spec.md §6. The core
// depends on this interface only; Postgres (postgres.go) is one concrete
// implementation.
type Store interface {
	EntryWriter

	Init(ctx context.Context) error
	ClearStatusCount(ctx context.Context) error
	ClearEntries(ctx context.Context) error
	GetStatusCount(ctx context.Context) ([]StatusCount, error)
	GetEntries(ctx context.Context, filter EntryFilter) ([]Entry, error)
	GetEntriesCount(ctx context.Context, filter EntryFilter) (int64, error)
	GetHistoryEntries(ctx context.Context, filter EntryFilter) ([]Entry, error)
	GetHistoryEntriesCount(ctx context.Context, filter EntryFilter) (int64, error)
	GetEntryStatusDateMin(ctx context.Context) (time.Time, error)
	GetEntryStatusDateMax(ctx context.Context) (time.Time, error)
	InsertUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, name string) (*User, error)
	GetPassword(ctx context.Context, name string) (string, error)
	Close(ctx context.Context) error
}
