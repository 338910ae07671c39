// Package registry holds the process-wide set of loaded workflows, keyed
// uniquely by id with a secondary index by file path (spec.md §4.3).
package registry

import (
	"fmt"
	"sync"

	"github.com/flowforge/engine/engine/workflow"
)

// Registry is the in-memory set of loaded workflows. It enforces I1 (unique
// id) and I2 (unique filePath). Callers needing the combined registry+
// scheduler critical section (spec.md §5) take Lock/Unlock themselves; the
// methods here only guard the registry's own maps.
type Registry struct {
	mu     sync.RWMutex
	byID   map[int]*workflow.Workflow
	byPath map[string]*workflow.Workflow
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		byID:   make(map[int]*workflow.Workflow),
		byPath: make(map[string]*workflow.Workflow),
	}
}

// Insert adds w to the registry. It returns an error without mutating
// anything if either the id or the filePath is already present, preserving
// I1/I2 — the caller (the reconciler) is responsible for deciding whether
// that error is fatal or merely logged and discarded.
func (r *Registry) Insert(w *workflow.Workflow) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[w.ID()]; exists {
		return fmt.Errorf("registry: workflow id %d already registered", w.ID())
	}
	if _, exists := r.byPath[w.FilePath()]; exists {
		return fmt.Errorf("registry: file path %q already registered", w.FilePath())
	}
	r.byID[w.ID()] = w
	r.byPath[w.FilePath()] = w
	return nil
}

// ReplaceByFilePath atomically swaps old for w, the Changed-event path:
// it fails — leaving old and the registry untouched — if w's id or file
// path collides with any entry other than old itself, so a genuine
// external collision never evicts the entry it would have replaced. old
// may be nil, in which case this behaves like Insert.
func (r *Registry) ReplaceByFilePath(old, w *workflow.Workflow) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, exists := r.byID[w.ID()]; exists && existing != old {
		return fmt.Errorf("registry: workflow id %d already registered", w.ID())
	}
	if existing, exists := r.byPath[w.FilePath()]; exists && existing != old {
		return fmt.Errorf("registry: file path %q already registered", w.FilePath())
	}
	if old != nil {
		delete(r.byID, old.ID())
		delete(r.byPath, old.FilePath())
	}
	r.byID[w.ID()] = w
	r.byPath[w.FilePath()] = w
	return nil
}

// RemoveByID removes the entry with the given id, if present, returning it.
func (r *Registry) RemoveByID(id int) *workflow.Workflow {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.byID[id]
	if !ok {
		return nil
	}
	delete(r.byID, id)
	delete(r.byPath, w.FilePath())
	return w
}

// RemoveByFilePath removes the entry with the given file path, if present,
// returning it.
func (r *Registry) RemoveByFilePath(path string) *workflow.Workflow {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.byPath[path]
	if !ok {
		return nil
	}
	delete(r.byPath, path)
	delete(r.byID, w.ID())
	return w
}

// LookupByID returns the entry with the given id, or nil.
func (r *Registry) LookupByID(id int) *workflow.Workflow {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byID[id]
}

// LookupByFilePath returns the entry with the given file path, or nil.
func (r *Registry) LookupByFilePath(path string) *workflow.Workflow {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byPath[path]
}

// Snapshot returns every registered workflow. The slice is a copy; callers
// may range over it without holding the registry lock.
func (r *Registry) Snapshot() []*workflow.Workflow {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*workflow.Workflow, 0, len(r.byID))
	for _, w := range r.byID {
		out = append(out, w)
	}
	return out
}

// Count returns the number of registered workflows.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
