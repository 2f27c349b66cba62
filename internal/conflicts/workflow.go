// Package conflicts keeps a local view of pending registry conflicts
// and drives their resolution against the backend. Conflicts appear
// when an import tries to overwrite a field someone edited by hand;
// nothing here decides the winner, it only carries the decision.
package conflicts

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cvazzz/guiadocs/internal/lduapi"
)

// ErrNotConfirmed is returned by ResolveAll when the caller has not
// explicitly confirmed the bulk action.
var ErrNotConfirmed = errors.New("bulk resolution requires confirmation")

// Backend is the slice of the LDU client the workflow needs.
type Backend interface {
	PendingConflicts(ctx context.Context, limit int) ([]lduapi.Conflict, error)
	ConflictSummary(ctx context.Context) (*lduapi.ConflictSummary, error)
	ResolveConflict(ctx context.Context, id, action, user string) error
	ResolveAllConflicts(ctx context.Context, action, user string) (int, error)
}

// Workflow holds the current pending-conflict state. All methods are
// safe for concurrent use; the watcher and request handlers share one
// instance.
type Workflow struct {
	backend    Backend
	fetchLimit int

	mu      sync.RWMutex
	pending []lduapi.Conflict
	summary lduapi.ConflictSummary
}

// NewWorkflow builds a workflow around the backend. fetchLimit bounds
// how many pending conflicts one refresh pulls; zero means 100.
func NewWorkflow(backend Backend, fetchLimit int) *Workflow {
	if fetchLimit <= 0 {
		fetchLimit = 100
	}
	return &Workflow{backend: backend, fetchLimit: fetchLimit}
}

// Refresh replaces the local state with the backend's current view.
// On any error the previous state is kept so a transient backend
// failure does not blank the conflict panel.
func (w *Workflow) Refresh(ctx context.Context) error {
	pending, err := w.backend.PendingConflicts(ctx, w.fetchLimit)
	if err != nil {
		return fmt.Errorf("fetching pending conflicts: %w", err)
	}
	summary, err := w.backend.ConflictSummary(ctx)
	if err != nil {
		return fmt.Errorf("fetching conflict summary: %w", err)
	}

	w.mu.Lock()
	w.pending = pending
	w.summary = *summary
	w.mu.Unlock()
	return nil
}

// Pending returns a copy of the current pending conflicts.
func (w *Workflow) Pending() []lduapi.Conflict {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]lduapi.Conflict, len(w.pending))
	copy(out, w.pending)
	return out
}

// Summary returns the current aggregate counts.
func (w *Workflow) Summary() lduapi.ConflictSummary {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.summary
}

// Resolve settles one conflict. When the backend reports the conflict
// gone (resolved elsewhere or expired), it is dropped locally without
// surfacing an error: the end state is what the caller wanted.
func (w *Workflow) Resolve(ctx context.Context, id, action, user string) error {
	err := w.backend.ResolveConflict(ctx, id, action, user)
	if err != nil {
		var be *lduapi.BackendError
		if errors.As(err, &be) && be.NotFound() {
			w.drop(id)
			return nil
		}
		return err
	}

	w.drop(id)

	// Best effort: counts refresh on the next poll anyway.
	if summary, serr := w.backend.ConflictSummary(ctx); serr == nil {
		w.mu.Lock()
		w.summary = *summary
		w.mu.Unlock()
	}
	return nil
}

// ResolveAll settles every pending conflict with one action. The
// caller must pass confirmed=true; the bulk endpoint is destructive
// and is never reached by accident.
func (w *Workflow) ResolveAll(ctx context.Context, action, user string, confirmed bool) (int, error) {
	if !confirmed {
		return 0, ErrNotConfirmed
	}
	n, err := w.backend.ResolveAllConflicts(ctx, action, user)
	if err != nil {
		return 0, err
	}

	w.mu.Lock()
	w.pending = nil
	w.summary = lduapi.ConflictSummary{}
	w.mu.Unlock()
	return n, nil
}

func (w *Workflow) drop(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, c := range w.pending {
		if c.ID == id {
			w.pending = append(w.pending[:i], w.pending[i+1:]...)
			return
		}
	}
}
