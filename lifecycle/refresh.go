package lifecycle

import "sync"

// RefreshCoordinator collapses the refresh requests raised while a batch of
// lifecycle changes runs into a single answer at the end of the batch.
type RefreshCoordinator struct {
	mu     sync.Mutex
	open   bool
	needed bool
}

// Begin opens a new scope and clears any previous obligation.
func (r *RefreshCoordinator) Begin() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.open = true
	r.needed = false
}

// MarkNeeded records that the dispatch surface must be reloaded. Calls
// outside a scope are ignored.
func (r *RefreshCoordinator) MarkNeeded() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.open {
		r.needed = true
	}
}

// Finish closes the scope and reports whether a reload is needed.
func (r *RefreshCoordinator) Finish() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	needed := r.open && r.needed
	r.open = false
	r.needed = false
	return needed
}
