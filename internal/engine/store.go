// Package engine owns the bug report collection: ordered in-memory storage
// with single-writer-per-id updates and optional snapshot persistence.
package engine

import "github.com/celerix-dev/celerix-bugs/pkg/schema"

// Mutator patches a bug in place. Returning an error aborts the update and
// leaves the stored record untouched. Mutators run while the bug's lock is
// held, so a read-check-write inside one is atomic for that id.
type Mutator func(bug *schema.BugReport) error

// BugStore is the storage contract consumed by the lifecycle engine.
type BugStore interface {
	// Create assigns a fresh id and stamps reporter, timestamps and open status.
	Create(in schema.NewBugReport, reporter schema.Identity) (schema.BugReport, error)
	// Get returns a copy of the bug with the given id.
	Get(id string) (schema.BugReport, error)
	// List returns copies of every bug in creation order.
	List() []schema.BugReport
	// Update applies mutate under the bug's lock and refreshes UpdatedAt.
	Update(id string, mutate Mutator) (schema.BugReport, error)
}
