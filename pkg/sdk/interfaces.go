package sdk

import (
	"context"

	"github.com/celerix-dev/celerix-bugs/pkg/schema"
)

// Errors are shared with the core so errors.Is works in both modes.
var (
	ErrValidation       = schema.ErrValidation
	ErrNotFound         = schema.ErrNotFound
	ErrPermissionDenied = schema.ErrPermissionDenied
	ErrAlreadyAssigned  = schema.ErrAlreadyAssigned
	ErrUnknownActor     = schema.ErrUnknownActor
)

// --- Functional Interfaces (Interface Segregation) ---
// Actors are identified by email; the implementation resolves the email to
// an Identity before any authorization decision.

// BugReader defines the read operations.
type BugReader interface {
	GetBug(ctx context.Context, id string) (schema.BugReport, error)
	ListBugs(ctx context.Context, filter schema.BugFilter) ([]schema.BugReport, error)
	AuditTrail(ctx context.Context, id string) ([]schema.AuditLog, error)
}

// BugWriter defines the role-gated lifecycle operations.
type BugWriter interface {
	CreateBug(ctx context.Context, actor string, in schema.NewBugReport) (schema.BugReport, error)
	ChangeStatus(ctx context.Context, actor, id string, status schema.Status) (schema.BugReport, error)
	AssignSelf(ctx context.Context, actor, id string) (schema.BugReport, error)
}

// AnalyticsReader exposes the aggregated views.
type AnalyticsReader interface {
	// Analytics is restricted to roles allowed to view analytics.
	Analytics(ctx context.Context, actor string) (schema.AnalyticsReport, error)
	Summary(ctx context.Context) (schema.Summary, error)
}

// SessionResolver exposes identity resolution and capabilities.
type SessionResolver interface {
	WhoAmI(ctx context.Context, actor string) (schema.Session, error)
}

// --- Composite Interfaces ---

// Tracker is the primary interface for interacting with the bug tracker.
// Both the embedded engine and the remote network client implement it.
type Tracker interface {
	BugReader
	BugWriter
	AnalyticsReader
	SessionResolver

	// Close releases the connection or flushes pending writes.
	Close() error
}
