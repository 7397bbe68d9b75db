// Package lifecycle orchestrates bug creation and status/assignment
// transitions. Every mutation is checked against the role authorizer before
// the store is touched.
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/celerix-dev/celerix-bugs/internal/analytics"
	"github.com/celerix-dev/celerix-bugs/internal/authz"
	"github.com/celerix-dev/celerix-bugs/internal/engine"
	"github.com/celerix-dev/celerix-bugs/internal/logging"
	"github.com/celerix-dev/celerix-bugs/internal/telemetry"
	"github.com/celerix-dev/celerix-bugs/pkg/schema"
)

// Engine is the entry point for callers: UI, HTTP API, TCP router, CLI.
type Engine struct {
	store engine.BugStore
	audit *AuditTrail
	log   *slog.Logger
	tel   *telemetry.Lifecycle
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger replaces the component logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithAuditTrail shares an existing trail.
func WithAuditTrail(a *AuditTrail) Option {
	return func(e *Engine) { e.audit = a }
}

// New wires an Engine around store.
func New(store engine.BugStore, opts ...Option) *Engine {
	e := &Engine{
		store: store,
		audit: NewAuditTrail(),
		log:   logging.New("lifecycle"),
		tel:   telemetry.NewLifecycle(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) authorize(ctx context.Context, actor schema.Identity, action authz.Action, bugID string) error {
	if authz.Authorize(actor.Role, action) {
		return nil
	}
	e.tel.Denied(ctx, string(action), string(actor.Role))
	e.log.Warn("permission denied",
		"action", action, "actor", actor.Email, "role", actor.Role, "bug_id", bugID)
	return &schema.PermissionError{Role: actor.Role, Action: string(action)}
}

func (e *Engine) finish(ctx context.Context, span trace.Span, action authz.Action, actor schema.Identity, bug schema.BugReport, details string, err error) {
	defer span.End()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if code := schema.ErrorCode(err); code != schema.CodePermissionDenied {
			e.tel.Failed(ctx, string(action), code)
		}
		return
	}

	span.SetAttributes(attribute.String("bug.id", bug.ID), attribute.String("bug.status", string(bug.Status)))
	e.tel.Transition(ctx, string(action), string(actor.Role))
	e.audit.Record(schema.AuditLog{
		Timestamp: bug.UpdatedAt,
		Actor:     actor.Email,
		Action:    string(action),
		BugID:     bug.ID,
		Details:   details,
	})
	e.log.Info("bug updated",
		"action", action, "actor", actor.Email, "role", actor.Role,
		"bug_id", bug.ID, "status", bug.Status)
}

// CreateBug files a new bug reported by actor.
func (e *Engine) CreateBug(ctx context.Context, in schema.NewBugReport, actor schema.Identity) (bug schema.BugReport, err error) {
	ctx, span := e.tel.Start(ctx, "CreateBug", attribute.String("actor.role", string(actor.Role)))
	defer func() {
		e.finish(ctx, span, authz.CreateBug, actor, bug, fmt.Sprintf("severity=%s project=%s", bug.Severity, bug.Project), err)
	}()

	if err = e.authorize(ctx, actor, authz.CreateBug, ""); err != nil {
		return schema.BugReport{}, err
	}
	return e.store.Create(in, actor)
}

// ChangeStatus moves a bug to target from any current status. The assignee
// is left untouched, including on a move back to open.
func (e *Engine) ChangeStatus(ctx context.Context, bugID string, target schema.Status, actor schema.Identity) (bug schema.BugReport, err error) {
	ctx, span := e.tel.Start(ctx, "ChangeStatus",
		attribute.String("bug.id", bugID), attribute.String("actor.role", string(actor.Role)))
	var from schema.Status
	defer func() {
		e.finish(ctx, span, authz.ChangeStatus, actor, bug, fmt.Sprintf("status %s -> %s", from, target), err)
	}()

	if _, err = e.store.Get(bugID); err != nil {
		return schema.BugReport{}, err
	}
	if err = e.authorize(ctx, actor, authz.ChangeStatus, bugID); err != nil {
		return schema.BugReport{}, err
	}
	if !target.Valid() {
		err = &schema.ValidationError{Field: "status", Reason: "must be one of open, in-progress, resolved, closed"}
		return schema.BugReport{}, err
	}

	return e.store.Update(bugID, func(b *schema.BugReport) error {
		from = b.Status
		b.Status = target
		return nil
	})
}

// AssignSelf claims an unassigned bug for actor and moves it to in-progress.
func (e *Engine) AssignSelf(ctx context.Context, bugID string, actor schema.Identity) (bug schema.BugReport, err error) {
	ctx, span := e.tel.Start(ctx, "AssignSelf",
		attribute.String("bug.id", bugID), attribute.String("actor.role", string(actor.Role)))
	defer func() {
		e.finish(ctx, span, authz.AssignSelf, actor, bug, "assigned to "+actor.Email, err)
	}()

	if _, err = e.store.Get(bugID); err != nil {
		return schema.BugReport{}, err
	}
	if err = e.authorize(ctx, actor, authz.AssignSelf, bugID); err != nil {
		return schema.BugReport{}, err
	}
	if strings.TrimSpace(actor.Email) == "" {
		err = &schema.ValidationError{Field: "actor", Reason: "has no email"}
		return schema.BugReport{}, err
	}

	return e.store.Update(bugID, func(b *schema.BugReport) error {
		if current, ok := b.Assignee(); ok {
			return &schema.AlreadyAssignedError{BugID: b.ID, Assignee: current}
		}
		email := actor.Email
		b.AssignedTo = &email
		b.Status = schema.StatusInProgress
		return nil
	})
}

// GetBug returns one bug.
func (e *Engine) GetBug(id string) (schema.BugReport, error) {
	return e.store.Get(id)
}

// ListBugs returns every bug in creation order.
func (e *Engine) ListBugs() []schema.BugReport {
	return e.store.List()
}

// FindBugs returns the bugs matching filter, in creation order.
func (e *Engine) FindBugs(filter schema.BugFilter) []schema.BugReport {
	var out []schema.BugReport
	for _, b := range e.store.List() {
		if filter.Matches(b) {
			out = append(out, b)
		}
	}
	return out
}

// Analytics computes both distributions over a snapshot of the store.
func (e *Engine) Analytics() schema.AnalyticsReport {
	return analytics.Compute(e.store.List())
}

// Summary returns the dashboard counters over a snapshot of the store.
func (e *Engine) Summary() schema.Summary {
	return analytics.Summarize(e.store.List())
}

// AuditTrail returns the mutation history of bugID.
func (e *Engine) AuditTrail(bugID string) ([]schema.AuditLog, error) {
	if _, err := e.store.Get(bugID); err != nil {
		return nil, err
	}
	return e.audit.For(bugID), nil
}
