package sdk

import (
	"context"

	"github.com/celerix-dev/celerix-bugs/internal/authz"
	"github.com/celerix-dev/celerix-bugs/internal/directory"
	"github.com/celerix-dev/celerix-bugs/internal/lifecycle"
	"github.com/celerix-dev/celerix-bugs/pkg/schema"
)

// Local runs the tracker in-process. It is also what the daemon's
// transports serve.
type Local struct {
	engine  *lifecycle.Engine
	dir     *directory.Directory
	onClose func()
}

// NewLocal adapts an engine and an identity directory to Tracker. onClose,
// if set, runs on Close (the daemon uses it to flush persistence).
func NewLocal(e *lifecycle.Engine, dir *directory.Directory, onClose func()) *Local {
	return &Local{engine: e, dir: dir, onClose: onClose}
}

func (l *Local) GetBug(_ context.Context, id string) (schema.BugReport, error) {
	return l.engine.GetBug(id)
}

func (l *Local) ListBugs(_ context.Context, filter schema.BugFilter) ([]schema.BugReport, error) {
	return l.engine.FindBugs(filter), nil
}

func (l *Local) AuditTrail(_ context.Context, id string) ([]schema.AuditLog, error) {
	return l.engine.AuditTrail(id)
}

func (l *Local) CreateBug(ctx context.Context, actor string, in schema.NewBugReport) (schema.BugReport, error) {
	who, err := l.dir.Lookup(actor)
	if err != nil {
		return schema.BugReport{}, err
	}
	return l.engine.CreateBug(ctx, in, who)
}

func (l *Local) ChangeStatus(ctx context.Context, actor, id string, status schema.Status) (schema.BugReport, error) {
	who, err := l.dir.Lookup(actor)
	if err != nil {
		return schema.BugReport{}, err
	}
	return l.engine.ChangeStatus(ctx, id, status, who)
}

func (l *Local) AssignSelf(ctx context.Context, actor, id string) (schema.BugReport, error) {
	who, err := l.dir.Lookup(actor)
	if err != nil {
		return schema.BugReport{}, err
	}
	return l.engine.AssignSelf(ctx, id, who)
}

func (l *Local) Analytics(_ context.Context, actor string) (schema.AnalyticsReport, error) {
	who, err := l.dir.Lookup(actor)
	if err != nil {
		return schema.AnalyticsReport{}, err
	}
	if !authz.Authorize(who.Role, authz.ViewAnalytics) {
		return schema.AnalyticsReport{}, &schema.PermissionError{Role: who.Role, Action: string(authz.ViewAnalytics)}
	}
	return l.engine.Analytics(), nil
}

func (l *Local) Summary(_ context.Context) (schema.Summary, error) {
	return l.engine.Summary(), nil
}

func (l *Local) WhoAmI(_ context.Context, actor string) (schema.Session, error) {
	who, err := l.dir.Lookup(actor)
	if err != nil {
		return schema.Session{}, err
	}
	caps := []string{}
	for _, a := range authz.Capabilities(who.Role) {
		caps = append(caps, string(a))
	}
	return schema.Session{Identity: who, Capabilities: caps}, nil
}

func (l *Local) Close() error {
	if l.onClose != nil {
		l.onClose()
	}
	return nil
}
