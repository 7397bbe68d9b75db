package main

import (
	"context"
	"log/slog"

	"github.com/celerix-dev/celerix-bugs/internal/directory"
	"github.com/celerix-dev/celerix-bugs/pkg/schema"
	"github.com/celerix-dev/celerix-bugs/pkg/sdk"
)

var demoBugs = []schema.NewBugReport{
	{
		Title:       "Login button not responding on mobile",
		Description: "The login button becomes unresponsive on mobile devices after multiple taps.",
		Severity:    schema.SeverityHigh,
		Project:     "Web App",
	},
	{
		Title:       "Database connection timeout",
		Description: "Users experiencing timeout errors when accessing user profiles.",
		Severity:    schema.SeverityCritical,
		Project:     "Backend API",
	},
}

// seed files the demo bugs through the normal lifecycle so they carry an
// audit trail. A store that already holds bugs is left alone. The demo
// tester and developer accounts must exist in the directory.
func seed(ctx context.Context, t sdk.Tracker, log *slog.Logger) error {
	summary, err := t.Summary(ctx)
	if err != nil {
		return err
	}
	if summary.Total > 0 {
		log.Info("store not empty, skipping seed", "bugs", summary.Total)
		return nil
	}

	reporter := directory.DemoUsers[2].Email
	developer := directory.DemoUsers[1].Email

	var last schema.BugReport
	for _, in := range demoBugs {
		if last, err = t.CreateBug(ctx, reporter, in); err != nil {
			return err
		}
	}
	if _, err := t.AssignSelf(ctx, developer, last.ID); err != nil {
		return err
	}
	log.Info("seeded demo bugs", "count", len(demoBugs))
	return nil
}
