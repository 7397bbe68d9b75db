package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/celerix-dev/celerix-bugs/pkg/schema"
	"github.com/celerix-dev/celerix-bugs/pkg/sdk"
)

func (a *app) createCmd() *cobra.Command {
	var in schema.NewBugReport
	var severity string
	cmd := &cobra.Command{
		Use:   "create <title>",
		Short: "File a new bug (testers and admins)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := a.actor()
			if err != nil {
				return err
			}
			in.Title = args[0]
			if severity != "" {
				if in.Severity, err = schema.ParseSeverity(severity); err != nil {
					return err
				}
			}
			bug, err := a.tracker.CreateBug(cmd.Context(), actor, in)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), bug)
		},
	}
	cmd.Flags().StringVarP(&in.Description, "description", "d", "", "what goes wrong")
	cmd.Flags().StringVarP(&in.Project, "project", "p", "", "affected project")
	cmd.Flags().StringVarP(&severity, "severity", "s", "", "low, medium, high or critical (default medium)")
	return cmd
}

func (a *app) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <id> <status>",
		Short: "Move a bug to open, in-progress, resolved or closed (developers and admins)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := a.actor()
			if err != nil {
				return err
			}
			status, err := schema.ParseStatus(args[1])
			if err != nil {
				return err
			}
			bug, err := a.tracker.ChangeStatus(cmd.Context(), actor, args[0], status)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), bug)
		},
	}
}

func (a *app) assignCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "assign <id>",
		Short: "Claim an unassigned bug (developers and admins)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := a.actor()
			if err != nil {
				return err
			}
			bug, err := a.tracker.AssignSelf(cmd.Context(), actor, args[0])
			if errors.Is(err, sdk.ErrAlreadyAssigned) {
				return fmt.Errorf("cannot claim %s: %w", args[0], err)
			}
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), bug)
		},
	}
}

func (a *app) listCmd() *cobra.Command {
	var status, severity string
	var filter schema.BugFilter
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List bugs, optionally filtered",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			if status != "" {
				if filter.Status, err = schema.ParseStatus(status); err != nil {
					return err
				}
			}
			if severity != "" {
				if filter.Severity, err = schema.ParseSeverity(severity); err != nil {
					return err
				}
			}
			bugs, err := a.tracker.ListBugs(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if bugs == nil {
				bugs = []schema.BugReport{}
			}
			return printJSON(cmd.OutOrStdout(), bugs)
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "only bugs with this status")
	cmd.Flags().StringVar(&severity, "severity", "", "only bugs with this severity")
	cmd.Flags().StringVar(&filter.Project, "project", "", "only bugs in this project")
	cmd.Flags().StringVar(&filter.AssignedTo, "assignee", "", "only bugs assigned to this email")
	cmd.Flags().StringVarP(&filter.Query, "query", "q", "", "substring of title or description")
	return cmd
}

func (a *app) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one bug",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bug, err := a.tracker.GetBug(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), bug)
		},
	}
}

func (a *app) auditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "audit <id>",
		Short: "Show the change history of a bug",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := a.tracker.AuditTrail(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), entries)
		},
	}
}

func (a *app) analyticsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analytics",
		Short: "Status and severity distribution (admins)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			actor, err := a.actor()
			if err != nil {
				return err
			}
			report, err := a.tracker.Analytics(cmd.Context(), actor)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), report)
		},
	}
}

func (a *app) summaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Bug counts per status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			summary, err := a.tracker.Summary(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), summary)
		},
	}
}

func (a *app) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the acting identity and what it may do",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			actor, err := a.actor()
			if err != nil {
				return err
			}
			session, err := a.tracker.WhoAmI(cmd.Context(), actor)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), session)
		},
	}
}

func (a *app) pingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the daemon answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, ok := a.tracker.(*sdk.Client)
			if !ok {
				return errors.New("ping needs --addr; running in embedded mode")
			}
			if err := client.Ping(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "PONG")
			return nil
		},
	}
}
