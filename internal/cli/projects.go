package cli

import (
	"context"
	"fmt"

	"github.com/smallbiznis/orgadmin/internal/client"
	projectdomain "github.com/smallbiznis/orgadmin/internal/project/domain"
	projectopsdomain "github.com/smallbiznis/orgadmin/internal/projectops/domain"
	projectopsservice "github.com/smallbiznis/orgadmin/internal/projectops/service"
	projectuserdomain "github.com/smallbiznis/orgadmin/internal/projectuser/domain"
	"github.com/urfave/cli/v3"
)

var (
	projectColumns     = []string{"id", "name", "status", "created_at", "archived_at"}
	projectUserColumns = []string{"id", "name", "email", "role", "added_at"}
	stepColumns        = []string{"kind", "target", "status", "detail"}
)

func (a *App) projectsCommand() *cli.Command {
	return &cli.Command{
		Name:  "projects",
		Usage: "Manage projects",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List projects",
				Flags: []cli.Flag{
					limitFlag(0),
					&cli.BoolFlag{Name: "include-archived", Usage: "include archived projects"},
				},
				Action: a.action(func(ctx context.Context, e *env) error {
					projects, err := e.Projects.List(ctx, projectdomain.ListRequest{
						Limit:           e.cmd.Int("limit"),
						IncludeArchived: e.cmd.Bool("include-archived"),
					})
					if err != nil {
						return err
					}
					return e.printer.Print(projects, projectColumns...)
				}),
			},
			{
				Name:      "create",
				Usage:     "Create a project",
				ArgsUsage: "NAME",
				Action: a.action(func(ctx context.Context, e *env) error {
					name, err := e.arg(0, "NAME")
					if err != nil {
						return err
					}
					p, err := e.Projects.Create(ctx, name)
					if err != nil {
						return err
					}
					return e.printer.Print(p, projectColumns...)
				}),
			},
			{
				Name:      "get",
				Usage:     "Show one project",
				ArgsUsage: "PROJECT_ID",
				Action: a.action(func(ctx context.Context, e *env) error {
					id, err := e.arg(0, "PROJECT_ID")
					if err != nil {
						return err
					}
					p, err := e.Projects.Get(ctx, id)
					if err != nil {
						return err
					}
					return e.printer.Print(p, projectColumns...)
				}),
			},
			{
				Name:      "update",
				Usage:     "Rename a project",
				ArgsUsage: "PROJECT_ID",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Usage: "new project name", Required: true},
				},
				Action: a.action(func(ctx context.Context, e *env) error {
					id, err := e.arg(0, "PROJECT_ID")
					if err != nil {
						return err
					}
					p, err := e.Projects.Rename(ctx, id, e.cmd.String("name"))
					if err != nil {
						return err
					}
					return e.printer.Print(p, projectColumns...)
				}),
			},
			{
				Name:      "archive",
				Usage:     "Archive a project; archival cannot be undone",
				ArgsUsage: "PROJECT_ID",
				Flags:     []cli.Flag{forceFlag()},
				Action: a.action(func(ctx context.Context, e *env) error {
					id, err := e.arg(0, "PROJECT_ID")
					if err != nil {
						return err
					}
					ok, err := e.confirm("Archive project " + id + "? This cannot be undone.")
					if err != nil {
						return err
					}
					if !ok {
						return e.aborted()
					}
					p, err := e.Projects.Archive(ctx, id)
					if err != nil {
						return err
					}
					return e.printer.Print(p, projectColumns...)
				}),
			},
			{
				Name:      "export-template",
				Usage:     "Write a project's users, service accounts and rate limits to a template",
				ArgsUsage: "PROJECT_ID",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "template path (default templates/projects/<name>.json)"},
				},
				Action: a.action(func(ctx context.Context, e *env) error {
					id, err := e.arg(0, "PROJECT_ID")
					if err != nil {
						return err
					}
					res, err := e.ProjectOps.ExportTemplate(ctx, projectopsdomain.ExportRequest{ProjectID: id, Output: e.cmd.String("output")})
					if err != nil {
						return err
					}
					if e.json() {
						return e.printer.Print(map[string]any{"path": res.Path, "template": res.Template})
					}
					t := res.Template
					e.printf("Template written to %s\n", res.Path)
					e.printf("  users: %d\n  service accounts: %d\n  rate limits: %d\n",
						len(t.Users), len(t.ServiceAccounts), len(t.RateLimits))
					return nil
				}),
			},
			{
				Name:      "create-from-template",
				Usage:     "Create a project from a template file",
				ArgsUsage: "TEMPLATE_FILE",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Usage: "override the template's project name"},
					dryRunFlag(),
					forceFlag(),
				},
				Action: a.action(func(ctx context.Context, e *env) error {
					path, err := e.arg(0, "TEMPLATE_FILE")
					if err != nil {
						return err
					}
					tmpl, err := projectopsservice.LoadTemplate(path)
					if err != nil {
						return err
					}
					req := projectopsdomain.CreateRequest{Template: tmpl, Name: e.cmd.String("name"), DryRun: e.cmd.Bool("dry-run")}
					if !req.DryRun {
						name := tmpl.Name
						if req.Name != "" {
							name = req.Name
						}
						ok, err := e.confirm(fmt.Sprintf("Create project %q with %d user(s), %d service account(s) and %d rate limit(s)?",
							name, len(tmpl.Users), len(tmpl.ServiceAccounts), len(tmpl.RateLimits)))
						if err != nil {
							return err
						}
						if !ok {
							return e.aborted()
						}
					}
					report, err := e.ProjectOps.CreateFromTemplate(ctx, req)
					if err != nil {
						return err
					}
					return e.printCreateReport(report)
				}),
			},
			{
				Name:      "delete",
				Usage:     "Tear down projects: remove service accounts and users, then archive",
				ArgsUsage: "PROJECT_ID...",
				Flags:     []cli.Flag{dryRunFlag(), forceFlag()},
				Action: a.action(func(ctx context.Context, e *env) error {
					plans, err := e.ProjectOps.PlanTeardown(ctx, e.cmd.Args().Slice())
					if err != nil {
						return err
					}
					dryRun := e.cmd.Bool("dry-run")
					if !e.json() {
						e.printTeardownPlans(plans)
					}
					actionable := 0
					for _, p := range plans {
						if p.Actionable() {
							actionable++
						}
					}
					if !dryRun && actionable > 0 {
						ok, err := e.confirm(fmt.Sprintf("Tear down %d project(s)? This cannot be undone.", actionable))
						if err != nil {
							return err
						}
						if !ok {
							return e.aborted()
						}
					}
					report, err := e.ProjectOps.Teardown(ctx, plans, dryRun)
					if err != nil {
						return err
					}
					if err := e.printTeardownReport(report); err != nil {
						return err
					}
					if n := report.Failed(); n > 0 {
						return fmt.Errorf("teardown finished with %d failed step(s)", n)
					}
					return nil
				}),
			},
		},
	}
}

func (e *env) printCreateReport(r *projectopsdomain.CreateReport) error {
	if e.json() {
		return e.printer.Print(r)
	}
	if r.DryRun {
		e.printf("Dry run: nothing was created for %q.\n", r.Name)
	} else if r.Project != nil {
		e.printf("Created project %s (%s).\n", r.Project.Name, r.Project.ID)
	}
	if err := e.printer.Print(r.Steps, stepColumns...); err != nil {
		return err
	}
	e.printf("done: %d  skipped: %d  failed: %d\n",
		r.Steps.Count(projectopsdomain.StepDone), r.Steps.Count(projectopsdomain.StepSkipped), r.Steps.Count(projectopsdomain.StepFailed))
	if len(r.Keys) > 0 {
		e.println()
		e.println("Service account keys (shown once, store them now):")
		for _, k := range r.Keys {
			e.printf("  %s: %s\n", k.ServiceAccountName, k.Value)
		}
	}
	return nil
}

func (e *env) printTeardownPlans(plans []projectopsdomain.TeardownPlan) {
	for _, p := range plans {
		switch {
		case p.Err != nil:
			e.printf("%s: cannot plan: %v\n", p.ProjectID, p.Err)
		case p.SkipReason != "":
			e.printf("%s: skipped (%s)\n", p.ProjectID, p.SkipReason)
		default:
			e.printf("%s (%s): %d service account(s), %d user(s), %d API key(s)\n",
				p.Project.Name, p.ProjectID, len(p.ServiceAccounts), len(p.Users), len(p.APIKeys))
		}
	}
}

func (e *env) printTeardownReport(r *projectopsdomain.TeardownReport) error {
	if e.json() {
		return e.printer.Print(r)
	}
	for _, p := range r.Projects {
		e.println()
		e.printf("%s (%s)\n", p.Name, p.ProjectID)
		if err := e.printer.Print(p.Steps, stepColumns...); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) projectUsersCommand() *cli.Command {
	return &cli.Command{
		Name:  "project-users",
		Usage: "Manage project membership",
		Commands: []*cli.Command{
			{
				Name:      "list",
				Usage:     "List a project's users",
				ArgsUsage: "PROJECT_ID",
				Flags:     []cli.Flag{limitFlag(0)},
				Action: a.action(func(ctx context.Context, e *env) error {
					pid, err := e.arg(0, "PROJECT_ID")
					if err != nil {
						return err
					}
					users, err := e.ProjectUsers.List(ctx, pid, e.cmd.Int("limit"))
					if err != nil {
						return err
					}
					return e.printer.Print(users, projectUserColumns...)
				}),
			},
			{
				Name:      "get",
				Usage:     "Show one project user",
				ArgsUsage: "PROJECT_ID USER_ID",
				Action: a.action(func(ctx context.Context, e *env) error {
					pid, uid, err := e.projectAndID("USER_ID")
					if err != nil {
						return err
					}
					u, err := e.ProjectUsers.Get(ctx, pid, uid)
					if err != nil {
						return err
					}
					return e.printer.Print(u, projectUserColumns...)
				}),
			},
			{
				Name:      "add",
				Usage:     "Add an organization user to a project",
				ArgsUsage: "PROJECT_ID USER_ID",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "role", Usage: "owner or member", Value: projectuserdomain.RoleMember},
				},
				Action: a.action(func(ctx context.Context, e *env) error {
					pid, uid, err := e.projectAndID("USER_ID")
					if err != nil {
						return err
					}
					u, err := e.ProjectUsers.Add(ctx, projectuserdomain.AddRequest{ProjectID: pid, UserID: uid, Role: e.cmd.String("role")})
					if err != nil {
						return err
					}
					return e.printer.Print(u, projectUserColumns...)
				}),
			},
			{
				Name:      "update",
				Usage:     "Change a project user's role",
				ArgsUsage: "PROJECT_ID USER_ID",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "role", Usage: "owner or member", Required: true},
				},
				Action: a.action(func(ctx context.Context, e *env) error {
					pid, uid, err := e.projectAndID("USER_ID")
					if err != nil {
						return err
					}
					u, err := e.ProjectUsers.UpdateRole(ctx, pid, uid, e.cmd.String("role"))
					if err != nil {
						return err
					}
					return e.printer.Print(u, projectUserColumns...)
				}),
			},
			{
				Name:      "delete",
				Usage:     "Remove a user from a project",
				ArgsUsage: "PROJECT_ID USER_ID",
				Flags:     []cli.Flag{forceFlag()},
				Action: a.action(func(ctx context.Context, e *env) error {
					pid, uid, err := e.projectAndID("USER_ID")
					if err != nil {
						return err
					}
					return e.confirmDelete(fmt.Sprintf("user %s from project %s", uid, pid), func() (*client.DeleteResult, error) {
						return e.ProjectUsers.Delete(ctx, pid, uid)
					})
				}),
			},
		},
	}
}

// projectAndID reads the PROJECT_ID and second positional arguments.
func (e *env) projectAndID(name string) (string, string, error) {
	pid, err := e.arg(0, "PROJECT_ID")
	if err != nil {
		return "", "", err
	}
	id, err := e.arg(1, name)
	if err != nil {
		return "", "", err
	}
	return pid, id, nil
}
