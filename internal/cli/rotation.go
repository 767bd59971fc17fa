package cli

import (
	"context"
	"fmt"

	"github.com/smallbiznis/orgadmin/internal/apierr"
	"github.com/smallbiznis/orgadmin/internal/config"
	rotationdomain "github.com/smallbiznis/orgadmin/internal/rotation/domain"
	"github.com/urfave/cli/v3"
)

var (
	rotationAccountColumns = []string{"id", "name", "role", "created_at"}
	rotationStatusColumns  = []string{"name", "id", "created_at", "age_days", "current"}
	batchItemColumns       = []string{"project", "key", "status", "detail"}
)

func rotationTargetFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "config-file", Usage: "JSON file with project_id, prefix, notify_user and date_format"},
		&cli.StringFlag{Name: "project-id", Aliases: []string{"p"}, Usage: "project of the service accounts (overrides the config file)"},
		&cli.StringFlag{Name: "prefix", Usage: "service account name prefix (overrides the config file)"},
	}
}

func createFlags() []cli.Flag {
	return append(rotationTargetFlags(),
		&cli.StringFlag{Name: "date-format", Usage: "YY-MM or YYYY-MM-DD", Value: string(rotationdomain.FormatShort)},
		&cli.StringFlag{Name: "notify-user", Usage: "send the new key to this mapped user"},
		&cli.StringFlag{Name: "notify-channel", Usage: "mattermost or email", Value: "mattermost"},
		dryRunFlag(),
	)
}

// rotationTarget merges --config-file with the flags. A flag that was set
// wins; a flag default only applies when the file leaves the field empty.
func (e *env) rotationTarget() (config.RotationTarget, error) {
	var target config.RotationTarget
	if path := e.cmd.String("config-file"); path != "" {
		var err error
		if target, err = config.LoadRotationTarget(path); err != nil {
			return target, err
		}
	}
	e.override(&target.ProjectID, "project-id")
	e.override(&target.Prefix, "prefix")
	return target, nil
}

func (e *env) override(field *string, flag string) {
	if e.cmd.IsSet(flag) || *field == "" {
		*field = e.cmd.String(flag)
	}
}

func (e *env) createRequest() (rotationdomain.CreateRequest, error) {
	target, err := e.rotationTarget()
	if err != nil {
		return rotationdomain.CreateRequest{}, err
	}
	e.override(&target.DateFormat, "date-format")
	e.override(&target.NotifyUser, "notify-user")
	e.override(&target.NotifyChannel, "notify-channel")
	return rotationdomain.CreateRequest{
		ProjectID:     target.ProjectID,
		Prefix:        target.Prefix,
		DateFormat:    target.DateFormat,
		NotifyUser:    target.NotifyUser,
		NotifyChannel: target.NotifyChannel,
		DryRun:        e.cmd.Bool("dry-run"),
	}, nil
}

func (a *App) rotationCommand() *cli.Command {
	return &cli.Command{
		Name:  "rotation",
		Usage: "Rotate date-named service account keys",
		Commands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Create the current period's service account; older keys stay active",
				Flags: createFlags(),
				Action: a.action(func(ctx context.Context, e *env) error {
					req, err := e.createRequest()
					if err != nil {
						return err
					}
					res, err := e.Rotation.Create(ctx, req)
					if err != nil {
						return err
					}
					if e.json() {
						return e.printer.Print(res)
					}
					e.printCreate(res)
					if res.Created != nil && len(res.Existing) > 0 {
						e.printf("%d older key(s) remain active. Run rotation cleanup after switching over.\n", len(res.Existing))
					}
					return nil
				}),
			},
			{
				Name:  "cleanup",
				Usage: "Delete old service accounts, keeping the newest ones",
				Flags: append(rotationTargetFlags(),
					&cli.IntFlag{Name: "keep-latest", Usage: "number of newest accounts to keep", Value: 1},
					dryRunFlag(),
					forceFlag(),
				),
				Action: a.action(func(ctx context.Context, e *env) error {
					target, err := e.rotationTarget()
					if err != nil {
						return err
					}
					plan, err := e.Rotation.PlanCleanup(ctx, rotationdomain.CleanupRequest{
						ProjectID:  target.ProjectID,
						Prefix:     target.Prefix,
						KeepLatest: e.cmd.Int("keep-latest"),
					})
					if err != nil {
						return err
					}
					dryRun := e.cmd.Bool("dry-run")
					if !e.json() {
						e.printf("Keeping %d service account(s):\n", len(plan.Keep))
						e.listAccounts(plan.Keep)
					}
					if len(plan.Delete) == 0 {
						if e.json() {
							return e.printer.Print(&rotationdomain.CleanupResult{DryRun: dryRun, Kept: plan.Keep})
						}
						e.println("Nothing to clean up.")
						return nil
					}
					if !e.json() {
						e.printf("Deleting %d service account(s):\n", len(plan.Delete))
						e.listAccounts(plan.Delete)
					}
					if !dryRun {
						ok, err := e.confirm(fmt.Sprintf("Delete %d service account(s)?", len(plan.Delete)))
						if err != nil {
							return err
						}
						if !ok {
							return e.aborted()
						}
					}
					res, err := e.Rotation.Cleanup(ctx, plan, dryRun)
					if err != nil {
						return err
					}
					if e.json() {
						return e.printer.Print(res)
					}
					return e.printDeletes(res.DryRun, res.Deleted, res.Failed)
				}),
			},
			{
				Name:  "execute",
				Usage: "Create the current key and delete all but the newest older key",
				Flags: append(createFlags(), forceFlag()),
				Action: a.action(func(ctx context.Context, e *env) error {
					req, err := e.createRequest()
					if err != nil {
						return err
					}
					if !req.DryRun {
						ok, err := e.confirm(fmt.Sprintf("Rotate %s keys in %s and delete old ones?", req.Prefix, req.ProjectID))
						if err != nil {
							return err
						}
						if !ok {
							return e.aborted()
						}
					}
					res, err := e.Rotation.Execute(ctx, req)
					if err != nil {
						return err
					}
					if e.json() {
						return e.printer.Print(res)
					}
					e.printCreate(&res.CreateResult)
					return e.printDeletes(res.DryRun, res.Deleted, res.Failed)
				}),
			},
			{
				Name:  "list",
				Usage: "List date-named service accounts",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "project-id", Aliases: []string{"p"}, Usage: "project of the service accounts", Required: true},
					&cli.StringFlag{Name: "prefix", Usage: "only this prefix, newest first"},
				},
				Action: a.action(func(ctx context.Context, e *env) error {
					accounts, err := e.Rotation.List(ctx, e.cmd.String("project-id"), e.cmd.String("prefix"))
					if err != nil {
						return err
					}
					return e.printer.Print(accounts, rotationAccountColumns...)
				}),
			},
			{
				Name:  "check",
				Usage: "Report key ages and whether rotation is due",
				Flags: rotationTargetFlags(),
				Action: a.action(func(ctx context.Context, e *env) error {
					target, err := e.rotationTarget()
					if err != nil {
						return err
					}
					status, err := e.Rotation.Check(ctx, target.ProjectID, target.Prefix)
					if err != nil {
						return err
					}
					if e.json() {
						return e.printer.Print(status)
					}
					if len(status.Accounts) == 0 {
						e.printf("No service accounts named %s-<date> in %s.\n", status.Prefix, status.ProjectID)
						return nil
					}
					if err := e.printer.Print(status.Accounts, rotationStatusColumns...); err != nil {
						return err
					}
					e.println()
					e.printf("Newest %s\n", status.Advice.Message(status.NewestAge))
					if status.ToBeCulled > 0 {
						e.printf("%d older service account(s) would be removed by cleanup.\n", status.ToBeCulled)
					}
					return nil
				}),
			},
			{
				Name:      "batch",
				Usage:     "Run create or cleanup for every key of a rotation config",
				ArgsUsage: "CONFIG_FILE",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "action", Usage: "create or cleanup", Value: string(rotationdomain.ActionCreate)},
					dryRunFlag(),
					forceFlag(),
				},
				Action: a.action(func(ctx context.Context, e *env) error {
					path, err := e.arg(0, "CONFIG_FILE")
					if err != nil {
						return err
					}
					action, ok := rotationdomain.ParseBatchAction(e.cmd.String("action"))
					if !ok {
						return apierr.Validation("action", rotationdomain.ErrInvalidAction)
					}
					cfg, err := config.LoadRotationConfig(path)
					if err != nil {
						return err
					}
					dryRun := e.cmd.Bool("dry-run")
					if action == rotationdomain.ActionCleanup && !dryRun {
						ok, err := e.confirm(fmt.Sprintf("Clean up old keys for %d project(s)?", len(cfg.Rotations)))
						if err != nil {
							return err
						}
						if !ok {
							return e.aborted()
						}
					}
					report, err := e.Rotation.Batch(ctx, rotationdomain.BatchRequest{Config: cfg, Action: action, DryRun: dryRun})
					if err != nil {
						return err
					}
					if e.json() {
						if err := e.printer.Print(report); err != nil {
							return err
						}
					} else {
						e.printf("Run %s (%s", report.RunID, report.Action)
						if report.DryRun {
							e.printf(", dry run")
						}
						e.println(")")
						if err := e.printer.Print(report.Items, batchItemColumns...); err != nil {
							return err
						}
						e.printf("Summary: %d succeeded, %d skipped, %d failed.\n",
							report.Count(rotationdomain.BatchSuccess),
							report.Count(rotationdomain.BatchSkipped),
							report.Count(rotationdomain.BatchFailed),
						)
					}
					if n := report.Count(rotationdomain.BatchFailed); n > 0 {
						return fmt.Errorf("rotation batch finished with %d failed item(s)", n)
					}
					return nil
				}),
			},
		},
	}
}

func (e *env) listAccounts(accounts []rotationdomain.Account) {
	for _, a := range accounts {
		e.printf("  %s (%s)\n", a.Name, a.ID)
	}
}

// printCreate reports a new key. The key value is only printed when it
// was not handed to a user.
func (e *env) printCreate(res *rotationdomain.CreateResult) {
	switch {
	case res.AlreadyExisted:
		e.printf("%s already exists for the current period.\n", res.Name)
		return
	case res.Created == nil:
		e.printf("Would create service account %s (dry run).\n", res.Name)
	default:
		e.printf("Created service account %s (%s).\n", res.Created.Name, res.Created.ID)
	}

	n := res.Notification
	delivered := n != nil && n.Err == nil && n.Skipped == "" && n.Delivery != nil
	switch {
	case n == nil:
	case n.Skipped != "":
		e.printf("Notification to %s skipped: %s.\n", n.UserID, n.Skipped)
	case n.Err != nil:
		fmt.Fprintf(e.errOut, "Warning: notification to %s failed: %v\n", n.UserID, n.Err)
	default:
		e.printf("API key sent to %s via %s.\n", n.UserID, n.Channel)
	}
	if res.Created != nil && res.Created.APIKey != nil && !delivered {
		e.printf("API key: %s\n", res.Created.APIKey.Value)
		e.println("Store it now. It will not be shown again.")
	}
}

func (e *env) printDeletes(dryRun bool, deleted []rotationdomain.Account, failed []rotationdomain.DeleteFailure) error {
	verb := "Deleted"
	if dryRun {
		verb = "Would delete"
	}
	e.printf("%s %d service account(s).\n", verb, len(deleted))
	for _, f := range failed {
		e.printf("  failed %s (%s): %v\n", f.Account.Name, f.Account.ID, f.Err)
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d service account(s) could not be deleted", len(failed))
	}
	return nil
}
