package cli

import (
	"context"
	"strings"

	adminkeydomain "github.com/smallbiznis/orgadmin/internal/adminkey/domain"
	"github.com/smallbiznis/orgadmin/internal/apierr"
	"github.com/smallbiznis/orgadmin/internal/client"
	invitationdomain "github.com/smallbiznis/orgadmin/internal/invitation/domain"
	userdomain "github.com/smallbiznis/orgadmin/internal/user/domain"
	"github.com/urfave/cli/v3"
)

var (
	adminKeyColumns = []string{"id", "name", "redacted_value", "owner.name", "owner.role", "created_at", "last_used_at"}
	inviteColumns   = []string{"id", "email", "role", "status", "invited_at", "expires_at", "accepted_at"}
	userColumns     = []string{"id", "name", "email", "role", "added_at"}
)

func (a *App) adminKeysCommand() *cli.Command {
	return &cli.Command{
		Name:  "admin-keys",
		Usage: "Manage organization admin API keys",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List admin API keys",
				Flags: []cli.Flag{
					limitFlag(0),
					&cli.StringFlag{Name: "order", Usage: "asc or desc"},
				},
				Action: a.action(func(ctx context.Context, e *env) error {
					keys, err := e.AdminKeys.List(ctx, adminkeydomain.ListRequest{Limit: e.cmd.Int("limit"), Order: e.cmd.String("order")})
					if err != nil {
						return err
					}
					return e.printer.Print(keys, adminKeyColumns...)
				}),
			},
			{
				Name:      "create",
				Usage:     "Create an admin API key",
				ArgsUsage: "NAME",
				Action: a.action(func(ctx context.Context, e *env) error {
					name, err := e.arg(0, "NAME")
					if err != nil {
						return err
					}
					key, err := e.AdminKeys.Create(ctx, adminkeydomain.CreateRequest{Name: name})
					if err != nil {
						return err
					}
					if e.json() {
						return e.printer.Print(key)
					}
					e.printf("Created admin API key %s (%s).\n", key.Name, key.ID)
					e.printf("Key: %s\n", key.Value)
					e.println("Store it now. It will not be shown again.")
					return nil
				}),
			},
			{
				Name:      "get",
				Usage:     "Show one admin API key",
				ArgsUsage: "KEY_ID",
				Action: a.action(func(ctx context.Context, e *env) error {
					id, err := e.arg(0, "KEY_ID")
					if err != nil {
						return err
					}
					key, err := e.AdminKeys.Get(ctx, id)
					if err != nil {
						return err
					}
					return e.printer.Print(key, adminKeyColumns...)
				}),
			},
			{
				Name:      "delete",
				Usage:     "Delete an admin API key",
				ArgsUsage: "KEY_ID",
				Flags:     []cli.Flag{forceFlag()},
				Action: a.action(func(ctx context.Context, e *env) error {
					id, err := e.arg(0, "KEY_ID")
					if err != nil {
						return err
					}
					return e.confirmDelete("admin API key "+id, func() (*client.DeleteResult, error) {
						return e.AdminKeys.Delete(ctx, id)
					})
				}),
			},
		},
	}
}

func (a *App) invitesCommand() *cli.Command {
	return &cli.Command{
		Name:  "invites",
		Usage: "Manage organization invites",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List invites",
				Flags: []cli.Flag{limitFlag(0)},
				Action: a.action(func(ctx context.Context, e *env) error {
					invites, err := e.Invites.List(ctx, e.cmd.Int("limit"))
					if err != nil {
						return err
					}
					return e.printer.Print(invites, inviteColumns...)
				}),
			},
			{
				Name:      "create",
				Usage:     "Invite a user by email",
				ArgsUsage: "EMAIL",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "role", Usage: "owner or reader", Value: userdomain.RoleReader},
					&cli.StringSliceFlag{Name: "project", Usage: "grant PROJECT_ID:ROLE on acceptance (repeatable)"},
				},
				Action: a.action(func(ctx context.Context, e *env) error {
					email, err := e.arg(0, "EMAIL")
					if err != nil {
						return err
					}
					grants, err := parseGrants(e.cmd.StringSlice("project"))
					if err != nil {
						return err
					}
					invite, err := e.Invites.Create(ctx, invitationdomain.CreateRequest{
						Email:    email,
						Role:     e.cmd.String("role"),
						Projects: grants,
					})
					if err != nil {
						return err
					}
					return e.printer.Print(invite, inviteColumns...)
				}),
			},
			{
				Name:      "get",
				Usage:     "Show one invite",
				ArgsUsage: "INVITE_ID",
				Action: a.action(func(ctx context.Context, e *env) error {
					id, err := e.arg(0, "INVITE_ID")
					if err != nil {
						return err
					}
					invite, err := e.Invites.Get(ctx, id)
					if err != nil {
						return err
					}
					return e.printer.Print(invite, inviteColumns...)
				}),
			},
			{
				Name:      "delete",
				Usage:     "Delete a pending invite",
				ArgsUsage: "INVITE_ID",
				Flags:     []cli.Flag{forceFlag()},
				Action: a.action(func(ctx context.Context, e *env) error {
					id, err := e.arg(0, "INVITE_ID")
					if err != nil {
						return err
					}
					return e.confirmDelete("invite "+id, func() (*client.DeleteResult, error) {
						return e.Invites.Delete(ctx, id)
					})
				}),
			},
		},
	}
}

// parseGrants reads PROJECT_ID:ROLE pairs; the role defaults to member.
func parseGrants(raw []string) ([]invitationdomain.ProjectGrant, error) {
	grants := make([]invitationdomain.ProjectGrant, 0, len(raw))
	for _, item := range raw {
		id, role, _ := strings.Cut(strings.TrimSpace(item), ":")
		if strings.TrimSpace(id) == "" {
			return nil, apierr.Validationf("project", "expected PROJECT_ID:ROLE, got %q", item)
		}
		if role == "" {
			role = "member"
		}
		grants = append(grants, invitationdomain.ProjectGrant{ID: strings.TrimSpace(id), Role: strings.TrimSpace(role)})
	}
	return grants, nil
}

func (a *App) usersCommand() *cli.Command {
	return &cli.Command{
		Name:  "users",
		Usage: "Manage organization users",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List users",
				Flags: []cli.Flag{
					limitFlag(0),
					&cli.StringSliceFlag{Name: "email", Usage: "only users with this email (repeatable)"},
				},
				Action: a.action(func(ctx context.Context, e *env) error {
					users, err := e.Users.List(ctx, userdomain.ListRequest{Limit: e.cmd.Int("limit"), Emails: e.cmd.StringSlice("email")})
					if err != nil {
						return err
					}
					return e.printer.Print(users, userColumns...)
				}),
			},
			{
				Name:      "get",
				Usage:     "Show one user",
				ArgsUsage: "USER_ID",
				Action: a.action(func(ctx context.Context, e *env) error {
					id, err := e.arg(0, "USER_ID")
					if err != nil {
						return err
					}
					u, err := e.Users.Get(ctx, id)
					if err != nil {
						return err
					}
					return e.printer.Print(u, userColumns...)
				}),
			},
			{
				Name:      "update",
				Usage:     "Change a user's organization role",
				ArgsUsage: "USER_ID",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "role", Usage: "owner or reader", Required: true},
				},
				Action: a.action(func(ctx context.Context, e *env) error {
					id, err := e.arg(0, "USER_ID")
					if err != nil {
						return err
					}
					u, err := e.Users.UpdateRole(ctx, id, e.cmd.String("role"))
					if err != nil {
						return err
					}
					return e.printer.Print(u, userColumns...)
				}),
			},
			{
				Name:      "delete",
				Usage:     "Remove a user from the organization",
				ArgsUsage: "USER_ID",
				Flags:     []cli.Flag{forceFlag()},
				Action: a.action(func(ctx context.Context, e *env) error {
					id, err := e.arg(0, "USER_ID")
					if err != nil {
						return err
					}
					return e.confirmDelete("user "+id, func() (*client.DeleteResult, error) {
						return e.Users.Delete(ctx, id)
					})
				}),
			},
		},
	}
}

// confirmDelete asks, runs del and prints the confirmation.
func (e *env) confirmDelete(what string, del func() (*client.DeleteResult, error)) error {
	ok, err := e.confirm("Delete " + what + "?")
	if err != nil {
		return err
	}
	if !ok {
		return e.aborted()
	}
	res, err := del()
	if err != nil {
		return err
	}
	if e.json() {
		return e.printer.Print(res)
	}
	e.printf("Deleted %s.\n", what)
	return nil
}
