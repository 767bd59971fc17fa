package cli

import (
	"context"

	adminkeydomain "github.com/smallbiznis/orgadmin/internal/adminkey/domain"
	apikeydomain "github.com/smallbiznis/orgadmin/internal/apikey/domain"
	"github.com/smallbiznis/orgadmin/internal/client"
	ratelimitdomain "github.com/smallbiznis/orgadmin/internal/ratelimit/domain"
	"github.com/urfave/cli/v3"
)

var (
	serviceAccountColumns = []string{"id", "name", "role", "created_at"}
	apiKeyColumns         = []string{"id", "name", "redacted_value", "owner", "owner_type", "created_at", "last_used_at"}
	rateLimitColumns      = []string{
		"id", "model",
		"max_requests_per_1_minute", "max_tokens_per_1_minute", "max_images_per_1_minute",
		"max_audio_megabytes_per_1_minute", "max_requests_per_1_day", "batch_1_day_max_input_tokens",
	}
)

func (a *App) serviceAccountsCommand() *cli.Command {
	return &cli.Command{
		Name:  "service-accounts",
		Usage: "Manage project service accounts",
		Commands: []*cli.Command{
			{
				Name:      "list",
				Usage:     "List a project's service accounts",
				ArgsUsage: "PROJECT_ID",
				Flags:     []cli.Flag{limitFlag(0)},
				Action: a.action(func(ctx context.Context, e *env) error {
					pid, err := e.arg(0, "PROJECT_ID")
					if err != nil {
						return err
					}
					accounts, err := e.ServiceAccounts.List(ctx, pid, e.cmd.Int("limit"))
					if err != nil {
						return err
					}
					return e.printer.Print(accounts, serviceAccountColumns...)
				}),
			},
			{
				Name:      "create",
				Usage:     "Create a service account and its API key",
				ArgsUsage: "PROJECT_ID NAME",
				Action: a.action(func(ctx context.Context, e *env) error {
					pid, name, err := e.projectAndID("NAME")
					if err != nil {
						return err
					}
					sa, err := e.ServiceAccounts.Create(ctx, pid, name)
					if err != nil {
						return err
					}
					if e.json() {
						return e.printer.Print(sa)
					}
					e.printf("Created service account %s (%s).\n", sa.Name, sa.ID)
					if sa.APIKey != nil {
						e.printf("API key: %s\n", sa.APIKey.Value)
						e.println("Store it now. It will not be shown again.")
					}
					return nil
				}),
			},
			{
				Name:      "get",
				Usage:     "Show one service account",
				ArgsUsage: "PROJECT_ID SERVICE_ACCOUNT_ID",
				Action: a.action(func(ctx context.Context, e *env) error {
					pid, id, err := e.projectAndID("SERVICE_ACCOUNT_ID")
					if err != nil {
						return err
					}
					sa, err := e.ServiceAccounts.Get(ctx, pid, id)
					if err != nil {
						return err
					}
					return e.printer.Print(sa, serviceAccountColumns...)
				}),
			},
			{
				Name:      "delete",
				Usage:     "Delete a service account and its API key",
				ArgsUsage: "PROJECT_ID SERVICE_ACCOUNT_ID",
				Flags:     []cli.Flag{forceFlag()},
				Action: a.action(func(ctx context.Context, e *env) error {
					pid, id, err := e.projectAndID("SERVICE_ACCOUNT_ID")
					if err != nil {
						return err
					}
					return e.confirmDelete("service account "+id, func() (*client.DeleteResult, error) {
						return e.ServiceAccounts.Delete(ctx, pid, id)
					})
				}),
			},
		},
	}
}

// keyRow is the table shape of a project API key.
type keyRow struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	RedactedValue string `json:"redacted_value"`
	Owner         string `json:"owner"`
	OwnerType     string `json:"owner_type"`
	CreatedAt     int64  `json:"created_at"`
	LastUsedAt    *int64 `json:"last_used_at"`
}

func keyRows(keys []apikeydomain.APIKey) []keyRow {
	rows := make([]keyRow, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, keyRow{
			ID:            k.ID,
			Name:          k.Name,
			RedactedValue: k.RedactedValue,
			Owner:         k.OwnerName(),
			OwnerType:     k.Owner.Type,
			CreatedAt:     k.CreatedAt,
			LastUsedAt:    k.LastUsedAt,
		})
	}
	return rows
}

func (a *App) keysCommand() *cli.Command {
	return &cli.Command{
		Name:  "keys",
		Usage: "Inspect and delete API keys",
		Commands: []*cli.Command{
			{
				Name:  "list-admin",
				Usage: "List admin API keys",
				Flags: []cli.Flag{limitFlag(0)},
				Action: a.action(func(ctx context.Context, e *env) error {
					keys, err := e.AdminKeys.List(ctx, adminkeydomain.ListRequest{Limit: e.cmd.Int("limit")})
					if err != nil {
						return err
					}
					return e.printer.Print(keys, adminKeyColumns...)
				}),
			},
			{
				Name:      "list",
				Usage:     "List a project's API keys",
				ArgsUsage: "PROJECT_ID",
				Flags:     []cli.Flag{limitFlag(0)},
				Action: a.action(func(ctx context.Context, e *env) error {
					pid, err := e.arg(0, "PROJECT_ID")
					if err != nil {
						return err
					}
					keys, err := e.APIKeys.List(ctx, pid, e.cmd.Int("limit"))
					if err != nil {
						return err
					}
					if e.json() {
						return e.printer.Print(keys)
					}
					return e.printer.Print(keyRows(keys), apiKeyColumns...)
				}),
			},
			{
				Name:      "get",
				Usage:     "Show one project API key",
				ArgsUsage: "PROJECT_ID KEY_ID",
				Action: a.action(func(ctx context.Context, e *env) error {
					pid, id, err := e.projectAndID("KEY_ID")
					if err != nil {
						return err
					}
					key, err := e.APIKeys.Get(ctx, pid, id)
					if err != nil {
						return err
					}
					if e.json() {
						return e.printer.Print(key)
					}
					return e.printer.Print(keyRows([]apikeydomain.APIKey{*key}), apiKeyColumns...)
				}),
			},
			{
				Name:      "delete",
				Usage:     "Delete a user-owned project API key",
				ArgsUsage: "PROJECT_ID KEY_ID",
				Flags:     []cli.Flag{forceFlag()},
				Action: a.action(func(ctx context.Context, e *env) error {
					pid, id, err := e.projectAndID("KEY_ID")
					if err != nil {
						return err
					}
					return e.confirmDelete("API key "+id, func() (*client.DeleteResult, error) {
						return e.APIKeys.Delete(ctx, pid, id)
					})
				}),
			},
		},
	}
}

var limitFlagNames = []string{
	"max-requests-per-1-minute",
	"max-tokens-per-1-minute",
	"max-images-per-1-minute",
	"max-audio-megabytes-per-1-minute",
	"max-requests-per-1-day",
	"batch-1-day-max-input-tokens",
}

func (a *App) rateLimitsCommand() *cli.Command {
	updateFlags := make([]cli.Flag, 0, len(limitFlagNames))
	for _, name := range limitFlagNames {
		updateFlags = append(updateFlags, &cli.Int64Flag{Name: name})
	}
	return &cli.Command{
		Name:  "rate-limits",
		Usage: "Inspect and change per-model project rate limits",
		Commands: []*cli.Command{
			{
				Name:      "list",
				Usage:     "List a project's rate limits",
				ArgsUsage: "PROJECT_ID",
				Flags:     []cli.Flag{limitFlag(0)},
				Action: a.action(func(ctx context.Context, e *env) error {
					pid, err := e.arg(0, "PROJECT_ID")
					if err != nil {
						return err
					}
					limits, err := e.RateLimits.List(ctx, pid, e.cmd.Int("limit"))
					if err != nil {
						return err
					}
					return e.printer.Print(limits, rateLimitColumns...)
				}),
			},
			{
				Name:      "update",
				Usage:     "Change one rate limit; unset flags keep their value",
				ArgsUsage: "PROJECT_ID RATE_LIMIT_ID",
				Flags:     updateFlags,
				Action: a.action(func(ctx context.Context, e *env) error {
					pid, id, err := e.projectAndID("RATE_LIMIT_ID")
					if err != nil {
						return err
					}
					req := ratelimitdomain.UpdateRequest{ProjectID: pid, RateLimitID: id}
					targets := []**int64{
						&req.MaxRequestsPer1Minute,
						&req.MaxTokensPer1Minute,
						&req.MaxImagesPer1Minute,
						&req.MaxAudioMegabytesPer1Minute,
						&req.MaxRequestsPer1Day,
						&req.Batch1DayMaxInputTokens,
					}
					for i, name := range limitFlagNames {
						if e.cmd.IsSet(name) {
							v := e.cmd.Int64(name)
							*targets[i] = &v
						}
					}
					rl, err := e.RateLimits.Update(ctx, req)
					if err != nil {
						return err
					}
					return e.printer.Print(rl, rateLimitColumns...)
				}),
			},
		},
	}
}
