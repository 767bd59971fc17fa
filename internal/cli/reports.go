package cli

import (
	"context"
	"slices"
	"sort"
	"strings"

	auditdomain "github.com/smallbiznis/orgadmin/internal/audit/domain"
	"github.com/smallbiznis/orgadmin/internal/format"
	"github.com/smallbiznis/orgadmin/internal/timerange"
	usagedomain "github.com/smallbiznis/orgadmin/internal/usage/domain"
	"github.com/urfave/cli/v3"
)

var auditColumns = []string{"id", "effective_at", "type", "actor_type", "actor", "project"}

func rangeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{Name: "days", Aliases: []string{"d"}, Usage: "the last N days"},
		&cli.StringFlag{Name: "start-date", Usage: "first day, YYYY-MM-DD (UTC)"},
		&cli.StringFlag{Name: "end-date", Usage: "end day, YYYY-MM-DD (UTC); the range stops at its midnight"},
	}
}

func (e *env) rangeOptions() timerange.Options {
	return timerange.Options{
		Days:      e.cmd.Int("days"),
		StartDate: e.cmd.String("start-date"),
		EndDate:   e.cmd.String("end-date"),
	}
}

func (a *App) auditCommand() *cli.Command {
	listFlags := append(rangeFlags(),
		limitFlag(100),
		&cli.StringFlag{Name: "after", Usage: "fetch the single page after this entry id"},
		&cli.StringFlag{Name: "before", Usage: "fetch the single page before this entry id"},
		&cli.StringSliceFlag{Name: "project-id", Usage: "filter by project (repeatable)"},
		&cli.StringSliceFlag{Name: "event-type", Usage: "filter by event type (repeatable)"},
		&cli.StringSliceFlag{Name: "actor-id", Usage: "filter by actor id (repeatable)"},
		&cli.StringSliceFlag{Name: "actor-email", Usage: "filter by actor email (repeatable)"},
		&cli.StringSliceFlag{Name: "resource-id", Usage: "filter by resource id (repeatable)"},
	)
	return &cli.Command{
		Name:  "audit",
		Usage: "Read the organization audit log",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List audit log entries, newest first",
				Flags: listFlags,
				Action: a.action(func(ctx context.Context, e *env) error {
					window, err := timerange.ResolveOptional(e.Clock.Now(), e.rangeOptions())
					if err != nil {
						return err
					}
					req := auditdomain.ListRequest{
						Limit:       e.cmd.Int("limit"),
						After:       strings.TrimSpace(e.cmd.String("after")),
						Before:      strings.TrimSpace(e.cmd.String("before")),
						ProjectIDs:  e.cmd.StringSlice("project-id"),
						EventTypes:  e.cmd.StringSlice("event-type"),
						ActorIDs:    e.cmd.StringSlice("actor-id"),
						ActorEmails: e.cmd.StringSlice("actor-email"),
						ResourceIDs: e.cmd.StringSlice("resource-id"),
					}
					if window != nil {
						req.EffectiveAtGte = window.StartUnix()
						req.EffectiveAtLt = window.EndUnix()
					}
					res, err := e.Audit.List(ctx, req)
					if err != nil {
						return err
					}
					if e.json() {
						return e.printer.Print(res.Entries)
					}
					summaries := make([]auditdomain.Summary, 0, len(res.Entries))
					for _, entry := range res.Entries {
						summaries = append(summaries, entry.Summary())
					}
					if err := e.printer.Print(summaries, auditColumns...); err != nil {
						return err
					}
					if res.HasMore {
						e.printf("More entries available: --after %s\n", res.LastID)
					}
					return nil
				}),
			},
			{
				Name:  "event-types",
				Usage: "Show the common event types accepted by --event-type",
				Action: a.action(func(_ context.Context, e *env) error {
					if e.json() {
						return e.printer.Print(auditdomain.EventTypes)
					}
					for _, category := range auditdomain.EventTypes {
						e.printf("%s:\n", category.Name)
						for _, t := range category.Types {
							e.printf("  %s\n", t)
						}
					}
					return nil
				}),
			},
		},
	}
}

func (a *App) usageCommand() *cli.Command {
	commands := make([]*cli.Command, 0, len(usagedomain.Categories))
	for _, category := range usagedomain.Categories {
		commands = append(commands, a.usageCategoryCommand(category))
	}
	return &cli.Command{
		Name:     "usage",
		Usage:    "Report usage buckets per category",
		Commands: commands,
	}
}

func (a *App) usageCategoryCommand(category usagedomain.Category) *cli.Command {
	flags := append(rangeFlags(),
		&cli.StringFlag{Name: "bucket-width", Usage: "1m, 1h or 1d", Value: usagedomain.BucketWidthDay},
		&cli.StringSliceFlag{Name: "group-by", Usage: "one of " + strings.Join(usagedomain.GroupBy[category], ", ") + " (repeatable)"},
		&cli.StringSliceFlag{Name: "project-id", Usage: "filter by project (repeatable)"},
		&cli.StringSliceFlag{Name: "user-id", Usage: "filter by user (repeatable)"},
		&cli.StringSliceFlag{Name: "api-key-id", Usage: "filter by API key (repeatable)"},
		&cli.StringSliceFlag{Name: "model", Usage: "filter by model (repeatable)"},
		&cli.IntFlag{Name: "limit", Usage: "buckets per page"},
		&cli.IntFlag{Name: "max-pages", Usage: "stop after N pages, 0 for all"},
	)
	return &cli.Command{
		Name:  strings.ReplaceAll(string(category), "_", "-"),
		Usage: "Usage of " + strings.ReplaceAll(string(category), "_", " "),
		Flags: flags,
		Action: a.action(func(ctx context.Context, e *env) error {
			window, err := timerange.Resolve(e.Clock.Now(), e.rangeOptions())
			if err != nil {
				return err
			}
			buckets, err := e.Usage.Usage(ctx, usagedomain.UsageRequest{
				Category:    category,
				StartTime:   window.StartUnix(),
				EndTime:     window.EndUnix(),
				BucketWidth: e.cmd.String("bucket-width"),
				GroupBy:     e.cmd.StringSlice("group-by"),
				ProjectIDs:  e.cmd.StringSlice("project-id"),
				UserIDs:     e.cmd.StringSlice("user-id"),
				APIKeyIDs:   e.cmd.StringSlice("api-key-id"),
				Models:      e.cmd.StringSlice("model"),
				Limit:       e.cmd.Int("limit"),
				MaxPages:    e.cmd.Int("max-pages"),
			})
			if err != nil {
				return err
			}
			if e.json() {
				return e.printer.Print(buckets)
			}
			return e.printUsage(window, buckets)
		}),
	}
}

// usageRow is one usage result with its bucket window.
type usageRow struct {
	StartTime int64 `json:"start_time"`
	EndTime   int64 `json:"end_time"`
	usagedomain.Result
}

func (e *env) printUsage(window timerange.Range, buckets []usagedomain.Bucket) error {
	e.printf("Period: %s\n", window)
	rows := []usageRow{}
	for _, b := range buckets {
		for _, r := range b.Results {
			rows = append(rows, usageRow{StartTime: b.StartTime, EndTime: b.EndTime, Result: r})
		}
	}
	columns, err := visibleColumns(rows)
	if err != nil {
		return err
	}
	if err := e.printer.Print(rows, columns...); err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	total := usagedomain.Totals(buckets)
	totalColumns, err := visibleColumns(total)
	if err != nil {
		return err
	}
	e.println()
	e.println("Totals:")
	return e.printer.Print(total, totalColumns...)
}

// visibleColumns lists the populated columns of v except the object tag.
func visibleColumns(v any) ([]string, error) {
	rows, err := format.Rows(v)
	if err != nil {
		return nil, err
	}
	columns := format.Columns(rows)
	return slices.DeleteFunc(columns, func(c string) bool { return c == "object" }), nil
}

// costRow flattens one cost result for the table.
type costRow struct {
	StartTime int64  `json:"start_time"`
	EndTime   int64  `json:"end_time"`
	Amount    string `json:"amount"`
	Currency  string `json:"currency"`
	LineItem  string `json:"line_item,omitempty"`
	ProjectID string `json:"project_id,omitempty"`
}

func (a *App) costsCommand() *cli.Command {
	flags := append(rangeFlags(),
		&cli.StringSliceFlag{Name: "group-by", Usage: "project_id or line_item (repeatable)"},
		&cli.StringSliceFlag{Name: "project-id", Usage: "filter by project (repeatable)"},
		&cli.IntFlag{Name: "limit", Usage: "buckets per page"},
		&cli.IntFlag{Name: "max-pages", Usage: "stop after N pages, 0 for all"},
	)
	return &cli.Command{
		Name:  "costs",
		Usage: "Report daily spend",
		Flags: flags,
		Action: a.action(func(ctx context.Context, e *env) error {
			window, err := timerange.Resolve(e.Clock.Now(), e.rangeOptions())
			if err != nil {
				return err
			}
			buckets, err := e.Usage.Costs(ctx, usagedomain.CostsRequest{
				StartTime:  window.StartUnix(),
				EndTime:    window.EndUnix(),
				GroupBy:    e.cmd.StringSlice("group-by"),
				ProjectIDs: e.cmd.StringSlice("project-id"),
				Limit:      e.cmd.Int("limit"),
				MaxPages:   e.cmd.Int("max-pages"),
			})
			if err != nil {
				return err
			}
			if e.json() {
				return e.printer.Print(buckets)
			}
			return e.printCosts(window, buckets)
		}),
	}
}

func (e *env) printCosts(window timerange.Range, buckets []usagedomain.CostBucket) error {
	e.printf("Period: %s\n", window)
	rows := []costRow{}
	for _, b := range buckets {
		for _, r := range b.Results {
			row := costRow{
				StartTime: b.StartTime,
				EndTime:   b.EndTime,
				Amount:    format.FormatMoney(r.Amount.Value),
				Currency:  strings.ToUpper(r.Amount.Currency),
			}
			if r.LineItem != nil {
				row.LineItem = *r.LineItem
			}
			if r.ProjectID != nil {
				row.ProjectID = *r.ProjectID
			}
			rows = append(rows, row)
		}
	}
	columns, err := visibleColumns(rows)
	if err != nil {
		return err
	}
	if err := e.printer.Print(rows, columns...); err != nil {
		return err
	}

	totals := usagedomain.CostTotals(buckets)
	currencies := make([]string, 0, len(totals))
	for c := range totals {
		currencies = append(currencies, c)
	}
	sort.Strings(currencies)
	for _, c := range currencies {
		e.printf("Total (%s): %s\n", strings.ToUpper(c), format.FormatMoney(totals[c]))
	}
	return nil
}
