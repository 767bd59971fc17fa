package cli

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/smallbiznis/orgadmin/internal/apierr"
	"github.com/smallbiznis/orgadmin/internal/config"
	"github.com/smallbiznis/orgadmin/internal/format"
	notifydomain "github.com/smallbiznis/orgadmin/internal/notify/domain"
	"github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const stopTimeout = 10 * time.Second

// env is what a command action runs against.
type env struct {
	Container

	cmd     *cli.Command
	in      *bufio.Reader
	out     io.Writer
	errOut  io.Writer
	printer format.Printer
}

type actionFunc func(ctx context.Context, e *env) error

// action adapts fn into a command action: it builds the application,
// captures output for --notify, records the outcome and stops the
// application again.
func (a *App) action(fn actionFunc) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		f, err := format.ParseFormat(cmd.String("format"))
		if err != nil {
			return err
		}
		notifyUser := strings.TrimSpace(cmd.String("notify"))
		channel, ok := notifydomain.ParseChannel(cmd.String("channel"))
		if !ok {
			return apierr.Validationf("channel", "unsupported channel %q (use mattermost or email)", cmd.String("channel"))
		}

		var c Container
		options := []fx.Option{
			fx.NopLogger,
			fx.Supply(config.Overrides{
				AdminKey:        cmd.String("admin-key"),
				BaseURL:         cmd.String("base-url"),
				UserMappingPath: cmd.String("user-mapping"),
				Debug:           cmd.Bool("debug"),
			}),
		}
		options = append(options, modules()...)
		options = append(options, a.modules...)
		options = append(options, fx.Invoke(func(in Container) { c = in }))

		app := fx.New(options...)
		if err := app.Err(); err != nil {
			return fmt.Errorf("initialize: %w", err)
		}
		if err := app.Start(ctx); err != nil {
			return fmt.Errorf("start: %w", err)
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
			defer cancel()
			_ = app.Stop(stopCtx)
		}()

		var captured bytes.Buffer
		out := a.out
		if notifyUser != "" {
			out = io.MultiWriter(a.out, &captured)
		}
		e := &env{
			Container: c,
			cmd:       cmd,
			in:        bufio.NewReader(a.in),
			out:       out,
			errOut:    a.errOut,
			printer:   format.Printer{Out: out, Format: f, Compact: cmd.Bool("compact")},
		}

		name := commandPath(cmd)
		started := c.Clock.Now()
		runErr := e.run(ctx, name, fn)

		c.Metrics.RecordCommand(name, runErr)
		fields := []zap.Field{zap.String("command", name), zap.Duration("duration", time.Since(started))}
		if runErr != nil {
			c.Log.Error("command failed", append(fields, zap.Error(runErr))...)
		} else {
			c.Log.Info("command finished", fields...)
		}

		if notifyUser != "" {
			e.forward(ctx, notifyUser, channel, commandLine(cmd), captured.String(), runErr)
		}
		return runErr
	}
}

func (e *env) run(ctx context.Context, name string, fn actionFunc) error {
	if e.TracerProvider == nil {
		return fn(ctx, e)
	}
	ctx, span := e.TracerProvider.Tracer("orgadmin/cli").Start(ctx, name)
	defer span.End()
	span.SetAttributes(attribute.String("orgadmin.command", name))

	err := fn(ctx, e)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// forward mirrors the command result to a mapped user. It only reports
// problems; the command's own outcome is left untouched.
func (e *env) forward(ctx context.Context, userID string, channel notifydomain.Channel, command, output string, runErr error) {
	if runErr != nil {
		output = strings.TrimRight(output, "\n")
		if output != "" {
			output += "\n"
		}
		output += "Error: " + runErr.Error()
	}
	msg := notifydomain.Message{
		Command: command,
		Output:  output,
		Success: runErr == nil,
		At:      e.Clock.Now(),
	}
	if _, err := e.Notifier.Send(ctx, userID, channel, msg); err != nil {
		fmt.Fprintf(e.errOut, "Warning: notification to %s failed: %v\n", userID, err)
		return
	}
	fmt.Fprintf(e.errOut, "Notification sent to %s via %s.\n", userID, channel)
}

// confirm asks before a destructive step. --force answers yes.
func (e *env) confirm(prompt string) (bool, error) {
	if e.cmd.Bool("force") {
		return true, nil
	}
	fmt.Fprintf(e.errOut, "%s [y/N]: ", prompt)
	line, err := e.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("read confirmation: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

func (e *env) aborted() error {
	_, err := fmt.Fprintln(e.out, "Aborted.")
	return err
}

func (e *env) println(a ...any) {
	fmt.Fprintln(e.out, a...)
}

func (e *env) printf(layout string, a ...any) {
	fmt.Fprintf(e.out, layout, a...)
}

func (e *env) json() bool {
	return e.printer.Format == format.JSON
}

// arg returns the i-th positional argument or a validation error naming it.
func (e *env) arg(i int, name string) (string, error) {
	v := strings.TrimSpace(e.cmd.Args().Get(i))
	if v == "" {
		return "", apierr.Validationf(strings.ToLower(name), "%s is required", name)
	}
	return v, nil
}

// commandPath is the command name without the root, e.g. "projects list".
func commandPath(cmd *cli.Command) string {
	lineage := cmd.Lineage()
	names := make([]string, 0, len(lineage))
	for _, c := range lineage {
		if c.Root() == c {
			continue
		}
		names = append(names, c.Name)
	}
	slices.Reverse(names)
	return strings.Join(names, " ")
}

// commandLine reconstructs the invocation for notifications: the command
// path, the command's own flags that were set, then positional arguments.
// Root flags are left out so the admin key never leaves the process.
func commandLine(cmd *cli.Command) string {
	parts := []string{"orgadmin", commandPath(cmd)}
	for _, f := range cmd.Flags {
		name := f.Names()[0]
		if !f.IsSet() || name == "help" {
			continue
		}
		switch v := cmd.Value(name).(type) {
		case bool:
			if v {
				parts = append(parts, "--"+name)
			}
		case []string:
			for _, item := range v {
				parts = append(parts, "--"+name, item)
			}
		default:
			parts = append(parts, "--"+name, fmt.Sprint(v))
		}
	}
	parts = append(parts, cmd.Args().Slice()...)
	return strings.Join(parts, " ")
}

func forceFlag() *cli.BoolFlag {
	return &cli.BoolFlag{Name: "force", Usage: "skip the confirmation prompt"}
}

func dryRunFlag() *cli.BoolFlag {
	return &cli.BoolFlag{Name: "dry-run", Usage: "show what would change without changing it"}
}

func limitFlag(def int) *cli.IntFlag {
	return &cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Usage: "maximum number of records, 0 for all", Value: def}
}
