// Package cli is the orgadmin command tree. Every command builds its own
// fx application, runs one operation and tears the application down.
package cli

import (
	"io"
	"os"

	"github.com/urfave/cli/v3"
	"go.uber.org/fx"
)

// Options wires the command tree to its environment. Zero values fall
// back to the process streams.
type Options struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	// Modules are appended to every command's fx application, after the
	// default modules, so they can decorate or replace dependencies.
	Modules []fx.Option
}

type App struct {
	in      io.Reader
	out     io.Writer
	errOut  io.Writer
	modules []fx.Option
}

// New returns the root command.
func New(opts Options) *cli.Command {
	a := &App{in: opts.Stdin, out: opts.Stdout, errOut: opts.Stderr, modules: opts.Modules}
	if a.in == nil {
		a.in = os.Stdin
	}
	if a.out == nil {
		a.out = os.Stdout
	}
	if a.errOut == nil {
		a.errOut = os.Stderr
	}
	return a.root()
}

func (a *App) root() *cli.Command {
	return &cli.Command{
		Name:            "orgadmin",
		Usage:           "Administer an organization: users, projects, keys, usage and costs",
		Reader:          a.in,
		Writer:          a.out,
		ErrWriter:       a.errOut,
		HideHelpCommand: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "admin-key",
				Usage:   "admin API key",
				Sources: cli.EnvVars("OPENAI_ADMIN_KEY"),
			},
			&cli.StringFlag{
				Name:  "base-url",
				Usage: "organization API base URL",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "output format: table or json",
				Value:   "table",
			},
			&cli.BoolFlag{
				Name:  "compact",
				Usage: "print JSON on a single line",
			},
			&cli.StringFlag{
				Name:  "notify",
				Usage: "send the command output to this mapped user id",
			},
			&cli.StringFlag{
				Name:  "channel",
				Usage: "notification channel: mattermost or email",
				Value: "mattermost",
			},
			&cli.StringFlag{
				Name:  "user-mapping",
				Usage: "notification user mapping file",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "log to stderr at debug level",
			},
		},
		Commands: []*cli.Command{
			a.adminKeysCommand(),
			a.invitesCommand(),
			a.usersCommand(),
			a.projectsCommand(),
			a.projectUsersCommand(),
			a.serviceAccountsCommand(),
			a.keysCommand(),
			a.rateLimitsCommand(),
			a.auditCommand(),
			a.usageCommand(),
			a.costsCommand(),
			a.certificatesCommand(),
			a.notifyCommand(),
			a.rotationCommand(),
		},
	}
}
