package cli

import (
	"context"
	"strings"

	"github.com/smallbiznis/orgadmin/internal/apierr"
	notifydomain "github.com/smallbiznis/orgadmin/internal/notify/domain"
	"github.com/urfave/cli/v3"
)

var (
	recipientColumns = []string{"id", "name", "email", "mattermost_user_id", "mattermost_channel_id"}
	channelColumns   = []string{"channel", "configured", "detail"}
	deliveryColumns  = []string{"id", "channel", "user_id", "status", "error"}
)

func (a *App) notifyCommand() *cli.Command {
	return &cli.Command{
		Name:  "notify",
		Usage: "Check and test command notifications",
		Commands: []*cli.Command{
			{
				Name:      "test",
				Usage:     "Send a test notification to a mapped user",
				ArgsUsage: "USER_ID",
				Action: a.action(func(ctx context.Context, e *env) error {
					userID, err := e.arg(0, "USER_ID")
					if err != nil {
						return err
					}
					channel, ok := notifydomain.ParseChannel(e.cmd.String("channel"))
					if !ok {
						return apierr.Validationf("channel", "unsupported channel %q", e.cmd.String("channel"))
					}
					delivery, err := e.Notifier.Send(ctx, userID, channel, notifydomain.Message{
						Command: commandLine(e.cmd),
						Output:  "This is a test notification from orgadmin.",
						Success: true,
						At:      e.Clock.Now(),
					})
					if err != nil {
						return err
					}
					if e.json() {
						return e.printer.Print(delivery)
					}
					e.printf("Test notification sent to %s via %s.\n", userID, channel)
					return e.printer.Print(delivery, deliveryColumns...)
				}),
			},
			{
				Name:  "list-users",
				Usage: "List the users of the notification mapping",
				Action: a.action(func(_ context.Context, e *env) error {
					recipients, err := e.Notifier.Recipients()
					if err != nil {
						return err
					}
					return e.printer.Print(recipients, recipientColumns...)
				}),
			},
			{
				Name:  "status",
				Usage: "Show which notification channels are configured",
				Action: a.action(func(_ context.Context, e *env) error {
					statuses := e.Notifier.Channels()
					if err := e.printer.Print(statuses, channelColumns...); err != nil {
						return err
					}
					if !e.json() {
						e.printf("Default channel: %s\n", strings.ToLower(string(notifydomain.Channels[0])))
					}
					return nil
				}),
			},
		},
	}
}
