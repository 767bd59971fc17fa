package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/orgadmin/internal/apierr"
	"github.com/smallbiznis/orgadmin/internal/clock"
	"github.com/smallbiznis/orgadmin/internal/config"
	notifydomain "github.com/smallbiznis/orgadmin/internal/notify/domain"
	"github.com/smallbiznis/orgadmin/internal/observability/metrics"
	"github.com/smallbiznis/orgadmin/internal/providers/email"
	"github.com/smallbiznis/orgadmin/internal/providers/mattermost"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Config     config.Config
	Log        *zap.Logger
	Clock      clock.Clock
	GenID      *snowflake.Node
	Mattermost mattermost.Provider
	Email      email.Provider
	Metrics    *metrics.Metrics `optional:"true"`
}

type Dispatcher struct {
	cfg        config.Config
	log        *zap.Logger
	clock      clock.Clock
	genID      *snowflake.Node
	mattermost mattermost.Provider
	email      email.Provider
	metrics    *metrics.Metrics

	once    sync.Once
	mapping config.UserMapping
	loadErr error
}

func New(p Params) notifydomain.Service {
	return &Dispatcher{
		cfg:        p.Config,
		log:        p.Log.Named("notify.service"),
		clock:      p.Clock,
		genID:      p.GenID,
		mattermost: p.Mattermost,
		email:      p.Email,
		metrics:    p.Metrics,
	}
}

// userMapping loads the mapping file on first use so commands that never
// notify do not depend on it.
func (d *Dispatcher) userMapping() (config.UserMapping, error) {
	d.once.Do(func() {
		d.mapping, d.loadErr = config.LoadUserMapping(d.cfg.UserMappingPath)
	})
	return d.mapping, d.loadErr
}

func (d *Dispatcher) Send(ctx context.Context, userID string, channel notifydomain.Channel, msg notifydomain.Message) (*notifydomain.Delivery, error) {
	if err := d.checkChannel(channel); err != nil {
		return nil, err
	}
	mapping, err := d.userMapping()
	if err != nil {
		return nil, err
	}
	user, ok := mapping.Lookup(userID)
	if !ok {
		return nil, apierr.Configuration("user_mapping", "user %q is not in %s", userID, d.cfg.UserMappingPath)
	}
	if err := checkRoute(channel, userID, user); err != nil {
		return nil, err
	}

	if msg.At.IsZero() {
		msg.At = d.clock.Now()
	}
	delivery := &notifydomain.Delivery{
		ID:        d.genID.Generate(),
		Channel:   channel,
		UserID:    userID,
		Status:    notifydomain.StatusPending,
		CreatedAt: d.clock.Now(),
	}

	sendErr := d.deliver(ctx, channel, user, msg)
	delivery.Complete(d.clock.Now(), sendErr)
	d.metrics.RecordNotification(string(channel), string(delivery.Status))

	fields := []zap.Field{
		zap.String("delivery_id", delivery.ID.String()),
		zap.String("channel", string(channel)),
		zap.String("user_id", userID),
		zap.String("command", msg.Command),
	}
	if sendErr != nil {
		d.log.Warn("notification failed", append(fields, zap.Error(sendErr))...)
		return delivery, fmt.Errorf("%w: %w", notifydomain.ErrDeliveryFailed, sendErr)
	}
	d.log.Info("notification sent", fields...)
	return delivery, nil
}

func (d *Dispatcher) deliver(ctx context.Context, channel notifydomain.Channel, user config.NotifyUser, msg notifydomain.Message) error {
	switch channel {
	case notifydomain.ChannelEmail:
		return d.email.SendTemplate(ctx, []string{user.Email}, "notification", msg.TemplateData())
	default:
		channelID := user.MattermostChannelID
		if channelID == "" {
			direct, err := d.mattermost.DirectChannel(ctx, user.MattermostUserID)
			if err != nil {
				return err
			}
			channelID = direct
		}
		return d.mattermost.PostMessage(ctx, channelID, msg.Markdown())
	}
}

func (d *Dispatcher) checkChannel(channel notifydomain.Channel) error {
	switch channel {
	case notifydomain.ChannelMattermost:
		if !d.cfg.Mattermost.Configured() {
			return apierr.Configuration("MATTERMOST_BOT_TOKEN", "mattermost channel is not configured")
		}
	case notifydomain.ChannelEmail:
		if !d.cfg.Mail.Configured() {
			return apierr.Configuration("MAIL_HOST", "email channel is not configured; set MAIL_HOST and MAIL_FROM_ADDRESS")
		}
	default:
		return apierr.Configuration("channel", "unknown notification channel %q", channel)
	}
	return nil
}

func checkRoute(channel notifydomain.Channel, userID string, user config.NotifyUser) error {
	switch channel {
	case notifydomain.ChannelEmail:
		if strings.TrimSpace(user.Email) == "" {
			return apierr.Configuration("user_mapping", "user %q has no email address", userID)
		}
	case notifydomain.ChannelMattermost:
		if user.MattermostChannelID == "" && user.MattermostUserID == "" {
			return apierr.Configuration("user_mapping", "user %q has no mattermost channel or user id", userID)
		}
	}
	return nil
}

func (d *Dispatcher) Recipients() ([]notifydomain.Recipient, error) {
	mapping, err := d.userMapping()
	if err != nil {
		return nil, err
	}
	out := make([]notifydomain.Recipient, 0, len(mapping.Users))
	for id, u := range mapping.Users {
		out = append(out, notifydomain.Recipient{
			ID:                  id,
			Name:                u.Name,
			Email:               u.Email,
			MattermostUserID:    u.MattermostUserID,
			MattermostChannelID: u.MattermostChannelID,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (d *Dispatcher) Channels() []notifydomain.ChannelStatus {
	mm := notifydomain.ChannelStatus{Channel: notifydomain.ChannelMattermost, Configured: d.cfg.Mattermost.Configured()}
	if mm.Configured {
		mm.Detail = d.cfg.Mattermost.BaseURL
		if d.cfg.Mattermost.BotID == "" {
			mm.Detail += " (no bot id: direct channels unavailable)"
		}
	} else {
		mm.Detail = "set MATTERMOST_BOT_TOKEN"
	}

	mail := notifydomain.ChannelStatus{Channel: notifydomain.ChannelEmail, Configured: d.cfg.Mail.Configured()}
	if mail.Configured {
		mail.Detail = fmt.Sprintf("%s:%d from %s", d.cfg.Mail.Host, d.cfg.Mail.Port, d.cfg.Mail.From)
	} else {
		mail.Detail = "set MAIL_HOST and MAIL_FROM_ADDRESS"
	}
	return []notifydomain.ChannelStatus{mm, mail}
}
