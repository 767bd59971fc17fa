package mattermost

import (
	"github.com/smallbiznis/orgadmin/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("providers.mattermost",
	fx.Provide(NewFromConfig),
)

// NewFromConfig returns a no-op provider when no bot token is set; the
// notifier reports that channel as unconfigured.
func NewFromConfig(cfg config.Config) Provider {
	if !cfg.Mattermost.Configured() {
		return &NoOpProvider{}
	}
	return NewHTTP(Config{
		BaseURL:  cfg.Mattermost.BaseURL,
		BotToken: cfg.Mattermost.BotToken,
		BotID:    cfg.Mattermost.BotID,
	})
}
