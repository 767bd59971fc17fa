package mattermost

import "context"

// Provider posts chat messages as the configured bot.
type Provider interface {
	PostMessage(ctx context.Context, channelID string, message string) error
	// DirectChannel opens (or returns the existing) direct channel between
	// the bot and userID.
	DirectChannel(ctx context.Context, userID string) (string, error)
}

type NoOpProvider struct{}

func (p *NoOpProvider) PostMessage(ctx context.Context, channelID string, message string) error {
	return nil
}

func (p *NoOpProvider) DirectChannel(ctx context.Context, userID string) (string, error) {
	return "", nil
}
