package mattermost

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var ErrNoBotID = errors.New("mattermost: bot id is required for direct channels")

type Config struct {
	BaseURL  string
	BotToken string
	BotID    string
	Timeout  time.Duration
}

// HTTPProvider talks to the Mattermost REST API v4.
type HTTPProvider struct {
	cfg  Config
	http *http.Client
}

func NewHTTP(cfg Config) *HTTPProvider {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &HTTPProvider{cfg: cfg, http: &http.Client{Timeout: timeout}}
}

func (p *HTTPProvider) PostMessage(ctx context.Context, channelID string, message string) error {
	body := map[string]string{"channel_id": channelID, "message": message}
	return p.post(ctx, "/posts", body, nil)
}

func (p *HTTPProvider) DirectChannel(ctx context.Context, userID string) (string, error) {
	if strings.TrimSpace(p.cfg.BotID) == "" {
		return "", ErrNoBotID
	}
	var channel struct {
		ID string `json:"id"`
	}
	if err := p.post(ctx, "/channels/direct", []string{p.cfg.BotID, userID}, &channel); err != nil {
		return "", err
	}
	if channel.ID == "" {
		return "", errors.New("mattermost: direct channel response without id")
	}
	return channel.ID, nil
}

func (p *HTTPProvider) post(ctx context.Context, path string, payload any, out any) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("mattermost: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("mattermost: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.cfg.BotToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		return fmt.Errorf("mattermost: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		var apiErr struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(raw, &apiErr)
		if apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
		return fmt.Errorf("mattermost: %s %s: %d %s", http.MethodPost, path, resp.StatusCode, apiErr.Message)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("mattermost: decode response: %w", err)
	}
	return nil
}
