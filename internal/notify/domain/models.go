package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Channel string

const (
	ChannelMattermost Channel = "mattermost"
	ChannelEmail      Channel = "email"
)

// Channels lists the supported channels; the first is the default.
var Channels = []Channel{ChannelMattermost, ChannelEmail}

// ParseChannel maps a flag value to a Channel; empty selects the default.
func ParseChannel(raw string) (Channel, bool) {
	switch Channel(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ChannelMattermost:
		return ChannelMattermost, true
	case ChannelEmail:
		return ChannelEmail, true
	}
	return "", false
}

type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusSent || s == StatusFailed
}

// Message is the captured result of one command run.
type Message struct {
	Command string
	Output  string
	Success bool
	At      time.Time
}

const timestampLayout = "2006-01-02 15:04:05 MST"

func (m Message) StatusText() string {
	if m.Success {
		return "Success"
	}
	return "Failed"
}

func (m Message) Indicator() string {
	if m.Success {
		return "✅"
	}
	return "❌"
}

func (m Message) Subject() string {
	return "orgadmin - " + m.StatusText()
}

func (m Message) Timestamp() string {
	return m.At.UTC().Format(timestampLayout)
}

// Markdown renders the chat form of the message.
func (m Message) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s **%s**\n\n", m.Indicator(), m.Subject())
	fmt.Fprintf(&b, "**Command:** `%s`\n", m.Command)
	fmt.Fprintf(&b, "**Time:** %s\n\n", m.Timestamp())
	fmt.Fprintf(&b, "**Output:**\n```\n%s\n```", strings.TrimRight(m.Output, "\n"))
	return b.String()
}

// TemplateData feeds the email template.
func (m Message) TemplateData() map[string]any {
	return map[string]any{
		"subject":   m.Subject(),
		"Success":   m.Success,
		"Command":   m.Command,
		"Timestamp": m.Timestamp(),
		"Output":    m.Output,
	}
}

// Delivery tracks one notification attempt. It moves from pending to
// sent or failed exactly once.
type Delivery struct {
	ID          snowflake.ID `json:"id"`
	Channel     Channel      `json:"channel"`
	UserID      string       `json:"user_id"`
	Status      Status       `json:"status"`
	Error       string       `json:"error,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
}

// Complete records the outcome. Calls after the first are ignored.
func (d *Delivery) Complete(at time.Time, err error) {
	if d.Status.Terminal() {
		return
	}
	d.CompletedAt = &at
	if err != nil {
		d.Status = StatusFailed
		d.Error = err.Error()
		return
	}
	d.Status = StatusSent
}

// Recipient is one entry of the user mapping.
type Recipient struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	Email               string `json:"email"`
	MattermostUserID    string `json:"mattermost_user_id"`
	MattermostChannelID string `json:"mattermost_channel_id"`
}

// ChannelStatus describes whether a channel can deliver.
type ChannelStatus struct {
	Channel    Channel `json:"channel"`
	Configured bool    `json:"configured"`
	Detail     string  `json:"detail"`
}
