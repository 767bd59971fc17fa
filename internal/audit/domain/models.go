package domain

import (
	"encoding/json"
	"fmt"
)

const (
	ActorTypeSession = "session"
	ActorTypeAPIKey  = "api_key"
)

// Entry is one immutable audit log event. The event-specific payload is
// kept undecoded in Details.
type Entry struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	EffectiveAt int64           `json:"effective_at"`
	Project     *ProjectRef     `json:"project,omitempty"`
	Actor       Actor           `json:"actor"`
	Details     json.RawMessage `json:"details,omitempty"`
}

type ProjectRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Actor struct {
	Type    string        `json:"type"`
	Session *ActorSession `json:"session,omitempty"`
	APIKey  *ActorAPIKey  `json:"api_key,omitempty"`
}

type ActorSession struct {
	User      ActorUser `json:"user"`
	IPAddress string    `json:"ip_address"`
	UserAgent string    `json:"user_agent,omitempty"`
}

type ActorAPIKey struct {
	ID             string     `json:"id"`
	Type           string     `json:"type"`
	User           *ActorUser `json:"user,omitempty"`
	ServiceAccount *struct {
		ID string `json:"id"`
	} `json:"service_account,omitempty"`
}

type ActorUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// UnmarshalJSON lifts the payload stored under the event's own type key.
func (e *Entry) UnmarshalJSON(data []byte) error {
	type plain Entry
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*e = Entry(decoded)
	if payload, ok := fields[e.Type]; ok && e.Type != "" {
		e.Details = payload
	}
	return nil
}

// ActorSummary names who performed the event, for one-line display.
func (e Entry) ActorSummary() string {
	switch e.Actor.Type {
	case ActorTypeSession:
		if e.Actor.Session != nil && e.Actor.Session.User.Email != "" {
			return e.Actor.Session.User.Email
		}
	case ActorTypeAPIKey:
		key := e.Actor.APIKey
		if key == nil {
			break
		}
		if key.User != nil && key.User.Email != "" {
			return key.User.Email
		}
		if key.ServiceAccount != nil {
			return fmt.Sprintf("SA: %s", key.ServiceAccount.ID)
		}
	}
	return "N/A"
}

// ProjectName returns the project name or "N/A".
func (e Entry) ProjectName() string {
	if e.Project == nil || e.Project.Name == "" {
		return "N/A"
	}
	return e.Project.Name
}

// Summary is the flattened row used for table output.
type Summary struct {
	ID          string `json:"id"`
	EffectiveAt int64  `json:"effective_at"`
	Type        string `json:"type"`
	ActorType   string `json:"actor_type"`
	Actor       string `json:"actor"`
	Project     string `json:"project"`
}

func (e Entry) Summary() Summary {
	return Summary{
		ID:          e.ID,
		EffectiveAt: e.EffectiveAt,
		Type:        e.Type,
		ActorType:   e.Actor.Type,
		Actor:       e.ActorSummary(),
		Project:     e.ProjectName(),
	}
}

// EventCategory groups related event types for the catalog.
type EventCategory struct {
	Name  string   `json:"name"`
	Types []string `json:"types"`
}

// EventTypes is the catalog of common event types accepted by the
// event type filter.
var EventTypes = []EventCategory{
	{Name: "API Keys", Types: []string{"api_key.created", "api_key.updated", "api_key.deleted"}},
	{Name: "Users", Types: []string{"user.added", "user.updated", "user.deleted"}},
	{Name: "Projects", Types: []string{"project.created", "project.updated", "project.archived", "project.deleted"}},
	{Name: "Invites", Types: []string{"invite.sent", "invite.accepted", "invite.deleted"}},
	{Name: "Service Accounts", Types: []string{"service_account.created", "service_account.updated", "service_account.deleted"}},
	{Name: "Rate Limits", Types: []string{"rate_limit.updated", "rate_limit.deleted"}},
	{Name: "Authentication", Types: []string{"login.succeeded", "login.failed", "logout.succeeded", "logout.failed"}},
	{Name: "Organization", Types: []string{"organization.updated"}},
}
