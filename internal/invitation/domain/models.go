package domain

const (
	StatusPending  = "pending"
	StatusAccepted = "accepted"
	StatusExpired  = "expired"
)

// ProjectGrant gives an invitee a role in a project on acceptance.
type ProjectGrant struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}

// Invite is an invitation to join the organization.
type Invite struct {
	Object     string         `json:"object"`
	ID         string         `json:"id"`
	Email      string         `json:"email"`
	Role       string         `json:"role"`
	Status     string         `json:"status"`
	InvitedAt  int64          `json:"invited_at"`
	ExpiresAt  int64          `json:"expires_at"`
	AcceptedAt *int64         `json:"accepted_at"`
	Projects   []ProjectGrant `json:"projects,omitempty"`
}
