package domain

const (
	OwnerTypeUser           = "user"
	OwnerTypeServiceAccount = "service_account"
)

// APIKey is a project-scoped key. Only the redacted value is ever readable.
type APIKey struct {
	Object        string   `json:"object"`
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	RedactedValue string   `json:"redacted_value"`
	CreatedAt     int64    `json:"created_at"`
	LastUsedAt    *int64   `json:"last_used_at"`
	Owner         KeyOwner `json:"owner"`
}

type KeyOwner struct {
	Type           string    `json:"type"`
	User           *OwnerRef `json:"user,omitempty"`
	ServiceAccount *OwnerRef `json:"service_account,omitempty"`
}

type OwnerRef struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role"`
	CreatedAt int64  `json:"created_at,omitempty"`
}

// OwnedByServiceAccount reports whether the key can only be removed with
// its service account.
func (k APIKey) OwnedByServiceAccount() bool {
	return k.Owner.Type == OwnerTypeServiceAccount
}

// OwnerName returns the display name of whoever owns the key.
func (k APIKey) OwnerName() string {
	switch {
	case k.Owner.User != nil:
		return k.Owner.User.Name
	case k.Owner.ServiceAccount != nil:
		return k.Owner.ServiceAccount.Name
	}
	return ""
}
