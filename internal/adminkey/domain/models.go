package domain

// Owner is the principal an admin API key belongs to.
type Owner struct {
	Type      string `json:"type"`
	Object    string `json:"object,omitempty"`
	ID        string `json:"id"`
	Name      string `json:"name"`
	Role      string `json:"role,omitempty"`
	CreatedAt int64  `json:"created_at,omitempty"`
}

// AdminAPIKey is an organization-scoped administrative credential. Value
// is only populated in the creation response.
type AdminAPIKey struct {
	Object        string `json:"object"`
	ID            string `json:"id"`
	Name          string `json:"name"`
	RedactedValue string `json:"redacted_value"`
	Value         string `json:"value,omitempty"`
	CreatedAt     int64  `json:"created_at"`
	LastUsedAt    *int64 `json:"last_used_at"`
	Owner         Owner  `json:"owner"`
}
