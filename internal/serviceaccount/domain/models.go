package domain

// ServiceAccount is a non-human project identity.
type ServiceAccount struct {
	Object    string  `json:"object"`
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Role      string  `json:"role"`
	CreatedAt int64   `json:"created_at"`
	APIKey    *APIKey `json:"api_key,omitempty"`
}

// APIKey is returned once, when the service account is created. Value is
// the only copy of the secret.
type APIKey struct {
	Object    string `json:"object"`
	ID        string `json:"id"`
	Name      string `json:"name"`
	Value     string `json:"value"`
	CreatedAt int64  `json:"created_at"`
}
