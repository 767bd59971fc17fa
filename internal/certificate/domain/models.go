package domain

// Certificate is an uploaded mTLS certificate. Content is only returned
// when requested explicitly.
type Certificate struct {
	Object    string   `json:"object"`
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Active    *bool    `json:"active,omitempty"`
	CreatedAt int64    `json:"created_at"`
	Details   *Details `json:"certificate_details,omitempty"`
}

type Details struct {
	ValidAt   int64  `json:"valid_at"`
	ExpiresAt int64  `json:"expires_at"`
	Content   string `json:"content,omitempty"`
}

// IsActive treats an absent flag as inactive.
func (c Certificate) IsActive() bool {
	return c.Active != nil && *c.Active
}

// ToggleResult is the response of an activation or deactivation batch.
type ToggleResult struct {
	Object string        `json:"object"`
	Data   []Certificate `json:"data"`
}
