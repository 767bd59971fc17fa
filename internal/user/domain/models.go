package domain

const (
	RoleOwner  = "owner"
	RoleReader = "reader"
)

// User is a member of the organization.
type User struct {
	Object  string `json:"object"`
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Role    string `json:"role"`
	AddedAt int64  `json:"added_at"`
}
