package domain

const (
	RoleOwner  = "owner"
	RoleMember = "member"
)

// ProjectUser is an organization user's membership in a project.
type ProjectUser struct {
	Object  string `json:"object"`
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Role    string `json:"role"`
	AddedAt int64  `json:"added_at"`
}
