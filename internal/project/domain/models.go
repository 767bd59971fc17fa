package domain

const (
	StatusActive   = "active"
	StatusArchived = "archived"
)

// Project groups users, service accounts and keys. Archival is one-way.
type Project struct {
	Object     string `json:"object"`
	ID         string `json:"id"`
	Name       string `json:"name"`
	Status     string `json:"status"`
	CreatedAt  int64  `json:"created_at"`
	ArchivedAt *int64 `json:"archived_at"`
}

func (p Project) Archived() bool { return p.Status == StatusArchived }
