package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/orgadmin/internal/client"
)

type Service interface {
	List(ctx context.Context, projectID string, limit int) ([]ProjectUser, error)
	Get(ctx context.Context, projectID, userID string) (*ProjectUser, error)
	Add(ctx context.Context, req AddRequest) (*ProjectUser, error)
	UpdateRole(ctx context.Context, projectID, userID, role string) (*ProjectUser, error)
	Delete(ctx context.Context, projectID, userID string) (*client.DeleteResult, error)
}

type AddRequest struct {
	ProjectID string
	UserID    string
	Role      string
}

var (
	ErrInvalidProjectID = errors.New("invalid_project_id")
	ErrInvalidUserID    = errors.New("invalid_user_id")
	ErrInvalidRole      = errors.New("invalid_role")
	ErrProjectArchived  = errors.New("no such user in archived project")
)

// Remote error codes surfaced by membership mutations.
const (
	ErrorCodeAlreadyInProject  = "user_already_in_project"
	ErrorCodeOrganizationOwner = "user_organization_owner"
)
