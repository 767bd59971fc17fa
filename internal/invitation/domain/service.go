package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/orgadmin/internal/client"
)

type Service interface {
	List(ctx context.Context, limit int) ([]Invite, error)
	Create(ctx context.Context, req CreateRequest) (*Invite, error)
	Get(ctx context.Context, inviteID string) (*Invite, error)
	Delete(ctx context.Context, inviteID string) (*client.DeleteResult, error)
}

type CreateRequest struct {
	Email    string         `json:"email"`
	Role     string         `json:"role"`
	Projects []ProjectGrant `json:"projects,omitempty"`
}

var (
	ErrInvalidEmail       = errors.New("invalid_email")
	ErrInvalidRole        = errors.New("invalid_role")
	ErrInvalidProjectRole = errors.New("invalid_project_role")
	ErrInvalidInviteID    = errors.New("invalid_invite_id")
)
