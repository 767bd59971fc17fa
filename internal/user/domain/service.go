package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/orgadmin/internal/client"
)

type Service interface {
	List(ctx context.Context, req ListRequest) ([]User, error)
	Get(ctx context.Context, userID string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	UpdateRole(ctx context.Context, userID, role string) (*User, error)
	Delete(ctx context.Context, userID string) (*client.DeleteResult, error)
}

type ListRequest struct {
	Limit  int
	Emails []string
}

var (
	ErrInvalidUserID = errors.New("invalid_user_id")
	ErrInvalidRole   = errors.New("invalid_role")
	ErrInvalidEmail  = errors.New("invalid_email")
	ErrNotFound      = errors.New("not_found")
)
