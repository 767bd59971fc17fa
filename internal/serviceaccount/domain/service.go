package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/orgadmin/internal/client"
)

type Service interface {
	List(ctx context.Context, projectID string, limit int) ([]ServiceAccount, error)
	Create(ctx context.Context, projectID, name string) (*ServiceAccount, error)
	Get(ctx context.Context, projectID, serviceAccountID string) (*ServiceAccount, error)
	Delete(ctx context.Context, projectID, serviceAccountID string) (*client.DeleteResult, error)
}

var (
	ErrInvalidProjectID        = errors.New("invalid_project_id")
	ErrInvalidServiceAccountID = errors.New("invalid_service_account_id")
	ErrInvalidName             = errors.New("invalid_name")
)
