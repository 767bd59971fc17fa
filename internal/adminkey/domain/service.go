package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/orgadmin/internal/client"
)

type Service interface {
	List(ctx context.Context, req ListRequest) ([]AdminAPIKey, error)
	Create(ctx context.Context, req CreateRequest) (*AdminAPIKey, error)
	Get(ctx context.Context, keyID string) (*AdminAPIKey, error)
	Delete(ctx context.Context, keyID string) (*client.DeleteResult, error)
}

type ListRequest struct {
	Limit int
	Order string
}

type CreateRequest struct {
	Name string `json:"name"`
}

var (
	ErrInvalidName  = errors.New("invalid_name")
	ErrInvalidKeyID = errors.New("invalid_key_id")
	ErrInvalidOrder = errors.New("invalid_order")
)
