package domain

import (
	"context"
	"errors"
)

type Service interface {
	List(ctx context.Context, req ListRequest) ([]Project, error)
	Create(ctx context.Context, name string) (*Project, error)
	Get(ctx context.Context, projectID string) (*Project, error)
	Rename(ctx context.Context, projectID, name string) (*Project, error)
	Archive(ctx context.Context, projectID string) (*Project, error)
}

type ListRequest struct {
	Limit           int
	IncludeArchived bool
}

var (
	ErrInvalidProjectID = errors.New("invalid_project_id")
	ErrInvalidName      = errors.New("invalid_name")
	// ErrArchived reports an operation against an archived project.
	ErrArchived = errors.New("project_archived")
)

// ErrorCodeArchived is the remote error code for mutations of an archived project.
const ErrorCodeArchived = "project_archived"
