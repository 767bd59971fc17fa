package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/orgadmin/internal/client"
)

// MaxBatch is the largest number of ids one activation call accepts.
const MaxBatch = 10

type Service interface {
	List(ctx context.Context, limit int) ([]Certificate, error)
	ListForProject(ctx context.Context, projectID string, limit int) ([]Certificate, error)
	Upload(ctx context.Context, req UploadRequest) (*Certificate, error)
	Get(ctx context.Context, certificateID string, includeContent bool) (*Certificate, error)
	Rename(ctx context.Context, certificateID, name string) (*Certificate, error)
	Delete(ctx context.Context, certificateID string) (*client.DeleteResult, error)

	Activate(ctx context.Context, certificateIDs []string) (*ToggleResult, error)
	Deactivate(ctx context.Context, certificateIDs []string) (*ToggleResult, error)
	ActivateForProject(ctx context.Context, projectID string, certificateIDs []string) (*ToggleResult, error)
	DeactivateForProject(ctx context.Context, projectID string, certificateIDs []string) (*ToggleResult, error)
}

type UploadRequest struct {
	Name    string
	Content string
}

var (
	ErrInvalidCertificateID = errors.New("invalid_certificate_id")
	ErrInvalidProjectID     = errors.New("invalid_project_id")
	ErrInvalidName          = errors.New("invalid_name")
	ErrInvalidContent       = errors.New("content must be a PEM encoded certificate")
	ErrBatchSize            = errors.New("between 1 and 10 certificate ids are required")
)
