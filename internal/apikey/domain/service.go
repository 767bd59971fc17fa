package domain

import (
	"context"
	"errors"
	"fmt"

	"github.com/smallbiznis/orgadmin/internal/client"
)

type Service interface {
	List(ctx context.Context, projectID string, limit int) ([]APIKey, error)
	Get(ctx context.Context, projectID, keyID string) (*APIKey, error)
	Delete(ctx context.Context, projectID, keyID string) (*client.DeleteResult, error)
}

var (
	ErrInvalidProjectID  = errors.New("invalid_project_id")
	ErrInvalidKeyID      = errors.New("invalid_key_id")
	ErrServiceAccountKey = errors.New("service account keys are deleted with their service account")
)

// ServiceAccountKeyError refuses deletion of a key owned by a service account.
type ServiceAccountKeyError struct {
	ProjectID        string
	KeyID            string
	ServiceAccountID string
}

func (e *ServiceAccountKeyError) Error() string {
	return fmt.Sprintf("key %s belongs to service account %s; run: service-accounts delete %s %s",
		e.KeyID, e.ServiceAccountID, e.ProjectID, e.ServiceAccountID)
}

func (e *ServiceAccountKeyError) Unwrap() error { return ErrServiceAccountKey }
