package service

import (
	"context"
	"strings"

	"github.com/smallbiznis/orgadmin/internal/apierr"
	apikeydomain "github.com/smallbiznis/orgadmin/internal/apikey/domain"
	"github.com/smallbiznis/orgadmin/internal/client"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Client client.API
	Log    *zap.Logger
}

type Service struct {
	client client.API
	log    *zap.Logger
}

func New(p Params) apikeydomain.Service {
	return &Service{
		client: p.Client,
		log:    p.Log.Named("apikey.service"),
	}
}

func keysPath(projectID string, rest ...string) string {
	return client.Path(append([]string{"projects", projectID, "api_keys"}, rest...)...)
}

func (s *Service) List(ctx context.Context, projectID string, limit int) ([]apikeydomain.APIKey, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return nil, apierr.Validation("project_id", apikeydomain.ErrInvalidProjectID)
	}
	return client.ListAll[apikeydomain.APIKey](ctx, s.client, keysPath(projectID), nil, limit)
}

func (s *Service) Get(ctx context.Context, projectID, keyID string) (*apikeydomain.APIKey, error) {
	projectID, keyID, err := normalizeIDs(projectID, keyID)
	if err != nil {
		return nil, err
	}
	var key apikeydomain.APIKey
	if err := s.client.Get(ctx, keysPath(projectID, keyID), nil, &key); err != nil {
		return nil, err
	}
	return &key, nil
}

// Delete removes a user-owned key. Keys owned by a service account are
// refused without issuing the delete.
func (s *Service) Delete(ctx context.Context, projectID, keyID string) (*client.DeleteResult, error) {
	projectID, keyID, err := normalizeIDs(projectID, keyID)
	if err != nil {
		return nil, err
	}
	key, err := s.Get(ctx, projectID, keyID)
	if err != nil {
		return nil, err
	}
	if key.OwnedByServiceAccount() {
		refusal := &apikeydomain.ServiceAccountKeyError{ProjectID: projectID, KeyID: keyID}
		if key.Owner.ServiceAccount != nil {
			refusal.ServiceAccountID = key.Owner.ServiceAccount.ID
		}
		s.log.Warn("refusing to delete service account key",
			zap.String("project_id", projectID),
			zap.String("key_id", keyID),
			zap.String("service_account_id", refusal.ServiceAccountID),
		)
		return nil, refusal
	}

	var result client.DeleteResult
	if err := s.client.Delete(ctx, keysPath(projectID, keyID), &result); err != nil {
		return nil, err
	}
	s.log.Info("api key deleted", zap.String("project_id", projectID), zap.String("key_id", keyID))
	return &result, nil
}

func normalizeIDs(projectID, keyID string) (string, string, error) {
	projectID, keyID = strings.TrimSpace(projectID), strings.TrimSpace(keyID)
	if projectID == "" {
		return "", "", apierr.Validation("project_id", apikeydomain.ErrInvalidProjectID)
	}
	if keyID == "" {
		return "", "", apierr.Validation("key_id", apikeydomain.ErrInvalidKeyID)
	}
	return projectID, keyID, nil
}
