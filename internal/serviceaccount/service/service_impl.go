package service

import (
	"context"
	"strings"

	"github.com/smallbiznis/orgadmin/internal/apierr"
	"github.com/smallbiznis/orgadmin/internal/client"
	sadomain "github.com/smallbiznis/orgadmin/internal/serviceaccount/domain"
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

func New(p Params) sadomain.Service {
	return &Service{
		client: p.Client,
		log:    p.Log.Named("serviceaccount.service"),
	}
}

func accountsPath(projectID string, rest ...string) string {
	return client.Path(append([]string{"projects", projectID, "service_accounts"}, rest...)...)
}

func (s *Service) List(ctx context.Context, projectID string, limit int) ([]sadomain.ServiceAccount, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return nil, apierr.Validation("project_id", sadomain.ErrInvalidProjectID)
	}
	return client.ListAll[sadomain.ServiceAccount](ctx, s.client, accountsPath(projectID), nil, limit)
}

func (s *Service) Create(ctx context.Context, projectID, name string) (*sadomain.ServiceAccount, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return nil, apierr.Validation("project_id", sadomain.ErrInvalidProjectID)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apierr.Validation("name", sadomain.ErrInvalidName)
	}

	var account sadomain.ServiceAccount
	if err := s.client.Post(ctx, accountsPath(projectID), map[string]string{"name": name}, &account); err != nil {
		return nil, err
	}
	fields := []zap.Field{
		zap.String("project_id", projectID),
		zap.String("service_account_id", account.ID),
		zap.String("name", name),
	}
	if account.APIKey != nil {
		fields = append(fields, zap.String("api_key_id", account.APIKey.ID))
	}
	s.log.Info("service account created", fields...)
	return &account, nil
}

func (s *Service) Get(ctx context.Context, projectID, serviceAccountID string) (*sadomain.ServiceAccount, error) {
	projectID, serviceAccountID, err := normalizeIDs(projectID, serviceAccountID)
	if err != nil {
		return nil, err
	}
	var account sadomain.ServiceAccount
	if err := s.client.Get(ctx, accountsPath(projectID, serviceAccountID), nil, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

// Delete removes the service account together with the API keys it owns.
func (s *Service) Delete(ctx context.Context, projectID, serviceAccountID string) (*client.DeleteResult, error) {
	projectID, serviceAccountID, err := normalizeIDs(projectID, serviceAccountID)
	if err != nil {
		return nil, err
	}
	var result client.DeleteResult
	if err := s.client.Delete(ctx, accountsPath(projectID, serviceAccountID), &result); err != nil {
		return nil, err
	}
	s.log.Info("service account deleted", zap.String("project_id", projectID), zap.String("service_account_id", serviceAccountID))
	return &result, nil
}

func normalizeIDs(projectID, serviceAccountID string) (string, string, error) {
	projectID, serviceAccountID = strings.TrimSpace(projectID), strings.TrimSpace(serviceAccountID)
	if projectID == "" {
		return "", "", apierr.Validation("project_id", sadomain.ErrInvalidProjectID)
	}
	if serviceAccountID == "" {
		return "", "", apierr.Validation("service_account_id", sadomain.ErrInvalidServiceAccountID)
	}
	return projectID, serviceAccountID, nil
}
