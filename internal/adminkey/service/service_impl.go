package service

import (
	"context"
	"strings"

	adminkeydomain "github.com/smallbiznis/orgadmin/internal/adminkey/domain"
	"github.com/smallbiznis/orgadmin/internal/apierr"
	"github.com/smallbiznis/orgadmin/internal/client"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const basePath = "admin_api_keys"

type Params struct {
	fx.In

	Client client.API
	Log    *zap.Logger
}

type Service struct {
	client client.API
	log    *zap.Logger
}

func New(p Params) adminkeydomain.Service {
	return &Service{
		client: p.Client,
		log:    p.Log.Named("adminkey.service"),
	}
}

func (s *Service) List(ctx context.Context, req adminkeydomain.ListRequest) ([]adminkeydomain.AdminAPIKey, error) {
	order := strings.ToLower(strings.TrimSpace(req.Order))
	if order != "" && order != "asc" && order != "desc" {
		return nil, apierr.Validation("order", adminkeydomain.ErrInvalidOrder)
	}
	query := client.NewQuery().Set("order", order)
	return client.ListAll[adminkeydomain.AdminAPIKey](ctx, s.client, basePath, query, req.Limit)
}

func (s *Service) Create(ctx context.Context, req adminkeydomain.CreateRequest) (*adminkeydomain.AdminAPIKey, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apierr.Validation("name", adminkeydomain.ErrInvalidName)
	}

	var key adminkeydomain.AdminAPIKey
	if err := s.client.Post(ctx, basePath, adminkeydomain.CreateRequest{Name: name}, &key); err != nil {
		return nil, err
	}
	s.log.Info("admin api key created", zap.String("key_id", key.ID), zap.String("name", key.Name))
	return &key, nil
}

func (s *Service) Get(ctx context.Context, keyID string) (*adminkeydomain.AdminAPIKey, error) {
	keyID = strings.TrimSpace(keyID)
	if keyID == "" {
		return nil, apierr.Validation("key_id", adminkeydomain.ErrInvalidKeyID)
	}

	var key adminkeydomain.AdminAPIKey
	if err := s.client.Get(ctx, client.Path(basePath, keyID), nil, &key); err != nil {
		return nil, err
	}
	return &key, nil
}

func (s *Service) Delete(ctx context.Context, keyID string) (*client.DeleteResult, error) {
	keyID = strings.TrimSpace(keyID)
	if keyID == "" {
		return nil, apierr.Validation("key_id", adminkeydomain.ErrInvalidKeyID)
	}

	var res client.DeleteResult
	if err := s.client.Delete(ctx, client.Path(basePath, keyID), &res); err != nil {
		return nil, err
	}
	s.log.Info("admin api key deleted", zap.String("key_id", keyID))
	return &res, nil
}
