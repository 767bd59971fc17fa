package service

import (
	"context"
	"strings"

	"github.com/smallbiznis/orgadmin/internal/apierr"
	"github.com/smallbiznis/orgadmin/internal/client"
	projectdomain "github.com/smallbiznis/orgadmin/internal/project/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const basePath = "projects"

type Params struct {
	fx.In

	Client client.API
	Log    *zap.Logger
}

type Service struct {
	client client.API
	log    *zap.Logger
}

func New(p Params) projectdomain.Service {
	return &Service{
		client: p.Client,
		log:    p.Log.Named("project.service"),
	}
}

func (s *Service) List(ctx context.Context, req projectdomain.ListRequest) ([]projectdomain.Project, error) {
	query := client.NewQuery().SetBool("include_archived", req.IncludeArchived)
	return client.ListAll[projectdomain.Project](ctx, s.client, basePath, query, req.Limit)
}

func (s *Service) Create(ctx context.Context, name string) (*projectdomain.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apierr.Validation("name", projectdomain.ErrInvalidName)
	}
	var project projectdomain.Project
	if err := s.client.Post(ctx, basePath, map[string]string{"name": name}, &project); err != nil {
		return nil, err
	}
	s.log.Info("project created", zap.String("project_id", project.ID), zap.String("name", name))
	return &project, nil
}

func (s *Service) Get(ctx context.Context, projectID string) (*projectdomain.Project, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return nil, apierr.Validation("project_id", projectdomain.ErrInvalidProjectID)
	}
	var project projectdomain.Project
	if err := s.client.Get(ctx, client.Path(basePath, projectID), nil, &project); err != nil {
		return nil, err
	}
	return &project, nil
}

func (s *Service) Rename(ctx context.Context, projectID, name string) (*projectdomain.Project, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return nil, apierr.Validation("project_id", projectdomain.ErrInvalidProjectID)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apierr.Validation("name", projectdomain.ErrInvalidName)
	}
	var project projectdomain.Project
	if err := s.client.Post(ctx, client.Path(basePath, projectID), map[string]string{"name": name}, &project); err != nil {
		return nil, err
	}
	s.log.Info("project renamed", zap.String("project_id", projectID), zap.String("name", name))
	return &project, nil
}

func (s *Service) Archive(ctx context.Context, projectID string) (*projectdomain.Project, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return nil, apierr.Validation("project_id", projectdomain.ErrInvalidProjectID)
	}
	var project projectdomain.Project
	if err := s.client.Post(ctx, client.Path(basePath, projectID, "archive"), nil, &project); err != nil {
		return nil, err
	}
	s.log.Info("project archived", zap.String("project_id", projectID))
	return &project, nil
}
