package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/smallbiznis/orgadmin/internal/apierr"
	"github.com/smallbiznis/orgadmin/internal/client"
	projectdomain "github.com/smallbiznis/orgadmin/internal/project/domain"
	projectuserdomain "github.com/smallbiznis/orgadmin/internal/projectuser/domain"
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

func New(p Params) projectuserdomain.Service {
	return &Service{
		client: p.Client,
		log:    p.Log.Named("projectuser.service"),
	}
}

func usersPath(projectID string, rest ...string) string {
	return client.Path(append([]string{"projects", projectID, "users"}, rest...)...)
}

func (s *Service) List(ctx context.Context, projectID string, limit int) ([]projectuserdomain.ProjectUser, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return nil, apierr.Validation("project_id", projectuserdomain.ErrInvalidProjectID)
	}
	return client.ListAll[projectuserdomain.ProjectUser](ctx, s.client, usersPath(projectID), nil, limit)
}

func (s *Service) Get(ctx context.Context, projectID, userID string) (*projectuserdomain.ProjectUser, error) {
	projectID, userID, err := normalizeIDs(projectID, userID)
	if err != nil {
		return nil, err
	}
	var user projectuserdomain.ProjectUser
	if err := s.client.Get(ctx, usersPath(projectID, userID), nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Service) Add(ctx context.Context, req projectuserdomain.AddRequest) (*projectuserdomain.ProjectUser, error) {
	var err error
	req.ProjectID, req.UserID, err = normalizeIDs(req.ProjectID, req.UserID)
	if err != nil {
		return nil, err
	}
	if err := validateRole(req.Role); err != nil {
		return nil, err
	}
	body := map[string]string{"user_id": req.UserID, "role": req.Role}
	var user projectuserdomain.ProjectUser
	if err := s.client.Post(ctx, usersPath(req.ProjectID), body, &user); err != nil {
		return nil, err
	}
	s.log.Info("project user added",
		zap.String("project_id", req.ProjectID),
		zap.String("user_id", req.UserID),
		zap.String("role", req.Role),
	)
	return &user, nil
}

func (s *Service) UpdateRole(ctx context.Context, projectID, userID, role string) (*projectuserdomain.ProjectUser, error) {
	projectID, userID, err := normalizeIDs(projectID, userID)
	if err != nil {
		return nil, err
	}
	if err := validateRole(role); err != nil {
		return nil, err
	}
	var user projectuserdomain.ProjectUser
	if err := s.client.Post(ctx, usersPath(projectID, userID), map[string]string{"role": role}, &user); err != nil {
		return nil, err
	}
	s.log.Info("project user role updated", zap.String("project_id", projectID), zap.String("user_id", userID), zap.String("role", role))
	return &user, nil
}

// Delete removes a member. Archived projects reject membership changes, and the
// remote reports those as a missing user, so the parent is checked first.
func (s *Service) Delete(ctx context.Context, projectID, userID string) (*client.DeleteResult, error) {
	projectID, userID, err := normalizeIDs(projectID, userID)
	if err != nil {
		return nil, err
	}

	var project projectdomain.Project
	if err := s.client.Get(ctx, client.Path("projects", projectID), nil, &project); err != nil {
		return nil, err
	}
	if project.Archived() {
		return nil, fmt.Errorf("project %s: %w", projectID, projectuserdomain.ErrProjectArchived)
	}

	var result client.DeleteResult
	if err := s.client.Delete(ctx, usersPath(projectID, userID), &result); err != nil {
		if apierr.IsNotFound(err) && s.archivedSince(ctx, projectID) {
			return nil, fmt.Errorf("project %s: %w", projectID, projectuserdomain.ErrProjectArchived)
		}
		return nil, err
	}
	s.log.Info("project user removed", zap.String("project_id", projectID), zap.String("user_id", userID))
	return &result, nil
}

// archivedSince re-reads the parent after a 404 in case it was archived concurrently.
func (s *Service) archivedSince(ctx context.Context, projectID string) bool {
	var project projectdomain.Project
	if err := s.client.Get(ctx, client.Path("projects", projectID), nil, &project); err != nil {
		return false
	}
	return project.Archived()
}

// normalizeIDs trims both ids and rejects blanks.
func normalizeIDs(projectID, userID string) (string, string, error) {
	projectID, userID = strings.TrimSpace(projectID), strings.TrimSpace(userID)
	if projectID == "" {
		return "", "", apierr.Validation("project_id", projectuserdomain.ErrInvalidProjectID)
	}
	if userID == "" {
		return "", "", apierr.Validation("user_id", projectuserdomain.ErrInvalidUserID)
	}
	return projectID, userID, nil
}

func validateRole(role string) error {
	switch role {
	case projectuserdomain.RoleOwner, projectuserdomain.RoleMember:
		return nil
	default:
		return apierr.Validation("role", projectuserdomain.ErrInvalidRole)
	}
}
