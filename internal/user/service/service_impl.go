package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/smallbiznis/orgadmin/internal/apierr"
	"github.com/smallbiznis/orgadmin/internal/client"
	userdomain "github.com/smallbiznis/orgadmin/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const basePath = "users"

type Params struct {
	fx.In

	Client client.API
	Log    *zap.Logger
}

type Service struct {
	client client.API
	log    *zap.Logger
}

func New(p Params) userdomain.Service {
	return &Service{
		client: p.Client,
		log:    p.Log.Named("user.service"),
	}
}

func (s *Service) List(ctx context.Context, req userdomain.ListRequest) ([]userdomain.User, error) {
	query := client.NewQuery().Add("emails[]", req.Emails...)
	return client.ListAll[userdomain.User](ctx, s.client, basePath, query, req.Limit)
}

func (s *Service) Get(ctx context.Context, userID string) (*userdomain.User, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apierr.Validation("user_id", userdomain.ErrInvalidUserID)
	}
	var user userdomain.User
	if err := s.client.Get(ctx, client.Path(basePath, userID), nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail resolves an organization member by email, ignoring case.
func (s *Service) FindByEmail(ctx context.Context, email string) (*userdomain.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, apierr.Validation("email", userdomain.ErrInvalidEmail)
	}
	users, err := s.List(ctx, userdomain.ListRequest{Emails: []string{email}})
	if err != nil {
		return nil, err
	}
	for i := range users {
		if strings.EqualFold(users[i].Email, email) {
			return &users[i], nil
		}
	}
	return nil, fmt.Errorf("%w: no user with email %s", userdomain.ErrNotFound, email)
}

func (s *Service) UpdateRole(ctx context.Context, userID, role string) (*userdomain.User, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apierr.Validation("user_id", userdomain.ErrInvalidUserID)
	}
	role = strings.ToLower(strings.TrimSpace(role))
	if role != userdomain.RoleOwner && role != userdomain.RoleReader {
		return nil, apierr.Validation("role", userdomain.ErrInvalidRole)
	}

	var user userdomain.User
	if err := s.client.Post(ctx, client.Path(basePath, userID), map[string]string{"role": role}, &user); err != nil {
		return nil, err
	}
	s.log.Info("user role updated", zap.String("user_id", userID), zap.String("role", role))
	return &user, nil
}

func (s *Service) Delete(ctx context.Context, userID string) (*client.DeleteResult, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apierr.Validation("user_id", userdomain.ErrInvalidUserID)
	}
	var res client.DeleteResult
	if err := s.client.Delete(ctx, client.Path(basePath, userID), &res); err != nil {
		return nil, err
	}
	s.log.Info("user removed from organization", zap.String("user_id", userID))
	return &res, nil
}
