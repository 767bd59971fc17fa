package service

import (
	"context"
	"strings"

	"github.com/smallbiznis/orgadmin/internal/apierr"
	"github.com/smallbiznis/orgadmin/internal/client"
	invitedomain "github.com/smallbiznis/orgadmin/internal/invitation/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const basePath = "invites"

var (
	orgRoles     = map[string]struct{}{"owner": {}, "reader": {}}
	projectRoles = map[string]struct{}{"owner": {}, "member": {}}
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

func New(p Params) invitedomain.Service {
	return &Service{
		client: p.Client,
		log:    p.Log.Named("invitation.service"),
	}
}

func (s *Service) List(ctx context.Context, limit int) ([]invitedomain.Invite, error) {
	return client.ListAll[invitedomain.Invite](ctx, s.client, basePath, nil, limit)
}

func (s *Service) Create(ctx context.Context, req invitedomain.CreateRequest) (*invitedomain.Invite, error) {
	email := strings.TrimSpace(req.Email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, apierr.Validation("email", invitedomain.ErrInvalidEmail)
	}
	role := strings.ToLower(strings.TrimSpace(req.Role))
	if _, ok := orgRoles[role]; !ok {
		return nil, apierr.Validation("role", invitedomain.ErrInvalidRole)
	}
	projects := make([]invitedomain.ProjectGrant, 0, len(req.Projects))
	for _, p := range req.Projects {
		projectRole := strings.ToLower(strings.TrimSpace(p.Role))
		if _, ok := projectRoles[projectRole]; !ok || strings.TrimSpace(p.ID) == "" {
			return nil, apierr.Validation("projects", invitedomain.ErrInvalidProjectRole)
		}
		projects = append(projects, invitedomain.ProjectGrant{ID: strings.TrimSpace(p.ID), Role: projectRole})
	}

	body := invitedomain.CreateRequest{Email: email, Role: role, Projects: projects}
	var invite invitedomain.Invite
	if err := s.client.Post(ctx, basePath, body, &invite); err != nil {
		return nil, err
	}
	s.log.Info("invite created", zap.String("invite_id", invite.ID), zap.String("role", role))
	return &invite, nil
}

func (s *Service) Get(ctx context.Context, inviteID string) (*invitedomain.Invite, error) {
	inviteID = strings.TrimSpace(inviteID)
	if inviteID == "" {
		return nil, apierr.Validation("invite_id", invitedomain.ErrInvalidInviteID)
	}
	var invite invitedomain.Invite
	if err := s.client.Get(ctx, client.Path(basePath, inviteID), nil, &invite); err != nil {
		return nil, err
	}
	return &invite, nil
}

func (s *Service) Delete(ctx context.Context, inviteID string) (*client.DeleteResult, error) {
	inviteID = strings.TrimSpace(inviteID)
	if inviteID == "" {
		return nil, apierr.Validation("invite_id", invitedomain.ErrInvalidInviteID)
	}
	var res client.DeleteResult
	if err := s.client.Delete(ctx, client.Path(basePath, inviteID), &res); err != nil {
		return nil, err
	}
	s.log.Info("invite deleted", zap.String("invite_id", inviteID))
	return &res, nil
}
