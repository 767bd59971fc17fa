package service

import (
	"context"
	"strings"

	"github.com/smallbiznis/orgadmin/internal/apierr"
	"github.com/smallbiznis/orgadmin/internal/client"
	ratelimitdomain "github.com/smallbiznis/orgadmin/internal/ratelimit/domain"
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

func New(p Params) ratelimitdomain.Service {
	return &Service{
		client: p.Client,
		log:    p.Log.Named("ratelimit.service"),
	}
}

func limitsPath(projectID string, rest ...string) string {
	return client.Path(append([]string{"projects", projectID, "rate_limits"}, rest...)...)
}

func (s *Service) List(ctx context.Context, projectID string, limit int) ([]ratelimitdomain.RateLimit, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return nil, apierr.Validation("project_id", ratelimitdomain.ErrInvalidProjectID)
	}
	return client.ListAll[ratelimitdomain.RateLimit](ctx, s.client, limitsPath(projectID), nil, limit)
}

func (s *Service) Update(ctx context.Context, req ratelimitdomain.UpdateRequest) (*ratelimitdomain.RateLimit, error) {
	req.ProjectID, req.RateLimitID = strings.TrimSpace(req.ProjectID), strings.TrimSpace(req.RateLimitID)
	if req.ProjectID == "" {
		return nil, apierr.Validation("project_id", ratelimitdomain.ErrInvalidProjectID)
	}
	if req.RateLimitID == "" {
		return nil, apierr.Validation("rate_limit_id", ratelimitdomain.ErrInvalidRateLimitID)
	}
	body := req.Body()
	if len(body) == 0 {
		return nil, apierr.Validation("limits", ratelimitdomain.ErrNoFields)
	}
	for key, v := range body {
		if v < 0 {
			return nil, apierr.Validation(key, ratelimitdomain.ErrNegativeLimit)
		}
	}

	var updated ratelimitdomain.RateLimit
	if err := s.client.Post(ctx, limitsPath(req.ProjectID, req.RateLimitID), body, &updated); err != nil {
		return nil, err
	}
	s.log.Info("rate limit updated",
		zap.String("project_id", req.ProjectID),
		zap.String("rate_limit_id", req.RateLimitID),
		zap.Any("limits", body),
	)
	return &updated, nil
}
