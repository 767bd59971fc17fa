package service

import (
	"context"
	"strings"

	"github.com/smallbiznis/orgadmin/internal/apierr"
	auditdomain "github.com/smallbiznis/orgadmin/internal/audit/domain"
	"github.com/smallbiznis/orgadmin/internal/client"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const basePath = "audit_logs"

type Params struct {
	fx.In

	Client client.API
	Log    *zap.Logger
}

type Service struct {
	client client.API
	log    *zap.Logger
}

func New(p Params) auditdomain.Service {
	return &Service{
		client: p.Client,
		log:    p.Log.Named("audit.service"),
	}
}

func (s *Service) List(ctx context.Context, req auditdomain.ListRequest) (*auditdomain.ListResult, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	query := filterQuery(req)

	if req.After != "" || req.Before != "" {
		query.SetInt("limit", req.Limit).Set("after", req.After).Set("before", req.Before)
		page, err := client.GetList[auditdomain.Entry](ctx, s.client, basePath, query)
		if err != nil {
			return nil, err
		}
		entries := page.Data
		if entries == nil {
			entries = []auditdomain.Entry{}
		}
		return &auditdomain.ListResult{Entries: entries, HasMore: page.HasMore, LastID: page.LastID}, nil
	}

	entries, err := client.ListAll[auditdomain.Entry](ctx, s.client, basePath, query, req.Limit)
	if err != nil {
		return nil, err
	}
	s.log.Debug("audit logs listed", zap.Int("count", len(entries)))
	return &auditdomain.ListResult{Entries: entries}, nil
}

func filterQuery(req auditdomain.ListRequest) client.Query {
	return client.NewQuery().
		SetInt64("effective_at[gt]", req.EffectiveAtGt).
		SetInt64("effective_at[gte]", req.EffectiveAtGte).
		SetInt64("effective_at[lt]", req.EffectiveAtLt).
		SetInt64("effective_at[lte]", req.EffectiveAtLte).
		Add("project_ids[]", req.ProjectIDs...).
		Add("event_types[]", req.EventTypes...).
		Add("actor_ids[]", req.ActorIDs...).
		Add("actor_emails[]", req.ActorEmails...).
		Add("resource_ids[]", req.ResourceIDs...)
}

func validate(req auditdomain.ListRequest) error {
	if req.Limit < 0 {
		return apierr.Validation("limit", auditdomain.ErrInvalidLimit)
	}
	single := strings.TrimSpace(req.After) != "" || strings.TrimSpace(req.Before) != ""
	if single && req.Limit > client.MaxPageSize {
		return apierr.Validation("limit", auditdomain.ErrInvalidLimit)
	}
	if req.After != "" && req.Before != "" {
		return apierr.Validation("after", auditdomain.ErrInvalidCursor)
	}

	lower := max(req.EffectiveAtGt, req.EffectiveAtGte)
	upper := req.EffectiveAtLt
	if req.EffectiveAtLte > 0 && (upper == 0 || req.EffectiveAtLte < upper) {
		upper = req.EffectiveAtLte
	}
	if lower > 0 && upper > 0 && lower > upper {
		return apierr.Validation("effective_at", auditdomain.ErrInvalidTimeRange)
	}
	return nil
}
