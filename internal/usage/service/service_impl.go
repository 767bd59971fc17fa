package service

import (
	"context"
	"fmt"
	"slices"

	"github.com/smallbiznis/orgadmin/internal/apierr"
	"github.com/smallbiznis/orgadmin/internal/client"
	"github.com/smallbiznis/orgadmin/internal/pagination"
	usagedomain "github.com/smallbiznis/orgadmin/internal/usage/domain"
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

func New(p Params) usagedomain.Service {
	return &Service{
		client: p.Client,
		log:    p.Log.Named("usage.service"),
	}
}

func (s *Service) Usage(ctx context.Context, req usagedomain.UsageRequest) ([]usagedomain.Bucket, error) {
	allowed, ok := usagedomain.GroupBy[req.Category]
	if !ok {
		return nil, apierr.Validation("category", fmt.Errorf("%w: %q", usagedomain.ErrInvalidCategory, req.Category))
	}
	if err := validateRange(req.StartTime, req.EndTime); err != nil {
		return nil, err
	}
	width := req.BucketWidth
	if width == "" {
		width = usagedomain.BucketWidthDay
	}
	bounds, ok := usagedomain.WidthLimits[width]
	if !ok {
		return nil, apierr.Validation("bucket_width", usagedomain.ErrInvalidBucketWidth)
	}
	limit, err := bucketLimit(req.Limit, bounds)
	if err != nil {
		return nil, err
	}
	if err := validateGroupBy(req.GroupBy, allowed); err != nil {
		return nil, err
	}

	query := client.NewQuery().
		SetInt64("start_time", req.StartTime).
		SetInt64("end_time", req.EndTime).
		Set("bucket_width", width).
		SetInt("limit", limit).
		Add("group_by", req.GroupBy...).
		Add("project_ids", req.ProjectIDs...).
		Add("user_ids", req.UserIDs...).
		Add("api_key_ids", req.APIKeyIDs...).
		Add("models", req.Models...)

	path := client.Path("usage", string(req.Category))
	buckets, err := pagination.CollectPages(ctx, pageFetcher[usagedomain.Bucket](s.client, path, query), req.MaxPages)
	if err != nil {
		return nil, err
	}
	s.log.Debug("usage fetched", zap.String("category", string(req.Category)), zap.Int("buckets", len(buckets)))
	return buckets, nil
}

func (s *Service) Costs(ctx context.Context, req usagedomain.CostsRequest) ([]usagedomain.CostBucket, error) {
	if err := validateRange(req.StartTime, req.EndTime); err != nil {
		return nil, err
	}
	limit, err := bucketLimit(req.Limit, usagedomain.CostLimits)
	if err != nil {
		return nil, err
	}
	if err := validateGroupBy(req.GroupBy, usagedomain.CostGroupBy); err != nil {
		return nil, err
	}

	query := client.NewQuery().
		SetInt64("start_time", req.StartTime).
		SetInt64("end_time", req.EndTime).
		Set("bucket_width", usagedomain.BucketWidthDay).
		SetInt("limit", limit).
		Add("group_by", req.GroupBy...).
		Add("project_ids", req.ProjectIDs...)

	buckets, err := pagination.CollectPages(ctx, pageFetcher[usagedomain.CostBucket](s.client, "costs", query), req.MaxPages)
	if err != nil {
		return nil, err
	}
	s.log.Debug("costs fetched", zap.Int("buckets", len(buckets)))
	return buckets, nil
}

func pageFetcher[T any](api client.API, path string, query client.Query) pagination.PageFetchFunc[T] {
	return func(ctx context.Context, token string) (pagination.Page[T], error) {
		q := query.Clone().Set("page", token)
		var page pagination.Page[T]
		if err := api.Get(ctx, path, q, &page); err != nil {
			return pagination.Page[T]{}, err
		}
		return page, nil
	}
}

func validateRange(start, end int64) error {
	if start <= 0 {
		return apierr.Validation("start_time", usagedomain.ErrMissingStartTime)
	}
	if end != 0 && end <= start {
		return apierr.Validation("end_time", usagedomain.ErrInvalidTimeRange)
	}
	return nil
}

func bucketLimit(limit int, bounds usagedomain.BucketLimits) (int, error) {
	if limit == 0 {
		return bounds.Default, nil
	}
	if limit < 1 || limit > bounds.Max {
		return 0, apierr.Validation("limit", fmt.Errorf("%w: must be between 1 and %d", usagedomain.ErrInvalidLimit, bounds.Max))
	}
	return limit, nil
}

func validateGroupBy(groupBy, allowed []string) error {
	for _, field := range groupBy {
		if !slices.Contains(allowed, field) {
			return apierr.Validation("group_by", fmt.Errorf("%w: %q not in %v", usagedomain.ErrInvalidGroupBy, field, allowed))
		}
	}
	return nil
}
