package domain

import (
	"context"
	"errors"
)

type Service interface {
	Usage(ctx context.Context, req UsageRequest) ([]Bucket, error)
	Costs(ctx context.Context, req CostsRequest) ([]CostBucket, error)
}

const (
	BucketWidthMinute = "1m"
	BucketWidthHour   = "1h"
	BucketWidthDay    = "1d"
)

// UsageRequest selects a usage category over [StartTime, EndTime).
// Limit is the bucket count per page; MaxPages bounds next_page
// traversal, 0 follows every page.
type UsageRequest struct {
	Category    Category
	StartTime   int64
	EndTime     int64
	BucketWidth string
	GroupBy     []string
	ProjectIDs  []string
	UserIDs     []string
	APIKeyIDs   []string
	Models      []string
	Limit       int
	MaxPages    int
}

type CostsRequest struct {
	StartTime  int64
	EndTime    int64
	GroupBy    []string
	ProjectIDs []string
	Limit      int
	MaxPages   int
}

// BucketLimits are the accepted bucket counts per page for a width.
type BucketLimits struct {
	Default int
	Max     int
}

var WidthLimits = map[string]BucketLimits{
	BucketWidthMinute: {Default: 60, Max: 1440},
	BucketWidthHour:   {Default: 24, Max: 168},
	BucketWidthDay:    {Default: 7, Max: 31},
}

var CostLimits = BucketLimits{Default: 7, Max: 180}

var (
	ErrInvalidCategory    = errors.New("invalid_category")
	ErrMissingStartTime   = errors.New("start time is required")
	ErrInvalidTimeRange   = errors.New("end time must be after start time")
	ErrInvalidBucketWidth = errors.New("bucket width must be one of 1m, 1h, 1d")
	ErrInvalidGroupBy     = errors.New("invalid_group_by")
	ErrInvalidLimit       = errors.New("invalid_limit")
)
