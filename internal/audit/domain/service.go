package domain

import (
	"context"
	"errors"
)

type Service interface {
	List(ctx context.Context, req ListRequest) (*ListResult, error)
}

// ListRequest filters audit logs. Setting After or Before fetches a single
// page at that cursor instead of aggregating.
type ListRequest struct {
	Limit  int
	After  string
	Before string

	EffectiveAtGt  int64
	EffectiveAtGte int64
	EffectiveAtLt  int64
	EffectiveAtLte int64

	ProjectIDs  []string
	EventTypes  []string
	ActorIDs    []string
	ActorEmails []string
	ResourceIDs []string
}

// ListResult carries the entries plus, for single-page reads, the cursor
// to continue from.
type ListResult struct {
	Entries []Entry
	HasMore bool
	LastID  string
}

var (
	ErrInvalidLimit     = errors.New("limit must be between 1 and 100")
	ErrInvalidCursor    = errors.New("after and before are mutually exclusive")
	ErrInvalidTimeRange = errors.New("invalid_time_range")
)
