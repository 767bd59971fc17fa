package pagination

import (
	"context"
	"errors"
)

// List is the cursor-paginated list envelope.
type List[T any] struct {
	Object  string `json:"object"`
	Data    []T    `json:"data"`
	FirstID string `json:"first_id"`
	LastID  string `json:"last_id"`
	HasMore bool   `json:"has_more"`
}

// Page is the bucketed usage/cost envelope, continued through NextPage.
type Page[T any] struct {
	Object   string `json:"object"`
	Data     []T    `json:"data"`
	HasMore  bool   `json:"has_more"`
	NextPage string `json:"next_page"`
}

// FetchFunc fetches one list page starting after the given cursor. An
// empty cursor requests the first page.
type FetchFunc[T any] func(ctx context.Context, after string) (List[T], error)

// PageFetchFunc fetches one bucket page. An empty token requests the first page.
type PageFetchFunc[T any] func(ctx context.Context, page string) (Page[T], error)

var (
	ErrMissingCursor = errors.New("pagination: has_more without a cursor")
	ErrCursorStalled = errors.New("pagination: cursor did not advance")
)

// Collect follows after=last_id until has_more is false or at least limit
// items are accumulated; limit <= 0 means no bound. Server order is
// preserved and nothing is deduplicated. Any failed page discards the
// items gathered so far.
func Collect[T any](ctx context.Context, fetch FetchFunc[T], limit int) ([]T, error) {
	items := make([]T, 0)
	after := ""
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, err := fetch(ctx, after)
		if err != nil {
			return nil, err
		}
		items = append(items, page.Data...)

		if !page.HasMore {
			break
		}
		if limit > 0 && len(items) >= limit {
			break
		}
		if page.LastID == "" {
			return nil, ErrMissingCursor
		}
		if page.LastID == after {
			return nil, ErrCursorStalled
		}
		after = page.LastID
	}

	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// CollectPages follows next_page until has_more is false or maxPages pages
// are fetched; maxPages <= 0 means no bound. Failure semantics match Collect.
func CollectPages[T any](ctx context.Context, fetch PageFetchFunc[T], maxPages int) ([]T, error) {
	items := make([]T, 0)
	token := ""
	for fetched := 0; ; {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, err := fetch(ctx, token)
		if err != nil {
			return nil, err
		}
		fetched++
		items = append(items, page.Data...)

		if !page.HasMore {
			break
		}
		if maxPages > 0 && fetched >= maxPages {
			break
		}
		if page.NextPage == "" {
			return nil, ErrMissingCursor
		}
		if page.NextPage == token {
			return nil, ErrCursorStalled
		}
		token = page.NextPage
	}
	return items, nil
}
