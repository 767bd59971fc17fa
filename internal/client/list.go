package client

import (
	"context"
	"net/http"

	"github.com/smallbiznis/orgadmin/internal/pagination"
)

// API is the request surface resource services depend on.
type API interface {
	Do(ctx context.Context, req Request, out any) error
	Get(ctx context.Context, path string, query Query, out any) error
	Post(ctx context.Context, path string, body any, out any) error
	Delete(ctx context.Context, path string, out any) error
}

// MaxPageSize is the largest page the list endpoints accept.
const MaxPageSize = 100

// Clone copies the query so per-page parameters do not leak.
func (q Query) Clone() Query {
	return Query(http.Header(q).Clone())
}

// GetList fetches a single list page.
func GetList[T any](ctx context.Context, api API, path string, query Query) (pagination.List[T], error) {
	var page pagination.List[T]
	if err := api.Get(ctx, path, query, &page); err != nil {
		return pagination.List[T]{}, err
	}
	return page, nil
}

// ListAll pages through path until the listing is exhausted or limit
// items are collected; limit <= 0 collects everything.
func ListAll[T any](ctx context.Context, api API, path string, query Query, limit int) ([]T, error) {
	pageSize := MaxPageSize
	if limit > 0 && limit < pageSize {
		pageSize = limit
	}
	fetch := func(ctx context.Context, after string) (pagination.List[T], error) {
		q := query.Clone()
		if q == nil {
			q = NewQuery()
		}
		q.SetInt("limit", pageSize).Set("after", after)
		return GetList[T](ctx, api, path, q)
	}
	return pagination.Collect(ctx, fetch, limit)
}
