package pagination

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	ID string `json:"id"`
}

// fakeLister serves total items in pages of size k and records the
// cursors it was called with.
type fakeLister struct {
	items   []item
	k       int
	cursors []string
	failAt  int
}

func newFakeLister(total, k int) *fakeLister {
	items := make([]item, total)
	for i := range items {
		items[i] = item{ID: fmt.Sprintf("obj_%03d", i)}
	}
	return &fakeLister{items: items, k: k, failAt: -1}
}

func (f *fakeLister) fetch(ctx context.Context, after string) (List[item], error) {
	call := len(f.cursors)
	f.cursors = append(f.cursors, after)
	if call == f.failAt {
		return List[item]{}, errors.New("page failed")
	}

	start := 0
	if after != "" {
		for i, it := range f.items {
			if it.ID == after {
				start = i + 1
				break
			}
		}
	}
	end := start + f.k
	if end > len(f.items) {
		end = len(f.items)
	}
	page := List[item]{Object: "list", Data: f.items[start:end], HasMore: end < len(f.items)}
	if end > start {
		page.FirstID = f.items[start].ID
		page.LastID = f.items[end-1].ID
	}
	return page, nil
}

func (f *fakeLister) expectedPages() int {
	if len(f.items) == 0 {
		return 1
	}
	return (len(f.items) + f.k - 1) / f.k
}

func TestCollectReturnsAllPagesInOrder(t *testing.T) {
	for _, k := range []int{1, 2, 3, 7, 100} {
		for _, total := range []int{0, 1, 5, 21, 100} {
			t.Run(fmt.Sprintf("k=%d/total=%d", k, total), func(t *testing.T) {
				lister := newFakeLister(total, k)

				got, err := Collect(context.Background(), lister.fetch, 0)
				require.NoError(t, err)

				require.NotNil(t, got)
				assert.Equal(t, lister.items, got)
				assert.Len(t, lister.cursors, lister.expectedPages())
			})
		}
	}
}

func TestCollectUsesLastIDAsCursor(t *testing.T) {
	lister := newFakeLister(5, 2)

	_, err := Collect(context.Background(), lister.fetch, 0)
	require.NoError(t, err)

	assert.Equal(t, []string{"", "obj_001", "obj_003"}, lister.cursors)
}

func TestCollectStopsAtLimit(t *testing.T) {
	lister := newFakeLister(50, 10)

	got, err := Collect(context.Background(), lister.fetch, 15)
	require.NoError(t, err)

	assert.Len(t, got, 15)
	assert.Len(t, lister.cursors, 2)
	assert.Equal(t, "obj_014", got[14].ID)
}

func TestCollectDiscardsPartialResultsOnError(t *testing.T) {
	lister := newFakeLister(30, 10)
	lister.failAt = 2

	got, err := Collect(context.Background(), lister.fetch, 0)
	require.Error(t, err)
	assert.Nil(t, got)
	assert.Len(t, lister.cursors, 3)
}

func TestCollectRejectsMissingCursor(t *testing.T) {
	fetch := func(ctx context.Context, after string) (List[item], error) {
		return List[item]{Data: []item{{ID: "a"}}, HasMore: true}, nil
	}
	_, err := Collect(context.Background(), fetch, 0)
	assert.ErrorIs(t, err, ErrMissingCursor)
}

func TestCollectRejectsStalledCursor(t *testing.T) {
	fetch := func(ctx context.Context, after string) (List[item], error) {
		return List[item]{Data: []item{{ID: "a"}}, LastID: "a", HasMore: true}, nil
	}
	_, err := Collect(context.Background(), fetch, 0)
	assert.ErrorIs(t, err, ErrCursorStalled)
}

func TestCollectPagesFollowsNextPage(t *testing.T) {
	tokens := []string{}
	pages := map[string]Page[int]{
		"":   {Data: []int{1, 2}, HasMore: true, NextPage: "p2"},
		"p2": {Data: []int{3}, HasMore: true, NextPage: "p3"},
		"p3": {Data: []int{4, 5}, HasMore: false},
	}
	fetch := func(ctx context.Context, page string) (Page[int], error) {
		tokens = append(tokens, page)
		return pages[page], nil
	}

	got, err := CollectPages(context.Background(), fetch, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, got)
	assert.Equal(t, []string{"", "p2", "p3"}, tokens)

	tokens = nil
	got, err = CollectPages(context.Background(), fetch, 2)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, got)
	assert.Len(t, tokens, 2)
}
