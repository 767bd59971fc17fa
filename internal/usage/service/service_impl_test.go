package service

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/smallbiznis/orgadmin/internal/apierr"
	"github.com/smallbiznis/orgadmin/internal/client"
	"github.com/smallbiznis/orgadmin/internal/fakeapi"
	usagedomain "github.com/smallbiznis/orgadmin/internal/usage/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setup(t *testing.T) (*fakeapi.Server, usagedomain.Service) {
	t.Helper()
	api := fakeapi.New()
	t.Cleanup(api.Close)
	c := client.NewClient(client.Options{BaseURL: api.URL(), AdminKey: fakeapi.DefaultAdminKey})
	return api, New(Params{Client: c, Log: zap.NewNop()})
}

func dayBuckets(n int, result func(i int) map[string]any) []map[string]any {
	start := fakeapi.BaseTime.Unix()
	out := make([]map[string]any, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, map[string]any{
			"object":     "bucket",
			"start_time": start + int64(i)*86400,
			"end_time":   start + int64(i+1)*86400,
			"results":    []map[string]any{result(i)},
		})
	}
	return out
}

func TestUsageFollowsNextPage(t *testing.T) {
	api, svc := setup(t)
	api.SetUsageBuckets("completions", dayBuckets(10, func(i int) map[string]any {
		return map[string]any{"object": "organization.usage.completions.result", "input_tokens": 100, "output_tokens": 10 * i, "model": "gpt-4o"}
	}))

	buckets, err := svc.Usage(context.Background(), usagedomain.UsageRequest{
		Category:  usagedomain.CategoryCompletions,
		StartTime: fakeapi.BaseTime.Unix(),
		GroupBy:   []string{"model", "batch"},
	})
	require.NoError(t, err)
	require.Len(t, buckets, 10)
	assert.Equal(t, fakeapi.BaseTime.Unix(), buckets[0].StartTime)
	require.NotNil(t, buckets[9].Results[0].Model)
	assert.Equal(t, "gpt-4o", *buckets[9].Results[0].Model)
	assert.Equal(t, 2, api.CallCount(http.MethodGet, "usage/completions"))

	totals := usagedomain.Totals(buckets)
	assert.EqualValues(t, 1000, totals.InputTokens)
	assert.EqualValues(t, 450, totals.OutputTokens)

	calls := api.Calls()
	first, second := calls[0].Query, calls[1].Query
	assert.Equal(t, []string{"model", "batch"}, first["group_by"])
	assert.Equal(t, []string{"1d"}, first["bucket_width"])
	assert.Equal(t, []string{"7"}, first["limit"])
	assert.Empty(t, first["page"])
	assert.Equal(t, []string{"page_7"}, second["page"])
}

func TestUsageMaxPages(t *testing.T) {
	api, svc := setup(t)
	api.SetUsageBuckets("embeddings", dayBuckets(20, func(int) map[string]any {
		return map[string]any{"input_tokens": 1}
	}))

	buckets, err := svc.Usage(context.Background(), usagedomain.UsageRequest{
		Category:  usagedomain.CategoryEmbeddings,
		StartTime: fakeapi.BaseTime.Unix(),
		Limit:     5,
		MaxPages:  2,
	})
	require.NoError(t, err)
	assert.Len(t, buckets, 10)
	assert.Equal(t, 2, api.CallCount(http.MethodGet, "usage/embeddings"))
}

func TestUsageGroupByAllowLists(t *testing.T) {
	cases := []struct {
		category usagedomain.Category
		field    string
		ok       bool
	}{
		{usagedomain.CategoryCompletions, "service_tier", true},
		{usagedomain.CategoryCompletions, "size", false},
		{usagedomain.CategoryEmbeddings, "batch", false},
		{usagedomain.CategoryModerations, "api_key_id", true},
		{usagedomain.CategoryImages, "size", true},
		{usagedomain.CategoryImages, "source", true},
		{usagedomain.CategoryAudioSpeeches, "model", true},
		{usagedomain.CategoryAudioTranscriptions, "source", false},
		{usagedomain.CategoryVectorStores, "project_id", true},
		{usagedomain.CategoryVectorStores, "model", false},
		{usagedomain.CategoryCodeInterpreterSessions, "user_id", false},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%s/%s", tc.category, tc.field), func(t *testing.T) {
			api, svc := setup(t)
			_, err := svc.Usage(context.Background(), usagedomain.UsageRequest{
				Category:  tc.category,
				StartTime: fakeapi.BaseTime.Unix(),
				GroupBy:   []string{tc.field},
			})
			if tc.ok {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, usagedomain.ErrInvalidGroupBy)
			assert.Empty(t, api.Calls())
		})
	}
}

func TestUsageValidation(t *testing.T) {
	api, svc := setup(t)
	start := fakeapi.BaseTime.Unix()

	cases := map[string]struct {
		req  usagedomain.UsageRequest
		want error
	}{
		"missing start":  {usagedomain.UsageRequest{Category: usagedomain.CategoryImages}, usagedomain.ErrMissingStartTime},
		"unknown":        {usagedomain.UsageRequest{Category: "tokens", StartTime: start}, usagedomain.ErrInvalidCategory},
		"width":          {usagedomain.UsageRequest{Category: usagedomain.CategoryImages, StartTime: start, BucketWidth: "1w"}, usagedomain.ErrInvalidBucketWidth},
		"limit too high": {usagedomain.UsageRequest{Category: usagedomain.CategoryImages, StartTime: start, Limit: 32}, usagedomain.ErrInvalidLimit},
		"end before":     {usagedomain.UsageRequest{Category: usagedomain.CategoryImages, StartTime: start, EndTime: start - 1}, usagedomain.ErrInvalidTimeRange},
	}
	for name, tc := range cases {
		_, err := svc.Usage(context.Background(), tc.req)
		assert.ErrorIs(t, err, tc.want, name)
		assert.True(t, apierr.IsValidation(err), name)
	}
	assert.Empty(t, api.Calls())
}

func TestCosts(t *testing.T) {
	api, svc := setup(t)
	api.SetUsageBuckets("costs", dayBuckets(3, func(i int) map[string]any {
		return map[string]any{
			"object":     "organization.costs.result",
			"amount":     map[string]any{"value": 1.25 * float64(i+1), "currency": "usd"},
			"line_item":  "GPT-4o, input",
			"project_id": "proj_a",
		}
	}))

	buckets, err := svc.Costs(context.Background(), usagedomain.CostsRequest{
		StartTime:  fakeapi.BaseTime.Unix(),
		GroupBy:    []string{"line_item"},
		ProjectIDs: []string{"proj_a"},
	})
	require.NoError(t, err)
	require.Len(t, buckets, 3)
	assert.Equal(t, "GPT-4o, input", *buckets[0].Results[0].LineItem)
	assert.InDelta(t, 7.5, usagedomain.CostTotals(buckets)["usd"], 1e-9)

	calls := api.Calls()
	assert.Equal(t, []string{"proj_a"}, calls[0].Query["project_ids"])

	_, err = svc.Costs(context.Background(), usagedomain.CostsRequest{StartTime: 1, GroupBy: []string{"model"}})
	assert.ErrorIs(t, err, usagedomain.ErrInvalidGroupBy)
}

func TestUsagePageErrorDiscardsResults(t *testing.T) {
	api, svc := setup(t)
	api.SetUsageBuckets("images", dayBuckets(10, func(int) map[string]any { return map[string]any{"images": 1} }))
	api.Fail(http.MethodGet, "usage/images", http.StatusInternalServerError, "server_error", "boom")

	buckets, err := svc.Usage(context.Background(), usagedomain.UsageRequest{Category: usagedomain.CategoryImages, StartTime: 1})
	require.Error(t, err)
	assert.Nil(t, buckets)
}
