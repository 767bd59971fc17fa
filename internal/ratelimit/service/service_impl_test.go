package service

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/smallbiznis/orgadmin/internal/apierr"
	"github.com/smallbiznis/orgadmin/internal/client"
	"github.com/smallbiznis/orgadmin/internal/fakeapi"
	ratelimitdomain "github.com/smallbiznis/orgadmin/internal/ratelimit/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setup(t *testing.T) (*fakeapi.Server, ratelimitdomain.Service) {
	t.Helper()
	api := fakeapi.New()
	t.Cleanup(api.Close)
	c := client.NewClient(client.Options{BaseURL: api.URL(), AdminKey: fakeapi.DefaultAdminKey})
	return api, New(Params{Client: c, Log: zap.NewNop()})
}

func ptr(v int64) *int64 { return &v }

func TestListDecodesOptionalLimits(t *testing.T) {
	api, svc := setup(t)
	pid := api.AddProject("Alpha")
	api.AddRateLimit(pid, "gpt-4o")
	api.AddRateLimit(pid, "dall-e-3")

	limits, err := svc.List(context.Background(), pid, 0)
	require.NoError(t, err)
	require.Len(t, limits, 2)
	assert.Equal(t, "gpt-4o", limits[0].Model)
	require.NotNil(t, limits[0].MaxRequestsPer1Minute)
	assert.EqualValues(t, 500, *limits[0].MaxRequestsPer1Minute)
	assert.Nil(t, limits[0].MaxImagesPer1Minute)
}

func TestUpdateSendsOnlySetFields(t *testing.T) {
	api, svc := setup(t)
	pid := api.AddProject("Alpha")
	id := api.AddRateLimit(pid, "gpt-4o")

	updated, err := svc.Update(context.Background(), ratelimitdomain.UpdateRequest{
		ProjectID:             pid,
		RateLimitID:           id,
		MaxRequestsPer1Minute: ptr(1000),
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1000, *updated.MaxRequestsPer1Minute)
	assert.EqualValues(t, 30000, *updated.MaxTokensPer1Minute)

	calls := api.Calls()
	last := calls[len(calls)-1]
	assert.Equal(t, http.MethodPost, last.Method)
	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(last.Body), &body))
	assert.Equal(t, map[string]any{"max_requests_per_1_minute": float64(1000)}, body)
	assert.EqualValues(t, 1000, api.RateLimit(pid, id)["max_requests_per_1_minute"])
}

func TestUpdateRequiresAField(t *testing.T) {
	api, svc := setup(t)

	_, err := svc.Update(context.Background(), ratelimitdomain.UpdateRequest{ProjectID: "proj_1", RateLimitID: "rl-gpt-4o"})
	require.ErrorIs(t, err, ratelimitdomain.ErrNoFields)
	assert.True(t, apierr.IsValidation(err))

	_, err = svc.Update(context.Background(), ratelimitdomain.UpdateRequest{ProjectID: "proj_1", RateLimitID: "rl-gpt-4o", MaxRequestsPer1Day: ptr(-1)})
	require.ErrorIs(t, err, ratelimitdomain.ErrNegativeLimit)
	assert.Empty(t, api.Calls())
}

func TestUpdateArchivedProject(t *testing.T) {
	api, svc := setup(t)
	pid := api.AddProject("Alpha")
	id := api.AddRateLimit(pid, "gpt-4o")
	api.ArchiveProject(pid)

	_, err := svc.Update(context.Background(), ratelimitdomain.UpdateRequest{ProjectID: pid, RateLimitID: id, MaxTokensPer1Minute: ptr(1)})
	assert.Equal(t, "project_archived", apierr.Code(err))
}

func TestUpdateTrimsIDs(t *testing.T) {
	api, svc := setup(t)
	pid := api.AddProject("Alpha")
	id := api.AddRateLimit(pid, "gpt-4o")

	_, err := svc.Update(context.Background(), ratelimitdomain.UpdateRequest{
		ProjectID:           " " + pid,
		RateLimitID:         id + " ",
		MaxTokensPer1Minute: ptr(5000),
	})
	require.NoError(t, err)
	assert.EqualValues(t, 5000, api.RateLimit(pid, id)["max_tokens_per_1_minute"])
}
