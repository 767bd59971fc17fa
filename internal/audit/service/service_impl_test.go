package service

import (
	"context"
	"net/http"
	"strconv"
	"testing"

	"github.com/smallbiznis/orgadmin/internal/apierr"
	auditdomain "github.com/smallbiznis/orgadmin/internal/audit/domain"
	"github.com/smallbiznis/orgadmin/internal/client"
	"github.com/smallbiznis/orgadmin/internal/fakeapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setup(t *testing.T) (*fakeapi.Server, auditdomain.Service) {
	t.Helper()
	api := fakeapi.New()
	t.Cleanup(api.Close)
	c := client.NewClient(client.Options{BaseURL: api.URL(), AdminKey: fakeapi.DefaultAdminKey})
	return api, New(Params{Client: c, Log: zap.NewNop()})
}

func TestListSendsFiltersAsRepeatedKeys(t *testing.T) {
	api, svc := setup(t)
	at := fakeapi.BaseTime.Unix()
	api.AddAuditLog("user.added", at, "proj_a", "ada@example.com")
	api.AddAuditLog("project.created", at+60, "proj_b", "ada@example.com")
	api.AddAuditLog("user.added", at+120, "proj_b", "bob@example.com")

	result, err := svc.List(context.Background(), auditdomain.ListRequest{
		EventTypes:     []string{"user.added"},
		ProjectIDs:     []string{"proj_a", "proj_b"},
		EffectiveAtGte: at,
	})
	require.NoError(t, err)
	require.Len(t, result.Entries, 2)
	assert.Equal(t, "ada@example.com", result.Entries[0].ActorSummary())
	assert.Equal(t, "proj_b", result.Entries[1].ProjectName())
	assert.JSONEq(t, `{"id":"`+result.Entries[0].ID+`"}`, string(result.Entries[0].Details))

	calls := api.Calls()
	query := calls[len(calls)-1].Query
	assert.Equal(t, []string{"proj_a", "proj_b"}, query["project_ids[]"])
	assert.Equal(t, []string{"user.added"}, query["event_types[]"])
	assert.Equal(t, []string{strconv.FormatInt(at, 10)}, query["effective_at[gte]"])
}

func TestListAggregatesToLimit(t *testing.T) {
	api, svc := setup(t)
	for i := 0; i < 130; i++ {
		api.AddAuditLog("login.succeeded", fakeapi.BaseTime.Unix()+int64(i), "", "ada@example.com")
	}

	result, err := svc.List(context.Background(), auditdomain.ListRequest{Limit: 120})
	require.NoError(t, err)
	assert.Len(t, result.Entries, 120)
	assert.False(t, result.HasMore)
	assert.Equal(t, 2, api.CallCount(http.MethodGet, "audit_logs"))
}

func TestListSinglePageWithCursor(t *testing.T) {
	api, svc := setup(t)
	ids := make([]string, 0, 5)
	for i := 0; i < 5; i++ {
		ids = append(ids, api.AddAuditLog("login.succeeded", fakeapi.BaseTime.Unix()+int64(i), "", "ada@example.com"))
	}

	result, err := svc.List(context.Background(), auditdomain.ListRequest{After: ids[0], Limit: 2})
	require.NoError(t, err)
	require.Len(t, result.Entries, 2)
	assert.Equal(t, ids[1], result.Entries[0].ID)
	assert.True(t, result.HasMore)
	assert.Equal(t, ids[2], result.LastID)
	assert.Equal(t, 1, api.CallCount(http.MethodGet, "audit_logs"))

	result, err = svc.List(context.Background(), auditdomain.ListRequest{Before: ids[4], Limit: 2})
	require.NoError(t, err)
	require.Len(t, result.Entries, 2)
	assert.Equal(t, ids[2], result.Entries[0].ID)
}

func TestListValidation(t *testing.T) {
	api, svc := setup(t)

	cases := []auditdomain.ListRequest{
		{Limit: -1},
		{After: "a", Before: "b"},
		{After: "a", Limit: 500},
		{EffectiveAtGte: 200, EffectiveAtLte: 100},
	}
	for _, req := range cases {
		_, err := svc.List(context.Background(), req)
		assert.True(t, apierr.IsValidation(err), "%+v", req)
	}
	assert.Empty(t, api.Calls())
}

func TestActorSummary(t *testing.T) {
	sa := auditdomain.Entry{Actor: auditdomain.Actor{Type: auditdomain.ActorTypeAPIKey, APIKey: &auditdomain.ActorAPIKey{
		Type: "service_account",
		ServiceAccount: &struct {
			ID string `json:"id"`
		}{ID: "svc_1"},
	}}}
	assert.Equal(t, "SA: svc_1", sa.ActorSummary())
	assert.Equal(t, "N/A", auditdomain.Entry{}.ActorSummary())
	assert.Equal(t, "N/A", auditdomain.Entry{}.ProjectName())
}
