package service

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/smallbiznis/orgadmin/internal/apierr"
	apikeydomain "github.com/smallbiznis/orgadmin/internal/apikey/domain"
	"github.com/smallbiznis/orgadmin/internal/client"
	"github.com/smallbiznis/orgadmin/internal/fakeapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setup(t *testing.T) (*fakeapi.Server, apikeydomain.Service) {
	t.Helper()
	api := fakeapi.New()
	t.Cleanup(api.Close)
	c := client.NewClient(client.Options{BaseURL: api.URL(), AdminKey: fakeapi.DefaultAdminKey})
	return api, New(Params{Client: c, Log: zap.NewNop()})
}

func TestListDecodesOwners(t *testing.T) {
	api, svc := setup(t)
	pid := api.AddProject("Alpha")
	uid := api.AddUser("Ada", "ada@example.com", "owner")
	userKey := api.AddUserAPIKey(pid, uid, "laptop")
	saID, saKey := api.AddServiceAccount(pid, "deploy-bot", 0)

	keys, err := svc.List(context.Background(), pid, 0)
	require.NoError(t, err)
	require.Len(t, keys, 2)

	byID := map[string]apikeydomain.APIKey{}
	for _, k := range keys {
		byID[k.ID] = k
	}
	assert.Equal(t, apikeydomain.OwnerTypeUser, byID[userKey].Owner.Type)
	assert.Equal(t, "Ada", byID[userKey].OwnerName())
	assert.NotNil(t, byID[userKey].LastUsedAt)
	assert.True(t, byID[saKey].OwnedByServiceAccount())
	assert.Equal(t, saID, byID[saKey].Owner.ServiceAccount.ID)
	assert.Nil(t, byID[saKey].LastUsedAt)
}

func TestDeleteUserKey(t *testing.T) {
	api, svc := setup(t)
	pid := api.AddProject("Alpha")
	uid := api.AddUser("Ada", "ada@example.com", "owner")
	keyID := api.AddUserAPIKey(pid, uid, "laptop")

	result, err := svc.Delete(context.Background(), pid, keyID)
	require.NoError(t, err)
	assert.True(t, result.Deleted)

	_, err = svc.Get(context.Background(), pid, keyID)
	assert.True(t, apierr.IsNotFound(err))
}

func TestDeleteRefusesServiceAccountKey(t *testing.T) {
	api, svc := setup(t)
	pid := api.AddProject("Alpha")
	saID, keyID := api.AddServiceAccount(pid, "deploy-bot", 0)

	_, err := svc.Delete(context.Background(), pid, keyID)
	require.ErrorIs(t, err, apikeydomain.ErrServiceAccountKey)

	var refusal *apikeydomain.ServiceAccountKeyError
	require.True(t, errors.As(err, &refusal))
	assert.Equal(t, saID, refusal.ServiceAccountID)
	assert.Contains(t, err.Error(), "service-accounts delete "+pid+" "+saID)
	assert.Equal(t, 0, api.CallCount(http.MethodDelete, ""))
}

func TestGetValidatesIDs(t *testing.T) {
	api, svc := setup(t)
	_, err := svc.Get(context.Background(), "proj_1", "")
	assert.ErrorIs(t, err, apikeydomain.ErrInvalidKeyID)
	assert.Empty(t, api.Calls())
}

func TestPaddedIDsAreTrimmed(t *testing.T) {
	api, svc := setup(t)
	pid := api.AddProject("Alpha")
	uid := api.AddUser("Ada", "ada@example.com", "owner")
	keyID := api.AddUserAPIKey(pid, uid, "laptop")

	result, err := svc.Delete(context.Background(), " "+pid, keyID+" ")
	require.NoError(t, err)
	assert.True(t, result.Deleted)
	assert.Equal(t, 1, api.CallCount(http.MethodDelete, "projects/"+pid+"/api_keys/"+keyID))
}
