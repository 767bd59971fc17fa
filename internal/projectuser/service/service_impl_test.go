package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/smallbiznis/orgadmin/internal/apierr"
	"github.com/smallbiznis/orgadmin/internal/client"
	"github.com/smallbiznis/orgadmin/internal/fakeapi"
	projectuserdomain "github.com/smallbiznis/orgadmin/internal/projectuser/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setup(t *testing.T) (*fakeapi.Server, projectuserdomain.Service) {
	t.Helper()
	api := fakeapi.New()
	t.Cleanup(api.Close)
	c := client.NewClient(client.Options{BaseURL: api.URL(), AdminKey: fakeapi.DefaultAdminKey})
	return api, New(Params{Client: c, Log: zap.NewNop()})
}

func TestAddListUpdate(t *testing.T) {
	api, svc := setup(t)
	pid := api.AddProject("Alpha")
	uid := api.AddUser("Ada", "ada@example.com", "reader")

	added, err := svc.Add(context.Background(), projectuserdomain.AddRequest{ProjectID: pid, UserID: uid, Role: projectuserdomain.RoleMember})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", added.Email)

	users, err := svc.List(context.Background(), pid, 0)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, projectuserdomain.RoleMember, users[0].Role)

	updated, err := svc.UpdateRole(context.Background(), pid, uid, projectuserdomain.RoleOwner)
	require.NoError(t, err)
	assert.Equal(t, projectuserdomain.RoleOwner, updated.Role)

	_, err = svc.Add(context.Background(), projectuserdomain.AddRequest{ProjectID: pid, UserID: uid, Role: projectuserdomain.RoleMember})
	assert.Equal(t, projectuserdomain.ErrorCodeAlreadyInProject, apierr.Code(err))
}

func TestAddRejectsUnknownRole(t *testing.T) {
	api, svc := setup(t)
	_, err := svc.Add(context.Background(), projectuserdomain.AddRequest{ProjectID: "proj_1", UserID: "user_1", Role: "admin"})
	assert.ErrorIs(t, err, projectuserdomain.ErrInvalidRole)
	assert.True(t, apierr.IsValidation(err))
	assert.Empty(t, api.Calls())
}

func TestDeleteRemovesMember(t *testing.T) {
	api, svc := setup(t)
	pid := api.AddProject("Alpha")
	uid := api.AddUser("Ada", "ada@example.com", "reader")
	api.AddProjectUser(pid, uid, projectuserdomain.RoleMember)

	result, err := svc.Delete(context.Background(), pid, uid)
	require.NoError(t, err)
	assert.True(t, result.Deleted)
	assert.Empty(t, api.ProjectUserIDs(pid))
}

func TestDeleteFromArchivedProject(t *testing.T) {
	api, svc := setup(t)
	pid := api.AddProject("Legacy")
	uid := api.AddUser("Ada", "ada@example.com", "reader")
	api.AddProjectUser(pid, uid, projectuserdomain.RoleMember)
	api.ArchiveProject(pid)

	_, err := svc.Delete(context.Background(), pid, uid)
	require.ErrorIs(t, err, projectuserdomain.ErrProjectArchived)
	assert.Equal(t, 0, api.CallCount(http.MethodDelete, ""))
	assert.Equal(t, []string{uid}, api.ProjectUserIDs(pid))
}

// archivingAPI archives the project after the first read, so the delete
// races the archival.
type archivingAPI struct {
	client.API
	api       *fakeapi.Server
	projectID string
	reads     int
}

func (a *archivingAPI) Get(ctx context.Context, path string, query client.Query, out any) error {
	err := a.API.Get(ctx, path, query, out)
	if path == "projects/"+a.projectID {
		a.reads++
		if a.reads == 1 {
			a.api.ArchiveProject(a.projectID)
		}
	}
	return err
}

func TestDeleteMapsNotFoundOnArchivedParent(t *testing.T) {
	api := fakeapi.New()
	t.Cleanup(api.Close)
	pid := api.AddProject("Legacy")
	uid := api.AddUser("Ada", "ada@example.com", "reader")
	api.AddProjectUser(pid, uid, projectuserdomain.RoleMember)

	c := client.NewClient(client.Options{BaseURL: api.URL(), AdminKey: fakeapi.DefaultAdminKey})
	wrapped := &archivingAPI{API: c, api: api, projectID: pid}
	svc := New(Params{Client: wrapped, Log: zap.NewNop()})

	_, err := svc.Delete(context.Background(), pid, uid)
	require.ErrorIs(t, err, projectuserdomain.ErrProjectArchived)
	assert.Equal(t, 1, api.CallCount(http.MethodDelete, "projects/"+pid+"/users"))
	assert.Equal(t, 2, wrapped.reads)
}

func TestDeleteUnknownMember(t *testing.T) {
	api, svc := setup(t)
	pid := api.AddProject("Alpha")

	_, err := svc.Delete(context.Background(), pid, "user_missing")
	require.Error(t, err)
	assert.True(t, apierr.IsNotFound(err))
	assert.NotErrorIs(t, err, projectuserdomain.ErrProjectArchived)
}

func TestDeleteOrganizationOwner(t *testing.T) {
	api, svc := setup(t)
	pid := api.AddProject("Alpha")
	uid := api.AddUser("Root", "root@example.com", "owner")
	api.AddProjectUser(pid, uid, projectuserdomain.RoleOwner)

	_, err := svc.Delete(context.Background(), pid, uid)
	assert.Equal(t, projectuserdomain.ErrorCodeOrganizationOwner, apierr.Code(err))
}

func TestPaddedIDsAreTrimmed(t *testing.T) {
	api, svc := setup(t)
	pid := api.AddProject("Alpha")
	uid := api.AddUser("Ada", "ada@example.com", "reader")
	api.AddProjectUser(pid, uid, projectuserdomain.RoleMember)

	user, err := svc.Get(context.Background(), " "+pid, uid+"\t")
	require.NoError(t, err)
	assert.Equal(t, uid, user.ID)

	updated, err := svc.UpdateRole(context.Background(), pid+" ", " "+uid, projectuserdomain.RoleOwner)
	require.NoError(t, err)
	assert.Equal(t, projectuserdomain.RoleOwner, updated.Role)

	for _, c := range api.Calls() {
		assert.NotContains(t, c.Path, " ")
		assert.NotContains(t, c.Path, "%20")
	}
}
