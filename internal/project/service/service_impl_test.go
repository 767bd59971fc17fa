package service

import (
	"context"
	"testing"

	"github.com/smallbiznis/orgadmin/internal/apierr"
	"github.com/smallbiznis/orgadmin/internal/client"
	"github.com/smallbiznis/orgadmin/internal/fakeapi"
	projectdomain "github.com/smallbiznis/orgadmin/internal/project/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setup(t *testing.T) (*fakeapi.Server, projectdomain.Service) {
	t.Helper()
	api := fakeapi.New()
	t.Cleanup(api.Close)
	c := client.NewClient(client.Options{BaseURL: api.URL(), AdminKey: fakeapi.DefaultAdminKey})
	return api, New(Params{Client: c, Log: zap.NewNop()})
}

func TestListExcludesArchivedByDefault(t *testing.T) {
	api, svc := setup(t)
	active := api.AddProject("Alpha")
	archived := api.AddProject("Beta")
	api.ArchiveProject(archived)

	projects, err := svc.List(context.Background(), projectdomain.ListRequest{})
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, active, projects[0].ID)

	projects, err = svc.List(context.Background(), projectdomain.ListRequest{IncludeArchived: true})
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.True(t, projects[1].Archived())
	assert.NotNil(t, projects[1].ArchivedAt)
}

func TestCreateRenameArchive(t *testing.T) {
	api, svc := setup(t)

	project, err := svc.Create(context.Background(), "Gamma")
	require.NoError(t, err)
	assert.Equal(t, projectdomain.StatusActive, project.Status)

	project, err = svc.Rename(context.Background(), project.ID, "Gamma Prod")
	require.NoError(t, err)
	assert.Equal(t, "Gamma Prod", project.Name)

	project, err = svc.Archive(context.Background(), project.ID)
	require.NoError(t, err)
	assert.True(t, project.Archived())
	assert.Equal(t, projectdomain.StatusArchived, api.ProjectStatus(project.ID))

	_, err = svc.Archive(context.Background(), project.ID)
	assert.Equal(t, projectdomain.ErrorCodeArchived, apierr.Code(err))
}

func TestCreateRequiresName(t *testing.T) {
	api, svc := setup(t)
	_, err := svc.Create(context.Background(), "")
	assert.ErrorIs(t, err, projectdomain.ErrInvalidName)
	assert.Empty(t, api.Calls())
}
