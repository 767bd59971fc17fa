package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/smallbiznis/orgadmin/internal/apierr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("OPENAI_ADMIN_KEY", "")
	t.Setenv("ORGADMIN_BASE_URL", "")
	t.Setenv("ORGADMIN_MAX_RETRIES", "")
	t.Setenv("MAIL_PORT", "")

	cfg := Load(Overrides{})

	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, 0, cfg.MaxRetries)
	assert.Equal(t, 587, cfg.Mail.Port)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Empty(t, cfg.AdminKey)
}

func TestLoadOverridesWinOverEnvironment(t *testing.T) {
	t.Setenv("OPENAI_ADMIN_KEY", "sk-admin-env")
	t.Setenv("ORGADMIN_BASE_URL", "https://env.example.com/v1/organization/")

	cfg := Load(Overrides{AdminKey: "sk-admin-flag", Debug: true})

	assert.Equal(t, "sk-admin-flag", cfg.AdminKey)
	assert.Equal(t, "https://env.example.com/v1/organization", cfg.BaseURL)
	assert.True(t, cfg.Debug)
}

func TestLoadClampsNegativeRetries(t *testing.T) {
	t.Setenv("ORGADMIN_MAX_RETRIES", "-3")
	cfg := Load(Overrides{})
	assert.Equal(t, 0, cfg.MaxRetries)
}

func TestLoadUserMapping(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mapping.json")
	body := `{"users": {"alice": {"name": "Alice", "email": "alice@example.com", "mattermost_channel_id": "chan-1"}}}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	mapping, err := LoadUserMapping(path)
	require.NoError(t, err)

	user, ok := mapping.Lookup("ALICE")
	require.True(t, ok)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, "chan-1", user.MattermostChannelID)
}

func TestLoadUserMappingMissingFileIsEmpty(t *testing.T) {
	mapping, err := LoadUserMapping(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Empty(t, mapping.Users)
}

func TestLoadRotationConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rotation.json")
	body := `{"rotations": [{"project_name": "Prod", "project_id": "proj_1", "keys": [{"name": "backend", "notify_user": "alice", "date_format": "YYYY-MM-DD"}]}]}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := LoadRotationConfig(path)
	require.NoError(t, err)
	require.Len(t, cfg.Rotations, 1)
	assert.Equal(t, "proj_1", cfg.Rotations[0].ProjectID)
	require.Len(t, cfg.Rotations[0].Keys, 1)
	assert.Equal(t, "backend", cfg.Rotations[0].Keys[0].Name)
	assert.Equal(t, "YYYY-MM-DD", cfg.Rotations[0].Keys[0].DateFormat)
}

func TestLoadRotationConfigRejectsMissingProject(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rotation.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"rotations": [{"keys": []}]}`), 0o600))

	_, err := LoadRotationConfig(path)
	require.Error(t, err)
	assert.True(t, apierr.IsConfiguration(err))
}

func TestLoadRotationConfigMissingFile(t *testing.T) {
	_, err := LoadRotationConfig(filepath.Join(t.TempDir(), "none.json"))
	require.Error(t, err)
	assert.True(t, apierr.IsConfiguration(err))
}

func TestLoadRotationTarget(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rotation.json")
	body := `{"project_id": "proj_1", "prefix": "inventory-server", "notify_user": "49"}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	target, err := LoadRotationTarget(path)
	require.NoError(t, err)
	assert.Equal(t, "proj_1", target.ProjectID)
	assert.Equal(t, "inventory-server", target.Prefix)
	assert.Equal(t, "49", target.NotifyUser)
	assert.Empty(t, target.DateFormat)

	_, err = LoadRotationTarget(filepath.Join(t.TempDir(), "none.json"))
	assert.True(t, apierr.IsConfiguration(err))
}
