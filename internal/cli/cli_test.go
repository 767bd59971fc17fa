package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/smallbiznis/orgadmin/internal/apierr"
	"github.com/smallbiznis/orgadmin/internal/clock"
	"github.com/smallbiznis/orgadmin/internal/fakeapi"
	"github.com/smallbiznis/orgadmin/internal/providers/mattermost"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
)

var now = time.Date(2025, time.November, 13, 10, 0, 0, 0, time.UTC)

type result struct {
	stdout string
	stderr string
	err    error
}

type recordingMattermost struct {
	mu       sync.Mutex
	channels []string
	messages []string
}

func (r *recordingMattermost) PostMessage(_ context.Context, channelID, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels = append(r.channels, channelID)
	r.messages = append(r.messages, message)
	return nil
}

func (r *recordingMattermost) DirectChannel(_ context.Context, userID string) (string, error) {
	return "dm-" + userID, nil
}

func quietEnv(t *testing.T) {
	t.Helper()
	t.Setenv("ORGADMIN_LOG_FILE", filepath.Join(t.TempDir(), "orgadmin.log"))
	t.Setenv("OPENAI_ADMIN_KEY", "")
	t.Setenv("ORGADMIN_MAX_RETRIES", "0")
	t.Setenv("MATTERMOST_BOT_TOKEN", "")
	t.Setenv("MAIL_HOST", "")
	t.Setenv("OTEL_ENABLED", "false")
	t.Setenv("ORGADMIN_PUSHGATEWAY_URL", "")
}

func setup(t *testing.T) *fakeapi.Server {
	t.Helper()
	quietEnv(t)
	api := fakeapi.New()
	t.Cleanup(api.Close)
	return api
}

func run(t *testing.T, api *fakeapi.Server, stdin string, extra []fx.Option, args ...string) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	modules := append([]fx.Option{
		fx.Decorate(func(clock.Clock) clock.Clock { return clock.NewFakeClock(now) }),
	}, extra...)
	cmd := New(Options{
		Stdin:   strings.NewReader(stdin),
		Stdout:  &stdout,
		Stderr:  &stderr,
		Modules: modules,
	})
	full := append([]string{"orgadmin", "--base-url", api.URL(), "--admin-key", fakeapi.DefaultAdminKey}, args...)
	err := cmd.Run(context.Background(), full)
	return result{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func TestProjectsListTable(t *testing.T) {
	api := setup(t)
	id := api.AddProject("Alpha")

	res := run(t, api, "", nil, "projects", "list")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, id)
	assert.Contains(t, res.stdout, "Alpha")
}

func TestProjectsListJSON(t *testing.T) {
	api := setup(t)
	api.AddProject("Alpha")
	api.AddProject("Beta")

	res := run(t, api, "", nil, "--format", "json", "projects", "list")
	require.NoError(t, res.err)

	var projects []map[string]any
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &projects))
	assert.Len(t, projects, 2)
}

func TestEmptyListPrintsNoResults(t *testing.T) {
	api := setup(t)

	res := run(t, api, "", nil, "invites", "list")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "No results.")
}

func TestMissingArgumentIsValidationError(t *testing.T) {
	api := setup(t)

	res := run(t, api, "", nil, "users", "get")
	require.Error(t, res.err)
	assert.True(t, apierr.IsValidation(res.err))
	assert.Empty(t, api.Calls())
}

func TestUnknownFormatIsRejected(t *testing.T) {
	api := setup(t)

	res := run(t, api, "", nil, "--format", "yaml", "projects", "list")
	require.Error(t, res.err)
	assert.Empty(t, api.Calls())
}

func TestDeleteAbortsWithoutConfirmation(t *testing.T) {
	api := setup(t)
	id := api.AddAdminKey("ci")

	res := run(t, api, "n\n", nil, "admin-keys", "delete", id)
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Aborted.")
	assert.Contains(t, res.stderr, "[y/N]")
	assert.Zero(t, api.CallCount(http.MethodDelete, "admin_api_keys"))
}

func TestDeleteAfterConfirmation(t *testing.T) {
	api := setup(t)
	id := api.AddAdminKey("ci")

	res := run(t, api, "yes\n", nil, "admin-keys", "delete", id)
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Deleted admin API key "+id+".")
	assert.Equal(t, 1, api.CallCount(http.MethodDelete, "admin_api_keys/"+id))
}

func TestDeleteWithForceSkipsPrompt(t *testing.T) {
	api := setup(t)
	id := api.AddAdminKey("ci")

	res := run(t, api, "", nil, "admin-keys", "delete", "--force", id)
	require.NoError(t, res.err)
	assert.NotContains(t, res.stderr, "[y/N]")
	assert.Equal(t, 1, api.CallCount(http.MethodDelete, "admin_api_keys/"+id))
}

func TestAPIErrorIsReturned(t *testing.T) {
	api := setup(t)
	api.Fail(http.MethodGet, "projects/proj_missing", http.StatusNotFound, "", "No such project: proj_missing")

	res := run(t, api, "", nil, "projects", "get", "proj_missing")
	require.Error(t, res.err)
	assert.True(t, apierr.IsNotFound(res.err))
}

func TestRateLimitUpdateSendsOnlySetFlags(t *testing.T) {
	api := setup(t)
	pid := api.AddProject("Alpha")
	rl := api.AddRateLimit(pid, "gpt-4o")

	res := run(t, api, "", nil, "rate-limits", "update", "--max-requests-per-1-minute", "100", pid, rl)
	require.NoError(t, res.err)

	var body string
	for _, c := range api.Calls() {
		if c.Method == http.MethodPost {
			body = c.Body
		}
	}
	assert.JSONEq(t, `{"max_requests_per_1_minute": 100}`, body)
}

func TestRateLimitUpdateWithoutFlags(t *testing.T) {
	api := setup(t)
	pid := api.AddProject("Alpha")

	res := run(t, api, "", nil, "rate-limits", "update", pid, "rl-gpt-4o")
	require.Error(t, res.err)
	assert.True(t, apierr.IsValidation(res.err))
	assert.Zero(t, api.CallCount(http.MethodPost, ""))
}

func TestCostsPrintsTotals(t *testing.T) {
	api := setup(t)
	start := fakeapi.BaseTime.Unix()
	api.SetUsageBuckets("costs", []map[string]any{
		{
			"object": "bucket", "start_time": start, "end_time": start + 86400,
			"results": []map[string]any{{
				"object": "organization.costs.result",
				"amount": map[string]any{"value": 1.5, "currency": "usd"},
			}},
		},
		{
			"object": "bucket", "start_time": start + 86400, "end_time": start + 2*86400,
			"results": []map[string]any{{
				"object": "organization.costs.result",
				"amount": map[string]any{"value": 2.5, "currency": "usd"},
			}},
		},
	})

	res := run(t, api, "", nil, "costs", "--days", "7")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Period: ")
	assert.Contains(t, res.stdout, "Total (USD): ")
}

func TestCertificatesActivate(t *testing.T) {
	api := setup(t)
	a := api.AddCertificate("a", false)
	b := api.AddCertificate("b", false)

	res := run(t, api, "", nil, "certificates", "activate", a, b)
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Activated 2 certificate(s).")
	assert.True(t, api.CertificateActive(a))
	assert.True(t, api.CertificateActive(b))
}

func TestCertificatesActivateTooMany(t *testing.T) {
	api := setup(t)
	ids := make([]string, 0, 11)
	for i := 0; i < 11; i++ {
		ids = append(ids, "cert_"+string(rune('a'+i)))
	}

	res := run(t, api, "", nil, append([]string{"certificates", "activate"}, ids...)...)
	require.Error(t, res.err)
	assert.True(t, apierr.IsValidation(res.err))
	assert.Empty(t, api.Calls())
}

func TestCertificateUploadRejectsNonPEM(t *testing.T) {
	api := setup(t)
	path := filepath.Join(t.TempDir(), "cert.pem")
	require.NoError(t, os.WriteFile(path, []byte("not a certificate"), 0o600))

	res := run(t, api, "", nil, "certificates", "upload", "--file", path, "edge")
	require.Error(t, res.err)
	assert.True(t, apierr.IsValidation(res.err))
	assert.Empty(t, api.Calls())
}

func TestRotationCreatePrintsKeyWithoutRecipient(t *testing.T) {
	api := setup(t)
	pid := api.AddProject("Alpha")

	res := run(t, api, "", nil, "rotation", "create", "--project-id", pid, "--prefix", "api-key")
	require.NoError(t, res.err)
	assert.Contains(t, api.ServiceAccountNames(pid), "api-key-25-11")
	assert.Contains(t, res.stdout, "Created service account api-key-25-11")
	assert.Contains(t, res.stdout, "API key: sk-svcacct-")
}

func TestRotationCleanupDryRun(t *testing.T) {
	api := setup(t)
	pid := api.AddProject("Alpha")
	api.AddServiceAccount(pid, "api-key-25-09", 0)
	api.AddServiceAccount(pid, "api-key-25-10", 0)
	api.AddServiceAccount(pid, "api-key-25-11", 0)

	res := run(t, api, "", nil, "rotation", "cleanup", "--project-id", pid, "--prefix", "api-key", "--dry-run")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Would delete 2 service account(s).")
	assert.Len(t, api.ServiceAccountNames(pid), 3)
	assert.Zero(t, api.CallCount(http.MethodDelete, ""))
}

func TestRotationCreateReadsConfigFile(t *testing.T) {
	api := setup(t)
	pid := api.AddProject("Alpha")
	path := filepath.Join(t.TempDir(), "rotation.json")
	body := `{"project_id": "` + pid + `", "prefix": "api-key", "date_format": "YYYY-MM-DD"}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	res := run(t, api, "", nil, "rotation", "create", "--config-file", path, "--prefix", "backend", "--dry-run")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Would create service account backend-2025-11-13 (dry run).")
	assert.Zero(t, api.CallCount(http.MethodPost, ""))
}

func TestRotationCleanupNeedsTarget(t *testing.T) {
	api := setup(t)

	res := run(t, api, "", nil, "rotation", "cleanup", "--dry-run")
	require.Error(t, res.err)
	assert.True(t, apierr.IsValidation(res.err))
	assert.Empty(t, api.Calls())
}

func TestRotationBatchReportsFailures(t *testing.T) {
	api := setup(t)
	pid := api.AddProject("Alpha")
	path := filepath.Join(t.TempDir(), "rotation.json")
	body := `{"rotations": [
		{"project_name": "Alpha", "project_id": "` + pid + `", "keys": [{"name": "backend"}]},
		{"project_name": "Gone", "project_id": "proj_gone", "keys": [{"name": "backend"}]}
	]}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	api.Fail(http.MethodGet, "projects/proj_gone/service_accounts", http.StatusNotFound, "", "No such project: proj_gone")

	res := run(t, api, "", nil, "rotation", "batch", path)
	require.Error(t, res.err)
	assert.Contains(t, res.stdout, "Summary: 1 succeeded, 0 skipped, 1 failed.")
	assert.Contains(t, api.ServiceAccountNames(pid), "backend-25-11")
}

func TestNotifyStatusShowsUnconfiguredChannels(t *testing.T) {
	api := setup(t)

	res := run(t, api, "", nil, "notify", "status")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "set MATTERMOST_BOT_TOKEN")
	assert.Contains(t, res.stdout, "set MAIL_HOST and MAIL_FROM_ADDRESS")
	assert.Empty(t, api.Calls())
}

func TestNotifyFailureKeepsCommandOutcome(t *testing.T) {
	api := setup(t)
	api.AddProject("Alpha")

	res := run(t, api, "", nil, "--notify", "alice", "projects", "list")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Alpha")
	assert.Contains(t, res.stderr, "Warning: notification to alice failed")
}

func TestNotifyForwardsOutput(t *testing.T) {
	api := setup(t)
	api.AddProject("Alpha")
	t.Setenv("MATTERMOST_BOT_TOKEN", "bot-token")

	mapping := filepath.Join(t.TempDir(), "user_mapping.json")
	require.NoError(t, os.WriteFile(mapping, []byte(`{"users": {"alice": {"name": "Alice", "mattermost_channel_id": "chan-1"}}}`), 0o600))

	rec := &recordingMattermost{}
	decorate := fx.Decorate(func(mattermost.Provider) mattermost.Provider { return rec })

	res := run(t, api, "", []fx.Option{decorate}, "--notify", "alice", "--user-mapping", mapping, "projects", "list")
	require.NoError(t, res.err)
	assert.Contains(t, res.stderr, "Notification sent to alice via mattermost.")

	require.Len(t, rec.messages, 1)
	assert.Equal(t, "chan-1", rec.channels[0])
	assert.Contains(t, rec.messages[0], "orgadmin projects list")
	assert.Contains(t, rec.messages[0], "Alpha")
}

func TestNotifyCommandLineCarriesFlags(t *testing.T) {
	api := setup(t)
	api.AddProject("Alpha")
	t.Setenv("MATTERMOST_BOT_TOKEN", "bot-token")

	mapping := filepath.Join(t.TempDir(), "user_mapping.json")
	require.NoError(t, os.WriteFile(mapping, []byte(`{"users": {"alice": {"mattermost_channel_id": "chan-1"}}}`), 0o600))

	rec := &recordingMattermost{}
	decorate := fx.Decorate(func(mattermost.Provider) mattermost.Provider { return rec })

	res := run(t, api, "", []fx.Option{decorate}, "--notify", "alice", "--user-mapping", mapping,
		"projects", "list", "--limit", "5", "--include-archived")
	require.NoError(t, res.err)

	require.Len(t, rec.messages, 1)
	assert.Contains(t, rec.messages[0], "orgadmin projects list --limit 5 --include-archived")
	assert.NotContains(t, rec.messages[0], fakeapi.DefaultAdminKey)
}

func TestNotifyIncludesFailure(t *testing.T) {
	api := setup(t)
	t.Setenv("MATTERMOST_BOT_TOKEN", "bot-token")
	api.Fail(http.MethodGet, "projects", http.StatusForbidden, "", "Insufficient permissions")

	mapping := filepath.Join(t.TempDir(), "user_mapping.json")
	require.NoError(t, os.WriteFile(mapping, []byte(`{"users": {"alice": {"mattermost_user_id": "u-1"}}}`), 0o600))

	rec := &recordingMattermost{}
	decorate := fx.Decorate(func(mattermost.Provider) mattermost.Provider { return rec })

	res := run(t, api, "", []fx.Option{decorate}, "--notify", "alice", "--user-mapping", mapping, "projects", "list")
	require.Error(t, res.err)

	require.Len(t, rec.messages, 1)
	assert.Equal(t, "dm-u-1", rec.channels[0])
	assert.Contains(t, rec.messages[0], "Error: ")
	assert.Contains(t, rec.messages[0], "Insufficient permissions")
}

func TestAuditEventTypesNeedNoAPI(t *testing.T) {
	api := setup(t)

	res := run(t, api, "", nil, "audit", "event-types")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "project.created")
	assert.Empty(t, api.Calls())
}
