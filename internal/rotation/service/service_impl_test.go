package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/smallbiznis/orgadmin/internal/apierr"
	"github.com/smallbiznis/orgadmin/internal/client"
	"github.com/smallbiznis/orgadmin/internal/clock"
	"github.com/smallbiznis/orgadmin/internal/config"
	"github.com/smallbiznis/orgadmin/internal/fakeapi"
	notifydomain "github.com/smallbiznis/orgadmin/internal/notify/domain"
	rotationdomain "github.com/smallbiznis/orgadmin/internal/rotation/domain"
	serviceaccountservice "github.com/smallbiznis/orgadmin/internal/serviceaccount/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var now = time.Date(2025, time.November, 13, 10, 0, 0, 0, time.UTC)

type sentMessage struct {
	userID  string
	channel notifydomain.Channel
	msg     notifydomain.Message
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (f *fakeNotifier) Send(_ context.Context, userID string, channel notifydomain.Channel, msg notifydomain.Message) (*notifydomain.Delivery, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{userID: userID, channel: channel, msg: msg})
	d := &notifydomain.Delivery{UserID: userID, Channel: channel, Status: notifydomain.StatusPending, CreatedAt: msg.At}
	d.Complete(msg.At, f.err)
	if f.err != nil {
		return d, f.err
	}
	return d, nil
}

func (f *fakeNotifier) Recipients() ([]notifydomain.Recipient, error) { return nil, nil }

func (f *fakeNotifier) Channels() []notifydomain.ChannelStatus { return nil }

func (f *fakeNotifier) messages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sent...)
}

func setup(t *testing.T) (*fakeapi.Server, *fakeNotifier, rotationdomain.Service) {
	t.Helper()
	api := fakeapi.New()
	t.Cleanup(api.Close)
	c := client.NewClient(client.Options{BaseURL: api.URL(), AdminKey: fakeapi.DefaultAdminKey})
	notifier := &fakeNotifier{}
	svc := New(Params{
		ServiceAccounts: serviceaccountservice.New(serviceaccountservice.Params{Client: c, Log: zap.NewNop()}),
		Notifier:        notifier,
		Clock:           clock.NewFakeClock(now),
		Log:             zap.NewNop(),
	})
	return api, notifier, svc
}

func daysAgo(n int) int64 {
	return now.Add(-time.Duration(n) * 24 * time.Hour).Unix()
}

func mutations(api *fakeapi.Server) int {
	return api.CallCount(http.MethodPost, "") + api.CallCount(http.MethodDelete, "")
}

func TestCreateNotifiesWithNewKey(t *testing.T) {
	api, notifier, svc := setup(t)
	pid := api.AddProject("Inventory")
	api.AddServiceAccount(pid, "inventory-server-25-10", daysAgo(40))

	res, err := svc.Create(context.Background(), rotationdomain.CreateRequest{
		ProjectID:  pid,
		Prefix:     "inventory-server",
		NotifyUser: "49",
	})
	require.NoError(t, err)
	assert.Equal(t, "inventory-server-25-11", res.Name)
	assert.Len(t, res.Existing, 1)
	require.NotNil(t, res.Created)
	require.NotNil(t, res.Created.APIKey)
	assert.ElementsMatch(t, []string{"inventory-server-25-10", "inventory-server-25-11"}, api.ServiceAccountNames(pid))

	require.NotNil(t, res.Notification)
	require.NoError(t, res.Notification.Err)
	assert.Equal(t, notifydomain.StatusSent, res.Notification.Delivery.Status)
	sent := notifier.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, "49", sent[0].userID)
	assert.Equal(t, notifydomain.ChannelMattermost, sent[0].channel)
	assert.Contains(t, sent[0].msg.Output, res.Created.APIKey.Value)
	assert.Contains(t, sent[0].msg.Output, "rotation cleanup --project-id "+pid)
}

func TestCreateFullDateFormat(t *testing.T) {
	api, _, svc := setup(t)
	pid := api.AddProject("Inventory")

	res, err := svc.Create(context.Background(), rotationdomain.CreateRequest{ProjectID: pid, Prefix: "api-key", DateFormat: "YYYY-MM-DD"})
	require.NoError(t, err)
	assert.Equal(t, "api-key-2025-11-13", res.Name)
	assert.Nil(t, res.Notification)
}

func TestCreateDryRun(t *testing.T) {
	api, notifier, svc := setup(t)
	pid := api.AddProject("Inventory")

	res, err := svc.Create(context.Background(), rotationdomain.CreateRequest{
		ProjectID: pid, Prefix: "inventory-server", NotifyUser: "49", DryRun: true,
	})
	require.NoError(t, err)
	assert.Nil(t, res.Created)
	require.NotNil(t, res.Notification)
	assert.Equal(t, "dry run", res.Notification.Skipped)
	assert.Zero(t, mutations(api))
	assert.Empty(t, notifier.messages())
}

func TestCreateNotificationFailureKeepsKey(t *testing.T) {
	api, notifier, svc := setup(t)
	notifier.err = errors.New("mattermost down")
	pid := api.AddProject("Inventory")

	res, err := svc.Create(context.Background(), rotationdomain.CreateRequest{ProjectID: pid, Prefix: "bot", NotifyUser: "49"})
	require.NoError(t, err)
	require.NotNil(t, res.Created)
	require.Error(t, res.Notification.Err)
	assert.Equal(t, notifydomain.StatusFailed, res.Notification.Delivery.Status)
	assert.Equal(t, []string{"bot-25-11"}, api.ServiceAccountNames(pid))
}

func TestCreateValidation(t *testing.T) {
	api, _, svc := setup(t)

	cases := []rotationdomain.CreateRequest{
		{Prefix: "bot"},
		{ProjectID: "proj_1", Prefix: " "},
		{ProjectID: "proj_1", Prefix: "bot", DateFormat: "MM-YY"},
		{ProjectID: "proj_1", Prefix: "bot", NotifyChannel: "sms"},
	}
	for _, req := range cases {
		_, err := svc.Create(context.Background(), req)
		assert.True(t, apierr.IsValidation(err), "%+v", req)
		_, err = svc.Execute(context.Background(), req)
		assert.True(t, apierr.IsValidation(err), "%+v", req)
	}
	assert.Empty(t, api.Calls())
}

func TestCleanupKeepsNewest(t *testing.T) {
	api, _, svc := setup(t)
	pid := api.AddProject("Inventory")
	api.AddServiceAccount(pid, "inventory-server-25-09", daysAgo(70))
	api.AddServiceAccount(pid, "inventory-server-25-11", daysAgo(2))
	api.AddServiceAccount(pid, "inventory-server-25-10", daysAgo(40))
	api.AddServiceAccount(pid, "inventory-server-legacy", daysAgo(400))
	api.AddServiceAccount(pid, "other-bot-25-01", daysAgo(300))

	plan, err := svc.PlanCleanup(context.Background(), rotationdomain.CleanupRequest{ProjectID: pid, Prefix: "inventory-server", KeepLatest: 1})
	require.NoError(t, err)
	require.Len(t, plan.Keep, 1)
	assert.Equal(t, "inventory-server-25-11", plan.Keep[0].Name)
	require.Len(t, plan.Delete, 2)
	assert.Equal(t, "inventory-server-25-10", plan.Delete[0].Name)

	res, err := svc.Cleanup(context.Background(), plan, false)
	require.NoError(t, err)
	assert.Len(t, res.Deleted, 2)
	assert.Empty(t, res.Failed)
	assert.ElementsMatch(t, []string{"inventory-server-25-11", "inventory-server-legacy", "other-bot-25-01"}, api.ServiceAccountNames(pid))
}

func TestCleanupNothingToDo(t *testing.T) {
	api, _, svc := setup(t)
	pid := api.AddProject("Inventory")
	api.AddServiceAccount(pid, "bot-25-11", daysAgo(1))

	plan, err := svc.PlanCleanup(context.Background(), rotationdomain.CleanupRequest{ProjectID: pid, Prefix: "bot", KeepLatest: 2})
	require.NoError(t, err)
	assert.Len(t, plan.Keep, 1)
	assert.Empty(t, plan.Delete)

	_, err = svc.PlanCleanup(context.Background(), rotationdomain.CleanupRequest{ProjectID: pid, Prefix: "bot", KeepLatest: 0})
	assert.True(t, apierr.IsValidation(err))
}

func TestCleanupRecordsFailuresAndToleratesMissing(t *testing.T) {
	api, _, svc := setup(t)
	pid := api.AddProject("Inventory")
	api.AddServiceAccount(pid, "bot-25-11", daysAgo(1))
	stuck, _ := api.AddServiceAccount(pid, "bot-25-10", daysAgo(30))
	gone, _ := api.AddServiceAccount(pid, "bot-25-09", daysAgo(60))

	plan, err := svc.PlanCleanup(context.Background(), rotationdomain.CleanupRequest{ProjectID: pid, Prefix: "bot", KeepLatest: 1})
	require.NoError(t, err)
	api.Fail(http.MethodDelete, "projects/"+pid+"/service_accounts/"+stuck, http.StatusBadRequest, "", "boom")
	api.Fail(http.MethodDelete, "projects/"+pid+"/service_accounts/"+gone, http.StatusNotFound, "", "No such service account")

	res, err := svc.Cleanup(context.Background(), plan, false)
	require.NoError(t, err)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, stuck, res.Failed[0].Account.ID)
	require.Len(t, res.Deleted, 1)
	assert.Equal(t, gone, res.Deleted[0].ID)
}

func TestCleanupDryRun(t *testing.T) {
	api, _, svc := setup(t)
	pid := api.AddProject("Inventory")
	api.AddServiceAccount(pid, "bot-25-11", daysAgo(1))
	api.AddServiceAccount(pid, "bot-25-10", daysAgo(30))

	plan, err := svc.PlanCleanup(context.Background(), rotationdomain.CleanupRequest{ProjectID: pid, Prefix: "bot", KeepLatest: 1})
	require.NoError(t, err)
	res, err := svc.Cleanup(context.Background(), plan, true)
	require.NoError(t, err)
	assert.Len(t, res.Deleted, 1)
	assert.Zero(t, mutations(api))
	assert.Len(t, api.ServiceAccountNames(pid), 2)
}

func TestExecuteRotates(t *testing.T) {
	api, notifier, svc := setup(t)
	pid := api.AddProject("Inventory")
	api.AddServiceAccount(pid, "bot-25-09", daysAgo(70))
	api.AddServiceAccount(pid, "bot-25-10", daysAgo(40))

	res, err := svc.Execute(context.Background(), rotationdomain.CreateRequest{ProjectID: pid, Prefix: "bot", NotifyUser: "49"})
	require.NoError(t, err)
	assert.False(t, res.AlreadyExisted)
	require.NotNil(t, res.Created)
	require.Len(t, res.Deleted, 1)
	assert.Equal(t, "bot-25-09", res.Deleted[0].Name)
	assert.ElementsMatch(t, []string{"bot-25-10", "bot-25-11"}, api.ServiceAccountNames(pid))

	sent := notifier.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, "rotation execute", sent[0].msg.Command)
	assert.Contains(t, sent[0].msg.Output, "Deleted 1 old service account(s).")
}

func TestExecuteSingleOlderKeyIsReplaced(t *testing.T) {
	api, _, svc := setup(t)
	pid := api.AddProject("Inventory")
	api.AddServiceAccount(pid, "bot-25-10", daysAgo(40))

	res, err := svc.Execute(context.Background(), rotationdomain.CreateRequest{ProjectID: pid, Prefix: "bot"})
	require.NoError(t, err)
	require.Len(t, res.Deleted, 1)
	assert.Equal(t, []string{"bot-25-11"}, api.ServiceAccountNames(pid))
}

func TestExecuteKeepsCurrentPeriod(t *testing.T) {
	api, notifier, svc := setup(t)
	pid := api.AddProject("Inventory")
	api.AddServiceAccount(pid, "bot-25-11", daysAgo(3))

	res, err := svc.Execute(context.Background(), rotationdomain.CreateRequest{ProjectID: pid, Prefix: "bot", NotifyUser: "49"})
	require.NoError(t, err)
	assert.True(t, res.AlreadyExisted)
	assert.Nil(t, res.Created)
	assert.Empty(t, res.Deleted)
	assert.Equal(t, "no api key to send", res.Notification.Skipped)
	assert.Zero(t, mutations(api))
	assert.Empty(t, notifier.messages())
}

func TestExecuteDryRun(t *testing.T) {
	api, _, svc := setup(t)
	pid := api.AddProject("Inventory")
	api.AddServiceAccount(pid, "bot-25-09", daysAgo(70))
	api.AddServiceAccount(pid, "bot-25-10", daysAgo(40))

	res, err := svc.Execute(context.Background(), rotationdomain.CreateRequest{ProjectID: pid, Prefix: "bot", DryRun: true})
	require.NoError(t, err)
	assert.True(t, res.DryRun)
	require.Len(t, res.Deleted, 1)
	assert.Equal(t, "bot-25-09", res.Deleted[0].Name)
	assert.Zero(t, mutations(api))
}

func TestListWithAndWithoutPrefix(t *testing.T) {
	api, _, svc := setup(t)
	pid := api.AddProject("Inventory")
	api.AddServiceAccount(pid, "a-25-10", 0)
	api.AddServiceAccount(pid, "b-2025-11-01", 0)
	api.AddServiceAccount(pid, "plain", 0)

	all, err := svc.List(context.Background(), pid, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.False(t, all[0].HasDate())

	byPrefix, err := svc.List(context.Background(), pid, "b")
	require.NoError(t, err)
	require.Len(t, byPrefix, 1)
	assert.Equal(t, "b-2025-11-01", byPrefix[0].Name)
	assert.True(t, byPrefix[0].HasDate())

	_, err = svc.List(context.Background(), "", "")
	assert.True(t, apierr.IsValidation(err))
}

func TestCheckAdvice(t *testing.T) {
	api, _, svc := setup(t)
	pid := api.AddProject("Inventory")
	api.AddServiceAccount(pid, "bot-25-10", daysAgo(40))
	api.AddServiceAccount(pid, "bot-25-11", daysAgo(3))

	status, err := svc.Check(context.Background(), pid, "bot")
	require.NoError(t, err)
	require.Len(t, status.Accounts, 2)
	assert.True(t, status.Accounts[0].Current)
	assert.Equal(t, 3, status.NewestAge)
	assert.Equal(t, rotationdomain.AdviceRecent, status.Advice)
	assert.Equal(t, 1, status.ToBeCulled)
	assert.Equal(t, 40, status.Accounts[1].AgeDays)

	empty, err := svc.Check(context.Background(), pid, "nothing")
	require.NoError(t, err)
	assert.Empty(t, empty.Accounts)
	assert.Equal(t, rotationdomain.Advice(""), empty.Advice)
}

func batchConfig(pid string) config.RotationConfig {
	return config.RotationConfig{Rotations: []config.RotationJob{
		{ProjectName: "Inventory", ProjectID: pid, Keys: []config.RotationKey{
			{Name: "inventory-server", NotifyUser: "49"},
			{Name: ""},
		}},
		{ProjectName: "Empty", ProjectID: pid},
		{ProjectName: "Broken"},
	}}
}

func TestBatchCreate(t *testing.T) {
	api, notifier, svc := setup(t)
	pid := api.AddProject("Inventory")

	report, err := svc.Batch(context.Background(), rotationdomain.BatchRequest{Config: batchConfig(pid), Action: rotationdomain.ActionCreate})
	require.NoError(t, err)
	assert.Len(t, report.RunID, 26)
	assert.Equal(t, 1, report.Count(rotationdomain.BatchSuccess))
	assert.Equal(t, 2, report.Count(rotationdomain.BatchFailed))
	assert.Equal(t, 1, report.Count(rotationdomain.BatchSkipped))
	assert.Equal(t, []string{"inventory-server-25-11"}, api.ServiceAccountNames(pid))
	assert.Len(t, notifier.messages(), 1)

	again, err := svc.Batch(context.Background(), rotationdomain.BatchRequest{Config: batchConfig(pid), Action: rotationdomain.ActionCreate})
	require.NoError(t, err)
	assert.Zero(t, again.Count(rotationdomain.BatchSuccess))
	assert.Equal(t, 2, again.Count(rotationdomain.BatchSkipped))
	assert.True(t, strings.Contains(again.Items[0].Detail, "already exists"))
	assert.Len(t, api.ServiceAccountNames(pid), 1)
}

func TestBatchCleanup(t *testing.T) {
	api, _, svc := setup(t)
	pid := api.AddProject("Inventory")
	api.AddServiceAccount(pid, "inventory-server-25-10", daysAgo(40))
	api.AddServiceAccount(pid, "inventory-server-25-11", daysAgo(3))

	cfg := config.RotationConfig{Rotations: []config.RotationJob{
		{ProjectName: "Inventory", ProjectID: pid, Keys: []config.RotationKey{{Name: "inventory-server"}}},
	}}
	dry, err := svc.Batch(context.Background(), rotationdomain.BatchRequest{Config: cfg, Action: rotationdomain.ActionCleanup, DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 1, dry.Count(rotationdomain.BatchSuccess))
	assert.Len(t, api.ServiceAccountNames(pid), 2)

	report, err := svc.Batch(context.Background(), rotationdomain.BatchRequest{Config: cfg, Action: rotationdomain.ActionCleanup})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Count(rotationdomain.BatchSuccess))
	assert.Equal(t, "deleted 1 old key(s)", report.Items[0].Detail)
	assert.Equal(t, []string{"inventory-server-25-11"}, api.ServiceAccountNames(pid))
}

func TestBatchValidation(t *testing.T) {
	api, _, svc := setup(t)

	_, err := svc.Batch(context.Background(), rotationdomain.BatchRequest{Action: "rotate", Config: batchConfig("proj_1")})
	assert.True(t, apierr.IsValidation(err))
	_, err = svc.Batch(context.Background(), rotationdomain.BatchRequest{Action: rotationdomain.ActionCreate})
	assert.True(t, apierr.IsValidation(err))
	assert.Empty(t, api.Calls())
}
