package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/orgadmin/internal/apierr"
	"github.com/smallbiznis/orgadmin/internal/clock"
	notifydomain "github.com/smallbiznis/orgadmin/internal/notify/domain"
	rotationdomain "github.com/smallbiznis/orgadmin/internal/rotation/domain"
	serviceaccountdomain "github.com/smallbiznis/orgadmin/internal/serviceaccount/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	ServiceAccounts serviceaccountdomain.Service
	Notifier        notifydomain.Service
	Clock           clock.Clock
	Log             *zap.Logger
}

type Service struct {
	serviceAccounts serviceaccountdomain.Service
	notifier        notifydomain.Service
	clock           clock.Clock
	log             *zap.Logger
}

func New(p Params) rotationdomain.Service {
	return &Service{
		serviceAccounts: p.ServiceAccounts,
		notifier:        p.Notifier,
		clock:           p.Clock,
		log:             p.Log.Named("rotation.service"),
	}
}

type target struct {
	projectID string
	prefix    string
	format    rotationdomain.DateFormat
	channel   notifydomain.Channel
}

func validateCreate(req rotationdomain.CreateRequest) (target, error) {
	t := target{
		projectID: strings.TrimSpace(req.ProjectID),
		prefix:    strings.TrimSpace(req.Prefix),
	}
	if t.projectID == "" {
		return t, apierr.Validation("project_id", rotationdomain.ErrInvalidProjectID)
	}
	if t.prefix == "" {
		return t, apierr.Validation("prefix", rotationdomain.ErrInvalidPrefix)
	}
	format, ok := rotationdomain.ParseDateFormat(req.DateFormat)
	if !ok {
		return t, apierr.Validation("date_format", rotationdomain.ErrInvalidDateFormat)
	}
	t.format = format
	channel, ok := notifydomain.ParseChannel(req.NotifyChannel)
	if !ok {
		return t, apierr.Validation("notify_channel", rotationdomain.ErrInvalidChannel)
	}
	t.channel = channel
	return t, nil
}

func (s *Service) matching(ctx context.Context, projectID, prefix string) ([]rotationdomain.Account, error) {
	accounts, err := s.serviceAccounts.List(ctx, projectID, 0)
	if err != nil {
		return nil, fmt.Errorf("fetch service accounts of %s: %w", projectID, err)
	}
	return rotationdomain.Match(accounts, prefix), nil
}

func hasName(accounts []rotationdomain.Account, name string) bool {
	for _, a := range accounts {
		if a.Name == name {
			return true
		}
	}
	return false
}

func (s *Service) Create(ctx context.Context, req rotationdomain.CreateRequest) (*rotationdomain.CreateResult, error) {
	t, err := validateCreate(req)
	if err != nil {
		return nil, err
	}
	existing, err := s.matching(ctx, t.projectID, t.prefix)
	if err != nil {
		return nil, err
	}

	res := &rotationdomain.CreateResult{
		Name:     rotationdomain.NameFor(t.prefix, t.format, s.clock.Now()),
		Existing: existing,
	}
	if req.SkipExisting && hasName(existing, res.Name) {
		res.AlreadyExisted = true
		return res, nil
	}
	if req.DryRun {
		res.Notification = plannedNotification(req.NotifyUser, t.channel)
		return res, nil
	}

	if err := s.createAccount(ctx, t, res); err != nil {
		return nil, err
	}
	footer := fmt.Sprintf("Older keys stay active (%d). After switching over run:\n  orgadmin rotation cleanup --project-id %s --prefix %s\n",
		len(existing), t.projectID, t.prefix)
	res.Notification = s.notify(ctx, "rotation create", req.NotifyUser, t, res, footer)
	return res, nil
}

func (s *Service) createAccount(ctx context.Context, t target, res *rotationdomain.CreateResult) error {
	created, err := s.serviceAccounts.Create(ctx, t.projectID, res.Name)
	if err != nil {
		return fmt.Errorf("create service account %s: %w", res.Name, err)
	}
	res.Created = created
	fields := []zap.Field{
		zap.String("project_id", t.projectID),
		zap.String("service_account_id", created.ID),
		zap.String("name", res.Name),
	}
	if created.APIKey != nil {
		fields = append(fields, zap.String("api_key_id", created.APIKey.ID))
	}
	s.log.Info("rotation key created", fields...)
	return nil
}

func plannedNotification(userID string, channel notifydomain.Channel) *rotationdomain.NotificationOutcome {
	if strings.TrimSpace(userID) == "" {
		return nil
	}
	return &rotationdomain.NotificationOutcome{UserID: userID, Channel: channel, Skipped: "dry run"}
}

// notify hands the one-time key to userID. Failures are recorded on the
// outcome and logged.
func (s *Service) notify(ctx context.Context, command, userID string, t target, res *rotationdomain.CreateResult, footer string) *rotationdomain.NotificationOutcome {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil
	}
	outcome := &rotationdomain.NotificationOutcome{UserID: userID, Channel: t.channel}
	if res.Created == nil || res.Created.APIKey == nil || res.Created.APIKey.Value == "" {
		outcome.Skipped = "no api key to send"
		return outcome
	}

	msg := notifydomain.Message{
		Command: command,
		Output:  keyMessage(t, res, footer),
		Success: true,
		At:      s.clock.Now(),
	}
	delivery, err := s.notifier.Send(ctx, userID, t.channel, msg)
	outcome.Delivery = delivery
	if err != nil {
		outcome.Err = err
		s.log.Warn("rotation notification failed",
			zap.String("user_id", userID),
			zap.String("channel", string(t.channel)),
			zap.Error(err),
		)
	}
	return outcome
}

func keyMessage(t target, res *rotationdomain.CreateResult, footer string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "New API key for project %s\n", t.projectID)
	fmt.Fprintf(&b, "Service account: %s (%s)\n", res.Name, res.Created.ID)
	fmt.Fprintf(&b, "API key: %s\n\n", res.Created.APIKey.Value)
	b.WriteString("Save this key now. It will not be shown again.\n")
	b.WriteString(footer)
	return b.String()
}

func (s *Service) PlanCleanup(ctx context.Context, req rotationdomain.CleanupRequest) (*rotationdomain.CleanupPlan, error) {
	projectID := strings.TrimSpace(req.ProjectID)
	if projectID == "" {
		return nil, apierr.Validation("project_id", rotationdomain.ErrInvalidProjectID)
	}
	prefix := strings.TrimSpace(req.Prefix)
	if prefix == "" {
		return nil, apierr.Validation("prefix", rotationdomain.ErrInvalidPrefix)
	}
	if req.KeepLatest < 1 {
		return nil, apierr.Validation("keep_latest", rotationdomain.ErrInvalidKeepLatest)
	}

	matching, err := s.matching(ctx, projectID, prefix)
	if err != nil {
		return nil, err
	}
	plan := &rotationdomain.CleanupPlan{ProjectID: projectID, Prefix: prefix, Keep: matching}
	if len(matching) > req.KeepLatest {
		plan.Keep = matching[:req.KeepLatest]
		plan.Delete = matching[req.KeepLatest:]
	}
	return plan, nil
}

func (s *Service) Cleanup(ctx context.Context, plan *rotationdomain.CleanupPlan, dryRun bool) (*rotationdomain.CleanupResult, error) {
	if plan == nil {
		return nil, apierr.Validationf("plan", "cleanup plan is required")
	}
	res := &rotationdomain.CleanupResult{DryRun: dryRun, Kept: plan.Keep}
	if dryRun {
		res.Deleted = plan.Delete
		return res, nil
	}
	deleted, failed, err := s.deleteAll(ctx, plan.ProjectID, plan.Delete)
	res.Deleted, res.Failed = deleted, failed
	return res, err
}

// deleteAll removes accounts one by one; a missing account counts as
// deleted and other failures do not stop the loop.
func (s *Service) deleteAll(ctx context.Context, projectID string, accounts []rotationdomain.Account) ([]rotationdomain.Account, []rotationdomain.DeleteFailure, error) {
	var deleted []rotationdomain.Account
	var failed []rotationdomain.DeleteFailure
	for _, a := range accounts {
		if err := ctx.Err(); err != nil {
			return deleted, failed, err
		}
		_, err := s.serviceAccounts.Delete(ctx, projectID, a.ID)
		if err != nil && !apierr.IsNotFound(err) {
			s.log.Error("delete rotated service account failed",
				zap.String("project_id", projectID),
				zap.String("service_account_id", a.ID),
				zap.Error(err),
			)
			failed = append(failed, rotationdomain.DeleteFailure{Account: a, Err: err})
			continue
		}
		s.log.Info("rotated service account deleted",
			zap.String("project_id", projectID),
			zap.String("service_account_id", a.ID),
			zap.String("name", a.Name),
		)
		deleted = append(deleted, a)
	}
	return deleted, failed, nil
}

func (s *Service) Execute(ctx context.Context, req rotationdomain.CreateRequest) (*rotationdomain.ExecuteResult, error) {
	t, err := validateCreate(req)
	if err != nil {
		return nil, err
	}
	existing, err := s.matching(ctx, t.projectID, t.prefix)
	if err != nil {
		return nil, err
	}

	res := &rotationdomain.ExecuteResult{DryRun: req.DryRun}
	res.Name = rotationdomain.NameFor(t.prefix, t.format, s.clock.Now())
	res.Existing = existing
	res.AlreadyExisted = hasName(existing, res.Name)

	if !res.AlreadyExisted && !req.DryRun {
		if err := s.createAccount(ctx, t, &res.CreateResult); err != nil {
			return nil, err
		}
	}

	stale := staleAccounts(existing, res.Name)
	if req.DryRun {
		res.Deleted = stale
		res.Notification = plannedNotification(req.NotifyUser, t.channel)
		return res, nil
	}
	if res.Deleted, res.Failed, err = s.deleteAll(ctx, t.projectID, stale); err != nil {
		return res, err
	}
	footer := fmt.Sprintf("Deleted %d old service account(s).\n", len(res.Deleted))
	res.Notification = s.notify(ctx, "rotation execute", req.NotifyUser, t, &res.CreateResult, footer)
	return res, nil
}

// staleAccounts keeps the newest existing account and marks the rest.
// A lone existing account goes only when it is not the current period's.
func staleAccounts(existing []rotationdomain.Account, current string) []rotationdomain.Account {
	switch {
	case len(existing) >= 2:
		return existing[1:]
	case len(existing) == 1 && existing[0].Name != current:
		return existing
	}
	return nil
}

func (s *Service) List(ctx context.Context, projectID, prefix string) ([]rotationdomain.Account, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return nil, apierr.Validation("project_id", rotationdomain.ErrInvalidProjectID)
	}
	prefix = strings.TrimSpace(prefix)
	if prefix != "" {
		return s.matching(ctx, projectID, prefix)
	}

	accounts, err := s.serviceAccounts.List(ctx, projectID, 0)
	if err != nil {
		return nil, fmt.Errorf("fetch service accounts of %s: %w", projectID, err)
	}
	out := []rotationdomain.Account{}
	for _, sa := range accounts {
		if rotationdomain.HasDateSuffix(sa.Name) {
			out = append(out, rotationdomain.Account{ID: sa.ID, Name: sa.Name, Role: sa.Role, CreatedAt: sa.CreatedAt})
		}
	}
	return out, nil
}

func (s *Service) Check(ctx context.Context, projectID, prefix string) (*rotationdomain.Status, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return nil, apierr.Validation("project_id", rotationdomain.ErrInvalidProjectID)
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil, apierr.Validation("prefix", rotationdomain.ErrInvalidPrefix)
	}
	matching, err := s.matching(ctx, projectID, prefix)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	status := &rotationdomain.Status{ProjectID: projectID, Prefix: prefix, Accounts: []rotationdomain.AccountStatus{}}
	for i, a := range matching {
		status.Accounts = append(status.Accounts, rotationdomain.AccountStatus{
			Account: a,
			AgeDays: rotationdomain.AgeDays(now, a.CreatedAt),
			Current: i == 0,
		})
	}
	if len(status.Accounts) > 0 {
		status.NewestAge = status.Accounts[0].AgeDays
		status.Advice = rotationdomain.Advise(status.NewestAge)
	}
	if len(matching) >= 2 {
		status.ToBeCulled = len(matching) - 1
	}
	return status, nil
}

func (s *Service) Batch(ctx context.Context, req rotationdomain.BatchRequest) (*rotationdomain.BatchReport, error) {
	if _, ok := rotationdomain.ParseBatchAction(string(req.Action)); !ok {
		return nil, apierr.Validation("action", rotationdomain.ErrInvalidAction)
	}
	if len(req.Config.Rotations) == 0 {
		return nil, apierr.Validation("rotations", rotationdomain.ErrNoRotations)
	}

	runID := ulid.MustNew(ulid.Timestamp(s.clock.Now()), ulid.DefaultEntropy()).String()
	log := s.log.With(zap.String("run_id", runID), zap.String("action", string(req.Action)), zap.Bool("dry_run", req.DryRun))
	log.Info("rotation batch started", zap.Int("projects", len(req.Config.Rotations)))

	report := &rotationdomain.BatchReport{RunID: runID, Action: req.Action, DryRun: req.DryRun}
	for _, job := range req.Config.Rotations {
		project := strings.TrimSpace(job.ProjectName)
		if project == "" {
			project = "Unknown"
		}
		if strings.TrimSpace(job.ProjectID) == "" {
			report.Items = append(report.Items, rotationdomain.BatchItem{Project: project, Status: rotationdomain.BatchFailed, Detail: "missing project_id"})
			continue
		}
		if len(job.Keys) == 0 {
			report.Items = append(report.Items, rotationdomain.BatchItem{Project: project, Status: rotationdomain.BatchSkipped, Detail: "no keys configured"})
			continue
		}
		for i, key := range job.Keys {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			if strings.TrimSpace(key.Name) == "" {
				report.Items = append(report.Items, rotationdomain.BatchItem{
					Project: project, Key: fmt.Sprintf("#%d", i+1), Status: rotationdomain.BatchFailed, Detail: "missing key name",
				})
				continue
			}
			item := s.batchKey(ctx, req, job.ProjectID, key.Name, key.NotifyUser, key.NotifyChannel, key.DateFormat)
			item.Project = project
			report.Items = append(report.Items, item)
		}
	}

	log.Info("rotation batch finished",
		zap.Int("success", report.Count(rotationdomain.BatchSuccess)),
		zap.Int("failed", report.Count(rotationdomain.BatchFailed)),
		zap.Int("skipped", report.Count(rotationdomain.BatchSkipped)),
	)
	return report, nil
}

func (s *Service) batchKey(ctx context.Context, req rotationdomain.BatchRequest, projectID, prefix, notifyUser, notifyChannel, dateFormat string) rotationdomain.BatchItem {
	item := rotationdomain.BatchItem{Key: prefix}
	switch req.Action {
	case rotationdomain.ActionCreate:
		res, err := s.Create(ctx, rotationdomain.CreateRequest{
			ProjectID:     projectID,
			Prefix:        prefix,
			DateFormat:    dateFormat,
			NotifyUser:    notifyUser,
			NotifyChannel: notifyChannel,
			DryRun:        req.DryRun,
			SkipExisting:  true,
		})
		switch {
		case err != nil:
			item.Status, item.Detail = rotationdomain.BatchFailed, err.Error()
		case res.AlreadyExisted:
			item.Status, item.Detail = rotationdomain.BatchSkipped, res.Name+" already exists for the current period"
		case req.DryRun:
			item.Status, item.Detail = rotationdomain.BatchSuccess, "would create "+res.Name
		default:
			item.Status, item.Detail = rotationdomain.BatchSuccess, "created "+res.Name
			if n := res.Notification; n != nil && n.Err != nil {
				item.Detail += " (notification failed: " + n.Err.Error() + ")"
			}
		}
	case rotationdomain.ActionCleanup:
		plan, err := s.PlanCleanup(ctx, rotationdomain.CleanupRequest{ProjectID: projectID, Prefix: prefix, KeepLatest: 1})
		if err != nil {
			item.Status, item.Detail = rotationdomain.BatchFailed, err.Error()
			return item
		}
		res, err := s.Cleanup(ctx, plan, req.DryRun)
		switch {
		case err != nil:
			item.Status, item.Detail = rotationdomain.BatchFailed, err.Error()
		case len(res.Failed) > 0:
			item.Status = rotationdomain.BatchFailed
			item.Detail = fmt.Sprintf("%d of %d deletions failed: %v", len(res.Failed), len(plan.Delete), res.Failed[0].Err)
		case len(plan.Delete) == 0:
			item.Status, item.Detail = rotationdomain.BatchSuccess, fmt.Sprintf("only %d key(s), nothing to clean up", len(plan.Keep))
		case req.DryRun:
			item.Status, item.Detail = rotationdomain.BatchSuccess, fmt.Sprintf("would delete %d old key(s)", len(res.Deleted))
		default:
			item.Status, item.Detail = rotationdomain.BatchSuccess, fmt.Sprintf("deleted %d old key(s)", len(res.Deleted))
		}
	}
	return item
}
