package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/orgadmin/internal/config"
	notifydomain "github.com/smallbiznis/orgadmin/internal/notify/domain"
	serviceaccountdomain "github.com/smallbiznis/orgadmin/internal/serviceaccount/domain"
)

type Service interface {
	// Create adds the service account for the current period and leaves
	// older ones active.
	Create(ctx context.Context, req CreateRequest) (*CreateResult, error)
	PlanCleanup(ctx context.Context, req CleanupRequest) (*CleanupPlan, error)
	Cleanup(ctx context.Context, plan *CleanupPlan, dryRun bool) (*CleanupResult, error)
	// Execute creates the current key unless it exists, then deletes
	// every older key except the newest existing one.
	Execute(ctx context.Context, req CreateRequest) (*ExecuteResult, error)
	List(ctx context.Context, projectID, prefix string) ([]Account, error)
	Check(ctx context.Context, projectID, prefix string) (*Status, error)
	Batch(ctx context.Context, req BatchRequest) (*BatchReport, error)
}

type CreateRequest struct {
	ProjectID     string
	Prefix        string
	DateFormat    string
	NotifyUser    string
	NotifyChannel string
	DryRun        bool
	// SkipExisting turns Create into a no-op when the current period's
	// account already exists.
	SkipExisting bool
}

type CreateResult struct {
	Name     string
	Existing []Account
	// Created is nil on dry runs and when an existing account was kept.
	Created        *serviceaccountdomain.ServiceAccount
	AlreadyExisted bool
	Notification   *NotificationOutcome
}

// NotificationOutcome reports the key hand-off. A failed notification
// never fails the rotation.
type NotificationOutcome struct {
	UserID   string
	Channel  notifydomain.Channel
	Delivery *notifydomain.Delivery
	Err      error
	Skipped  string
}

type CleanupRequest struct {
	ProjectID  string
	Prefix     string
	KeepLatest int
}

type CleanupPlan struct {
	ProjectID string
	Prefix    string
	Keep      []Account
	Delete    []Account
}

type CleanupResult struct {
	DryRun  bool
	Kept    []Account
	Deleted []Account
	Failed  []DeleteFailure
}

type DeleteFailure struct {
	Account Account
	Err     error
}

type ExecuteResult struct {
	CreateResult
	Deleted []Account
	Failed  []DeleteFailure
	DryRun  bool
}

type AccountStatus struct {
	Account
	AgeDays int  `json:"age_days"`
	Current bool `json:"current"`
}

type Status struct {
	ProjectID string
	Prefix    string
	Accounts  []AccountStatus
	// Advice is empty when no account matches.
	Advice     Advice
	NewestAge  int
	ToBeCulled int
}

type BatchAction string

const (
	ActionCreate  BatchAction = "create"
	ActionCleanup BatchAction = "cleanup"
)

func ParseBatchAction(raw string) (BatchAction, bool) {
	switch BatchAction(raw) {
	case ActionCreate, ActionCleanup:
		return BatchAction(raw), true
	}
	return "", false
}

type BatchRequest struct {
	Config config.RotationConfig
	Action BatchAction
	DryRun bool
}

type BatchStatus string

const (
	BatchSuccess BatchStatus = "success"
	BatchFailed  BatchStatus = "failed"
	BatchSkipped BatchStatus = "skipped"
)

type BatchItem struct {
	Project string      `json:"project"`
	Key     string      `json:"key,omitempty"`
	Status  BatchStatus `json:"status"`
	Detail  string      `json:"detail,omitempty"`
}

type BatchReport struct {
	RunID  string
	Action BatchAction
	DryRun bool
	Items  []BatchItem
}

func (r *BatchReport) Count(status BatchStatus) int {
	n := 0
	for _, item := range r.Items {
		if item.Status == status {
			n++
		}
	}
	return n
}

var (
	ErrInvalidProjectID  = errors.New("invalid_project_id")
	ErrInvalidPrefix     = errors.New("invalid_prefix")
	ErrInvalidDateFormat = errors.New("date format must be YY-MM or YYYY-MM-DD")
	ErrInvalidKeepLatest = errors.New("keep-latest must be at least 1")
	ErrInvalidChannel    = errors.New("invalid_channel")
	ErrInvalidAction     = errors.New("action must be create or cleanup")
	ErrNoRotations       = errors.New("no rotations configured")
)
