package domain

import (
	"strings"

	"github.com/smallbiznis/orgadmin/internal/apierr"
	projectdomain "github.com/smallbiznis/orgadmin/internal/project/domain"
	projectuserdomain "github.com/smallbiznis/orgadmin/internal/projectuser/domain"
	ratelimitdomain "github.com/smallbiznis/orgadmin/internal/ratelimit/domain"
)

// Template is a reusable project layout. Fields prefixed with an
// underscore are informational and ignored on import.
type Template struct {
	Comment         string                   `json:"_comment,omitempty"`
	Instructions    string                   `json:"_instructions,omitempty"`
	Name            string                   `json:"name"`
	Users           []TemplateUser           `json:"users"`
	ServiceAccounts []TemplateServiceAccount `json:"service_accounts"`
	RateLimits      []TemplateRateLimit      `json:"rate_limits"`
}

type TemplateUser struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
	Role  string `json:"role"`
	Note  string `json:"_note,omitempty"`
}

type TemplateServiceAccount struct {
	Name string `json:"name"`
	Role string `json:"role,omitempty"`
	Note string `json:"_note,omitempty"`
}

type TemplateRateLimit struct {
	Model                       string `json:"model"`
	MaxRequestsPer1Minute       *int64 `json:"max_requests_per_1_minute,omitempty"`
	MaxTokensPer1Minute         *int64 `json:"max_tokens_per_1_minute,omitempty"`
	MaxImagesPer1Minute         *int64 `json:"max_images_per_1_minute,omitempty"`
	MaxAudioMegabytesPer1Minute *int64 `json:"max_audio_megabytes_per_1_minute,omitempty"`
	MaxRequestsPer1Day          *int64 `json:"max_requests_per_1_day,omitempty"`
	Batch1DayMaxInputTokens     *int64 `json:"batch_1_day_max_input_tokens,omitempty"`
}

func TemplateRateLimitFrom(rl ratelimitdomain.RateLimit) TemplateRateLimit {
	return TemplateRateLimit{
		Model:                       rl.Model,
		MaxRequestsPer1Minute:       rl.MaxRequestsPer1Minute,
		MaxTokensPer1Minute:         rl.MaxTokensPer1Minute,
		MaxImagesPer1Minute:         rl.MaxImagesPer1Minute,
		MaxAudioMegabytesPer1Minute: rl.MaxAudioMegabytesPer1Minute,
		MaxRequestsPer1Day:          rl.MaxRequestsPer1Day,
		Batch1DayMaxInputTokens:     rl.Batch1DayMaxInputTokens,
	}
}

// Update builds the request that applies these limits to rateLimitID.
func (t TemplateRateLimit) Update(projectID, rateLimitID string) ratelimitdomain.UpdateRequest {
	return ratelimitdomain.FromRateLimit(projectID, rateLimitID, ratelimitdomain.RateLimit{
		Model:                       t.Model,
		MaxRequestsPer1Minute:       t.MaxRequestsPer1Minute,
		MaxTokensPer1Minute:         t.MaxTokensPer1Minute,
		MaxImagesPer1Minute:         t.MaxImagesPer1Minute,
		MaxAudioMegabytesPer1Minute: t.MaxAudioMegabytesPer1Minute,
		MaxRequestsPer1Day:          t.MaxRequestsPer1Day,
		Batch1DayMaxInputTokens:     t.Batch1DayMaxInputTokens,
	})
}

// Validate checks the template locally so a bad file never creates a
// half-populated project.
func (t *Template) Validate() error {
	if t == nil {
		return apierr.Validation("template", ErrInvalidTemplate)
	}
	if strings.TrimSpace(t.Name) == "" {
		return apierr.Validation("name", projectdomain.ErrInvalidName)
	}
	for i, u := range t.Users {
		if strings.TrimSpace(u.Email) == "" {
			return apierr.Validationf("users", "entry %d has no email", i)
		}
		role := strings.ToLower(strings.TrimSpace(u.Role))
		if role != projectuserdomain.RoleOwner && role != projectuserdomain.RoleMember {
			return apierr.Validationf("users", "%s: role %q must be owner or member", u.Email, u.Role)
		}
	}
	for i, sa := range t.ServiceAccounts {
		if strings.TrimSpace(sa.Name) == "" {
			return apierr.Validationf("service_accounts", "entry %d has no name", i)
		}
	}
	for i, rl := range t.RateLimits {
		if strings.TrimSpace(rl.Model) == "" {
			return apierr.Validationf("rate_limits", "entry %d has no model", i)
		}
	}
	return nil
}

type StepStatus string

const (
	StepPlanned StepStatus = "planned"
	StepDone    StepStatus = "done"
	StepSkipped StepStatus = "skipped"
	StepFailed  StepStatus = "failed"
)

// Step kinds.
const (
	KindProject        = "project"
	KindUser           = "user"
	KindServiceAccount = "service_account"
	KindRateLimit      = "rate_limit"
	KindAPIKeys        = "api_keys"
)

// Step is one action of a workflow and its outcome.
type Step struct {
	Kind   string     `json:"kind"`
	Target string     `json:"target"`
	Status StepStatus `json:"status"`
	Detail string     `json:"detail,omitempty"`
}

type Steps []Step

func (s Steps) Count(status StepStatus) int {
	n := 0
	for _, step := range s {
		if step.Status == status {
			n++
		}
	}
	return n
}

// IssuedKey is a service account secret shown once after creation.
type IssuedKey struct {
	ServiceAccountID   string `json:"service_account_id"`
	ServiceAccountName string `json:"service_account_name"`
	KeyID              string `json:"key_id"`
	Value              string `json:"value"`
}

type ExportResult struct {
	Template *Template
	Path     string
}

type CreateReport struct {
	DryRun  bool
	Name    string
	Project *projectdomain.Project
	Steps   Steps
	Keys    []IssuedKey
}

// TeardownPlan is what archiving one project will remove.
type TeardownPlan struct {
	ProjectID       string
	Project         *projectdomain.Project
	Users           []projectuserdomain.ProjectUser
	ServiceAccounts []PlannedServiceAccount
	APIKeys         []PlannedAPIKey
	SkipReason      string
	Err             error
}

type PlannedServiceAccount struct {
	ID   string
	Name string
}

type PlannedAPIKey struct {
	ID            string
	Name          string
	RedactedValue string
}

// Actionable reports whether the plan has anything to do.
func (p TeardownPlan) Actionable() bool {
	return p.Err == nil && p.SkipReason == "" && p.Project != nil
}

type ProjectTeardown struct {
	ProjectID string
	Name      string
	Steps     Steps
}

type TeardownReport struct {
	DryRun   bool
	Projects []ProjectTeardown
}

// Failed counts failed steps across projects.
func (r *TeardownReport) Failed() int {
	n := 0
	for _, p := range r.Projects {
		n += p.Steps.Count(StepFailed)
	}
	return n
}
