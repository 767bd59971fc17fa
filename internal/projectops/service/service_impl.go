package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/smallbiznis/orgadmin/internal/apierr"
	apikeydomain "github.com/smallbiznis/orgadmin/internal/apikey/domain"
	projectdomain "github.com/smallbiznis/orgadmin/internal/project/domain"
	projectopsdomain "github.com/smallbiznis/orgadmin/internal/projectops/domain"
	projectuserdomain "github.com/smallbiznis/orgadmin/internal/projectuser/domain"
	ratelimitdomain "github.com/smallbiznis/orgadmin/internal/ratelimit/domain"
	serviceaccountdomain "github.com/smallbiznis/orgadmin/internal/serviceaccount/domain"
	userdomain "github.com/smallbiznis/orgadmin/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const templateInstructions = "Edit 'name' field and user emails as needed, then use 'projects create-from-template' to create a new project"

type Params struct {
	fx.In

	Projects        projectdomain.Service
	ProjectUsers    projectuserdomain.Service
	ServiceAccounts serviceaccountdomain.Service
	APIKeys         apikeydomain.Service
	RateLimits      ratelimitdomain.Service
	Users           userdomain.Service
	Log             *zap.Logger
}

type Service struct {
	projects        projectdomain.Service
	projectUsers    projectuserdomain.Service
	serviceAccounts serviceaccountdomain.Service
	apiKeys         apikeydomain.Service
	rateLimits      ratelimitdomain.Service
	users           userdomain.Service
	log             *zap.Logger
}

func New(p Params) projectopsdomain.Service {
	return &Service{
		projects:        p.Projects,
		projectUsers:    p.ProjectUsers,
		serviceAccounts: p.ServiceAccounts,
		apiKeys:         p.APIKeys,
		rateLimits:      p.RateLimits,
		users:           p.Users,
		log:             p.Log.Named("projectops.service"),
	}
}

func (s *Service) ExportTemplate(ctx context.Context, req projectopsdomain.ExportRequest) (*projectopsdomain.ExportResult, error) {
	projectID := strings.TrimSpace(req.ProjectID)
	if projectID == "" {
		return nil, apierr.Validation("project_id", projectopsdomain.ErrInvalidProjectID)
	}

	project, err := s.projects.Get(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("fetch project %s: %w", projectID, err)
	}
	members, err := s.projectUsers.List(ctx, projectID, 0)
	if err != nil {
		return nil, fmt.Errorf("fetch users of %s: %w", projectID, err)
	}
	accounts, err := s.serviceAccounts.List(ctx, projectID, 0)
	if err != nil {
		return nil, fmt.Errorf("fetch service accounts of %s: %w", projectID, err)
	}
	limits, err := s.rateLimits.List(ctx, projectID, 0)
	if err != nil {
		return nil, fmt.Errorf("fetch rate limits of %s: %w", projectID, err)
	}

	tmpl := &projectopsdomain.Template{
		Comment:         fmt.Sprintf("Template exported from project: %s (%s)", project.Name, project.ID),
		Instructions:    templateInstructions,
		Name:            project.Name + " (Copy)",
		Users:           make([]projectopsdomain.TemplateUser, 0, len(members)),
		ServiceAccounts: make([]projectopsdomain.TemplateServiceAccount, 0, len(accounts)),
		RateLimits:      make([]projectopsdomain.TemplateRateLimit, 0, len(limits)),
	}
	for _, m := range members {
		tmpl.Users = append(tmpl.Users, projectopsdomain.TemplateUser{
			ID:    m.ID,
			Name:  m.Name,
			Email: m.Email,
			Role:  m.Role,
		})
	}
	for _, sa := range accounts {
		tmpl.ServiceAccounts = append(tmpl.ServiceAccounts, projectopsdomain.TemplateServiceAccount{
			Name: sa.Name,
			Role: sa.Role,
			Note: "Original service account: " + sa.ID,
		})
	}
	for _, rl := range limits {
		tmpl.RateLimits = append(tmpl.RateLimits, projectopsdomain.TemplateRateLimitFrom(rl))
	}

	path := strings.TrimSpace(req.Output)
	if path == "" {
		path = DefaultTemplatePath(project.Name)
	}
	if err := writeTemplate(path, tmpl); err != nil {
		return nil, err
	}

	s.log.Info("project template exported",
		zap.String("project_id", projectID),
		zap.String("path", path),
		zap.Int("users", len(tmpl.Users)),
		zap.Int("service_accounts", len(tmpl.ServiceAccounts)),
		zap.Int("rate_limits", len(tmpl.RateLimits)),
	)
	return &projectopsdomain.ExportResult{Template: tmpl, Path: path}, nil
}

func (s *Service) CreateFromTemplate(ctx context.Context, req projectopsdomain.CreateRequest) (*projectopsdomain.CreateReport, error) {
	if req.Template == nil {
		return nil, apierr.Validation("template", projectopsdomain.ErrInvalidTemplate)
	}
	tmpl := *req.Template
	if override := strings.TrimSpace(req.Name); override != "" {
		tmpl.Name = override
	}
	if err := tmpl.Validate(); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(tmpl.Name)

	report := &projectopsdomain.CreateReport{DryRun: req.DryRun, Name: name}
	if req.DryRun {
		report.Steps = plannedSteps(name, &tmpl)
		return report, nil
	}

	project, err := s.projects.Create(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("create project %q: %w", name, err)
	}
	report.Project = project
	report.Steps = append(report.Steps, projectopsdomain.Step{
		Kind: projectopsdomain.KindProject, Target: name, Status: projectopsdomain.StepDone, Detail: project.ID,
	})

	if len(tmpl.Users) > 0 {
		steps, err := s.addUsers(ctx, project.ID, tmpl.Users)
		if err != nil {
			return report, err
		}
		report.Steps = append(report.Steps, steps...)
	}

	for _, sa := range tmpl.ServiceAccounts {
		created, err := s.serviceAccounts.Create(ctx, project.ID, sa.Name)
		if err != nil {
			report.Steps = append(report.Steps, failedStep(projectopsdomain.KindServiceAccount, sa.Name, err))
			continue
		}
		report.Steps = append(report.Steps, projectopsdomain.Step{
			Kind: projectopsdomain.KindServiceAccount, Target: sa.Name, Status: projectopsdomain.StepDone, Detail: created.ID,
		})
		if created.APIKey != nil && created.APIKey.Value != "" {
			report.Keys = append(report.Keys, projectopsdomain.IssuedKey{
				ServiceAccountID:   created.ID,
				ServiceAccountName: created.Name,
				KeyID:              created.APIKey.ID,
				Value:              created.APIKey.Value,
			})
		}
	}

	if len(tmpl.RateLimits) > 0 {
		steps, err := s.applyRateLimits(ctx, project.ID, tmpl.RateLimits)
		if err != nil {
			return report, err
		}
		report.Steps = append(report.Steps, steps...)
	}

	s.log.Info("project created from template",
		zap.String("project_id", project.ID),
		zap.String("name", name),
		zap.Int("failed_steps", report.Steps.Count(projectopsdomain.StepFailed)),
	)
	return report, nil
}

func plannedSteps(name string, tmpl *projectopsdomain.Template) projectopsdomain.Steps {
	steps := projectopsdomain.Steps{{Kind: projectopsdomain.KindProject, Target: name, Status: projectopsdomain.StepPlanned}}
	for _, u := range tmpl.Users {
		steps = append(steps, projectopsdomain.Step{
			Kind: projectopsdomain.KindUser, Target: u.Email, Status: projectopsdomain.StepPlanned, Detail: strings.ToLower(u.Role),
		})
	}
	for _, sa := range tmpl.ServiceAccounts {
		steps = append(steps, projectopsdomain.Step{Kind: projectopsdomain.KindServiceAccount, Target: sa.Name, Status: projectopsdomain.StepPlanned})
	}
	for _, rl := range tmpl.RateLimits {
		steps = append(steps, projectopsdomain.Step{Kind: projectopsdomain.KindRateLimit, Target: rl.Model, Status: projectopsdomain.StepPlanned})
	}
	return steps
}

// addUsers resolves template emails against the organization in one lookup
// and adds each match. Members already present count as skipped.
func (s *Service) addUsers(ctx context.Context, projectID string, members []projectopsdomain.TemplateUser) (projectopsdomain.Steps, error) {
	emails := make([]string, 0, len(members))
	for _, m := range members {
		emails = append(emails, strings.TrimSpace(m.Email))
	}
	orgUsers, err := s.users.List(ctx, userdomain.ListRequest{Emails: emails})
	if err != nil {
		return nil, fmt.Errorf("fetch organization users: %w", err)
	}
	byEmail := make(map[string]string, len(orgUsers))
	for _, u := range orgUsers {
		byEmail[strings.ToLower(u.Email)] = u.ID
	}

	steps := make(projectopsdomain.Steps, 0, len(members))
	for _, m := range members {
		email := strings.TrimSpace(m.Email)
		role := strings.ToLower(strings.TrimSpace(m.Role))
		userID, ok := byEmail[strings.ToLower(email)]
		if !ok {
			s.log.Warn("template user not in organization", zap.String("email", email))
			steps = append(steps, projectopsdomain.Step{
				Kind: projectopsdomain.KindUser, Target: email, Status: projectopsdomain.StepSkipped, Detail: "not found in organization",
			})
			continue
		}
		_, err := s.projectUsers.Add(ctx, projectuserdomain.AddRequest{ProjectID: projectID, UserID: userID, Role: role})
		switch {
		case err == nil:
			steps = append(steps, projectopsdomain.Step{
				Kind: projectopsdomain.KindUser, Target: email, Status: projectopsdomain.StepDone, Detail: role,
			})
		case apierr.Code(err) == projectuserdomain.ErrorCodeAlreadyInProject:
			steps = append(steps, projectopsdomain.Step{
				Kind: projectopsdomain.KindUser, Target: email, Status: projectopsdomain.StepSkipped, Detail: "already in project",
			})
		default:
			steps = append(steps, failedStep(projectopsdomain.KindUser, email, err))
		}
	}
	return steps, nil
}

// applyRateLimits matches template limits to the new project's limits by
// model name.
func (s *Service) applyRateLimits(ctx context.Context, projectID string, limits []projectopsdomain.TemplateRateLimit) (projectopsdomain.Steps, error) {
	current, err := s.rateLimits.List(ctx, projectID, 0)
	if err != nil {
		return nil, fmt.Errorf("fetch rate limits of %s: %w", projectID, err)
	}
	byModel := make(map[string]string, len(current))
	for _, rl := range current {
		byModel[rl.Model] = rl.ID
	}

	steps := make(projectopsdomain.Steps, 0, len(limits))
	for _, tl := range limits {
		id, ok := byModel[tl.Model]
		if !ok {
			steps = append(steps, projectopsdomain.Step{
				Kind: projectopsdomain.KindRateLimit, Target: tl.Model, Status: projectopsdomain.StepSkipped, Detail: "model not available in project",
			})
			continue
		}
		update := tl.Update(projectID, id)
		if len(update.Body()) == 0 {
			steps = append(steps, projectopsdomain.Step{
				Kind: projectopsdomain.KindRateLimit, Target: tl.Model, Status: projectopsdomain.StepSkipped, Detail: "no limits set",
			})
			continue
		}
		if _, err := s.rateLimits.Update(ctx, update); err != nil {
			steps = append(steps, failedStep(projectopsdomain.KindRateLimit, tl.Model, err))
			continue
		}
		steps = append(steps, projectopsdomain.Step{
			Kind: projectopsdomain.KindRateLimit, Target: tl.Model, Status: projectopsdomain.StepDone, Detail: id,
		})
	}
	return steps, nil
}

func (s *Service) PlanTeardown(ctx context.Context, projectIDs []string) ([]projectopsdomain.TeardownPlan, error) {
	ids := make([]string, 0, len(projectIDs))
	for _, id := range projectIDs {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, apierr.Validation("project_ids", projectopsdomain.ErrNoProjects)
	}

	plans := make([]projectopsdomain.TeardownPlan, 0, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		plans = append(plans, s.planOne(ctx, id))
	}
	return plans, nil
}

func (s *Service) planOne(ctx context.Context, projectID string) projectopsdomain.TeardownPlan {
	plan := projectopsdomain.TeardownPlan{ProjectID: projectID}
	project, err := s.projects.Get(ctx, projectID)
	if err != nil {
		plan.Err = fmt.Errorf("fetch project %s: %w", projectID, err)
		return plan
	}
	plan.Project = project
	if project.Archived() {
		plan.SkipReason = "already archived"
		return plan
	}

	if plan.Users, err = s.projectUsers.List(ctx, projectID, 0); err != nil {
		plan.Err = fmt.Errorf("fetch users of %s: %w", projectID, err)
		return plan
	}
	accounts, err := s.serviceAccounts.List(ctx, projectID, 0)
	if err != nil {
		plan.Err = fmt.Errorf("fetch service accounts of %s: %w", projectID, err)
		return plan
	}
	for _, sa := range accounts {
		plan.ServiceAccounts = append(plan.ServiceAccounts, projectopsdomain.PlannedServiceAccount{ID: sa.ID, Name: sa.Name})
	}
	keys, err := s.apiKeys.List(ctx, projectID, 0)
	if err != nil {
		plan.Err = fmt.Errorf("fetch api keys of %s: %w", projectID, err)
		return plan
	}
	for _, k := range keys {
		plan.APIKeys = append(plan.APIKeys, projectopsdomain.PlannedAPIKey{ID: k.ID, Name: k.Name, RedactedValue: k.RedactedValue})
	}
	return plan
}

// Teardown removes service accounts, then users, then archives each
// project. A failing step is recorded and the run moves on.
func (s *Service) Teardown(ctx context.Context, plans []projectopsdomain.TeardownPlan, dryRun bool) (*projectopsdomain.TeardownReport, error) {
	report := &projectopsdomain.TeardownReport{DryRun: dryRun}
	for _, plan := range plans {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Projects = append(report.Projects, s.teardownOne(ctx, plan, dryRun))
	}
	s.log.Info("project teardown finished",
		zap.Int("projects", len(report.Projects)),
		zap.Int("failed_steps", report.Failed()),
		zap.Bool("dry_run", dryRun),
	)
	return report, nil
}

func (s *Service) teardownOne(ctx context.Context, plan projectopsdomain.TeardownPlan, dryRun bool) projectopsdomain.ProjectTeardown {
	out := projectopsdomain.ProjectTeardown{ProjectID: plan.ProjectID}
	if plan.Project != nil {
		out.Name = plan.Project.Name
	}
	switch {
	case plan.Err != nil:
		out.Steps = append(out.Steps, failedStep(projectopsdomain.KindProject, plan.ProjectID, plan.Err))
		return out
	case plan.SkipReason != "":
		out.Steps = append(out.Steps, projectopsdomain.Step{
			Kind: projectopsdomain.KindProject, Target: plan.ProjectID, Status: projectopsdomain.StepSkipped, Detail: plan.SkipReason,
		})
		return out
	}

	if dryRun {
		for _, sa := range plan.ServiceAccounts {
			out.Steps = append(out.Steps, projectopsdomain.Step{Kind: projectopsdomain.KindServiceAccount, Target: sa.Name, Status: projectopsdomain.StepPlanned, Detail: sa.ID})
		}
		for _, u := range plan.Users {
			out.Steps = append(out.Steps, projectopsdomain.Step{Kind: projectopsdomain.KindUser, Target: u.Email, Status: projectopsdomain.StepPlanned, Detail: u.ID})
		}
		out.Steps = append(out.Steps, projectopsdomain.Step{Kind: projectopsdomain.KindProject, Target: plan.ProjectID, Status: projectopsdomain.StepPlanned, Detail: "archive"})
		return out
	}

	if len(plan.APIKeys) > 0 {
		out.Steps = append(out.Steps, projectopsdomain.Step{
			Kind:   projectopsdomain.KindAPIKeys,
			Target: plan.ProjectID,
			Status: projectopsdomain.StepSkipped,
			Detail: fmt.Sprintf("%d key(s) are deleted when the project is archived", len(plan.APIKeys)),
		})
	}

	for _, sa := range plan.ServiceAccounts {
		_, err := s.serviceAccounts.Delete(ctx, plan.ProjectID, sa.ID)
		switch {
		case err == nil:
			out.Steps = append(out.Steps, projectopsdomain.Step{Kind: projectopsdomain.KindServiceAccount, Target: sa.Name, Status: projectopsdomain.StepDone, Detail: sa.ID})
		case apierr.IsNotFound(err):
			out.Steps = append(out.Steps, projectopsdomain.Step{Kind: projectopsdomain.KindServiceAccount, Target: sa.Name, Status: projectopsdomain.StepSkipped, Detail: "not found"})
		default:
			s.log.Error("remove service account failed", zap.String("project_id", plan.ProjectID), zap.String("service_account_id", sa.ID), zap.Error(err))
			out.Steps = append(out.Steps, failedStep(projectopsdomain.KindServiceAccount, sa.Name, err))
		}
	}

	for _, u := range plan.Users {
		target := u.Email
		if target == "" {
			target = u.ID
		}
		_, err := s.projectUsers.Delete(ctx, plan.ProjectID, u.ID)
		switch {
		case err == nil:
			out.Steps = append(out.Steps, projectopsdomain.Step{Kind: projectopsdomain.KindUser, Target: target, Status: projectopsdomain.StepDone, Detail: u.ID})
		case apierr.IsNotFound(err):
			out.Steps = append(out.Steps, projectopsdomain.Step{Kind: projectopsdomain.KindUser, Target: target, Status: projectopsdomain.StepSkipped, Detail: "not found"})
		case apierr.Code(err) == projectuserdomain.ErrorCodeOrganizationOwner:
			out.Steps = append(out.Steps, projectopsdomain.Step{Kind: projectopsdomain.KindUser, Target: target, Status: projectopsdomain.StepSkipped, Detail: "organization owner"})
		default:
			s.log.Error("remove project user failed", zap.String("project_id", plan.ProjectID), zap.String("user_id", u.ID), zap.Error(err))
			out.Steps = append(out.Steps, failedStep(projectopsdomain.KindUser, target, err))
		}
	}

	archived, err := s.projects.Archive(ctx, plan.ProjectID)
	switch {
	case err == nil:
		detail := archived.Status
		if archived.ArchivedAt != nil {
			detail = "archived at " + time.Unix(*archived.ArchivedAt, 0).UTC().Format("2006-01-02 15:04:05")
		}
		out.Steps = append(out.Steps, projectopsdomain.Step{Kind: projectopsdomain.KindProject, Target: plan.ProjectID, Status: projectopsdomain.StepDone, Detail: detail})
	case apierr.Code(err) == projectdomain.ErrorCodeArchived:
		out.Steps = append(out.Steps, projectopsdomain.Step{Kind: projectopsdomain.KindProject, Target: plan.ProjectID, Status: projectopsdomain.StepSkipped, Detail: "already archived"})
	default:
		s.log.Error("archive project failed", zap.String("project_id", plan.ProjectID), zap.Error(err))
		out.Steps = append(out.Steps, failedStep(projectopsdomain.KindProject, plan.ProjectID, err))
	}
	return out
}

func failedStep(kind, target string, err error) projectopsdomain.Step {
	detail := err.Error()
	var apiErr *apierr.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		detail = apiErr.Message
	}
	return projectopsdomain.Step{Kind: kind, Target: target, Status: projectopsdomain.StepFailed, Detail: detail}
}
