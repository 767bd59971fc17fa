package domain

import (
	"context"
	"errors"
)

// Service runs multi-step project workflows on top of the resource services.
type Service interface {
	ExportTemplate(ctx context.Context, req ExportRequest) (*ExportResult, error)
	CreateFromTemplate(ctx context.Context, req CreateRequest) (*CreateReport, error)
	PlanTeardown(ctx context.Context, projectIDs []string) ([]TeardownPlan, error)
	Teardown(ctx context.Context, plans []TeardownPlan, dryRun bool) (*TeardownReport, error)
}

type ExportRequest struct {
	ProjectID string
	// Output defaults to templates/projects/<slug of the project name>.json.
	Output string
}

type CreateRequest struct {
	Template *Template
	// Name overrides Template.Name when set.
	Name   string
	DryRun bool
}

var (
	ErrInvalidProjectID = errors.New("invalid_project_id")
	ErrInvalidTemplate  = errors.New("invalid_template")
	ErrNoProjects       = errors.New("at least one project id is required")
)
