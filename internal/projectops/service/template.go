package service

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gosimple/slug"
	"github.com/smallbiznis/orgadmin/internal/apierr"
	projectopsdomain "github.com/smallbiznis/orgadmin/internal/projectops/domain"
)

// TemplateDir is where exported templates land when no output is given.
var TemplateDir = filepath.Join("templates", "projects")

// DefaultTemplatePath derives a file name from the project name.
func DefaultTemplatePath(projectName string) string {
	name := slug.Make(projectName)
	if name == "" {
		name = "project"
	}
	return filepath.Join(TemplateDir, name+".json")
}

// LoadTemplate reads and validates a template file.
func LoadTemplate(path string) (*projectopsdomain.Template, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, apierr.Validationf("template", "read %s: %v", path, err)
	}
	var tmpl projectopsdomain.Template
	if err := json.Unmarshal(raw, &tmpl); err != nil {
		return nil, apierr.Validationf("template", "parse %s: %v", path, err)
	}
	if err := tmpl.Validate(); err != nil {
		return nil, err
	}
	return &tmpl, nil
}

func writeTemplate(path string, tmpl *projectopsdomain.Template) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create template dir: %w", err)
		}
	}
	raw, err := json.MarshalIndent(tmpl, "", "  ")
	if err != nil {
		return fmt.Errorf("encode template: %w", err)
	}
	if err := os.WriteFile(path, append(raw, '\n'), 0o644); err != nil {
		return fmt.Errorf("write template %s: %w", path, err)
	}
	return nil
}
