package service

import (
	"context"
	"encoding/pem"
	"fmt"
	"strings"

	"github.com/smallbiznis/orgadmin/internal/apierr"
	certdomain "github.com/smallbiznis/orgadmin/internal/certificate/domain"
	"github.com/smallbiznis/orgadmin/internal/client"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const basePath = "certificates"

type Params struct {
	fx.In

	Client client.API
	Log    *zap.Logger
}

type Service struct {
	client client.API
	log    *zap.Logger
}

func New(p Params) certdomain.Service {
	return &Service{
		client: p.Client,
		log:    p.Log.Named("certificate.service"),
	}
}

func (s *Service) List(ctx context.Context, limit int) ([]certdomain.Certificate, error) {
	return client.ListAll[certdomain.Certificate](ctx, s.client, basePath, nil, limit)
}

func (s *Service) ListForProject(ctx context.Context, projectID string, limit int) ([]certdomain.Certificate, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return nil, apierr.Validation("project_id", certdomain.ErrInvalidProjectID)
	}
	return client.ListAll[certdomain.Certificate](ctx, s.client, client.Path("projects", projectID, basePath), nil, limit)
}

func (s *Service) Upload(ctx context.Context, req certdomain.UploadRequest) (*certdomain.Certificate, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apierr.Validation("name", certdomain.ErrInvalidName)
	}
	block, _ := pem.Decode([]byte(strings.TrimSpace(req.Content)))
	if block == nil || block.Type != "CERTIFICATE" {
		return nil, apierr.Validation("content", certdomain.ErrInvalidContent)
	}

	body := map[string]string{"name": name, "content": req.Content}
	var cert certdomain.Certificate
	if err := s.client.Post(ctx, basePath, body, &cert); err != nil {
		return nil, err
	}
	s.log.Info("certificate uploaded", zap.String("certificate_id", cert.ID), zap.String("name", name))
	return &cert, nil
}

func (s *Service) Get(ctx context.Context, certificateID string, includeContent bool) (*certdomain.Certificate, error) {
	certificateID = strings.TrimSpace(certificateID)
	if certificateID == "" {
		return nil, apierr.Validation("certificate_id", certdomain.ErrInvalidCertificateID)
	}
	query := client.NewQuery()
	if includeContent {
		query.Add("include[]", "content")
	}
	var cert certdomain.Certificate
	if err := s.client.Get(ctx, client.Path(basePath, certificateID), query, &cert); err != nil {
		return nil, err
	}
	return &cert, nil
}

func (s *Service) Rename(ctx context.Context, certificateID, name string) (*certdomain.Certificate, error) {
	certificateID = strings.TrimSpace(certificateID)
	if certificateID == "" {
		return nil, apierr.Validation("certificate_id", certdomain.ErrInvalidCertificateID)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apierr.Validation("name", certdomain.ErrInvalidName)
	}
	var cert certdomain.Certificate
	if err := s.client.Post(ctx, client.Path(basePath, certificateID), map[string]string{"name": name}, &cert); err != nil {
		return nil, err
	}
	s.log.Info("certificate renamed", zap.String("certificate_id", certificateID), zap.String("name", name))
	return &cert, nil
}

func (s *Service) Delete(ctx context.Context, certificateID string) (*client.DeleteResult, error) {
	certificateID = strings.TrimSpace(certificateID)
	if certificateID == "" {
		return nil, apierr.Validation("certificate_id", certdomain.ErrInvalidCertificateID)
	}
	var result client.DeleteResult
	if err := s.client.Delete(ctx, client.Path(basePath, certificateID), &result); err != nil {
		return nil, err
	}
	s.log.Info("certificate deleted", zap.String("certificate_id", certificateID))
	return &result, nil
}

func (s *Service) Activate(ctx context.Context, certificateIDs []string) (*certdomain.ToggleResult, error) {
	return s.toggle(ctx, "", certificateIDs, "activate")
}

func (s *Service) Deactivate(ctx context.Context, certificateIDs []string) (*certdomain.ToggleResult, error) {
	return s.toggle(ctx, "", certificateIDs, "deactivate")
}

func (s *Service) ActivateForProject(ctx context.Context, projectID string, certificateIDs []string) (*certdomain.ToggleResult, error) {
	if strings.TrimSpace(projectID) == "" {
		return nil, apierr.Validation("project_id", certdomain.ErrInvalidProjectID)
	}
	return s.toggle(ctx, projectID, certificateIDs, "activate")
}

func (s *Service) DeactivateForProject(ctx context.Context, projectID string, certificateIDs []string) (*certdomain.ToggleResult, error) {
	if strings.TrimSpace(projectID) == "" {
		return nil, apierr.Validation("project_id", certdomain.ErrInvalidProjectID)
	}
	return s.toggle(ctx, projectID, certificateIDs, "deactivate")
}

func (s *Service) toggle(ctx context.Context, projectID string, certificateIDs []string, action string) (*certdomain.ToggleResult, error) {
	ids, err := batchIDs(certificateIDs)
	if err != nil {
		return nil, err
	}

	path := client.Path(basePath, action)
	if projectID != "" {
		path = client.Path("projects", strings.TrimSpace(projectID), basePath, action)
	}
	var result certdomain.ToggleResult
	if err := s.client.Post(ctx, path, map[string][]string{"certificate_ids": ids}, &result); err != nil {
		return nil, err
	}
	s.log.Info("certificates toggled",
		zap.String("action", action),
		zap.String("project_id", projectID),
		zap.Strings("certificate_ids", ids),
	)
	return &result, nil
}

// batchIDs trims and de-duplicates ids, keeping first-seen order, and
// enforces the batch cap.
func batchIDs(certificateIDs []string) ([]string, error) {
	seen := make(map[string]struct{}, len(certificateIDs))
	ids := make([]string, 0, len(certificateIDs))
	for _, id := range certificateIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			return nil, apierr.Validation("certificate_ids", certdomain.ErrInvalidCertificateID)
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	if len(ids) == 0 || len(ids) > certdomain.MaxBatch {
		return nil, apierr.Validation("certificate_ids", fmt.Errorf("%w: got %d", certdomain.ErrBatchSize, len(ids)))
	}
	return ids, nil
}
