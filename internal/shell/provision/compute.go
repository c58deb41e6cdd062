package provision

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/unideploy/unideploy/internal/core/domain"
)

// ComputeClient talks to the Compute Provisioner, the collaborator that
// creates and deletes the virtualized runtime backing a Project.
type ComputeClient struct {
	http   *httpClient
	logger *slog.Logger
}

// NewComputeClient creates a Compute Provisioner client.
func NewComputeClient(cfg Config, logger *slog.Logger) *ComputeClient {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "compute-provisioner")
	return &ComputeClient{
		http:   newHTTPClient(cfg, logger),
		logger: logger,
	}
}

// CreateProject provisions a new compute resource from the sizing spec.
func (c *ComputeClient) CreateProject(ctx context.Context, spec domain.ProvisionSpec) (*domain.Project, error) {
	var project domain.Project
	if err := c.http.do(ctx, http.MethodPost, "/api/v1/projects", spec, &project); err != nil {
		return nil, upstreamError("compute provisioner", err)
	}
	c.logger.Info("project provisioned", "project_id", project.ID, "source_id", project.SourceID)
	return &project, nil
}

// GetProject re-reads the project projection.
func (c *ComputeClient) GetProject(ctx context.Context, id string) (*domain.Project, error) {
	var project domain.Project
	if err := c.http.do(ctx, http.MethodGet, "/api/v1/projects/"+url.PathEscape(id), nil, &project); err != nil {
		return nil, upstreamError("compute provisioner", err)
	}
	return &project, nil
}

// DeleteProject removes a previously provisioned compute resource.
func (c *ComputeClient) DeleteProject(ctx context.Context, id string) error {
	if err := c.http.do(ctx, http.MethodDelete, "/api/v1/projects/"+url.PathEscape(id), nil, nil); err != nil {
		return upstreamError("compute provisioner", err)
	}
	c.logger.Info("project deleted", "project_id", id)
	return nil
}

// MarkSourceUploaded transitions the source descriptor's settings status.
func (c *ComputeClient) MarkSourceUploaded(ctx context.Context, sourceID string) error {
	body := map[string]any{
		"settings": map[string]any{"status": domain.SourceStatusUploaded},
	}
	if err := c.http.do(ctx, http.MethodPatch, "/api/v1/sources/"+url.PathEscape(sourceID), body, nil); err != nil {
		return upstreamError("compute provisioner", err)
	}
	return nil
}
