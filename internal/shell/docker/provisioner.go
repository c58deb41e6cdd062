// Package docker provides a development-mode Compute Provisioner backed by
// the local Docker daemon. It stands in for the external provisioner when
// running the gateway on a laptop: each Project becomes one resource-limited
// container, parked until the Source Deployer picks it up.
package docker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/google/uuid"

	"github.com/unideploy/unideploy/internal/core/domain"
)

// DefaultImage is the parked-runtime image used until a source is deployed.
const DefaultImage = "alpine:3.20"

// labels identifying gateway-managed containers.
const (
	labelManaged = "unideploy.managed"
	labelProject = "unideploy.project_id"
)

// =============================================================================
// Provisioner
// =============================================================================

// Provisioner implements the Compute Provisioner contract on local Docker.
type Provisioner struct {
	cli    *client.Client
	image  string
	logger *slog.Logger

	mu       sync.RWMutex
	projects map[string]*record
}

type record struct {
	project     domain.Project
	containerID string
}

// NewProvisioner connects to the Docker daemon. If host is empty, the
// client falls back to the environment configuration.
func NewProvisioner(host, image string, logger *slog.Logger) (*Provisioner, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if image == "" {
		image = DefaultImage
	}

	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if host != "" {
		opts = append(opts, client.WithHost(host))
	}
	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}

	return &Provisioner{
		cli:      cli,
		image:    image,
		logger:   logger.With("component", "docker-provisioner"),
		projects: make(map[string]*record),
	}, nil
}

// Ping checks the Docker daemon connection.
func (p *Provisioner) Ping(ctx context.Context) error {
	_, err := p.cli.Ping(ctx)
	return err
}

// Close releases the Docker client.
func (p *Provisioner) Close() error {
	return p.cli.Close()
}

// CreateProject creates a parked container sized per the spec.
func (p *Provisioner) CreateProject(ctx context.Context, spec domain.ProvisionSpec) (*domain.Project, error) {
	projectID := "prj-" + uuid.New().String()[:8]
	sourceID := "src-" + uuid.New().String()[:8]

	config := &container.Config{
		Image: p.image,
		// Park the container; the Source Deployer replaces the workload.
		Cmd:    []string{"sleep", "infinity"},
		Labels: map[string]string{labelManaged: "true", labelProject: projectID},
	}
	hostConfig := &container.HostConfig{
		Resources: container.Resources{
			Memory:   int64(spec.MemoryMB) * 1024 * 1024,
			NanoCPUs: int64(spec.CPU) * 1e9,
		},
	}

	resp, err := p.cli.ContainerCreate(ctx, config, hostConfig, nil, nil, "unideploy-"+projectID)
	if err != nil {
		return nil, domain.E(domain.KindUpstream, "failed to create container", err)
	}
	if err := p.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		// Roll the container back so a failed create leaves nothing behind.
		p.cli.ContainerRemove(context.WithoutCancel(ctx), resp.ID, container.RemoveOptions{Force: true})
		return nil, domain.E(domain.KindUpstream, "failed to start container", err)
	}

	project := domain.Project{
		ID:       projectID,
		SourceID: sourceID,
		VM: domain.VM{
			MemoryMB: spec.MemoryMB,
			CPU:      spec.CPU,
			DiskMB:   spec.DiskMB,
		},
		Source: domain.Source{
			ID: sourceID,
			Settings: domain.SourceSettings{
				Status:      domain.SourceStatusEmpty,
				ComposePath: spec.ComposePath,
			},
		},
		CreatedAt: time.Now().UTC(),
	}

	p.mu.Lock()
	p.projects[projectID] = &record{project: project, containerID: resp.ID}
	p.mu.Unlock()

	p.logger.Info("dev project provisioned", "project_id", projectID, "container_id", resp.ID[:12])
	return &project, nil
}

// GetProject returns the project projection.
func (p *Provisioner) GetProject(_ context.Context, id string) (*domain.Project, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	rec, ok := p.projects[id]
	if !ok {
		return nil, domain.E(domain.KindNotFound, "project "+id+" not found", nil)
	}
	project := rec.project
	return &project, nil
}

// DeleteProject force-removes the backing container.
func (p *Provisioner) DeleteProject(ctx context.Context, id string) error {
	p.mu.Lock()
	rec, ok := p.projects[id]
	if ok {
		delete(p.projects, id)
	}
	p.mu.Unlock()

	if !ok {
		return domain.E(domain.KindNotFound, "project "+id+" not found", nil)
	}

	if err := p.cli.ContainerRemove(ctx, rec.containerID, container.RemoveOptions{Force: true, RemoveVolumes: true}); err != nil {
		return domain.E(domain.KindUpstream, "failed to remove container", err)
	}
	p.logger.Info("dev project deleted", "project_id", id)
	return nil
}

// MarkSourceUploaded flips the source descriptor status.
func (p *Provisioner) MarkSourceUploaded(_ context.Context, sourceID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, rec := range p.projects {
		if rec.project.SourceID == sourceID {
			rec.project.Source.Settings.Status = domain.SourceStatusUploaded
			return nil
		}
	}
	return domain.E(domain.KindNotFound, "source "+sourceID+" not found", nil)
}
