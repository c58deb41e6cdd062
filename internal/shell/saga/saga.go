// Package saga orchestrates the unified deployment flow: validate the deploy
// code, provision a compute resource, wire network redirects, finalize the
// uploaded artifact, and trigger the asynchronous source deployment. Each
// state-mutating stage pushes a compensating action; any later failure
// unwinds the stack in reverse before re-raising the original error.
package saga

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/unideploy/unideploy/internal/core/domain"
	"github.com/unideploy/unideploy/internal/core/redirect"
	"github.com/unideploy/unideploy/internal/shell/artifact"
	"github.com/unideploy/unideploy/internal/shell/metrics"
	"github.com/unideploy/unideploy/internal/shell/store"
)

// =============================================================================
// Stages
// =============================================================================

// Stage identifies where a saga execution currently is.
type Stage string

const (
	StageValidating   Stage = "validating"
	StageProvisioning Stage = "provisioning"
	StageWiring       Stage = "wiring"
	StageFinalizing   Stage = "finalizing"
	StageComplete     Stage = "complete"
)

// =============================================================================
// Collaborator Interfaces
// =============================================================================

// CodeValidator checks a candidate deploy code against the active one.
type CodeValidator interface {
	Validate(ctx context.Context, candidate string) error
}

// ComputeProvisioner creates and deletes the virtualized runtime backing a
// Project, and owns the source descriptor.
type ComputeProvisioner interface {
	CreateProject(ctx context.Context, spec domain.ProvisionSpec) (*domain.Project, error)
	GetProject(ctx context.Context, id string) (*domain.Project, error)
	DeleteProject(ctx context.Context, id string) error
	MarkSourceUploaded(ctx context.Context, sourceID string) error
}

// NetworkProvisioner creates and deletes domain-to-service routing records.
type NetworkProvisioner interface {
	CreateConnection(ctx context.Context, req domain.ConnectionRequest) (*domain.Connection, error)
	DeleteConnection(ctx context.Context, id string) error
}

// Deployer accepts asynchronous source-deployment submissions.
type Deployer interface {
	Submit(ctx context.Context, task domain.DeployTask) error
}

// =============================================================================
// Saga
// =============================================================================

// Saga executes deployment requests. Executions are independent; nothing
// serializes sagas against each other.
type Saga struct {
	codes     CodeValidator
	compute   ComputeProvisioner
	network   NetworkProvisioner
	directory redirect.DomainDirectory
	deployer  Deployer
	staging   *artifact.Staging
	journal   store.Store
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// Config wires the saga's collaborators. Journal and Metrics are optional.
type Config struct {
	Codes     CodeValidator
	Compute   ComputeProvisioner
	Network   NetworkProvisioner
	Directory redirect.DomainDirectory
	Deployer  Deployer
	Staging   *artifact.Staging
	Journal   store.Store
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

// New creates a deployment saga.
func New(cfg Config) *Saga {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Saga{
		codes:     cfg.Codes,
		compute:   cfg.Compute,
		network:   cfg.Network,
		directory: cfg.Directory,
		deployer:  cfg.Deployer,
		staging:   cfg.Staging,
		journal:   cfg.Journal,
		metrics:   cfg.Metrics,
		logger:    logger.With("component", "saga"),
	}
}

// Execute runs one deployment saga. On success it returns the finalized
// Project projection; on failure it compensates whatever was created,
// removes the artifact file, and returns the original error unchanged.
func (s *Saga) Execute(ctx context.Context, req *domain.DeploymentRequest, art *artifact.Artifact) (*domain.Project, error) {
	sagaID := uuid.New().String()
	logger := s.logger.With("saga_id", sagaID)
	comp := newCompensationStack(logger)

	// artifactPath tracks where the archive currently lives on disk so every
	// failure path deletes the right file.
	artifactPath := ""
	if art != nil {
		artifactPath = art.TempPath
	}
	projectID := ""

	fail := func(stage Stage, err error) (*domain.Project, error) {
		logger.Error("deployment failed",
			"stage", stage,
			"project_id", projectID,
			"error", err,
		)
		s.record(ctx, sagaID, projectID, stage, store.StageFailed, err.Error())
		if !comp.empty() {
			if s.metrics != nil {
				s.metrics.Compensations.Inc()
			}
			// Rollback must run even when the request context is already
			// cancelled.
			comp.unwind(context.WithoutCancel(ctx))
			s.record(ctx, sagaID, projectID, stage, store.StageCompensated, "")
		}
		s.staging.Remove(artifactPath)
		if s.metrics != nil {
			s.metrics.SagaOutcomes.WithLabelValues(string(stage), "failed").Inc()
		}
		return nil, err
	}

	// Stage 1: validate the deploy code. No side effects have occurred; an
	// invalid code only costs the caller their uploaded file.
	s.record(ctx, sagaID, "", StageValidating, store.StageStarted, "")
	if err := s.codes.Validate(ctx, req.DeployCode); err != nil {
		if s.metrics != nil {
			s.metrics.CodeValidations.WithLabelValues("rejected").Inc()
		}
		return fail(StageValidating, err)
	}
	if s.metrics != nil {
		s.metrics.CodeValidations.WithLabelValues("accepted").Inc()
	}

	// Stage 2: the archive must have been attached.
	if art == nil {
		return fail(StageValidating, domain.E(domain.KindBadRequest, "archive required", domain.ErrArchiveRequired))
	}
	s.record(ctx, sagaID, "", StageValidating, store.StageCompleted, "")

	// Stage 3: provision the compute resource. First state-mutating call.
	s.record(ctx, sagaID, "", StageProvisioning, store.StageStarted, "")
	project, err := s.compute.CreateProject(ctx, req.ProvisionSpec())
	if err != nil {
		return fail(StageProvisioning, err)
	}
	projectID = project.ID
	comp.push("delete project "+project.ID, func(ctx context.Context) error {
		return s.compute.DeleteProject(ctx, project.ID)
	})
	s.record(ctx, sagaID, projectID, StageProvisioning, store.StageCompleted, "")

	// Stage 4: wire redirects, sequentially and in input order. Each created
	// connection pushes its own cleanup so a partial wiring failure leaves
	// no orphaned routing records behind.
	if len(req.Redirects) > 0 {
		s.record(ctx, sagaID, projectID, StageWiring, store.StageStarted, "")
		requests, err := redirect.Resolve(ctx, s.directory, project.ID, req.Redirects)
		if err != nil {
			return fail(StageWiring, err)
		}
		for _, connReq := range requests {
			conn, err := s.network.CreateConnection(ctx, connReq)
			if err != nil {
				return fail(StageWiring, err)
			}
			connID := conn.ID
			comp.push("delete connection "+connID, func(ctx context.Context) error {
				return s.network.DeleteConnection(ctx, connID)
			})
		}
		s.record(ctx, sagaID, projectID, StageWiring, store.StageCompleted, "")
	}

	// Stage 5: promote the artifact to its permanent path.
	s.record(ctx, sagaID, projectID, StageFinalizing, store.StageStarted, "")
	finalPath, err := s.staging.Finalize(art, project.ID)
	if err != nil {
		return fail(StageFinalizing, domain.E(domain.KindInternal, "failed to finalize artifact", err))
	}
	artifactPath = finalPath

	// Stage 6: the source descriptor now has an uploaded archive.
	if err := s.compute.MarkSourceUploaded(ctx, project.SourceID); err != nil {
		return fail(StageFinalizing, err)
	}

	// Stage 7: hand the source off for asynchronous deployment. Submission
	// failure is a saga failure; deployment completion is not awaited.
	err = s.deployer.Submit(ctx, domain.DeployTask{
		ProjectID:   project.ID,
		SourceID:    project.SourceID,
		ArchivePath: finalPath,
		ComposePath: req.ComposePath,
		Env:         req.Env,
	})
	if err != nil {
		return fail(StageFinalizing, err)
	}
	s.record(ctx, sagaID, projectID, StageFinalizing, store.StageCompleted, "")

	// Stage 8: re-read the projection. The deployment is live at this point,
	// so a failed re-read is not compensated; the provisioned projection is
	// returned instead.
	final, err := s.compute.GetProject(ctx, project.ID)
	if err != nil {
		logger.Warn("failed to re-read project, returning provisioned projection",
			"project_id", project.ID,
			"error", err,
		)
		final = project
	}

	s.record(ctx, sagaID, projectID, StageComplete, store.StageCompleted, "")
	if s.metrics != nil {
		s.metrics.SagaOutcomes.WithLabelValues(string(StageComplete), "success").Inc()
	}
	logger.Info("deployment complete", "project_id", project.ID, "artifact", finalPath)
	return final, nil
}

// record appends a journal entry, best-effort.
func (s *Saga) record(ctx context.Context, sagaID, projectID string, stage Stage, status store.StageStatus, errMsg string) {
	if s.journal == nil {
		return
	}
	entry := &store.Entry{
		SagaID:    sagaID,
		ProjectID: projectID,
		Stage:     string(stage),
		Status:    status,
		Error:     errMsg,
	}
	if err := s.journal.RecordStage(context.WithoutCancel(ctx), entry); err != nil {
		s.logger.Warn("failed to record journal entry", "saga_id", sagaID, "error", err)
	}
}
