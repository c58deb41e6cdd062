package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/unideploy/unideploy/internal/shell/api"
	"github.com/unideploy/unideploy/internal/shell/artifact"
	"github.com/unideploy/unideploy/internal/shell/deploycode"
	"github.com/unideploy/unideploy/internal/shell/deployer"
	"github.com/unideploy/unideploy/internal/shell/docker"
	"github.com/unideploy/unideploy/internal/shell/metrics"
	"github.com/unideploy/unideploy/internal/shell/provision"
	"github.com/unideploy/unideploy/internal/shell/saga"
	"github.com/unideploy/unideploy/internal/shell/store"
)

// =============================================================================
// Exit Codes
// =============================================================================

const (
	ExitSuccess         = 0
	ExitConfigError     = 1
	ExitDatabaseError   = 2
	ExitRedisError      = 3
	ExitDockerError     = 4
	ExitHTTPServerError = 5
)

// =============================================================================
// Server
// =============================================================================

// Server represents the deployment gateway server.
type Server struct {
	config     *Config
	httpServer *http.Server
	journal    store.Store
	redisStore *deploycode.RedisStore
	dockerProv *docker.Provisioner
	queue      *deployer.Queue
	logger     *slog.Logger
}

// NewServer creates a new server with the given config.
func NewServer(cfg *Config, logger *slog.Logger) (*Server, error) {
	// Open the saga journal database
	journal, err := store.NewSQLiteStore(cfg.Database.DSN)
	if err != nil {
		return nil, &ServerError{
			Op:       "NewServer",
			Err:      err,
			ExitCode: ExitDatabaseError,
		}
	}

	// Connect the deploy-code store
	var codeStore deploycode.Store
	var redisStore *deploycode.RedisStore
	switch cfg.DeployCode.Store {
	case "redis":
		rs, err := deploycode.NewRedisStore(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			journal.Close()
			return nil, &ServerError{
				Op:       "NewServer",
				Err:      err,
				ExitCode: ExitRedisError,
			}
		}
		codeStore = rs
		redisStore = rs
	case "memory":
		codeStore = deploycode.NewMemoryStore()
		logger.Warn("using in-memory deploy-code store, codes are not shared across processes")
	}

	gateway := deploycode.NewGateway(codeStore, deploycode.Config{
		TTL:       cfg.DeployCode.TTL,
		SingleUse: cfg.DeployCode.SingleUse,
	}, logger)

	staging, err := artifact.NewStaging(cfg.Staging.Dir, logger)
	if err != nil {
		closeAll(journal, redisStore)
		return nil, &ServerError{
			Op:       "NewServer",
			Err:      err,
			ExitCode: ExitConfigError,
		}
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	// Pick the compute backend
	var compute saga.ComputeProvisioner
	var dockerProv *docker.Provisioner
	switch cfg.Provision.Mode {
	case "docker":
		dp, err := docker.NewProvisioner(cfg.Docker.Host, cfg.Docker.Image, logger)
		if err != nil {
			closeAll(journal, redisStore)
			return nil, &ServerError{
				Op:       "NewServer",
				Err:      err,
				ExitCode: ExitDockerError,
			}
		}
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = dp.Ping(pingCtx)
		cancel()
		if err != nil {
			closeAll(journal, redisStore)
			dp.Close()
			return nil, &ServerError{
				Op:       "NewServer",
				Err:      err,
				ExitCode: ExitDockerError,
			}
		}
		compute = dp
		dockerProv = dp
		logger.Info("dev-mode compute provisioning enabled", "image", cfg.Docker.Image)
	case "http":
		compute = provision.NewComputeClient(provision.Config{
			BaseURL: cfg.Provision.ComputeURL,
			APIKey:  cfg.Provision.APIKey,
			Timeout: cfg.Provision.Timeout,
		}, logger)
	}

	network := provision.NewNetworkClient(provision.Config{
		BaseURL: cfg.Provision.NetworkURL,
		APIKey:  cfg.Provision.APIKey,
		Timeout: cfg.Provision.Timeout,
	}, logger)
	directory := provision.NewDirectoryClient(provision.Config{
		BaseURL: cfg.Provision.DirectoryURL,
		APIKey:  cfg.Provision.APIKey,
		Timeout: cfg.Provision.Timeout,
	}, logger)

	// Deploy trigger queue
	deployClient := deployer.NewHTTPClient(deployer.ClientConfig{
		BaseURL: cfg.Deployer.URL,
		APIKey:  cfg.Deployer.APIKey,
		Timeout: cfg.Deployer.Timeout,
	}, logger)
	queue := deployer.NewQueue(deployClient, deployer.Config{
		Size:           cfg.Deployer.QueueSize,
		DeliverTimeout: cfg.Deployer.DeliverTimeout,
	}, logger)

	orchestrator := saga.New(saga.Config{
		Codes:     gateway,
		Compute:   compute,
		Network:   network,
		Directory: directory,
		Deployer:  queue,
		Staging:   staging,
		Journal:   journal,
		Metrics:   m,
		Logger:    logger,
	})

	handler := api.NewHandler(api.HandlerConfig{
		Codes:          gateway,
		Saga:           orchestrator,
		Staging:        staging,
		Journal:        journal,
		CodeStore:      redisStore,
		Metrics:        m,
		Logger:         logger,
		MaxUploadBytes: cfg.Staging.MaxUploadBytes,
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      handler.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return &Server{
		config:     cfg,
		httpServer: httpServer,
		journal:    journal,
		redisStore: redisStore,
		dockerProv: dockerProv,
		queue:      queue,
		logger:     logger,
	}, nil
}

// closeAll closes whatever backends are non-nil during failed construction.
func closeAll(journal store.Store, redisStore *deploycode.RedisStore) {
	if journal != nil {
		journal.Close()
	}
	if redisStore != nil {
		redisStore.Close()
	}
}

// Start starts the server and blocks until shutdown.
func (s *Server) Start(ctx context.Context) error {
	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Start deploy trigger worker
	s.queue.Start()

	// Start HTTP server in goroutine
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server",
			"address", s.config.Server.Address())
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case sig := <-sigCh:
		s.logger.Info("received shutdown signal", "signal", sig)
	case err := <-errCh:
		s.Shutdown(context.Background())
		return &ServerError{
			Op:       "Start",
			Err:      err,
			ExitCode: ExitHTTPServerError,
		}
	case <-ctx.Done():
		s.logger.Info("context cancelled")
	}

	return s.Shutdown(context.Background())
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("initiating graceful shutdown")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.Server.ShutdownTimeout)
	defer cancel()

	// Stop accepting requests first so no new saga can enqueue work
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	// Drain pending deploy triggers
	s.queue.Stop()

	if s.dockerProv != nil {
		if err := s.dockerProv.Close(); err != nil {
			s.logger.Error("docker provisioner close error", "error", err)
		}
	}

	if s.redisStore != nil {
		if err := s.redisStore.Close(); err != nil {
			s.logger.Error("redis close error", "error", err)
		}
	}

	if err := s.journal.Close(); err != nil {
		s.logger.Error("journal close error", "error", err)
	}

	s.logger.Info("shutdown complete")
	return nil
}

// =============================================================================
// Server Error
// =============================================================================

// ServerError represents an error during server operation.
type ServerError struct {
	Op       string
	Err      error
	ExitCode int
}

func (e *ServerError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *ServerError) Unwrap() error {
	return e.Err
}
