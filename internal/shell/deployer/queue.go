// Package deployer submits asynchronous source-deployment tasks to the
// Source Deployer. The gateway's contract is "submission acknowledged": a
// task accepted by the queue will be delivered best-effort, and the caller
// is never blocked on the deployment itself.
package deployer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/unideploy/unideploy/internal/core/domain"
)

// ErrQueueFull is returned when the submission queue cannot accept a task.
var ErrQueueFull = errors.New("deploy queue full")

// ErrStopped is returned when the queue is no longer accepting tasks.
var ErrStopped = errors.New("deploy queue stopped")

// Client delivers one deploy task to the Source Deployer.
type Client interface {
	TriggerDeploy(ctx context.Context, task domain.DeployTask) error
}

// Config configures the queue.
type Config struct {
	Size           int
	DeliverTimeout time.Duration
}

// DefaultConfig returns default queue configuration.
func DefaultConfig() Config {
	return Config{
		Size:           64,
		DeliverTimeout: 30 * time.Second,
	}
}

// Queue is a bounded task queue with a single delivery worker. Sequential
// delivery keeps the Source Deployer from being hammered by a burst of
// uploads.
type Queue struct {
	client Client
	config Config
	tasks  chan domain.DeployTask
	logger *slog.Logger

	mu      sync.Mutex
	stopped bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewQueue creates a queue over the given client.
func NewQueue(client Client, config Config, logger *slog.Logger) *Queue {
	if config.Size <= 0 {
		config.Size = DefaultConfig().Size
	}
	if config.DeliverTimeout <= 0 {
		config.DeliverTimeout = DefaultConfig().DeliverTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		client: client,
		config: config,
		tasks:  make(chan domain.DeployTask, config.Size),
		logger: logger.With("component", "deployer"),
	}
}

// Start begins the delivery worker.
func (q *Queue) Start() {
	q.ctx, q.cancel = context.WithCancel(context.Background())
	q.wg.Add(1)
	go q.run()
	q.logger.Info("deployer started", "queue_size", q.config.Size)
}

// Stop stops accepting tasks, delivers what is already queued, and waits
// for the worker to exit.
func (q *Queue) Stop() {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}
	q.stopped = true
	q.mu.Unlock()

	close(q.tasks)
	q.wg.Wait()
	if q.cancel != nil {
		q.cancel()
	}
	q.logger.Info("deployer stopped")
}

// Submit enqueues a task without blocking. A full or stopped queue is a
// submission failure, which the saga treats like any other stage failure.
func (q *Queue) Submit(_ context.Context, task domain.DeployTask) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.stopped {
		return domain.E(domain.KindUpstream, "deploy submission rejected", ErrStopped)
	}
	select {
	case q.tasks <- task:
		q.logger.Info("deploy task submitted", "project_id", task.ProjectID, "source_id", task.SourceID)
		return nil
	default:
		return domain.E(domain.KindUpstream, "deploy submission rejected", ErrQueueFull)
	}
}

func (q *Queue) run() {
	defer q.wg.Done()

	for task := range q.tasks {
		ctx, cancel := context.WithTimeout(q.ctx, q.config.DeliverTimeout)
		err := q.client.TriggerDeploy(ctx, task)
		cancel()
		if err != nil {
			// Submission was already acknowledged; delivery failures are an
			// operational concern, surfaced in logs and the journal readers.
			q.logger.Error("deploy task delivery failed",
				"project_id", task.ProjectID,
				"error", err,
			)
			continue
		}
		q.logger.Info("deploy task delivered", "project_id", task.ProjectID)
	}
}
