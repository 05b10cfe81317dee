package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/homeinventory/inventory-sync/internal/core/ports/driven"
	"github.com/homeinventory/inventory-sync/internal/core/ports/driving"
)

// Runner is a background component whose lifecycle the worker owns,
// typically the reachability monitor feeding it.
type Runner interface {
	Start(ctx context.Context) error
	Stop()
}

// Worker drives automatic sync passes.
// It triggers a pass whenever the backend becomes reachable and, with a
// RetryInterval, periodically while operations remain queued.
type Worker struct {
	coordinator  driving.SyncCoordinator
	reachability driven.Reachability
	queue        driven.OperationQueue
	monitor      Runner
	logger       *slog.Logger

	retryInterval time.Duration

	// Internal state
	mu      sync.RWMutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// WorkerConfig holds configuration for the worker.
type WorkerConfig struct {
	Coordinator   driving.SyncCoordinator
	Reachability  driven.Reachability
	Queue         driven.OperationQueue
	Monitor       Runner // Optional: started before and stopped after the worker loop
	Logger        *slog.Logger
	RetryInterval time.Duration // Re-trigger period while connected with pending work (0: disabled)
}

// NewWorker creates a new auto-sync worker.
func NewWorker(cfg WorkerConfig) *Worker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Worker{
		coordinator:   cfg.Coordinator,
		reachability:  cfg.Reachability,
		queue:         cfg.Queue,
		monitor:       cfg.Monitor,
		logger:        logger,
		retryInterval: cfg.RetryInterval,
	}
}

// Start begins the worker loop.
// It runs until Stop is called or context is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	w.logger.Info("worker starting", "retry_interval", w.retryInterval)

	// Subscribe before the monitor starts so the first transition is not missed
	updates, cancel := w.reachability.Subscribe(4)

	if w.monitor != nil {
		if err := w.monitor.Start(ctx); err != nil {
			w.logger.Error("failed to start reachability monitor", "error", err)
		}
	}

	go w.run(ctx, updates, cancel)
	return nil
}

// Stop gracefully stops the worker. An in-flight pass runs to completion.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	close(w.stopCh)
	w.mu.Unlock()

	<-w.doneCh

	if w.monitor != nil {
		w.monitor.Stop()
	}

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.logger.Info("worker stopped")
}

// Wait blocks until the worker loop exits.
func (w *Worker) Wait() {
	w.mu.RLock()
	done := w.doneCh
	w.mu.RUnlock()
	if done != nil {
		<-done
	}
}

func (w *Worker) run(ctx context.Context, updates <-chan bool, cancel func()) {
	defer close(w.doneCh)
	defer cancel()

	var retry <-chan time.Time
	if w.retryInterval > 0 {
		ticker := time.NewTicker(w.retryInterval)
		defer ticker.Stop()
		retry = ticker.C
	}

	if w.reachability.IsConnected() {
		w.trigger(ctx, "startup")
	}

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker context cancelled")
			return
		case <-w.stopCh:
			return
		case connected, ok := <-updates:
			if !ok {
				return
			}
			if connected {
				w.trigger(ctx, "reconnected")
			} else {
				w.logger.Info("backend unreachable, queueing writes locally")
			}
		case <-retry:
			if w.reachability.IsConnected() && w.pending(ctx) > 0 {
				w.trigger(ctx, "retry")
			}
		}
	}
}

func (w *Worker) trigger(ctx context.Context, reason string) {
	if w.coordinator.TriggerSync(ctx) {
		w.logger.Debug("automatic sync ran", "reason", reason)
	}
}

func (w *Worker) pending(ctx context.Context) int {
	count, err := w.queue.Count(ctx)
	if err != nil {
		w.logger.Warn("failed to count pending operations", "error", err)
		return 0
	}
	return count
}

// Health is the health status of the worker.
type Health struct {
	Running           bool   `json:"running"`
	Connected         bool   `json:"connected"`
	QueueHealth       bool   `json:"queue_health"`
	PendingOperations int    `json:"pending_operations"`
	Error             string `json:"error,omitempty"`
}

// Health returns the health status of the worker.
func (w *Worker) Health(ctx context.Context) Health {
	w.mu.RLock()
	running := w.running
	w.mu.RUnlock()

	health := Health{
		Running:   running,
		Connected: w.reachability.IsConnected(),
	}

	if err := w.queue.Ping(ctx); err != nil {
		health.Error = err.Error()
		return health
	}
	health.QueueHealth = true

	count, err := w.queue.Count(ctx)
	if err != nil {
		health.Error = err.Error()
		return health
	}
	health.PendingOperations = count
	return health
}
