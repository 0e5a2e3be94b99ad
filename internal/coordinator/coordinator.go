package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/stacklok/toolhive-transform-registry/internal/registry"
	"github.com/stacklok/toolhive-transform-registry/internal/status"
	"github.com/stacklok/toolhive-transform-registry/internal/telemetry"
)

// ErrAlreadyStarted is returned by Start when the coordinator was started before
var ErrAlreadyStarted = errors.New("coordinator already started")

// intervalJitter is the maximum relative offset (±10%) applied to the refresh interval
const intervalJitter = 0.1

// Coordinator schedules aggregation runs and publishes their registries
type Coordinator interface {
	// Start runs an aggregation immediately and then once per refresh interval.
	// Blocks until the context is cancelled or Stop is called. A coordinator starts once.
	Start(ctx context.Context) error

	// Stop stops the run loop and waits for Start to return. After Stop, Start returns
	// without running.
	Stop() error
}

// Runner performs one aggregation run
type Runner interface {
	Aggregate(ctx context.Context) *Result
}

type defaultCoordinator struct {
	runner       Runner
	holder       *registry.Holder
	persistence  status.StatusPersistence
	registryName string
	interval     time.Duration

	mu         sync.Mutex
	started    bool
	stopped    bool
	cancelFunc context.CancelFunc
	done       chan struct{}

	aggregationMetrics *telemetry.AggregationMetrics
	registryMetrics    *telemetry.RegistryMetrics
}

// Option is a function that configures the coordinator
type Option func(*defaultCoordinator)

// WithAggregationMetrics sets the metrics recording run durations
func WithAggregationMetrics(metrics *telemetry.AggregationMetrics) Option {
	return func(c *defaultCoordinator) {
		c.aggregationMetrics = metrics
	}
}

// WithRegistryMetrics sets the metrics describing published registries
func WithRegistryMetrics(metrics *telemetry.RegistryMetrics) Option {
	return func(c *defaultCoordinator) {
		c.registryMetrics = metrics
	}
}

// WithInterval sets the refresh interval. Zero runs the aggregation once.
func WithInterval(interval time.Duration) Option {
	return func(c *defaultCoordinator) {
		c.interval = interval
	}
}

// New creates a coordinator publishing the registries produced by runner into holder
func New(
	runner Runner,
	holder *registry.Holder,
	persistence status.StatusPersistence,
	registryName string,
	opts ...Option,
) Coordinator {
	c := &defaultCoordinator{
		runner:       runner,
		holder:       holder,
		persistence:  persistence,
		registryName: registryName,
		done:         make(chan struct{}),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// jitteredInterval spreads the runs of instances sharing a configuration
func jitteredInterval(interval time.Duration) time.Duration {
	maxOffset := time.Duration(float64(interval) * intervalJitter)
	if maxOffset <= 0 {
		return interval
	}
	//nolint:gosec // G404: Non-cryptographic randomness is sufficient for scheduling jitter
	return interval + time.Duration(rand.Int64N(int64(2*maxOffset)+1)) - maxOffset
}

// Start runs the aggregation loop
func (c *defaultCoordinator) Start(ctx context.Context) error {
	slog.Info("Starting aggregation coordinator",
		"registry", c.registryName,
		"refresh_interval", c.interval)

	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.started = true
	if c.stopped {
		c.mu.Unlock()
		close(c.done)
		slog.Info("Aggregation coordinator stopped before start")
		return nil
	}
	coordCtx, cancel := context.WithCancel(ctx)
	c.cancelFunc = cancel
	c.mu.Unlock()

	defer func() {
		cancel()
		close(c.done)
		slog.Info("Aggregation coordinator shutting down")
	}()

	c.performRun(coordCtx)

	if c.interval <= 0 {
		// Single run; keep serving the published registry until shutdown
		<-coordCtx.Done()
		return nil
	}

	timer := time.NewTimer(jitteredInterval(c.interval))
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			c.performRun(coordCtx)
			timer.Reset(jitteredInterval(c.interval))
		case <-coordCtx.Done():
			slog.Info("Aggregation coordinator stopping")
			return nil
		}
	}
}

// Stop stops the coordinator
func (c *defaultCoordinator) Stop() error {
	c.mu.Lock()
	c.stopped = true
	cancel := c.cancelFunc
	c.mu.Unlock()

	if cancel != nil {
		slog.Info("Stopping aggregation coordinator")
		cancel()
		<-c.done
	}
	return nil
}

// performRun executes one aggregation and publishes its registry unless every source failed
func (c *defaultCoordinator) performRun(ctx context.Context) *status.RunStatus {
	startTime := time.Now()

	previous, err := c.persistence.LoadStatus(ctx, c.registryName)
	if err != nil {
		slog.Warn("Failed to load run status, starting from an empty status",
			"registry", c.registryName,
			"error", err)
		previous = &status.RunStatus{}
	}

	// Saved in a deferred call so an unexpected failure still leaves a status behind
	runStatus := &status.RunStatus{
		Phase:           status.RunPhaseFailed,
		Message:         fmt.Sprintf("Unexpected failure while aggregating registry %s", c.registryName),
		LastAttempt:     &startTime,
		AttemptCount:    previous.AttemptCount + 1,
		LastSuccess:     previous.LastSuccess,
		RefreshInterval: c.intervalString(),
	}
	defer func() {
		if err := c.persistence.SaveStatus(ctx, c.registryName, runStatus); err != nil {
			slog.Error("Error saving run status",
				"registry", c.registryName,
				"error", err)
		}
	}()

	running := *runStatus
	running.Phase = status.RunPhaseRunning
	running.Message = "Aggregating transform configuration"
	if err := c.persistence.SaveStatus(ctx, c.registryName, &running); err != nil {
		slog.Warn("Error saving run status", "registry", c.registryName, "error", err)
	}

	slog.Info("Starting aggregation run", "registry", c.registryName)

	result := c.runner.Aggregate(ctx)
	phase := result.Phase()
	duration := time.Since(startTime)

	runStatus.RunID = result.RunID
	runStatus.Phase = phase
	runStatus.EngineCount = result.Stats.EngineCount
	runStatus.DocumentCount = result.Stats.DocumentCount

	c.aggregationMetrics.RecordRunDuration(ctx, c.registryName, duration, phase != status.RunPhaseFailed)

	if phase == status.RunPhaseFailed {
		runStatus.Message = fmt.Sprintf("No transform configuration could be read: %v", result.Err())
		if published := c.holder.Load(); published != nil {
			runStatus.TransformerCount = published.Info().TransformerCount
			runStatus.UnresolvedCount = published.Info().UnresolvedCount
		}
		slog.Error("Aggregation run failed, keeping the published registry",
			"registry", c.registryName,
			"run_id", result.RunID,
			"error", result.Err())
		return runStatus
	}

	c.holder.Store(result.Registry)
	info := result.Registry.Info()

	now := time.Now()
	runStatus.LastSuccess = &now
	runStatus.TransformerCount = info.TransformerCount
	runStatus.UnresolvedCount = info.UnresolvedCount

	if phase == status.RunPhaseComplete {
		runStatus.Message = "Aggregation completed successfully"
		runStatus.AttemptCount = 0
	} else {
		runStatus.Message = fmt.Sprintf("Aggregation completed with errors: %v", result.Err())
	}

	c.registryMetrics.RecordRegistry(ctx, c.registryName,
		int64(info.TransformerCount), int64(info.UnresolvedCount), int64(info.EngineCount))

	slog.Info("Aggregation run published",
		"registry", c.registryName,
		"run_id", result.RunID,
		"phase", phase,
		"engines", info.EngineCount,
		"documents", info.DocumentCount,
		"transformers", info.TransformerCount,
		"unresolved", info.UnresolvedCount,
		"duration", duration)

	return runStatus
}

func (c *defaultCoordinator) intervalString() string {
	if c.interval <= 0 {
		return ""
	}
	return c.interval.String()
}
