package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/toolhive-transform-registry/internal/combiner"
	"github.com/stacklok/toolhive-transform-registry/internal/config"
	"github.com/stacklok/toolhive-transform-registry/internal/otel"
	"github.com/stacklok/toolhive-transform-registry/internal/registry"
	"github.com/stacklok/toolhive-transform-registry/internal/status"
)

// Aggregator performs single aggregation runs over the sources of a configuration
type Aggregator struct {
	combiner *combiner.Combiner
	config   *config.Config
	tracer   trace.Tracer
}

// NewAggregator creates an aggregator reading the engines and local paths of cfg
func NewAggregator(c *combiner.Combiner, cfg *config.Config, tracer trace.Tracer) *Aggregator {
	return &Aggregator{
		combiner: c,
		config:   cfg,
		tracer:   tracer,
	}
}

// Result is the outcome of one aggregation run
type Result struct {
	RunID    string
	Registry *registry.Registry
	Stats    combiner.RunStats

	// SourceErrors has one entry per engine group with a failed engine and per unreadable local path
	SourceErrors []error

	// RegisterErr joins the transformers the registry rejected
	RegisterErr error
}

// Phase classifies the run. A run where sources failed and no document was read is Failed;
// its registry should not replace a previously published one.
func (r *Result) Phase() status.RunPhase {
	switch {
	case len(r.SourceErrors) > 0 && r.Stats.DocumentCount == 0:
		return status.RunPhaseFailed
	case len(r.SourceErrors) > 0 || r.RegisterErr != nil:
		return status.RunPhasePartial
	default:
		return status.RunPhaseComplete
	}
}

// Err joins every failure of the run, or returns nil for a complete run
func (r *Result) Err() error {
	return errors.Join(append(slices.Clone(r.SourceErrors), r.RegisterErr)...)
}

// Aggregate reads every configured source into a fresh run and registers the result into a
// new registry. Remote engines are read before local paths, in configuration order.
func (a *Aggregator) Aggregate(ctx context.Context) *Result {
	run := a.combiner.NewRun()
	registryName := a.config.GetRegistryName()

	ctx, span := otel.StartSpan(ctx, a.tracer, "coordinator.Aggregate",
		trace.WithAttributes(
			otel.AttrRegistryName.String(registryName),
			otel.AttrRunID.String(run.ID()),
		),
	)
	defer span.End()

	result := &Result{RunID: run.ID()}

	for i := range a.config.Engines {
		engine := &a.config.Engines[i]
		if !run.AddRemoteConfig(ctx, engine.URLs, engine.GetType()) {
			result.SourceErrors = append(result.SourceErrors,
				fmt.Errorf("failed to read the config of one or more %s engines", engine.GetType()))
		}
	}

	for _, path := range a.config.LocalPaths {
		if err := run.AddLocalConfig(ctx, path); err != nil {
			slog.Error("Failed to read local transform config", "registry", registryName, "path", path, "error", err)
			result.SourceErrors = append(result.SourceErrors, err)
		}
	}

	result.Registry = registry.New(registryName, run.ID())
	result.RegisterErr = run.Register(ctx, result.Registry)
	result.Stats = run.Stats()

	span.SetAttributes(
		otel.AttrEngineCount.Int(result.Stats.EngineCount),
		otel.AttrDocumentCount.Int(result.Stats.DocumentCount),
		otel.AttrTransformerCount.Int(len(result.Registry.List())),
	)
	otel.RecordError(span, result.Err())

	return result
}
