package combiner

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-logr/logr"
	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/toolhive-transform-registry/internal/otel"
	"github.com/stacklok/toolhive-transform-registry/internal/transform"
)

//go:generate mockgen -destination=mocks/mock_registrar.go -package=mocks -source=register.go Registrar

// Registrar receives the result of a run
type Registrar interface {
	// SetCounts publishes the run counters before any transformer is registered
	SetCounts(engineCount, documentCount int)

	// SetOptions publishes the merged option map of the run, even when no transformer is registered
	SetOptions(options map[string]transform.OptionSet)

	// Register adds one transformer. options is the merged option map of the run.
	Register(t transform.Transformer, options map[string]transform.OptionSet, origin transform.Origin) error
}

// Register sorts the run entries and offers them to registrar in dependency order.
// A transformer the registrar rejects does not stop the others; all rejections are
// returned joined.
func (r *Run) Register(ctx context.Context, registrar Registrar) error {
	ctx, span := otel.StartSpan(ctx, r.combiner.tracer, "combiner.Register",
		trace.WithAttributes(
			otel.AttrRunID.String(r.id),
			otel.AttrTransformerCount.Int(len(r.entries)),
		),
	)
	defer span.End()

	logger := logr.FromContextOrDiscard(ctx).WithValues("run_id", r.id)

	registrar.SetCounts(r.stats.EngineCount, r.stats.DocumentCount)
	registrar.SetOptions(r.options)

	sorted, unresolved := SortEntries(r.entries)
	if unresolved > 0 {
		logger.Info("Transformers reference transformers that are not defined or form a cycle",
			"unresolved", unresolved,
			"transformers", entryNames(sorted[len(sorted)-unresolved:]))
	}

	var errs []error
	for _, entry := range sorted {
		if err := registrar.Register(entry.Transformer, r.options, entry.Origin); err != nil {
			span.AddEvent("transformer rejected", trace.WithAttributes(
				otel.AttrTransformerName.String(displayName(&entry.Transformer)),
			))
			errs = append(errs, fmt.Errorf("transformer %s read from %s: %w",
				displayName(&entry.Transformer), entry.Origin.ReadFrom, err))
		}
	}

	logger.V(1).Info("Registered transformers",
		"transformers", len(sorted)-len(errs),
		"rejected", len(errs),
		"option_sets", len(r.options))

	err := errors.Join(errs...)
	otel.RecordError(span, err)
	return err
}

func entryNames(entries []transform.Entry) []string {
	names := make([]string, 0, len(entries))
	for i := range entries {
		names = append(names, displayName(&entries[i].Transformer))
	}
	return names
}

func displayName(t *transform.Transformer) string {
	if t.IsAnonymous() {
		return "<anonymous>"
	}
	return t.TransformerName
}
