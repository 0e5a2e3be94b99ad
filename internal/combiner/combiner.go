// Package combiner aggregates transform configuration read from local files and remote
// transform engines into a single set of option sets and transformers.
//
// A Combiner holds the collaborators shared by every aggregation. Each aggregation is a
// Run created by Combiner.NewRun: the run owns the merged option map, the transformer
// entries in the order they were read and the run counters, so runs never share state.
//
// Typical use:
//
//	run := c.NewRun()
//	ok := run.AddRemoteConfig(ctx, urls, "T-Engine")
//	if err := run.AddLocalConfig(ctx, path); err != nil { ... }
//	err := run.Register(ctx, registrar)
//
// A Run is not safe for concurrent use. Remote engines may be fetched concurrently, but
// their documents are merged by the calling goroutine in URL order.
package combiner

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/toolhive-transform-registry/internal/httpclient"
	"github.com/stacklok/toolhive-transform-registry/internal/sources"
	"github.com/stacklok/toolhive-transform-registry/internal/telemetry"
	"github.com/stacklok/toolhive-transform-registry/internal/transform"
)

// Combiner creates aggregation runs
type Combiner struct {
	reader      sources.DocumentReader
	client      httpclient.Client
	concurrency int

	metrics *telemetry.AggregationMetrics
	tracer  trace.Tracer
}

// Option is a function that configures the combiner
type Option func(*Combiner)

// WithConcurrency sets how many engines are fetched at the same time. Values below 1 mean 1.
func WithConcurrency(concurrency int) Option {
	return func(c *Combiner) {
		c.concurrency = max(concurrency, 1)
	}
}

// WithMetrics sets the aggregation metrics recorded for engine fetches
func WithMetrics(metrics *telemetry.AggregationMetrics) Option {
	return func(c *Combiner) {
		c.metrics = metrics
	}
}

// WithTracer sets the tracer used for fetch spans
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Combiner) {
		c.tracer = tracer
	}
}

// New creates a combiner reading documents with reader and fetching engines with client
func New(reader sources.DocumentReader, client httpclient.Client, opts ...Option) *Combiner {
	c := &Combiner{
		reader:      reader,
		client:      client,
		concurrency: 1,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// RunStats holds the counters of one run
type RunStats struct {
	// EngineCount is the number of engines that contributed at least one transformer
	EngineCount int `json:"engineCount"`

	// DocumentCount is the number of documents read successfully, local and remote
	DocumentCount int `json:"documentCount"`
}

// Run is a single aggregation. It starts empty and is discarded after registration.
type Run struct {
	id       string
	combiner *Combiner

	options map[string]transform.OptionSet
	entries []transform.Entry
	stats   RunStats
}

// NewRun starts a new, empty aggregation run
func (c *Combiner) NewRun() *Run {
	return &Run{
		id:       uuid.NewString(),
		combiner: c,
		options:  make(map[string]transform.OptionSet),
	}
}

// ID returns the run identifier
func (r *Run) ID() string {
	return r.id
}

// Stats returns the run counters
func (r *Run) Stats() RunStats {
	return r.stats
}

// Options returns a copy of the merged option sets
func (r *Run) Options() map[string]transform.OptionSet {
	return maps.Clone(r.options)
}

// Entries returns a copy of the transformer entries in the order they were read
func (r *Run) Entries() []transform.Entry {
	return slices.Clone(r.entries)
}

// AddDocument merges a parsed document into the run. It is the sources.DocumentFunc used
// for every document the run reads.
//
// Option sets replace any set already read under the same name. Transformers are appended
// without deduplication.
func (r *Run) AddDocument(ctx context.Context, doc *transform.Config, readFrom, baseURL string) {
	if doc == nil {
		return
	}

	logger := logr.FromContextOrDiscard(ctx)
	for name, set := range doc.TransformOptions {
		if _, ok := r.options[name]; ok {
			logger.V(1).Info("Option set redefined", "option_set", name, "read_from", readFrom)
		}
		r.options[name] = set
	}

	origin := transform.Origin{BaseURL: baseURL, ReadFrom: readFrom}
	for _, t := range doc.Transformers {
		r.entries = append(r.entries, transform.Entry{Transformer: t, Origin: origin})
	}
}

// AddLocalConfig reads a local configuration file or directory into the run. Documents read
// before a failure stay merged; the failure is returned to the caller.
func (r *Run) AddLocalConfig(ctx context.Context, path string) error {
	count, err := r.combiner.reader.ReadPath(ctx, path, r.AddDocument)
	r.stats.DocumentCount += count
	if err != nil {
		return fmt.Errorf("failed to read local transform config %s: %w", path, err)
	}

	logr.FromContextOrDiscard(ctx).V(1).Info("Read local transform config",
		"run_id", r.id,
		"path", path,
		"documents", count)
	return nil
}
