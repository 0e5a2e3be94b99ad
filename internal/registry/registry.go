package registry

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/stacklok/toolhive-transform-registry/internal/transform"
)

// Entry is a registered transformer
type Entry struct {
	Transformer transform.Transformer `json:"transformer"`
	Origin      transform.Origin      `json:"origin"`

	// UnresolvedReferences lists the pipeline and failover names that were not
	// registered before this transformer
	UnresolvedReferences []string `json:"unresolvedReferences,omitempty"`
}

// Info summarizes a registry
type Info struct {
	Name             string    `json:"name"`
	RunID            string    `json:"runId"`
	EngineCount      int       `json:"engineCount"`
	DocumentCount    int       `json:"documentCount"`
	TransformerCount int       `json:"transformerCount"`
	UnresolvedCount  int       `json:"unresolvedCount"`
	OptionSetCount   int       `json:"optionSetCount"`
	LastUpdated      time.Time `json:"lastUpdated"`
}

// Registry is an in-memory transformer registry. It implements combiner.Registrar.
type Registry struct {
	mu sync.RWMutex

	name        string
	runID       string
	lastUpdated time.Time

	engineCount   int
	documentCount int

	options map[string]transform.OptionSet
	entries []Entry
	byName  map[string]int
}

// New creates an empty registry for the run runID
func New(name, runID string) *Registry {
	return &Registry{
		name:        name,
		runID:       runID,
		lastUpdated: time.Now().UTC(),
		options:     map[string]transform.OptionSet{},
		byName:      map[string]int{},
	}
}

// SetCounts records the engine and document counts of the run
func (r *Registry) SetCounts(engineCount, documentCount int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.engineCount = engineCount
	r.documentCount = documentCount
}

// SetOptions records a copy of the merged option sets of the run
func (r *Registry) SetOptions(options map[string]transform.OptionSet) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.options = maps.Clone(options)
	if r.options == nil {
		r.options = map[string]transform.OptionSet{}
	}
}

// Register adds a transformer. It fails when the transformer uses an option set that
// is not part of options.
func (r *Registry) Register(
	t transform.Transformer, options map[string]transform.OptionSet, origin transform.Origin,
) error {
	for _, name := range t.TransformOptions {
		if _, ok := options[name]; !ok {
			return fmt.Errorf("option set %q is not defined", name)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var unresolved []string
	for _, ref := range t.References() {
		if _, ok := r.byName[ref]; !ok {
			unresolved = append(unresolved, ref)
		}
	}

	r.entries = append(r.entries, Entry{
		Transformer:          t,
		Origin:               origin,
		UnresolvedReferences: unresolved,
	})

	if !t.IsAnonymous() {
		if previous, ok := r.byName[t.TransformerName]; ok {
			slog.Debug("Transformer redefined, the last definition is used for lookups",
				"transformer", t.TransformerName,
				"previous_origin", r.entries[previous].Origin.ReadFrom,
				"origin", origin.ReadFrom)
		}
		r.byName[t.TransformerName] = len(r.entries) - 1
	}
	return nil
}

// Name returns the registry name
func (r *Registry) Name() string {
	return r.name
}

// Info returns a summary of the registry
func (r *Registry) Info() Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	unresolved := 0
	for i := range r.entries {
		if len(r.entries[i].UnresolvedReferences) > 0 {
			unresolved++
		}
	}

	return Info{
		Name:             r.name,
		RunID:            r.runID,
		EngineCount:      r.engineCount,
		DocumentCount:    r.documentCount,
		TransformerCount: len(r.entries),
		UnresolvedCount:  unresolved,
		OptionSetCount:   len(r.options),
		LastUpdated:      r.lastUpdated,
	}
}

// List returns every registered transformer in registration order
func (r *Registry) List() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Clone(r.entries)
}

// Get returns the transformer registered last under name
func (r *Registry) Get(name string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.byName[name]
	if !ok {
		return Entry{}, false
	}
	return r.entries[i], true
}

// Options returns the merged option sets
func (r *Registry) Options() map[string]transform.OptionSet {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return maps.Clone(r.options)
}

// Config returns the registry as a single transform configuration document, in the
// format engines serve, so registries can be aggregated by other registries.
func (r *Registry) Config() transform.Config {
	r.mu.RLock()
	defer r.mu.RUnlock()

	transformers := make([]transform.Transformer, 0, len(r.entries))
	for i := range r.entries {
		transformers = append(transformers, r.entries[i].Transformer)
	}

	return transform.Config{
		TransformOptions: maps.Clone(r.options),
		Transformers:     transformers,
	}
}
