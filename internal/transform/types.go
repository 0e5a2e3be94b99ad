// Package transform defines the transformer configuration model shared by transform engines,
// local configuration files and the registry.
package transform

import "encoding/json"

// Config is a single transform configuration document, as served by a transform engine on
// /transform/config or stored in a local JSON file.
type Config struct {
	// TransformOptions maps an option set name to its options. Names are shared across documents.
	TransformOptions map[string]OptionSet `json:"transformOptions,omitempty"`

	// Transformers lists the transformers defined by the document
	Transformers []Transformer `json:"transformers,omitempty"`
}

// Transformer describes one transformer and its capabilities. Fields the registry does not
// interpret, such as an engine's coreVersion, are kept in Extra and written back unchanged.
type Transformer struct {
	// TransformerName is empty for anonymous transformers
	TransformerName string `json:"transformerName,omitempty"`

	// TransformerPipeline chains other transformers by name
	TransformerPipeline []TransformStep `json:"transformerPipeline,omitempty"`

	// TransformerFailover names transformers to try when this one fails
	TransformerFailover []string `json:"transformerFailover,omitempty"`

	// TransformOptions names the option sets this transformer accepts
	TransformOptions []string `json:"transformOptions,omitempty"`

	SupportedSourceAndTargetList []SupportedSourceAndTarget `json:"supportedSourceAndTargetList,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// TransformStep is one step of a pipeline
type TransformStep struct {
	TransformerName string `json:"transformerName"`
	TargetMediaType string `json:"targetMediaType,omitempty"`
}

// SupportedSourceAndTarget is a source/target media type pair a transformer can handle.
// MaxSourceSizeBytes and Priority are nil when the document leaves them out, so consumers
// apply their own defaults; an explicit zero is kept.
type SupportedSourceAndTarget struct {
	SourceMediaType    string `json:"sourceMediaType"`
	TargetMediaType    string `json:"targetMediaType"`
	MaxSourceSizeBytes *int64 `json:"maxSourceSizeBytes,omitempty"`
	Priority           *int   `json:"priority,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// Origin records where a transformer definition was read from
type Origin struct {
	// BaseURL is the engine base URL, empty for local files
	BaseURL string `json:"baseUrl,omitempty"`

	// ReadFrom is a human readable description of the source
	ReadFrom string `json:"readFrom"`
}

// IsRemote reports whether the definition came from a transform engine
func (o Origin) IsRemote() bool {
	return o.BaseURL != ""
}

// Entry pairs a transformer with the origin it was read from
type Entry struct {
	Transformer Transformer `json:"transformer"`
	Origin      Origin      `json:"origin"`
}

// IsAnonymous reports whether the transformer has no name
func (t *Transformer) IsAnonymous() bool {
	return t.TransformerName == ""
}

// References returns the names of the transformers referenced by pipeline steps and the
// failover list, in first-seen order and without duplicates.
func (t *Transformer) References() []string {
	if len(t.TransformerPipeline) == 0 && len(t.TransformerFailover) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(t.TransformerPipeline)+len(t.TransformerFailover))
	refs := make([]string, 0, len(t.TransformerPipeline)+len(t.TransformerFailover))
	add := func(name string) {
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		refs = append(refs, name)
	}

	for _, step := range t.TransformerPipeline {
		add(step.TransformerName)
	}
	for _, name := range t.TransformerFailover {
		add(name)
	}
	return refs
}

// CountTransformers returns the number of transformers in the document
func (c *Config) CountTransformers() int {
	if c == nil {
		return 0
	}
	return len(c.Transformers)
}
