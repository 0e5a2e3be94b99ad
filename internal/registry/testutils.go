package registry

import "github.com/stacklok/toolhive-transform-registry/internal/transform"

// TransformerOption is a function that configures a Transformer for testing
type TransformerOption func(*transform.Transformer)

// NewTestTransformer creates a transformer for testing converting text/plain to
// application/pdf and applies any provided options. An empty name creates an
// anonymous transformer.
func NewTestTransformer(name string, opts ...TransformerOption) transform.Transformer {
	t := transform.Transformer{
		TransformerName: name,
		SupportedSourceAndTargetList: []transform.SupportedSourceAndTarget{
			{SourceMediaType: "text/plain", TargetMediaType: "application/pdf"},
		},
	}

	for _, opt := range opts {
		opt(&t)
	}

	return t
}

// WithPipeline adds one pipeline step per name. Intermediate steps target image/png.
func WithPipeline(names ...string) TransformerOption {
	return func(t *transform.Transformer) {
		for i, name := range names {
			step := transform.TransformStep{TransformerName: name}
			if i < len(names)-1 {
				step.TargetMediaType = "image/png"
			}
			t.TransformerPipeline = append(t.TransformerPipeline, step)
		}
	}
}

// WithFailover adds failover transformer names
func WithFailover(names ...string) TransformerOption {
	return func(t *transform.Transformer) {
		t.TransformerFailover = append(t.TransformerFailover, names...)
	}
}

// WithOptionSets adds the names of the option sets the transformer uses
func WithOptionSets(names ...string) TransformerOption {
	return func(t *transform.Transformer) {
		t.TransformOptions = append(t.TransformOptions, names...)
	}
}

// WithSupported replaces the supported source and target list with one pair
func WithSupported(source, target string, maxSourceSizeBytes int64) TransformerOption {
	return func(t *transform.Transformer) {
		t.SupportedSourceAndTargetList = []transform.SupportedSourceAndTarget{
			{SourceMediaType: source, TargetMediaType: target, MaxSourceSizeBytes: &maxSourceSizeBytes},
		}
	}
}

// NewTestOptionSets returns an option map with one value option per set name,
// named after the set
func NewTestOptionSets(names ...string) map[string]transform.OptionSet {
	options := make(map[string]transform.OptionSet, len(names))
	for _, name := range names {
		options[name] = transform.NewOptionSet(transform.ValueOption(name+"Value", false))
	}
	return options
}
