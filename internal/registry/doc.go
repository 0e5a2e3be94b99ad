// Package registry holds the transformers published by an aggregation run.
//
// A Registry is filled once, by combiner.Run.Register, and is read-only afterwards.
// The Holder keeps the registry currently served; the coordinator swaps in a new
// registry after every successful run so readers never observe a half built one.
//
// # Conflict Policy
//
// Transformers are kept in registration order and are all listed, including
// anonymous transformers and repeated names. Lookups by name return the
// transformer registered last under that name.
//
// # Validation
//
// Registering a transformer that uses an option set missing from the merged option
// map fails; the transformer is not registered. Pipeline steps and failover names
// referring to transformers that were not registered before are accepted and
// recorded as unresolved references, so consumers can tell which entries may not be
// usable:
//
//	reg := registry.New("default", run.ID())
//	err := run.Register(ctx, reg)
//	for _, e := range reg.List() {
//	    if len(e.UnresolvedReferences) > 0 { ... }
//	}
//
// # Test Utilities
//
// NewTestTransformer and its options build transformers for tests without JSON:
//
//	t := registry.NewTestTransformer("pdfToPng",
//	    registry.WithPipeline("libreoffice", "imagemagick"),
//	    registry.WithOptionSets("imageMagickOptions"),
//	)
package registry
