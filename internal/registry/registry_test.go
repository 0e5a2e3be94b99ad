package registry_test

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/toolhive-transform-registry/internal/combiner"
	"github.com/stacklok/toolhive-transform-registry/internal/registry"
	"github.com/stacklok/toolhive-transform-registry/internal/sources"
	"github.com/stacklok/toolhive-transform-registry/internal/transform"
)

var _ combiner.Registrar = (*registry.Registry)(nil)

var (
	local  = transform.Origin{ReadFrom: "transforms/local.json"}
	remote = transform.Origin{BaseURL: "http://engine:8090", ReadFrom: "T-Engine on http://engine:8090"}
)

func TestRegistry_Register(t *testing.T) {
	t.Parallel()

	options := registry.NewTestOptionSets("imageMagickOptions", "pdfOptions")

	tests := []struct {
		name               string
		transformer        transform.Transformer
		registered         []transform.Transformer
		expectError        bool
		errorContains      string
		expectedUnresolved []string
	}{
		{
			name:        "plain transformer",
			transformer: registry.NewTestTransformer("imagemagick", registry.WithOptionSets("imageMagickOptions")),
		},
		{
			name:          "missing option set",
			transformer:   registry.NewTestTransformer("imagemagick", registry.WithOptionSets("unknownOptions")),
			expectError:   true,
			errorContains: `option set "unknownOptions" is not defined`,
		},
		{
			name:        "resolved pipeline",
			transformer: registry.NewTestTransformer("pdfToPng", registry.WithPipeline("libreoffice", "imagemagick")),
			registered: []transform.Transformer{
				registry.NewTestTransformer("libreoffice"),
				registry.NewTestTransformer("imagemagick"),
			},
		},
		{
			name: "unresolved pipeline and failover",
			transformer: registry.NewTestTransformer("pdfToPng",
				registry.WithPipeline("libreoffice", "imagemagick"),
				registry.WithFailover("tika", "libreoffice")),
			registered:         []transform.Transformer{registry.NewTestTransformer("libreoffice")},
			expectedUnresolved: []string{"imagemagick", "tika"},
		},
		{
			name:        "anonymous transformer",
			transformer: registry.NewTestTransformer(""),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			reg := registry.New("default", "run-1")
			for _, r := range tt.registered {
				require.NoError(t, reg.Register(r, options, local))
			}

			err := reg.Register(tt.transformer, options, remote)

			if tt.expectError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorContains)
				assert.Len(t, reg.List(), len(tt.registered), "rejected transformers are not registered")
				return
			}

			require.NoError(t, err)
			entries := reg.List()
			require.Len(t, entries, len(tt.registered)+1)
			last := entries[len(entries)-1]
			assert.Equal(t, tt.transformer, last.Transformer)
			assert.Equal(t, remote, last.Origin)
			assert.Equal(t, tt.expectedUnresolved, last.UnresolvedReferences)
		})
	}
}

func TestRegistry_ConflictingNames(t *testing.T) {
	t.Parallel()

	reg := registry.New("default", "run-1")
	first := registry.NewTestTransformer("imagemagick", registry.WithSupported("image/gif", "image/png", 0))
	second := registry.NewTestTransformer("imagemagick", registry.WithSupported("image/jpeg", "image/png", 1024))

	require.NoError(t, reg.Register(first, nil, local))
	require.NoError(t, reg.Register(second, nil, remote))

	assert.Len(t, reg.List(), 2, "every registration is listed")

	entry, ok := reg.Get("imagemagick")
	require.True(t, ok)
	assert.Equal(t, second, entry.Transformer, "the last registration wins lookups")
	assert.Equal(t, remote, entry.Origin)

	_, ok = reg.Get("unknown")
	assert.False(t, ok)

	_, ok = reg.Get("")
	assert.False(t, ok, "anonymous transformers cannot be looked up")
}

func TestRegistry_InfoAndConfig(t *testing.T) {
	t.Parallel()

	options := registry.NewTestOptionSets("imageMagickOptions")
	reg := registry.New("default", "run-42")
	reg.SetCounts(2, 5)
	reg.SetOptions(options)

	require.NoError(t, reg.Register(registry.NewTestTransformer("imagemagick",
		registry.WithOptionSets("imageMagickOptions")), options, remote))
	require.NoError(t, reg.Register(registry.NewTestTransformer("pdfToPng",
		registry.WithPipeline("libreoffice", "imagemagick")), options, local))
	require.NoError(t, reg.Register(registry.NewTestTransformer(""), options, local))

	info := reg.Info()
	assert.Equal(t, "default", info.Name)
	assert.Equal(t, "run-42", info.RunID)
	assert.Equal(t, 2, info.EngineCount)
	assert.Equal(t, 5, info.DocumentCount)
	assert.Equal(t, 3, info.TransformerCount)
	assert.Equal(t, 1, info.UnresolvedCount)
	assert.Equal(t, 1, info.OptionSetCount)
	assert.False(t, info.LastUpdated.IsZero())

	cfg := reg.Config()
	assert.Equal(t, options, cfg.TransformOptions)
	require.Len(t, cfg.Transformers, 3)
	assert.Equal(t, "imagemagick", cfg.Transformers[0].TransformerName)
	assert.Equal(t, "pdfToPng", cfg.Transformers[1].TransformerName)
	assert.True(t, cfg.Transformers[2].IsAnonymous())

	// The registry keeps its own copy of the option map
	delete(options, "imageMagickOptions")
	assert.Contains(t, reg.Options(), "imageMagickOptions")
}

func TestRegistry_FromRun(t *testing.T) {
	t.Parallel()

	run := combiner.New(nil, nil).NewRun()
	run.AddDocument(t.Context(), &transform.Config{
		TransformOptions: registry.NewTestOptionSets("imageMagickOptions"),
		Transformers: []transform.Transformer{
			registry.NewTestTransformer("officeToPng", registry.WithPipeline("libreoffice", "imagemagick")),
			registry.NewTestTransformer("cycleA", registry.WithFailover("cycleB")),
			registry.NewTestTransformer("cycleB", registry.WithFailover("cycleA")),
			registry.NewTestTransformer("imagemagick", registry.WithOptionSets("imageMagickOptions")),
			registry.NewTestTransformer("broken", registry.WithOptionSets("missingOptions")),
		},
	}, "transforms/local.json", "")
	run.AddDocument(t.Context(), &transform.Config{
		Transformers: []transform.Transformer{registry.NewTestTransformer("libreoffice")},
	}, "T-Engine on http://engine:8090", "http://engine:8090")

	reg := registry.New("default", run.ID())
	err := run.Register(t.Context(), reg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")

	var names []string
	for _, e := range reg.List() {
		names = append(names, e.Transformer.TransformerName)
	}
	assert.Equal(t, []string{"imagemagick", "libreoffice", "officeToPng", "cycleA", "cycleB"}, names)

	entry, ok := reg.Get("cycleA")
	require.True(t, ok)
	assert.Equal(t, []string{"cycleB"}, entry.UnresolvedReferences)

	entry, ok = reg.Get("officeToPng")
	require.True(t, ok)
	assert.Empty(t, entry.UnresolvedReferences)
	assert.Equal(t, 1, reg.Info().UnresolvedCount)
}

func TestRegistry_FromRun_OptionsWithoutRegisteredTransformers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		transformers []transform.Transformer
	}{
		{
			name: "no transformers",
		},
		{
			name: "every transformer rejected",
			transformers: []transform.Transformer{
				registry.NewTestTransformer("broken", registry.WithOptionSets("missingOptions")),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			run := combiner.New(nil, nil).NewRun()
			run.AddDocument(t.Context(), &transform.Config{
				TransformOptions: registry.NewTestOptionSets("imageMagickOptions", "pdfOptions"),
				Transformers:     tt.transformers,
			}, "transforms/options.json", "")

			reg := registry.New("default", run.ID())
			_ = run.Register(t.Context(), reg)

			assert.Empty(t, reg.List())
			assert.Equal(t, 2, reg.Info().OptionSetCount)
			assert.Contains(t, reg.Options(), "pdfOptions")
			assert.Len(t, reg.Config().TransformOptions, 2)
		})
	}
}

func TestRegistry_ConfigKeepsEngineMetadata(t *testing.T) {
	t.Parallel()

	engineDoc := `{"transformers":[{"transformerName":"a","coreVersion":"2.5.0",` +
		`"supportedSourceAndTargetList":[{"sourceMediaType":"a/b","targetMediaType":"c/d",` +
		`"maxSourceSizeBytes":0,"priority":0}]}]}`

	reader, err := sources.NewDocumentReader()
	require.NoError(t, err)

	run := combiner.New(reader, nil).NewRun()
	require.NoError(t, reader.ReadDocument(t.Context(), []byte(engineDoc),
		"T-Engine on http://engine:8090", "http://engine:8090", run.AddDocument))

	reg := registry.New("default", run.ID())
	require.NoError(t, run.Register(t.Context(), reg))

	out, err := json.Marshal(reg.Config())
	require.NoError(t, err)
	assert.JSONEq(t, engineDoc, string(out))
}

func TestHolder(t *testing.T) {
	t.Parallel()

	var holder registry.Holder
	assert.False(t, holder.Ready())
	assert.Nil(t, holder.Load())

	first := registry.New("default", "run-1")
	holder.Store(first)
	assert.True(t, holder.Ready())
	assert.Same(t, first, holder.Load())

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%2 == 0 {
				holder.Store(registry.New("default", "run-2"))
				return
			}
			assert.NotNil(t, holder.Load())
		}()
	}
	wg.Wait()

	assert.Equal(t, "run-2", holder.Load().Info().RunID)
}
