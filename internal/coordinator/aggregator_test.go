package coordinator

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/toolhive-transform-registry/internal/combiner"
	"github.com/stacklok/toolhive-transform-registry/internal/config"
	"github.com/stacklok/toolhive-transform-registry/internal/httpclient"
	"github.com/stacklok/toolhive-transform-registry/internal/registry"
	"github.com/stacklok/toolhive-transform-registry/internal/sources"
	"github.com/stacklok/toolhive-transform-registry/internal/status"
)

const pdfRendererConfig = `{
	"transformOptions": {
		"pdfRendererOptions": [{"value": {"name": "page"}}]
	},
	"transformers": [
		{"transformerName": "pdfRenderer", "transformOptions": ["pdfRendererOptions"]}
	]
}`

// engineServer serves body with status on /transform/config
func engineServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != combiner.ConfigPath {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func newAggregator(t *testing.T, cfg *config.Config) *Aggregator {
	t.Helper()
	reader, err := sources.NewDocumentReader()
	require.NoError(t, err)
	c := combiner.New(reader, httpclient.NewDefaultClient(5*time.Second))
	return NewAggregator(c, cfg, nil)
}

func transformerNames(entries []registry.Entry) []string {
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Transformer.TransformerName)
	}
	return names
}

func TestAggregator_Aggregate(t *testing.T) {
	t.Parallel()

	pipeline := `{"transformers": [{"transformerName": "imagemagickPipeline",
		"transformerPipeline": [
			{"transformerName": "pdfRenderer", "targetMediaType": "image/png"},
			{"transformerName": "imagemagick"}
		]}]}`
	engine := engineServer(t, http.StatusOK,
		`{"transformers": [{"transformerName": "imagemagick"}]}`)
	dir := t.TempDir()
	writeConfig(t, dir, "a-pipeline.json", pipeline)
	writeConfig(t, dir, "b-pdf.json", pdfRendererConfig)

	result := newAggregator(t, &config.Config{
		RegistryName: "acs",
		LocalPaths:   []string{dir},
		Engines:      []config.EngineConfig{{URLs: []string{engine.URL}}},
	}).Aggregate(context.Background())

	require.NoError(t, result.Err())
	assert.Equal(t, status.RunPhaseComplete, result.Phase())
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, combiner.RunStats{EngineCount: 1, DocumentCount: 3}, result.Stats)

	require.NotNil(t, result.Registry)
	assert.Equal(t, []string{"imagemagick", "pdfRenderer", "imagemagickPipeline"},
		transformerNames(result.Registry.List()))

	info := result.Registry.Info()
	assert.Equal(t, "acs", info.Name)
	assert.Equal(t, result.RunID, info.RunID)
	assert.Zero(t, info.UnresolvedCount)

	entry, ok := result.Registry.Get("imagemagick")
	require.True(t, ok)
	assert.Equal(t, engine.URL, entry.Origin.BaseURL)
	assert.Equal(t, "T-Engine on "+engine.URL, entry.Origin.ReadFrom)
}

func TestAggregator_Phases(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		engineStatus  int
		engineBody    string
		localPath     func(t *testing.T) string
		expectedPhase status.RunPhase
		errContains   string
	}{
		{
			name:          "engine failed but local config read",
			engineStatus:  http.StatusInternalServerError,
			engineBody:    `{"message": "Bad config", "path": "/transform/config"}`,
			localPath:     func(t *testing.T) string { return writeConfig(t, t.TempDir(), "pdf.json", pdfRendererConfig) },
			expectedPhase: status.RunPhasePartial,
			errContains:   "one or more T-Engine engines",
		},
		{
			name:         "local config missing but engine read",
			engineStatus: http.StatusOK,
			engineBody:   `{"transformers": [{"transformerName": "imagemagick"}]}`,
			localPath: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "missing.json")
			},
			expectedPhase: status.RunPhasePartial,
			errContains:   "failed to read local transform config",
		},
		{
			name:         "every source failed",
			engineStatus: http.StatusServiceUnavailable,
			engineBody:   "",
			localPath: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "missing.json")
			},
			expectedPhase: status.RunPhaseFailed,
			errContains:   "failed to read local transform config",
		},
		{
			name:          "rejected transformer",
			engineStatus:  http.StatusOK,
			engineBody:    `{"transformers": [{"transformerName": "tika", "transformOptions": ["tikaOptions"]}]}`,
			localPath:     func(t *testing.T) string { return writeConfig(t, t.TempDir(), "pdf.json", pdfRendererConfig) },
			expectedPhase: status.RunPhasePartial,
			errContains:   `option set "tikaOptions" is not defined`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			engine := engineServer(t, tt.engineStatus, tt.engineBody)
			result := newAggregator(t, &config.Config{
				LocalPaths: []string{tt.localPath(t)},
				Engines:    []config.EngineConfig{{URLs: []string{engine.URL}}},
			}).Aggregate(context.Background())

			assert.Equal(t, tt.expectedPhase, result.Phase())
			require.Error(t, result.Err())
			assert.Contains(t, result.Err().Error(), tt.errContains)
		})
	}
}

func TestAggregator_EnginesBeforeLocalPaths(t *testing.T) {
	t.Parallel()

	// The local definition of shared options is read last and wins
	engine := engineServer(t, http.StatusOK, `{
		"transformOptions": {"shared": [{"value": {"name": "remote"}}]},
		"transformers": [{"transformerName": "remote"}]}`)
	local := writeConfig(t, t.TempDir(), "local.json", `{
		"transformOptions": {"shared": [{"value": {"name": "local"}}]},
		"transformers": [{"transformerName": "local"}]}`)

	result := newAggregator(t, &config.Config{
		LocalPaths: []string{local},
		Engines: []config.EngineConfig{
			{Type: "Transform Service", URLs: []string{engine.URL + "/"}},
		},
	}).Aggregate(context.Background())

	require.NoError(t, result.Err())
	assert.Equal(t, []string{"remote", "local"}, transformerNames(result.Registry.List()))

	options := result.Registry.Options()
	require.Contains(t, options, "shared")
	require.Len(t, options["shared"], 1)
	assert.Equal(t, "local", options["shared"][0].Value.Name)

	entry, ok := result.Registry.Get("remote")
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(entry.Origin.ReadFrom, "Transform Service on "))
}

func TestResult_Err(t *testing.T) {
	t.Parallel()

	assert.NoError(t, (&Result{}).Err())

	sourceErr := fmt.Errorf("engine down")
	result := &Result{SourceErrors: []error{sourceErr}}
	require.ErrorIs(t, result.Err(), sourceErr)
	assert.Len(t, result.SourceErrors, 1)
}
