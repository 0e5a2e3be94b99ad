package sources_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/toolhive-transform-registry/internal/sources"
	"github.com/stacklok/toolhive-transform-registry/internal/transform"
)

type readDocument struct {
	doc      *transform.Config
	readFrom string
	baseURL  string
}

func collect(docs *[]readDocument) sources.DocumentFunc {
	return func(_ context.Context, doc *transform.Config, readFrom, baseURL string) {
		*docs = append(*docs, readDocument{doc: doc, readFrom: readFrom, baseURL: baseURL})
	}
}

func newReader(t *testing.T) sources.DocumentReader {
	t.Helper()
	reader, err := sources.NewDocumentReader()
	require.NoError(t, err)
	return reader
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

const imagemagickConfig = `{
	"transformOptions": {
		"imageMagickOptions": [{"value": {"name": "alphaRemove"}}]
	},
	"transformers": [
		{"transformerName": "imagemagick", "transformOptions": ["imageMagickOptions"]}
	]
}`

func TestDocumentReader_ReadPath_File(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeFile(t, dir, "imagemagick.json", imagemagickConfig)

	var docs []readDocument
	count, err := newReader(t).ReadPath(context.Background(), path, collect(&docs))

	require.NoError(t, err)
	assert.Equal(t, 1, count)
	require.Len(t, docs, 1)
	assert.Equal(t, path, docs[0].readFrom)
	assert.Empty(t, docs[0].baseURL)
	assert.Equal(t, "imagemagick", docs[0].doc.Transformers[0].TransformerName)
}

func TestDocumentReader_ReadPath_Directory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "b-pipelines.json", `{"transformers": [{"transformerName": "pipeline"}]}`)
	writeFile(t, dir, "a-engines.json", imagemagickConfig)
	writeFile(t, dir, "notes.txt", "not a config file")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.json"), 0750))

	var docs []readDocument
	count, err := newReader(t).ReadPath(context.Background(), dir, collect(&docs))

	require.NoError(t, err)
	assert.Equal(t, 2, count)
	require.Len(t, docs, 2)
	assert.Equal(t, filepath.Join(dir, "a-engines.json"), docs[0].readFrom, "files are read in lexical order")
	assert.Equal(t, filepath.Join(dir, "b-pipelines.json"), docs[1].readFrom)
}

func TestDocumentReader_ReadPath_CommentsAndTrailingCommas(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeFile(t, dir, "local.json", `{
		// Local pipeline definitions
		"transformers": [
			{
				"transformerName": "pdfToPng",
				"transformerPipeline": [
					{"transformerName": "pdfrenderer", "targetMediaType": "image/png"},
				],
			},
		],
	}`)

	var docs []readDocument
	count, err := newReader(t).ReadPath(context.Background(), path, collect(&docs))

	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, []string{"pdfrenderer"}, docs[0].doc.Transformers[0].References())
}

func TestDocumentReader_ReadPath_PartialFailure(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "a-good.json", imagemagickConfig)
	writeFile(t, dir, "b-broken.json", `{"transformers": [`)
	writeFile(t, dir, "c-invalid.json", `{"transformers": {"not": "an array"}}`)
	writeFile(t, dir, "d-good.json", `{"transformers": [{"transformerName": "tika"}]}`)

	var docs []readDocument
	count, err := newReader(t).ReadPath(context.Background(), dir, collect(&docs))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "b-broken.json")
	assert.Contains(t, err.Error(), "c-invalid.json")
	assert.Equal(t, 2, count, "valid files are still read")
	assert.Len(t, docs, 2)
}

func TestDocumentReader_ReadPath_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		path          func(t *testing.T) string
		errorContains string
	}{
		{
			name:          "empty path",
			path:          func(*testing.T) string { return "" },
			errorContains: "path cannot be empty",
		},
		{
			name: "missing path",
			path: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "missing.json")
			},
			errorContains: "config path not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var docs []readDocument
			count, err := newReader(t).ReadPath(context.Background(), tt.path(t), collect(&docs))

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorContains)
			assert.Zero(t, count)
			assert.Empty(t, docs)
		})
	}
}

func TestDocumentReader_ReadDocument(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		data          string
		expectError   bool
		errorContains string
		transformers  int
	}{
		{
			name:         "valid document",
			data:         imagemagickConfig,
			transformers: 1,
		},
		{
			name:         "empty object",
			data:         `{}`,
			transformers: 0,
		},
		{
			name:          "empty payload",
			data:          "  ",
			expectError:   true,
			errorContains: "data cannot be empty",
		},
		{
			name:          "not JSON",
			data:          "<html>oops</html>",
			expectError:   true,
			errorContains: "invalid JSON",
		},
		{
			name:          "option without value or group",
			data:          `{"transformOptions": {"x": [{}]}}`,
			expectError:   true,
			errorContains: "schema validation failed",
		},
		{
			name:          "pipeline step without name",
			data:          `{"transformers": [{"transformerPipeline": [{"targetMediaType": "image/png"}]}]}`,
			expectError:   true,
			errorContains: "schema validation failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var docs []readDocument
			err := newReader(t).ReadDocument(context.Background(), []byte(tt.data),
				"T-Engine on http://engine:8090", "http://engine:8090", collect(&docs))

			if tt.expectError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorContains)
				assert.Contains(t, err.Error(), "T-Engine on http://engine:8090")
				assert.Empty(t, docs)
				return
			}

			require.NoError(t, err)
			require.Len(t, docs, 1)
			assert.Equal(t, "http://engine:8090", docs[0].baseURL)
			assert.Equal(t, "T-Engine on http://engine:8090", docs[0].readFrom)
			assert.Equal(t, tt.transformers, docs[0].doc.CountTransformers())
		})
	}
}
