package sources

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-logr/logr"
	"github.com/tailscale/hujson"
)

// configFileExtension selects the files read from a configuration directory
const configFileExtension = ".json"

// documentReader is the default DocumentReader
type documentReader struct {
	validator DocumentValidator
}

var _ DocumentReader = (*documentReader)(nil)

// NewDocumentReader creates a reader using the default schema validator
func NewDocumentReader() (DocumentReader, error) {
	validator, err := NewDocumentValidator()
	if err != nil {
		return nil, err
	}
	return NewDocumentReaderWithValidator(validator), nil
}

// NewDocumentReaderWithValidator creates a reader with a custom validator
func NewDocumentReaderWithValidator(validator DocumentValidator) DocumentReader {
	return &documentReader{validator: validator}
}

// ReadPath reads a configuration file or every configuration file of a directory
func (r *documentReader) ReadPath(ctx context.Context, path string, fn DocumentFunc) (int, error) {
	logger := logr.FromContextOrDiscard(ctx)

	if path == "" {
		return 0, fmt.Errorf("path cannot be empty")
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, fmt.Errorf("config path not found: %s", path)
		}
		return 0, fmt.Errorf("failed to stat config path %s: %w", path, err)
	}

	files := []string{path}
	if info.IsDir() {
		files, err = listConfigFiles(path)
		if err != nil {
			return 0, err
		}
		logger.V(1).Info("Reading transform config directory", "path", path, "files", len(files))
	}

	var (
		count int
		errs  []error
	)
	for _, file := range files {
		if err := r.readFile(ctx, file, fn); err != nil {
			logger.Error(err, "Failed to read transform config file", "path", file)
			errs = append(errs, err)
			continue
		}
		count++
	}

	return count, errors.Join(errs...)
}

// ReadDocument parses one in-memory document and hands it to fn
func (r *documentReader) ReadDocument(
	ctx context.Context, data []byte, readFrom, baseURL string, fn DocumentFunc,
) error {
	doc, err := r.validator.ValidateData(data)
	if err != nil {
		return fmt.Errorf("%s: %w", readFrom, err)
	}

	logr.FromContextOrDiscard(ctx).V(1).Info("Read transform config",
		"read_from", readFrom,
		"transformers", doc.CountTransformers(),
		"option_sets", len(doc.TransformOptions))

	fn(ctx, doc, readFrom, baseURL)
	return nil
}

// readFile reads a single local file; local files may carry comments and trailing commas
func (r *documentReader) readFile(ctx context.Context, path string, fn DocumentFunc) error {
	//nolint:gosec // File path comes from user configuration, this is expected behavior
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", path, err)
	}

	standardized, err := hujson.Standardize(data)
	if err != nil {
		return fmt.Errorf("%s: invalid JSON: %w", path, err)
	}

	return r.ReadDocument(ctx, standardized, path, "", fn)
}

// listConfigFiles returns the configuration files of a directory in lexical order
func listConfigFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read config directory %s: %w", dir, err)
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), configFileExtension) {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	return files, nil
}
