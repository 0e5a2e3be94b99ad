package sources

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/stacklok/toolhive-transform-registry/internal/transform"
)

const schemaResource = "transform-config.schema.json"

//go:embed schema/transform-config.schema.json
var configSchema []byte

// DocumentFunc receives every successfully parsed document together with its origin
type DocumentFunc func(ctx context.Context, doc *transform.Config, readFrom, baseURL string)

// DocumentReader reads transform configuration documents
type DocumentReader interface {
	// ReadPath reads a file, or every *.json file of a directory, and returns the number of
	// documents read. Per-file failures are joined into the returned error.
	ReadPath(ctx context.Context, path string, fn DocumentFunc) (int, error)

	// ReadDocument parses a single in-memory document
	ReadDocument(ctx context.Context, data []byte, readFrom, baseURL string, fn DocumentFunc) error
}

// DocumentValidator validates raw document data and returns the parsed configuration
type DocumentValidator interface {
	ValidateData(data []byte) (*transform.Config, error)
}

// schemaValidator checks documents against the embedded JSON schema
type schemaValidator struct {
	schema *jsonschema.Schema
}

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(configSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal transform config schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaResource, doc); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}

	schema, err := compiler.Compile(schemaResource)
	if err != nil {
		return nil, fmt.Errorf("failed to compile transform config schema: %w", err)
	}
	return schema, nil
})

// NewDocumentValidator creates the default schema based validator
func NewDocumentValidator() (DocumentValidator, error) {
	schema, err := compiledSchema()
	if err != nil {
		return nil, err
	}
	return &schemaValidator{schema: schema}, nil
}

// ValidateData validates raw data and returns the parsed document
func (v *schemaValidator) ValidateData(data []byte) (*transform.Config, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("data cannot be empty")
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if err := v.schema.Validate(inst); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	var cfg transform.Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse transform config: %w", err)
	}
	return &cfg, nil
}
