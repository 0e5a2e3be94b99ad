package app

import (
	"github.com/stacklok/toolhive-transform-registry/internal/coordinator"
	"github.com/stacklok/toolhive-transform-registry/internal/registry"
	"github.com/stacklok/toolhive-transform-registry/internal/status"
)

// AppComponents groups all application components
//
//nolint:revive // This name is fine
type AppComponents struct {
	// Coordinator runs the aggregation in the background
	Coordinator coordinator.Coordinator

	// Holder gives the HTTP handlers access to the published registry
	Holder *registry.Holder

	// StatusPersistence stores the outcome of every run
	StatusPersistence status.StatusPersistence
}
