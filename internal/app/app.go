// Package app provides application lifecycle management for the transform registry server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/stacklok/toolhive-transform-registry/internal/config"
	"github.com/stacklok/toolhive-transform-registry/internal/registry"
)

// RegistryApp encapsulates all components needed to run the transform registry server
type RegistryApp struct {
	config     *config.Config
	components *AppComponents
	httpServer *http.Server

	ctx        context.Context
	cancelFunc context.CancelFunc
}

// Start starts the aggregation coordinator in the background and the HTTP server.
// It blocks until the HTTP server stops or encounters an error.
func (app *RegistryApp) Start() error {
	go func() {
		if err := app.components.Coordinator.Start(app.ctx); err != nil {
			slog.Error("Aggregation coordinator failed", "error", err)
		}
	}()

	slog.Info("Server listening", "address", app.httpServer.Addr)
	if err := app.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	return nil
}

// Stop stops the coordinator and then shuts down the HTTP server within timeout
func (app *RegistryApp) Stop(timeout time.Duration) error {
	slog.Info("Shutting down server")

	if err := app.components.Coordinator.Stop(); err != nil {
		slog.Error("Failed to stop aggregation coordinator", "error", err)
	}

	if app.cancelFunc != nil {
		app.cancelFunc()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := app.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	slog.Info("Server shutdown complete")
	return nil
}

// GetConfig returns the application configuration
func (app *RegistryApp) GetConfig() *config.Config {
	return app.config
}

// GetHTTPServer returns the HTTP server
func (app *RegistryApp) GetHTTPServer() *http.Server {
	return app.httpServer
}

// GetHolder returns the holder of the published registry
func (app *RegistryApp) GetHolder() *registry.Holder {
	return app.components.Holder
}
