// Package status provides aggregation run status tracking and persistence.
package status

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"gopkg.in/yaml.v3"
)

//go:generate mockgen -destination=mocks/mock_status_persistence.go -package=mocks -source=persistence.go StatusPersistence

const (
	// StatusFileName is the name of the status file
	StatusFileName = "status.yaml"

	// lockFileName guards the status file against concurrent writers
	lockFileName = "status.lock"

	lockRetryDelay = 50 * time.Millisecond
)

// StatusPersistence defines the interface for run status persistence
//
//nolint:revive // This name is fine
type StatusPersistence interface {
	// SaveStatus saves the run status of a registry
	SaveStatus(ctx context.Context, registryName string, status *RunStatus) error

	// LoadStatus loads the run status of a registry
	// Returns an empty RunStatus if the file doesn't exist (first run)
	LoadStatus(ctx context.Context, registryName string) (*RunStatus, error)

	// LoadAllStatus loads the run status of all registries
	LoadAllStatus(ctx context.Context) (map[string]*RunStatus, error)
}

// fileStatusPersistence implements StatusPersistence using local filesystem
type fileStatusPersistence struct {
	basePath string
}

// NewFileStatusPersistence creates a new file-based status persistence
// basePath is the base directory where per-registry status files will be stored
func NewFileStatusPersistence(basePath string) StatusPersistence {
	return &fileStatusPersistence{
		basePath: basePath,
	}
}

// SaveStatus saves the run status to a YAML file in a registry-specific directory.
// Several server instances may share the state directory, so writes hold an exclusive file lock.
func (f *fileStatusPersistence) SaveStatus(ctx context.Context, registryName string, status *RunStatus) error {
	registryDir := filepath.Join(f.basePath, registryName)
	if err := os.MkdirAll(registryDir, 0750); err != nil {
		return fmt.Errorf("failed to create status directory for registry '%s': %w", registryName, err)
	}

	data, err := yaml.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to marshal status data for registry '%s': %w", registryName, err)
	}

	lock := flock.New(filepath.Join(registryDir, lockFileName))
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil || !locked {
		return fmt.Errorf("failed to lock status file for registry '%s': %w", registryName, lockError(ctx, err))
	}
	defer func() {
		_ = lock.Unlock()
	}()

	filePath := filepath.Join(registryDir, StatusFileName)

	// Write to temporary file first for atomic operation
	tempPath := filePath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary status file for registry '%s': %w", registryName, err)
	}

	if err := os.Rename(tempPath, filePath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename status file for registry '%s': %w", registryName, err)
	}

	return nil
}

// LoadStatus loads the run status from a YAML file for a specific registry
// Returns an empty RunStatus if the file doesn't exist
func (f *fileStatusPersistence) LoadStatus(ctx context.Context, registryName string) (*RunStatus, error) {
	registryDir := filepath.Join(f.basePath, registryName)
	filePath := filepath.Join(registryDir, StatusFileName)

	if _, err := os.Stat(registryDir); os.IsNotExist(err) {
		return &RunStatus{}, nil
	}

	lock := flock.New(filepath.Join(registryDir, lockFileName))
	locked, err := lock.TryRLockContext(ctx, lockRetryDelay)
	if err != nil || !locked {
		return nil, fmt.Errorf("failed to lock status file for registry '%s': %w", registryName, lockError(ctx, err))
	}
	defer func() {
		_ = lock.Unlock()
	}()

	// #nosec G304 -- filePath is constructed from trusted internal sources (basePath + registry name)
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			// File doesn't exist - this is OK for first run
			return &RunStatus{}, nil
		}
		return nil, fmt.Errorf("failed to read status file for registry '%s': %w", registryName, err)
	}

	var status RunStatus
	if err := yaml.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("failed to unmarshal status data for registry '%s': %w", registryName, err)
	}

	return &status, nil
}

// LoadAllStatus loads the run status of every registry found under the base path
func (f *fileStatusPersistence) LoadAllStatus(ctx context.Context) (map[string]*RunStatus, error) {
	result := make(map[string]*RunStatus)

	entries, err := os.ReadDir(f.basePath)
	if err != nil {
		if os.IsNotExist(err) {
			return result, nil
		}
		return nil, fmt.Errorf("failed to read status directory: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		registryName := entry.Name()
		status, err := f.LoadStatus(ctx, registryName)
		if err != nil {
			// Unreadable status files are skipped so the others can still be reported
			continue
		}

		result[registryName] = status
	}

	return result, nil
}

func lockError(ctx context.Context, err error) error {
	if err != nil {
		return err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return fmt.Errorf("lock is held by another process")
}
