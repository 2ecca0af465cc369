// Package status provides load status tracking and persistence for
// repository sources.
package status

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

const (
	// StatusFileName is the name of the per-source status file
	StatusFileName = "status.json"

	lockFileName   = ".lock"
	lockRetryDelay = 100 * time.Millisecond
)

// Persistence defines the interface for source status persistence
type Persistence interface {
	// SaveStatus saves the load status for a specific source
	SaveStatus(ctx context.Context, sourceKey string, status *SourceStatus) error

	// LoadStatus loads the load status for a specific source.
	// Returns an empty SourceStatus if the file doesn't exist (first run)
	LoadStatus(ctx context.Context, sourceKey string) (*SourceStatus, error)

	// LoadAllStatus loads status for all known sources
	LoadAllStatus(ctx context.Context) (map[string]*SourceStatus, error)
}

// filePersistence implements Persistence using the local filesystem. A
// file lock on the base directory serializes writers across processes, so
// a CLI load and a running server cannot corrupt each other's state.
type filePersistence struct {
	basePath string
}

// NewFilePersistence creates a file-based status persistence.
// basePath is the directory holding one subdirectory per source.
func NewFilePersistence(basePath string) Persistence {
	return &filePersistence{
		basePath: basePath,
	}
}

// SaveStatus saves the status to a JSON file in a source-specific directory
func (f *filePersistence) SaveStatus(ctx context.Context, sourceKey string, status *SourceStatus) error {
	if err := os.MkdirAll(f.basePath, 0750); err != nil {
		return fmt.Errorf("failed to create status directory: %w", err)
	}

	unlock, err := f.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	sourceDir := filepath.Join(f.basePath, sourceKey)
	if err := os.MkdirAll(sourceDir, 0750); err != nil {
		return fmt.Errorf("failed to create status directory for source '%s': %w", sourceKey, err)
	}

	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal status data for source '%s': %w", sourceKey, err)
	}

	// Write to a temporary file, then rename, so readers never observe a
	// partially written file.
	filePath := filepath.Join(sourceDir, StatusFileName)
	tempPath := filePath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary status file for source '%s': %w", sourceKey, err)
	}

	if err := os.Rename(tempPath, filePath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename status file for source '%s': %w", sourceKey, err)
	}

	return nil
}

// LoadStatus loads the status from a JSON file for a specific source.
// Returns an empty SourceStatus if the file doesn't exist
func (f *filePersistence) LoadStatus(_ context.Context, sourceKey string) (*SourceStatus, error) {
	filePath := filepath.Join(f.basePath, sourceKey, StatusFileName)

	// #nosec G304 -- filePath is constructed from trusted internal sources (basePath + sanitized sourceKey)
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return &SourceStatus{}, nil
		}
		return nil, fmt.Errorf("failed to read status file for source '%s': %w", sourceKey, err)
	}

	var status SourceStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("failed to unmarshal status data for source '%s': %w", sourceKey, err)
	}

	return &status, nil
}

// LoadAllStatus loads status for all sources with a state directory
func (f *filePersistence) LoadAllStatus(ctx context.Context) (map[string]*SourceStatus, error) {
	result := make(map[string]*SourceStatus)

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

		sourceKey := entry.Name()
		st, err := f.LoadStatus(ctx, sourceKey)
		if err != nil {
			// Skip unreadable entries so one corrupt file does not hide
			// every other source's status.
			continue
		}

		result[sourceKey] = st
	}

	return result, nil
}

func (f *filePersistence) lock(ctx context.Context) (func(), error) {
	fl := flock.New(filepath.Join(f.basePath, lockFileName))

	locked, err := fl.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire status lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("status directory is locked by another process")
	}

	return func() { _ = fl.Unlock() }, nil
}
