package backup

import (
	"fmt"
	"os"
	"path/filepath"
)

// Prune deletes the oldest artifacts in dir until at most max remain.
// Files that do not match the artifact naming pattern are never touched.
// It returns the names of the deleted artifacts.
func Prune(dir string, max int) ([]string, error) {
	if max < 1 {
		return nil, fmt.Errorf("%w: retention limit must be at least 1", ErrInvalidSettings)
	}

	artifacts, err := ListArtifacts(dir)
	if err != nil {
		return nil, err
	}
	if len(artifacts) <= max {
		return nil, nil
	}

	// ListArtifacts returns newest first; everything past max goes.
	deleted := []string{}
	for _, a := range artifacts[max:] {
		if err := os.Remove(filepath.Join(dir, a.Name)); err != nil {
			return deleted, fmt.Errorf("pruning %s: %w", a.Name, err)
		}
		deleted = append(deleted, a.Name)
	}
	return deleted, nil
}
