package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Artifact describes one backup file in the storage path.
type Artifact struct {
	Name      string    `json:"name"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
	Encrypted bool      `json:"encrypted"`
	Imported  bool      `json:"imported"`
}

// ListArtifacts returns the backup artifacts in dir, newest first. Files
// that do not match the artifact naming pattern are ignored.
func ListArtifacts(dir string) ([]Artifact, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return []Artifact{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading storage path: %w", err)
	}

	artifacts := []Artifact{}
	for _, e := range entries {
		if e.IsDir() || !ValidArtifactName(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		artifacts = append(artifacts, Artifact{
			Name:      e.Name(),
			SizeBytes: info.Size(),
			CreatedAt: info.ModTime(),
			Encrypted: IsEncryptedName(e.Name()),
			Imported:  IsImportedName(e.Name()),
		})
	}

	// Lexical order on the names is chronological; newest first.
	sort.Slice(artifacts, func(i, j int) bool {
		return artifacts[i].Name > artifacts[j].Name
	})
	return artifacts, nil
}

// EnsureWritable verifies that dir exists (creating it if needed) and that
// a file can actually be created in it.
func EnsureWritable(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnwritable, err)
	}
	probe, err := os.CreateTemp(dir, ".probe-*")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnwritable, err)
	}
	name := probe.Name()
	probe.Close()
	if err := os.Remove(name); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnwritable, err)
	}
	return nil
}

// CheckWritable verifies that dir already exists, is a directory, and that
// a file can actually be created in it. Unlike EnsureWritable it never
// creates the directory: a configured path that does not exist is rejected.
func CheckWritable(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnwritable, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrStorageUnwritable, dir)
	}
	probe, err := os.CreateTemp(dir, ".probe-*")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnwritable, err)
	}
	name := probe.Name()
	probe.Close()
	if err := os.Remove(name); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnwritable, err)
	}
	return nil
}

// writeArtifact writes data to dir/name atomically (temp file plus rename).
func writeArtifact(dir, name string, data []byte) error {
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing artifact: %w", err)
	}
	if err := os.Rename(tmpName, filepath.Join(dir, name)); err != nil {
		return fmt.Errorf("renaming artifact: %w", err)
	}
	return nil
}
