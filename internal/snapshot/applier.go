package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"sproutbook/internal/archive"
)

// ApplyResult carries the counts of what a restore wrote.
type ApplyResult struct {
	RecordCount int
	MediaCount  int
}

// Apply decompresses and unpacks a snapshot, validates it fully, then
// replaces the application state and writes the media files under
// mediaRoot. Validation happens before any mutation: a snapshot that fails
// to decompress, lacks a manifest, carries a malformed manifest, or names
// an unsafe media entry leaves state and media untouched.
//
// The replace itself is not transactional across the two stores: database
// state is replaced first, media files second. A crash between the two
// leaves the database consistent with the snapshot and media partially
// written; re-running the restore converges.
func Apply(data []byte, state StateStore, mediaRoot string) (*ApplyResult, error) {
	raw, err := archive.Decompress(data)
	if err != nil {
		return nil, err
	}
	entries, err := archive.Decode(raw)
	if err != nil {
		return nil, err
	}

	var doc *Document
	media := make([]archive.Entry, 0, len(entries))
	for _, e := range entries {
		if e.Name == ManifestName {
			var d Document
			if err := json.Unmarshal(e.Content, &d); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrMalformedManifest, err)
			}
			if d.Version == "" {
				return nil, fmt.Errorf("%w: no version", ErrMalformedManifest)
			}
			if d.BabyProfile == nil {
				return nil, fmt.Errorf("%w: no baby profile", ErrMalformedManifest)
			}
			// An empty record list is valid; an absent one is not.
			if d.GrowthRecords == nil {
				return nil, fmt.Errorf("%w: no growth records", ErrMalformedManifest)
			}
			doc = &d
			continue
		}
		if strings.HasPrefix(e.Name, mediaPrefix) {
			if err := validateEntryName(strings.TrimPrefix(e.Name, mediaPrefix)); err != nil {
				return nil, err
			}
			media = append(media, e)
		}
		// Entries outside media/ that are not the manifest are ignored.
	}
	if doc == nil {
		return nil, ErrMissingManifest
	}

	if err := state.ReplaceProfile(doc.BabyProfile); err != nil {
		return nil, fmt.Errorf("restoring profile: %w", err)
	}
	if err := state.ReplaceGrowthRecords(doc.GrowthRecords); err != nil {
		return nil, fmt.Errorf("restoring growth records: %w", err)
	}
	if err := state.ReplaceMediaFiles(doc.MediaMetadata); err != nil {
		return nil, fmt.Errorf("restoring media metadata: %w", err)
	}

	for _, e := range media {
		rel := strings.TrimPrefix(e.Name, mediaPrefix)
		dst := filepath.Join(mediaRoot, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
			return nil, fmt.Errorf("creating media directory: %w", err)
		}
		if err := os.WriteFile(dst, e.Content, 0644); err != nil {
			return nil, fmt.Errorf("writing media file %s: %w", rel, err)
		}
	}

	return &ApplyResult{
		RecordCount: len(doc.GrowthRecords),
		MediaCount:  len(media),
	}, nil
}

// validateEntryName rejects relative media paths that would escape the
// media root: absolute paths, or any path whose cleaned form starts with
// a ".." element.
func validateEntryName(rel string) error {
	if rel == "" || strings.HasPrefix(rel, "/") {
		return fmt.Errorf("%w: %q", ErrUnsafeEntryName, mediaPrefix+rel)
	}
	cleaned := path.Clean(rel)
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return fmt.Errorf("%w: %q", ErrUnsafeEntryName, mediaPrefix+rel)
	}
	return nil
}
