package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"sproutbook/internal/archive"
	"sproutbook/internal/model"
)

// BuildResult carries the finished snapshot plus the counts recorded in the
// backup log.
type BuildResult struct {
	Data        []byte // gzip-compressed tar container
	RecordCount int
	MediaCount  int // media files actually packed
}

// Build reads the full application state from the store and packs it with
// the media files referenced by the growth records. Referenced files that
// are missing from mediaRoot are skipped silently: media may have been
// deleted externally, and the snapshot must still be producible. The
// manifest's LinkedMediaCount counts the unique references; the returned
// MediaCount counts the files actually included.
func Build(state StateStore, mediaRoot string, now time.Time) (*BuildResult, error) {
	profile, err := state.Profile()
	if err != nil {
		return nil, fmt.Errorf("reading profile: %w", err)
	}
	records, err := state.GrowthRecords()
	if err != nil {
		return nil, fmt.Errorf("reading growth records: %w", err)
	}
	if records == nil {
		// The manifest must carry a record list even when empty.
		records = []model.GrowthRecord{}
	}
	media, err := state.MediaFiles()
	if err != nil {
		return nil, fmt.Errorf("reading media metadata: %w", err)
	}

	linked := linkedMediaPaths(records)

	entries := []archive.Entry{}
	included := 0
	for _, rel := range linked {
		content, err := os.ReadFile(filepath.Join(mediaRoot, filepath.FromSlash(rel)))
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading media file %s: %w", rel, err)
		}
		entries = append(entries, archive.Entry{
			Name:    mediaPrefix + rel,
			Content: content,
		})
		included++
	}

	doc := Document{
		ExportTime:       now.UTC(),
		Version:          DocumentVersion,
		BabyProfile:      profile,
		GrowthRecords:    records,
		MediaMetadata:    media,
		LinkedMediaCount: len(linked),
	}
	manifest, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding manifest: %w", err)
	}

	// Manifest first, so a reader can stop at the first entry.
	entries = append([]archive.Entry{{Name: ManifestName, Content: manifest}}, entries...)

	packed, err := archive.Encode(entries)
	if err != nil {
		return nil, fmt.Errorf("packing snapshot: %w", err)
	}
	compressed, err := archive.Compress(packed)
	if err != nil {
		return nil, fmt.Errorf("compressing snapshot: %w", err)
	}

	return &BuildResult{
		Data:        compressed,
		RecordCount: len(records),
		MediaCount:  included,
	}, nil
}

// linkedMediaPaths collects the unique media references from the records'
// comma-separated media path lists, in sorted order.
func linkedMediaPaths(records []model.GrowthRecord) []string {
	seen := map[string]bool{}
	for _, r := range records {
		for _, p := range strings.Split(r.MediaPaths, ",") {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			seen[filepath.ToSlash(p)] = true
		}
	}

	paths := make([]string, 0, len(seen))
	for p := range seen {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
