// Package snapshot builds and applies full-state snapshots of the
// application: a JSON manifest of the database state plus the media files
// referenced by it, packed into a tar container.
package snapshot

import (
	"errors"
	"time"

	"sproutbook/internal/model"
)

// ManifestName is the name of the JSON manifest entry inside a snapshot.
const ManifestName = "data.json"

// DocumentVersion identifies the manifest format. Bump only on
// incompatible changes.
const DocumentVersion = "1.0"

// mediaPrefix prefixes every media entry name inside the container.
const mediaPrefix = "media/"

var (
	// ErrMissingManifest indicates the container has no data.json entry.
	ErrMissingManifest = errors.New("snapshot: missing manifest")
	// ErrMalformedManifest indicates data.json exists but cannot be decoded.
	ErrMalformedManifest = errors.New("snapshot: malformed manifest")
	// ErrUnsafeEntryName indicates a media entry name that would escape the
	// media root when written (absolute, or containing a ".." element).
	ErrUnsafeEntryName = errors.New("snapshot: unsafe entry name")
)

// Document is the JSON manifest written as the data.json entry.
type Document struct {
	ExportTime       time.Time            `json:"export_time"`
	Version          string               `json:"version"`
	BabyProfile      *model.BabyProfile   `json:"baby_profile"`
	GrowthRecords    []model.GrowthRecord `json:"growth_records"`
	MediaMetadata    []model.MediaFile    `json:"media_metadata,omitempty"`
	LinkedMediaCount int                  `json:"linked_media_count"`
}

// StateStore is the database surface the snapshot subsystem needs: read-all
// and replace-all access to the three state collections.
type StateStore interface {
	Profile() (*model.BabyProfile, error)
	ReplaceProfile(*model.BabyProfile) error
	GrowthRecords() ([]model.GrowthRecord, error)
	ReplaceGrowthRecords([]model.GrowthRecord) error
	MediaFiles() ([]model.MediaFile, error)
	ReplaceMediaFiles([]model.MediaFile) error
}
