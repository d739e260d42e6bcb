package model

import "time"

// BabyProfile holds the single profile row describing the child.
// There is exactly one profile per installation.
type BabyProfile struct {
	Name          string    `json:"name"`
	BirthDate     string    `json:"birth_date"` // YYYY-MM-DD
	Sex           string    `json:"sex"`
	BirthHeightCM float64   `json:"birth_height_cm"`
	BirthWeightKG float64   `json:"birth_weight_kg"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// GrowthRecord is a single measurement entry.
// MediaPaths associates the record with uploaded media: a comma-separated
// list of paths relative to the media root.
type GrowthRecord struct {
	ID         string    `json:"id"` // UUID
	Date       string    `json:"date"` // YYYY-MM-DD
	HeightCM   float64   `json:"height_cm"`
	WeightKG   float64   `json:"weight_kg"`
	HeadCM     float64   `json:"head_cm"`
	Note       string    `json:"note"`
	MediaPaths string    `json:"media_paths"`
	CreatedAt  time.Time `json:"created_at"`
}

// MediaFile is the metadata row for an uploaded photo or video.
// Path is relative to the media root; the bytes live on the filesystem.
type MediaFile struct {
	ID         string    `json:"id"` // UUID
	Path       string    `json:"path"`
	Kind       string    `json:"kind"` // "photo" or "video"
	UploadedAt time.Time `json:"uploaded_at"`
}

// Backup log statuses. Error outcomes use StatusError as a prefix followed
// by the failure message, e.g. "error: building snapshot: disk full".
const (
	StatusSuccess = "success"
	StatusError   = "error: "
	StatusDeleted = "deleted"
)

// BackupLogEntry is one row of the append-only backup log. An entry is
// written for every backup attempt and for every manual artifact deletion.
type BackupLogEntry struct {
	ID          int64     `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Filename    string    `json:"filename"`
	SizeBytes   int64     `json:"size_bytes"`
	RecordCount int       `json:"record_count"`
	MediaCount  int       `json:"media_count"`
	Status      string    `json:"status"`
}
