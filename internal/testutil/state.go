package testutil

import (
	"context"
	"fmt"
	"io"
	"sync"

	"sproutbook/internal/model"
)

// MemoryStateStore is an in-memory implementation of the application state
// store, with the same read-all/replace-all surface as the SQLite store.
type MemoryStateStore struct {
	mu      sync.Mutex
	profile model.BabyProfile
	records []model.GrowthRecord
	media   []model.MediaFile

	// FailReplace makes all Replace* methods fail, for error-path tests.
	FailReplace bool
}

// NewMemoryStateStore creates an empty state store.
func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{}
}

func (s *MemoryStateStore) Profile() (*model.BabyProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.profile
	return &p, nil
}

func (s *MemoryStateStore) ReplaceProfile(p *model.BabyProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailReplace {
		return fmt.Errorf("stub replace failure")
	}
	s.profile = *p
	return nil
}

func (s *MemoryStateStore) GrowthRecords() ([]model.GrowthRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.GrowthRecord, len(s.records))
	copy(out, s.records)
	return out, nil
}

func (s *MemoryStateStore) ReplaceGrowthRecords(records []model.GrowthRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailReplace {
		return fmt.Errorf("stub replace failure")
	}
	s.records = make([]model.GrowthRecord, len(records))
	copy(s.records, records)
	return nil
}

func (s *MemoryStateStore) MediaFiles() ([]model.MediaFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.MediaFile, len(s.media))
	copy(out, s.media)
	return out, nil
}

func (s *MemoryStateStore) ReplaceMediaFiles(files []model.MediaFile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailReplace {
		return fmt.Errorf("stub replace failure")
	}
	s.media = make([]model.MediaFile, len(files))
	copy(s.media, files)
	return nil
}

// MemorySettings is an in-memory key/value settings store.
type MemorySettings struct {
	mu     sync.Mutex
	values map[string]string
}

func NewMemorySettings() *MemorySettings {
	return &MemorySettings{values: make(map[string]string)}
}

func (s *MemorySettings) Setting(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values[key], nil
}

func (s *MemorySettings) SetSetting(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *MemorySettings) SaveSettings(values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range values {
		s.values[k] = v
	}
	return nil
}

// MemoryLog is an in-memory backup log.
type MemoryLog struct {
	mu      sync.Mutex
	entries []model.BackupLogEntry
	nextID  int64
}

func NewMemoryLog() *MemoryLog {
	return &MemoryLog{nextID: 1}
}

func (l *MemoryLog) AppendBackupLog(entry *model.BackupLogEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry.ID = l.nextID
	l.nextID++
	l.entries = append(l.entries, *entry)
	return nil
}

func (l *MemoryLog) BackupLog(limit int) ([]model.BackupLogEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := []model.BackupLogEntry{}
	for i := len(l.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, l.entries[i])
	}
	return out, nil
}

// MemoryUploader records offsite uploads in memory.
type MemoryUploader struct {
	mu       sync.Mutex
	Uploads  map[string][]byte
	FailNext bool
}

func NewMemoryUploader() *MemoryUploader {
	return &MemoryUploader{Uploads: make(map[string][]byte)}
}

func (u *MemoryUploader) Upload(ctx context.Context, name string, r io.Reader, size int64) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.FailNext {
		u.FailNext = false
		return fmt.Errorf("stub upload failure")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	u.Uploads[name] = data
	return nil
}
