package backup

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"sproutbook/internal/archive"
	"sproutbook/internal/model"
	"sproutbook/internal/snapshot"
)

// LogStore is the persistence surface for the backup log.
type LogStore interface {
	AppendBackupLog(entry *model.BackupLogEntry) error
	BackupLog(limit int) ([]model.BackupLogEntry, error)
}

// Encryptor encrypts and decrypts artifact streams. A nil Encryptor on the
// service means artifacts are stored as plain tar.gz files.
type Encryptor interface {
	Encrypt(dst io.Writer, src io.Reader) error
	Decrypt(dst io.Writer, src io.Reader) error
}

// Uploader replicates finished artifacts offsite. A nil Uploader means no
// replication. Upload failures never fail a backup; retention applies to
// local storage only.
type Uploader interface {
	Upload(ctx context.Context, name string, r io.Reader, size int64) error
}

// Service orchestrates backup creation, restore, retention, and the backup
// log. A single mutex serializes every operation that writes state, media,
// or the storage path, so a scheduled backup and a manual restore can never
// interleave.
type Service struct {
	state     snapshot.StateStore
	settings  SettingsStore
	log       LogStore
	mediaRoot string
	encryptor Encryptor
	uploader  Uploader
	clock     Clock
	logger    Logger
	scheduler *Scheduler

	// defaultStoragePath seeds Settings.StoragePath before any are saved.
	defaultStoragePath string

	mu sync.Mutex
}

// ServiceOptions collects the collaborators for NewService. State,
// Settings, Log, MediaRoot, and DefaultStoragePath are required; the rest
// default to real or no-op implementations.
type ServiceOptions struct {
	State              snapshot.StateStore
	Settings           SettingsStore
	Log                LogStore
	MediaRoot          string
	DefaultStoragePath string
	Encryptor          Encryptor
	Uploader           Uploader
	Clock              Clock
	Logger             Logger
}

// NewService creates the backup service. The scheduler starts stopped;
// call Start to arm it from persisted settings.
func NewService(opts ServiceOptions) (*Service, error) {
	if opts.State == nil || opts.Settings == nil || opts.Log == nil {
		return nil, fmt.Errorf("state, settings, and log stores are required")
	}
	if opts.MediaRoot == "" || opts.DefaultStoragePath == "" {
		return nil, fmt.Errorf("media root and default storage path are required")
	}
	if opts.Clock == nil {
		opts.Clock = RealClock{}
	}
	if opts.Logger == nil {
		opts.Logger = NewNopLogger()
	}

	s := &Service{
		state:              opts.State,
		settings:           opts.Settings,
		log:                opts.Log,
		mediaRoot:          opts.MediaRoot,
		encryptor:          opts.Encryptor,
		uploader:           opts.Uploader,
		clock:              opts.Clock,
		logger:             opts.Logger,
		defaultStoragePath: opts.DefaultStoragePath,
	}
	s.scheduler = NewScheduler(func(trigger string) {
		if _, err := s.RunBackup(context.Background(), trigger); err != nil {
			s.logger.Error("scheduled backup failed", "error", err)
		}
	}, opts.Clock, opts.Logger)
	return s, nil
}

// Start loads the persisted settings and arms the scheduler.
func (s *Service) Start() error {
	settings, err := s.Settings()
	if err != nil {
		return fmt.Errorf("loading backup settings: %w", err)
	}
	s.scheduler.Apply(settings)
	return nil
}

// Stop cancels any scheduled backup.
func (s *Service) Stop() {
	s.scheduler.Stop()
}

// NextRun reports the next scheduled backup time, if one is armed.
func (s *Service) NextRun() (time.Time, bool) {
	return s.scheduler.NextRun()
}

// Settings returns the current backup settings.
func (s *Service) Settings() (Settings, error) {
	return LoadSettings(s.settings, s.defaultStoragePath)
}

// UpdateSettings validates, persists, and applies new backup settings.
// The storage path must already exist and is probed for writability before
// anything is saved; a mistyped path is rejected rather than created.
func (s *Service) UpdateSettings(settings Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := settings.Validate(); err != nil {
		return err
	}
	if err := CheckWritable(settings.StoragePath); err != nil {
		return err
	}
	if err := SaveSettings(s.settings, settings); err != nil {
		return err
	}
	s.scheduler.Apply(settings)
	s.logger.Info("backup settings updated",
		"enabled", settings.Enabled,
		"mode", settings.Mode,
		"storage_path", settings.StoragePath,
		"max_retained", settings.MaxRetained)
	return nil
}

// RunBackup builds a snapshot of the current state, writes it to the
// storage path, replicates it offsite when configured, and prunes old
// artifacts. Every attempt is recorded in the backup log, success or not.
// trigger is "manual" or "scheduled" and only affects logging.
func (s *Service) RunBackup(ctx context.Context, trigger string) (*model.BackupLogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings, err := s.Settings()
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	entry := &model.BackupLogEntry{Timestamp: now}

	artifact, err := s.runBackupLocked(ctx, settings, now, entry)
	if err != nil {
		entry.Status = model.StatusError + err.Error()
		if logErr := s.log.AppendBackupLog(entry); logErr != nil {
			s.logger.Error("appending backup log failed", "error", logErr)
		}
		s.logger.Error("backup failed", "trigger", trigger, "error", err)
		return entry, err
	}

	entry.Status = model.StatusSuccess
	if err := s.log.AppendBackupLog(entry); err != nil {
		s.logger.Error("appending backup log failed", "error", err)
	}
	s.logger.Info("backup complete",
		"trigger", trigger,
		"artifact", artifact,
		"size_bytes", entry.SizeBytes,
		"records", entry.RecordCount,
		"media", entry.MediaCount)
	return entry, nil
}

func (s *Service) runBackupLocked(ctx context.Context, settings Settings, now time.Time, entry *model.BackupLogEntry) (string, error) {
	if err := EnsureWritable(settings.StoragePath); err != nil {
		return "", err
	}

	result, err := snapshot.Build(s.state, s.mediaRoot, now)
	if err != nil {
		return "", fmt.Errorf("building snapshot: %w", err)
	}
	entry.RecordCount = result.RecordCount
	entry.MediaCount = result.MediaCount

	data := result.Data
	encrypted := s.encryptor != nil
	if encrypted {
		var buf bytes.Buffer
		if err := s.encryptor.Encrypt(&buf, bytes.NewReader(data)); err != nil {
			return "", fmt.Errorf("encrypting snapshot: %w", err)
		}
		data = buf.Bytes()
	}

	name := ArtifactName(now, false, encrypted)
	if err := writeArtifact(settings.StoragePath, name, data); err != nil {
		return "", err
	}
	entry.Filename = name
	entry.SizeBytes = int64(len(data))

	if s.uploader != nil {
		if err := s.uploader.Upload(ctx, name, bytes.NewReader(data), int64(len(data))); err != nil {
			s.logger.Warn("offsite upload failed", "artifact", name, "error", err)
		}
	}

	if deleted, err := Prune(settings.StoragePath, settings.MaxRetained); err != nil {
		s.logger.Warn("retention prune failed", "error", err)
	} else if len(deleted) > 0 {
		s.logger.Info("retention pruned artifacts", "count", len(deleted))
	}

	return name, nil
}

// Restore replaces the entire application state from the named artifact.
func (s *Service) Restore(name string) (*snapshot.ApplyResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := s.artifactPathLocked(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading artifact: %w", err)
	}
	return s.applyLocked(name, data)
}

// Import restores state from an uploaded artifact stream without saving it
// to the storage path first.
func (s *Service) Import(r io.Reader) (*snapshot.ApplyResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading upload: %w", err)
	}
	return s.applyLocked("", data)
}

func (s *Service) applyLocked(name string, data []byte) (*snapshot.ApplyResult, error) {
	needsDecrypt := IsEncryptedName(name) || (name == "" && looksEncrypted(data))
	if needsDecrypt && s.encryptor == nil {
		return nil, fmt.Errorf("restoring encrypted artifact: %w", ErrEncryptionNotConfigured)
	}
	if s.encryptor != nil && needsDecrypt {
		var buf bytes.Buffer
		if err := s.encryptor.Decrypt(&buf, bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("decrypting artifact: %w", err)
		}
		data = buf.Bytes()
	}

	result, err := snapshot.Apply(data, s.state, s.mediaRoot)
	if err != nil {
		return nil, err
	}
	s.logger.Info("restore complete",
		"artifact", name,
		"records", result.RecordCount,
		"media", result.MediaCount)
	return result, nil
}

// looksEncrypted detects the age format header on a raw upload, where no
// file name is available to carry the marker.
func looksEncrypted(data []byte) bool {
	return bytes.HasPrefix(data, []byte("age-encryption.org/"))
}

// SaveUploaded stores an uploaded artifact into the storage path under an
// import-marked name, after verifying it is a gzip stream. It does not
// restore from it.
func (s *Service) SaveUploaded(r io.Reader) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings, err := s.Settings()
	if err != nil {
		return "", err
	}
	if err := EnsureWritable(settings.StoragePath); err != nil {
		return "", err
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("reading upload: %w", err)
	}

	encrypted := looksEncrypted(data)
	if encrypted && s.encryptor == nil {
		return "", fmt.Errorf("uploaded artifact is encrypted: %w", ErrEncryptionNotConfigured)
	}
	if !encrypted {
		if _, err := archive.Decompress(data); err != nil {
			return "", err
		}
	}

	name := ArtifactName(s.clock.Now().UTC(), true, encrypted)
	if err := writeArtifact(settings.StoragePath, name, data); err != nil {
		return "", err
	}
	s.logger.Info("artifact imported", "artifact", name, "size_bytes", len(data))
	return name, nil
}

// Export builds a snapshot of the current state and returns it directly,
// without writing to the storage path or the backup log. Exports are
// always plain tar.gz, for portability.
func (s *Service) Export(now time.Time) ([]byte, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := snapshot.Build(s.state, s.mediaRoot, now.UTC())
	if err != nil {
		return nil, "", fmt.Errorf("building snapshot: %w", err)
	}
	return result.Data, ArtifactName(now.UTC(), false, false), nil
}

// ListArtifacts lists the artifacts in the configured storage path,
// newest first.
func (s *Service) ListArtifacts() ([]Artifact, error) {
	settings, err := s.Settings()
	if err != nil {
		return nil, err
	}
	return ListArtifacts(settings.StoragePath)
}

// ArtifactPath validates name and returns the full path of the artifact
// for download.
func (s *Service) ArtifactPath(name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.artifactPathLocked(name)
}

func (s *Service) artifactPathLocked(name string) (string, error) {
	if !ValidArtifactName(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidArtifactName, name)
	}
	settings, err := s.Settings()
	if err != nil {
		return "", err
	}
	path := filepath.Join(settings.StoragePath, name)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return "", fmt.Errorf("%w: %q", ErrArtifactNotFound, name)
	} else if err != nil {
		return "", fmt.Errorf("checking artifact: %w", err)
	}
	return path, nil
}

// DeleteArtifact removes the named artifact and records the deletion in
// the backup log.
func (s *Service) DeleteArtifact(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := s.artifactPathLocked(name)
	if err != nil {
		return err
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("checking artifact: %w", err)
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("deleting artifact: %w", err)
	}

	entry := &model.BackupLogEntry{
		Timestamp: s.clock.Now().UTC(),
		Filename:  name,
		SizeBytes: info.Size(),
		Status:    model.StatusDeleted,
	}
	if err := s.log.AppendBackupLog(entry); err != nil {
		s.logger.Error("appending backup log failed", "error", err)
	}
	s.logger.Info("artifact deleted", "artifact", name)
	return nil
}

// Log returns the most recent backup log entries, newest first.
func (s *Service) Log(limit int) ([]model.BackupLogEntry, error) {
	if limit < 1 {
		limit = 50
	}
	return s.log.BackupLog(limit)
}
