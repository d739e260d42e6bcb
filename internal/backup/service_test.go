package backup

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"sproutbook/internal/model"
	"sproutbook/internal/testutil"
)

type serviceFixture struct {
	svc      *Service
	state    *testutil.MemoryStateStore
	settings *testutil.MemorySettings
	log      *testutil.MemoryLog
	uploader *testutil.MemoryUploader
	clock    *testutil.StubClock

	mediaRoot  string
	backupRoot string
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	f := &serviceFixture{
		state:      testutil.NewMemoryStateStore(),
		settings:   testutil.NewMemorySettings(),
		log:        testutil.NewMemoryLog(),
		uploader:   testutil.NewMemoryUploader(),
		clock:      testutil.NewStubClock(time.Date(2026, 2, 15, 2, 0, 0, 0, time.UTC)),
		mediaRoot:  t.TempDir(),
		backupRoot: t.TempDir(),
	}

	if err := f.state.ReplaceProfile(&model.BabyProfile{
		Name:      "Mika",
		BirthDate: "2025-03-14",
	}); err != nil {
		t.Fatal(err)
	}
	if err := f.state.ReplaceGrowthRecords([]model.GrowthRecord{
		{ID: "r1", Date: "2026-01-01", HeightCM: 55, CreatedAt: f.clock.Now()},
	}); err != nil {
		t.Fatal(err)
	}

	svc, err := NewService(ServiceOptions{
		State:              f.state,
		Settings:           f.settings,
		Log:                f.log,
		MediaRoot:          f.mediaRoot,
		DefaultStoragePath: f.backupRoot,
		Uploader:           f.uploader,
		Clock:              f.clock,
		Logger:             NewNopLogger(),
	})
	if err != nil {
		t.Fatal(err)
	}
	f.svc = svc
	t.Cleanup(svc.Stop)
	return f
}

func TestService_RunBackup(t *testing.T) {
	f := newServiceFixture(t)

	entry, err := f.svc.RunBackup(context.Background(), "manual")
	if err != nil {
		t.Fatalf("RunBackup() error = %v", err)
	}
	if entry.Status != model.StatusSuccess {
		t.Errorf("Status = %q, want success", entry.Status)
	}
	if entry.Filename != "baby-backup-2026-02-15_02-00-00.tar.gz" {
		t.Errorf("Filename = %q", entry.Filename)
	}
	if entry.RecordCount != 1 {
		t.Errorf("RecordCount = %d, want 1", entry.RecordCount)
	}
	if entry.SizeBytes <= 0 {
		t.Errorf("SizeBytes = %d, want > 0", entry.SizeBytes)
	}

	if _, err := os.Stat(filepath.Join(f.backupRoot, entry.Filename)); err != nil {
		t.Errorf("artifact not written: %v", err)
	}
	if _, ok := f.uploader.Uploads[entry.Filename]; !ok {
		t.Error("artifact not replicated offsite")
	}

	entries, _ := f.log.BackupLog(10)
	if len(entries) != 1 || entries[0].Status != model.StatusSuccess {
		t.Errorf("backup log = %+v, want one success entry", entries)
	}
}

func TestService_RunBackup_UploadFailureDoesNotFailBackup(t *testing.T) {
	f := newServiceFixture(t)
	f.uploader.FailNext = true

	entry, err := f.svc.RunBackup(context.Background(), "manual")
	if err != nil {
		t.Fatalf("RunBackup() error = %v", err)
	}
	if entry.Status != model.StatusSuccess {
		t.Errorf("Status = %q, want success despite upload failure", entry.Status)
	}
}

func TestService_RunBackup_FailureIsLogged(t *testing.T) {
	f := newServiceFixture(t)

	// Point storage at a file so EnsureWritable fails.
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	settings := DefaultSettings(blocker)
	if err := SaveSettings(f.settings, settings); err != nil {
		t.Fatal(err)
	}

	_, err := f.svc.RunBackup(context.Background(), "scheduled")
	if !errors.Is(err, ErrStorageUnwritable) {
		t.Fatalf("RunBackup() error = %v, want ErrStorageUnwritable", err)
	}

	entries, _ := f.log.BackupLog(10)
	if len(entries) != 1 {
		t.Fatalf("backup log entries = %d, want 1", len(entries))
	}
	if !strings.HasPrefix(entries[0].Status, model.StatusError) {
		t.Errorf("Status = %q, want error prefix", entries[0].Status)
	}
}

func TestService_RunBackup_PrunesOldArtifacts(t *testing.T) {
	f := newServiceFixture(t)

	settings := DefaultSettings(f.backupRoot)
	settings.MaxRetained = 3
	if err := SaveSettings(f.settings, settings); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 5; i++ {
		if _, err := f.svc.RunBackup(context.Background(), "manual"); err != nil {
			t.Fatalf("RunBackup() #%d error = %v", i, err)
		}
		f.clock.Advance(time.Hour)
	}

	artifacts, err := f.svc.ListArtifacts()
	if err != nil {
		t.Fatalf("ListArtifacts() error = %v", err)
	}
	if len(artifacts) != 3 {
		t.Errorf("got %d artifacts, want 3 after pruning", len(artifacts))
	}
}

func TestService_BackupRestore_RoundTrip(t *testing.T) {
	f := newServiceFixture(t)

	entry, err := f.svc.RunBackup(context.Background(), "manual")
	if err != nil {
		t.Fatalf("RunBackup() error = %v", err)
	}

	// Wipe the state, then restore.
	if err := f.state.ReplaceProfile(&model.BabyProfile{}); err != nil {
		t.Fatal(err)
	}
	if err := f.state.ReplaceGrowthRecords(nil); err != nil {
		t.Fatal(err)
	}

	result, err := f.svc.Restore(entry.Filename)
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if result.RecordCount != 1 {
		t.Errorf("RecordCount = %d, want 1", result.RecordCount)
	}

	p, _ := f.state.Profile()
	if p.Name != "Mika" {
		t.Errorf("restored profile name = %q, want Mika", p.Name)
	}
}

func TestService_Restore_InvalidName(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.svc.Restore("../../etc/passwd")
	if !errors.Is(err, ErrInvalidArtifactName) {
		t.Errorf("Restore() error = %v, want ErrInvalidArtifactName", err)
	}
}

func TestService_Restore_NotFound(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.svc.Restore("baby-backup-2026-01-01_00-00-00.tar.gz")
	if !errors.Is(err, ErrArtifactNotFound) {
		t.Errorf("Restore() error = %v, want ErrArtifactNotFound", err)
	}
}

func TestService_Export_Import(t *testing.T) {
	f := newServiceFixture(t)

	data, name, err := f.svc.Export(f.clock.Now())
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if !ValidArtifactName(name) {
		t.Errorf("export name %q does not validate", name)
	}

	// Export does not touch the storage path or the log.
	artifacts, _ := f.svc.ListArtifacts()
	if len(artifacts) != 0 {
		t.Errorf("Export wrote %d artifacts to storage, want 0", len(artifacts))
	}

	if err := f.state.ReplaceProfile(&model.BabyProfile{}); err != nil {
		t.Fatal(err)
	}
	result, err := f.svc.Import(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if result.RecordCount != 1 {
		t.Errorf("RecordCount = %d, want 1", result.RecordCount)
	}
	p, _ := f.state.Profile()
	if p.Name != "Mika" {
		t.Errorf("imported profile name = %q, want Mika", p.Name)
	}
}

func TestService_SaveUploaded(t *testing.T) {
	f := newServiceFixture(t)

	data, _, err := f.svc.Export(f.clock.Now())
	if err != nil {
		t.Fatal(err)
	}

	name, err := f.svc.SaveUploaded(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("SaveUploaded() error = %v", err)
	}
	if !IsImportedName(name) {
		t.Errorf("uploaded artifact name %q lacks imported marker", name)
	}
	if _, err := os.Stat(filepath.Join(f.backupRoot, name)); err != nil {
		t.Errorf("uploaded artifact not saved: %v", err)
	}
}

func TestService_SaveUploaded_RejectsNonGzip(t *testing.T) {
	f := newServiceFixture(t)

	if _, err := f.svc.SaveUploaded(strings.NewReader("not a backup")); err == nil {
		t.Error("SaveUploaded() accepted a non-gzip upload")
	}

	artifacts, _ := f.svc.ListArtifacts()
	if len(artifacts) != 0 {
		t.Errorf("rejected upload left %d artifacts in storage", len(artifacts))
	}
}

func TestService_SaveUploaded_RejectsEncryptedWithoutKey(t *testing.T) {
	f := newServiceFixture(t)

	data := "age-encryption.org/v1\n-> X25519 abc\n"
	_, err := f.svc.SaveUploaded(strings.NewReader(data))
	if !errors.Is(err, ErrEncryptionNotConfigured) {
		t.Fatalf("SaveUploaded() error = %v, want ErrEncryptionNotConfigured", err)
	}

	artifacts, _ := f.svc.ListArtifacts()
	if len(artifacts) != 0 {
		t.Errorf("rejected encrypted upload left %d artifacts in storage", len(artifacts))
	}
}

func TestService_Import_RejectsEncryptedWithoutKey(t *testing.T) {
	f := newServiceFixture(t)

	data := "age-encryption.org/v1\n-> X25519 abc\n"
	if _, err := f.svc.Import(strings.NewReader(data)); !errors.Is(err, ErrEncryptionNotConfigured) {
		t.Errorf("Import() error = %v, want ErrEncryptionNotConfigured", err)
	}
}

func TestService_DeleteArtifact(t *testing.T) {
	f := newServiceFixture(t)

	entry, err := f.svc.RunBackup(context.Background(), "manual")
	if err != nil {
		t.Fatal(err)
	}

	if err := f.svc.DeleteArtifact(entry.Filename); err != nil {
		t.Fatalf("DeleteArtifact() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(f.backupRoot, entry.Filename)); !os.IsNotExist(err) {
		t.Error("artifact still on disk after delete")
	}

	entries, _ := f.log.BackupLog(10)
	if len(entries) != 2 {
		t.Fatalf("backup log entries = %d, want 2", len(entries))
	}
	if entries[0].Status != model.StatusDeleted {
		t.Errorf("latest log status = %q, want deleted", entries[0].Status)
	}
}

func TestService_UpdateSettings(t *testing.T) {
	f := newServiceFixture(t)

	settings := DefaultSettings(f.backupRoot)
	settings.Mode = ModeInterval
	settings.IntervalHours = 6
	if err := f.svc.UpdateSettings(settings); err != nil {
		t.Fatalf("UpdateSettings() error = %v", err)
	}

	got, err := f.svc.Settings()
	if err != nil {
		t.Fatal(err)
	}
	if got.Mode != ModeInterval || got.IntervalHours != 6 {
		t.Errorf("Settings() = %+v, want interval mode every 6h", got)
	}

	next, ok := f.svc.NextRun()
	if !ok {
		t.Fatal("scheduler not armed after UpdateSettings")
	}
	want := f.clock.Now().Add(6 * time.Hour)
	if !next.Equal(want) {
		t.Errorf("NextRun() = %v, want %v", next, want)
	}
}

func TestService_UpdateSettings_Invalid(t *testing.T) {
	f := newServiceFixture(t)

	settings := DefaultSettings(f.backupRoot)
	settings.ScheduleTime = "25:99"
	if err := f.svc.UpdateSettings(settings); !errors.Is(err, ErrInvalidSettings) {
		t.Errorf("UpdateSettings() error = %v, want ErrInvalidSettings", err)
	}

	settings = DefaultSettings(f.backupRoot)
	settings.MaxRetained = 0
	if err := f.svc.UpdateSettings(settings); !errors.Is(err, ErrInvalidSettings) {
		t.Errorf("UpdateSettings() error = %v, want ErrInvalidSettings", err)
	}
}

func TestService_UpdateSettings_MissingStoragePath(t *testing.T) {
	f := newServiceFixture(t)

	missing := filepath.Join(t.TempDir(), "typo", "backups")
	settings := DefaultSettings(missing)
	if err := f.svc.UpdateSettings(settings); !errors.Is(err, ErrStorageUnwritable) {
		t.Fatalf("UpdateSettings() error = %v, want ErrStorageUnwritable", err)
	}

	// The mistyped path was neither created nor persisted.
	if _, err := os.Stat(missing); !os.IsNotExist(err) {
		t.Error("UpdateSettings() created the missing storage path")
	}
	got, err := f.svc.Settings()
	if err != nil {
		t.Fatal(err)
	}
	if got.StoragePath != f.backupRoot {
		t.Errorf("StoragePath = %q, want default %q", got.StoragePath, f.backupRoot)
	}
}

func TestService_Settings_Defaults(t *testing.T) {
	f := newServiceFixture(t)

	got, err := f.svc.Settings()
	if err != nil {
		t.Fatal(err)
	}
	want := Settings{
		Enabled:       true,
		Mode:          ModeSchedule,
		IntervalHours: 24,
		ScheduleTime:  "02:00",
		ScheduleDay:   DayDaily,
		StoragePath:   f.backupRoot,
		MaxRetained:   10,
	}
	if got != want {
		t.Errorf("Settings() = %+v, want %+v", got, want)
	}
}
