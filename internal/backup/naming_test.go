package backup

import (
	"sort"
	"testing"
	"time"
)

func TestArtifactName(t *testing.T) {
	at := time.Date(2026, 2, 15, 2, 30, 45, 0, time.UTC)

	tests := []struct {
		name      string
		imported  bool
		encrypted bool
		want      string
	}{
		{"plain", false, false, "baby-backup-2026-02-15_02-30-45.tar.gz"},
		{"imported", true, false, "baby-backup-2026-02-15_02-30-45-imported.tar.gz"},
		{"encrypted", false, true, "baby-backup-2026-02-15_02-30-45.tar.gz.age"},
		{"imported encrypted", true, true, "baby-backup-2026-02-15_02-30-45-imported.tar.gz.age"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ArtifactName(at, tt.imported, tt.encrypted)
			if got != tt.want {
				t.Errorf("ArtifactName() = %q, want %q", got, tt.want)
			}
			if !ValidArtifactName(got) {
				t.Errorf("generated name %q does not validate", got)
			}
		})
	}
}

func TestArtifactName_ConvertsToUTC(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	at := time.Date(2026, 2, 15, 3, 0, 0, 0, loc) // 02:00 UTC

	got := ArtifactName(at, false, false)
	want := "baby-backup-2026-02-15_02-00-00.tar.gz"
	if got != want {
		t.Errorf("ArtifactName() = %q, want %q", got, want)
	}
}

func TestValidArtifactName(t *testing.T) {
	invalid := []string{
		"",
		"backup.tar.gz",
		"baby-backup-2026-02-15.tar.gz",
		"baby-backup-2026-02-15_02-30-45.tar",
		"baby-backup-2026-02-15_02-30-45.tar.gz.gpg",
		"baby-backup-2026-02-15_02-30-45-imported-imported.tar.gz",
		"../baby-backup-2026-02-15_02-30-45.tar.gz",
		"baby-backup-2026-02-15_02-30-45.tar.gz/../../etc/passwd",
		"prefix-baby-backup-2026-02-15_02-30-45.tar.gz",
	}
	for _, name := range invalid {
		if ValidArtifactName(name) {
			t.Errorf("ValidArtifactName(%q) = true, want false", name)
		}
	}
}

func TestArtifactNames_LexicalOrderIsChronological(t *testing.T) {
	base := time.Date(2026, 2, 15, 2, 0, 0, 0, time.UTC)
	names := []string{}
	for i := 0; i < 5; i++ {
		names = append(names, ArtifactName(base.Add(time.Duration(i)*13*time.Hour), false, false))
	}

	if !sort.StringsAreSorted(names) {
		t.Errorf("names not in lexical order: %v", names)
	}
}

func TestIsEncryptedName_IsImportedName(t *testing.T) {
	if !IsEncryptedName("baby-backup-2026-02-15_02-30-45.tar.gz.age") {
		t.Error("IsEncryptedName() = false for .age name")
	}
	if IsEncryptedName("baby-backup-2026-02-15_02-30-45.tar.gz") {
		t.Error("IsEncryptedName() = true for plain name")
	}
	if !IsImportedName("baby-backup-2026-02-15_02-30-45-imported.tar.gz") {
		t.Error("IsImportedName() = false for imported name")
	}
	if IsImportedName("baby-backup-2026-02-15_02-30-45.tar.gz") {
		t.Error("IsImportedName() = true for regular name")
	}
}
