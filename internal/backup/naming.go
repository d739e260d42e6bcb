package backup

import (
	"regexp"
	"time"
)

// Artifact names embed a UTC timestamp formatted so that lexical order
// equals chronological order. Uploaded artifacts carry an "-imported"
// suffix, encrypted ones an ".age" extension.
const (
	namePrefix     = "baby-backup-"
	nameLayout     = "2006-01-02_15-04-05"
	importedSuffix = "-imported"
	plainExt       = ".tar.gz"
	encryptedExt   = ".tar.gz.age"
)

var namePattern = regexp.MustCompile(`^baby-backup-\d{4}-\d{2}-\d{2}_\d{2}-\d{2}-\d{2}(-imported)?\.tar\.gz(\.age)?$`)

// ArtifactName builds the file name for an artifact created at t.
func ArtifactName(t time.Time, imported, encrypted bool) string {
	name := namePrefix + t.UTC().Format(nameLayout)
	if imported {
		name += importedSuffix
	}
	if encrypted {
		return name + encryptedExt
	}
	return name + plainExt
}

// ValidArtifactName reports whether name matches the artifact pattern.
// Because the pattern admits no path separators, a valid name is also safe
// to join onto the storage path.
func ValidArtifactName(name string) bool {
	return namePattern.MatchString(name)
}

// IsEncryptedName reports whether the artifact name carries the age extension.
func IsEncryptedName(name string) bool {
	return ValidArtifactName(name) && len(name) > len(encryptedExt) &&
		name[len(name)-len(".age"):] == ".age"
}

// IsImportedName reports whether the artifact name carries the imported marker.
func IsImportedName(name string) bool {
	m := namePattern.FindStringSubmatch(name)
	return m != nil && m[1] == importedSuffix
}
