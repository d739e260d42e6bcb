package backup

import "errors"

var (
	// ErrStorageUnwritable indicates the backup storage path does not exist
	// or cannot be written to.
	ErrStorageUnwritable = errors.New("backup: storage path not writable")
	// ErrArtifactNotFound indicates the named artifact does not exist in
	// the storage path.
	ErrArtifactNotFound = errors.New("backup: artifact not found")
	// ErrInvalidArtifactName indicates a name that does not match the
	// backup artifact naming pattern.
	ErrInvalidArtifactName = errors.New("backup: invalid artifact name")
	// ErrInvalidSettings indicates backup settings that fail validation.
	ErrInvalidSettings = errors.New("backup: invalid settings")
	// ErrEncryptionNotConfigured indicates an encrypted artifact was given
	// to a service that has no encryption key configured.
	ErrEncryptionNotConfigured = errors.New("backup: encryption not configured")
)
