// Package auth implements the single-user credential store and the
// in-memory session gate for the web UI.
package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Settings store keys for the credentials.
const (
	keyUsername     = "auth.username"
	keyPasswordHash = "auth.password_hash"
)

// ErrInvalidCredentials indicates a failed login attempt.
var ErrInvalidCredentials = errors.New("auth: invalid credentials")

// Store is the key/value persistence surface for credentials.
type Store interface {
	Setting(key string) (string, error)
	SetSetting(key, value string) error
}

// HashPassword hashes a password with bcrypt at the default cost.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password must not be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword compares a password against a bcrypt hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// SetCredentials stores the username and a bcrypt hash of the password.
func SetCredentials(store Store, username, password string) error {
	if username == "" {
		return fmt.Errorf("username must not be empty")
	}
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	if err := store.SetSetting(keyUsername, username); err != nil {
		return fmt.Errorf("saving username: %w", err)
	}
	if err := store.SetSetting(keyPasswordHash, hash); err != nil {
		return fmt.Errorf("saving password hash: %w", err)
	}
	return nil
}

// Configured reports whether credentials have been set.
func Configured(store Store) (bool, error) {
	hash, err := store.Setting(keyPasswordHash)
	if err != nil {
		return false, err
	}
	return hash != "", nil
}

// Verify checks a username/password pair against the stored credentials.
func Verify(store Store, username, password string) error {
	wantUser, err := store.Setting(keyUsername)
	if err != nil {
		return fmt.Errorf("reading username: %w", err)
	}
	hash, err := store.Setting(keyPasswordHash)
	if err != nil {
		return fmt.Errorf("reading password hash: %w", err)
	}
	if wantUser == "" || hash == "" {
		return ErrInvalidCredentials
	}
	if username != wantUser || !CheckPassword(hash, password) {
		return ErrInvalidCredentials
	}
	return nil
}
