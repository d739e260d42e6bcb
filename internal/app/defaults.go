package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - SPROUTBOOK_CONFIG_PATH: config file location (default: ~/.config/sproutbook.toml)
//   - SPROUTBOOK_HOME: base directory for data (default: ~/.local/share/sproutbook)
func GetDefaults() (map[string]string, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	baseDir, err := getBaseDir()
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
	}, nil
}

// getConfigPath returns the config file path, checking SPROUTBOOK_CONFIG_PATH
// env var first, then falling back to the default ~/.config/sproutbook.toml.
func getConfigPath() (string, error) {
	if path := os.Getenv("SPROUTBOOK_CONFIG_PATH"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "sproutbook.toml"), nil
}

// getBaseDir returns the base data directory, checking SPROUTBOOK_HOME env
// var first, then falling back to the XDG default ~/.local/share/sproutbook.
func getBaseDir() (string, error) {
	if path := os.Getenv("SPROUTBOOK_HOME"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "sproutbook"), nil
}
