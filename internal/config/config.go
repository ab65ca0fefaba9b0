// Package config owns the application configuration file. The schema is
// consumed by the engine components but loading and saving mechanics live
// here, away from the file-state code.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds persisted settings. All fields are pointers so we can
// distinguish "not set" from zero values when applying flag defaults.
type Config struct {
	// Installation selects which discovered installation is authoritative:
	// "steam", "epic" or "custom".
	Installation *string `toml:"installation,omitempty"`
	// InstallRoot and SaveRoot override or supply paths for a custom
	// installation. Either may be set independently of the other.
	InstallRoot *string `toml:"install-root,omitempty"`
	SaveRoot    *string `toml:"save-root,omitempty"`
	// BackupRoot is the directory owning AvailableMods/ and Backups/.
	BackupRoot *string `toml:"backup-root,omitempty"`
	// EnableDeletion gates whether delete commands are exposed. The engine's
	// delete operations are unconditional; this is caller policy.
	EnableDeletion *bool `toml:"enable-deletion,omitempty"`
	// AutoBackupBeforeRestore backs up the live save before a restore
	// overwrites it. Off by default: restoring discards current progress.
	AutoBackupBeforeRestore *bool   `toml:"auto-backup-before-restore,omitempty"`
	Verbose                 *bool   `toml:"verbose,omitempty"`
	LogFile                 *string `toml:"log-file,omitempty"`
}

// Dir returns the configuration directory, using XDG_CONFIG_HOME with a
// fallback to ~/.config.
func Dir() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, _ := os.UserHomeDir()
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "moria-manager")
}

// File returns the path of the configuration file inside dir.
func File(dir string) string {
	return filepath.Join(dir, "config.toml")
}

// Load reads the configuration from dir. A missing file is not an error and
// yields an empty configuration.
func Load(dir string) (*Config, error) {
	var c Config
	if _, err := toml.DecodeFile(File(dir), &c); err != nil {
		if os.IsNotExist(err) {
			return &c, nil
		}
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	return &c, nil
}

// Save writes the configuration to dir, creating it if needed.
func Save(dir string, c *Config) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	f, err := os.Create(File(dir))
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf("encoding configuration: %w", err)
	}
	return nil
}

// DefaultBackupRoot is where backups land when no backup-root is configured:
// <home>/GameBackups, matching the layout users already have.
func DefaultBackupRoot() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, "GameBackups")
}
