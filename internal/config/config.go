package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Defaults applied to anything a config file leaves unset.
const (
	DefaultStashDir     = ".backup"
	DefaultJournalFile  = "event-log.db"
	DefaultLogLevel     = "info"
	DefaultPageSize     = 256
	DefaultDebounce     = 2 * time.Second
	DefaultJournalType  = "sqlite"
	DefaultStashType    = "filesystem"
	DefaultLogMaxSizeMB = 10
	DefaultLogBackups   = 3
)

// Config represents the main configuration for squirrel.
type Config struct {
	StashDir   string           `toml:"stash_dir"` // relative to the watched root unless absolute
	LogDir     string           `toml:"log_dir"`
	LogLevel   string           `toml:"log_level"` // "debug", "info", "warn" or "error"
	Journal    JournalConfig    `toml:"journal"`
	Stash      StashConfig      `toml:"stash"`
	Watch      WatchConfig      `toml:"watch"`
	Filesystem FilesystemConfig `toml:"filesystem"`
	Log        LogConfig        `toml:"log"`
}

// JournalConfig represents configuration for the event journal.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type JournalConfig struct {
	Type     string `toml:"type"`           // "sqlite" or "memory"
	File     string `toml:"file,omitempty"` // only used for type=sqlite; relative to the stash
	PageSize int    `toml:"page_size"`      // rows fetched per page on backward reads
}

// StashConfig represents configuration for the snapshot store.
type StashConfig struct {
	Type string `toml:"type"` // "filesystem" or "memory"
}

// WatchConfig holds settings for the filesystem notification source.
type WatchConfig struct {
	Debounce time.Duration `toml:"debounce"` // quiet period before coalesced events are delivered
}

// FilesystemConfig holds filesystem-related settings.
type FilesystemConfig struct {
	Ignore []string `toml:"ignore"` // extra glob patterns ignored everywhere in the tree
}

// LogConfig holds the rotation settings for the log file.
type LogConfig struct {
	MaxSizeMB  int `toml:"max_size_mb"`
	MaxBackups int `toml:"max_backups"`
}

// NewConfig creates a new Config with default values, logging under baseDir.
func NewConfig(baseDir string) *Config {
	cfg := &Config{LogDir: filepath.Join(baseDir, "log")}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills in every field the config leaves unset.
func (c *Config) applyDefaults() {
	if c.StashDir == "" {
		c.StashDir = DefaultStashDir
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.Journal.Type == "" {
		c.Journal.Type = DefaultJournalType
	}
	if c.Journal.Type == "sqlite" && c.Journal.File == "" {
		c.Journal.File = DefaultJournalFile
	}
	if c.Journal.PageSize <= 0 {
		c.Journal.PageSize = DefaultPageSize
	}
	if c.Stash.Type == "" {
		c.Stash.Type = DefaultStashType
	}
	if c.Watch.Debounce <= 0 {
		c.Watch.Debounce = DefaultDebounce
	}
	if c.Log.MaxSizeMB <= 0 {
		c.Log.MaxSizeMB = DefaultLogMaxSizeMB
	}
	if c.Log.MaxBackups <= 0 {
		c.Log.MaxBackups = DefaultLogBackups
	}
}

// StashPath returns the absolute stash directory for the watched root.
func (c *Config) StashPath(root string) string {
	if filepath.IsAbs(c.StashDir) {
		return c.StashDir
	}
	return filepath.Join(root, c.StashDir)
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// Load reads the config at path, falling back to defaults (logging under
// baseDir) when the file does not exist. Unset fields get default values.
func Load(path, baseDir string) (*Config, error) {
	cfg, err := ReadFromFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewConfig(baseDir), nil
		}
		return nil, err
	}
	if cfg.LogDir == "" {
		cfg.LogDir = filepath.Join(baseDir, "log")
	}
	cfg.applyDefaults()
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
// This is an internal helper and should not be exported.
func writeToFile(path string, cfg *Config) error {
	// Ensure the directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	// Check if config already exists
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
