package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for filecab. The inbox and
// archive lists are the persisted location bookmarks: loaded at startup and
// written back on every add or remove.
type Config struct {
	BaseDir        string        `toml:"base_dir"`
	LogDir         string        `toml:"log_dir"`
	Inboxes        []string      `toml:"inboxes"`
	Archives       []string      `toml:"archives"`
	DebounceMillis int           `toml:"debounce_millis"`
	History        HistoryConfig `toml:"history"`
}

// HistoryConfig controls the filing audit log.
type HistoryConfig struct {
	Enabled bool   `toml:"enabled"`
	DataDir string `toml:"data_dir,omitempty"`
}

// NewConfig creates a Config with the default layout under baseDir.
func NewConfig(baseDir string) *Config {
	return &Config{
		BaseDir:        baseDir,
		LogDir:         filepath.Join(baseDir, "log"),
		DebounceMillis: 300,
		History: HistoryConfig{
			Enabled: true,
			DataDir: filepath.Join(baseDir, "data"),
		},
	}
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

// Save writes a Config to the specified file path, creating the directory if
// needed. Location add/remove calls this immediately after mutating the
// lists.
func Save(path string, cfg *Config) error {
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

// Init initializes a new config file at the specified path with the provided
// Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := Save(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
