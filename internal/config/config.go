// Package config handles fingerprinting-core configuration file
// management: library paths, worker counts, and storage location,
// loaded from and saved to a JSON file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config represents the fingerprinting core's configuration.
type Config struct {
	// LibraryPaths is a list of directories scanned for audio files.
	LibraryPaths []string `json:"libraryPaths"`

	// DataDir is saved with the configuration; blissctl does not read it
	// and places its SQLite library at <config-dir>/library.db unless
	// --db is given.
	DataDir string `json:"dataDir"`

	// Analysis settings.
	Analysis AnalysisConfig `json:"analysis"`
}

// AnalysisConfig contains analysis-pipeline settings.
type AnalysisConfig struct {
	// SampleRate records the canonical sample rate. The decoder resamples
	// to its own fixed decode.SampleRate constant and does not read this
	// value.
	SampleRate int `json:"sampleRate"`

	// Workers is saved with the configuration; the batch analyzer does
	// not read it and always uses runtime.NumCPU() workers (at most one
	// per path).
	Workers int `json:"workers"`

	// PlaylistLength is the default playlist length for
	// playlist-from-current.
	PlaylistLength int `json:"playlistLength"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		LibraryPaths: []string{},
		Analysis: AnalysisConfig{
			SampleRate:     22050,
			Workers:        0,
			PlaylistLength: 20,
		},
	}
}

// Manager handles loading and saving configuration.
type Manager struct {
	configDir  string
	configPath string
	config     *Config
}

// NewManager creates a new configuration manager rooted at configDir.
func NewManager(configDir string) *Manager {
	return &Manager{
		configDir:  configDir,
		configPath: filepath.Join(configDir, "config.json"),
		config:     DefaultConfig(),
	}
}

// Load reads the configuration from disk, writing out defaults if no
// config file exists yet.
func (m *Manager) Load() error {
	if err := os.MkdirAll(m.configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(m.configPath); os.IsNotExist(err) {
		m.config = DefaultConfig()
		return m.Save()
	}

	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	m.config = config
	return nil
}

// Save writes the configuration to disk.
func (m *Manager) Save() error {
	if err := os.MkdirAll(m.configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(m.config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(m.configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Get returns the current configuration.
func (m *Manager) Get() *Config {
	return m.config
}

// GetPath returns the config file path.
func (m *Manager) GetPath() string {
	return m.configPath
}

// Update replaces the configuration and saves it.
func (m *Manager) Update(config *Config) error {
	m.config = config
	return m.Save()
}

// SetLibraryPaths replaces the library paths and saves.
func (m *Manager) SetLibraryPaths(paths []string) error {
	m.config.LibraryPaths = paths
	return m.Save()
}

// AddLibraryPath appends path if not already present, and saves.
func (m *Manager) AddLibraryPath(path string) error {
	for _, p := range m.config.LibraryPaths {
		if p == path {
			return nil
		}
	}
	m.config.LibraryPaths = append(m.config.LibraryPaths, path)
	return m.Save()
}

// RemoveLibraryPath removes path if present, and saves.
func (m *Manager) RemoveLibraryPath(path string) error {
	paths := make([]string, 0, len(m.config.LibraryPaths))
	for _, p := range m.config.LibraryPaths {
		if p != path {
			paths = append(paths, p)
		}
	}
	m.config.LibraryPaths = paths
	return m.Save()
}
