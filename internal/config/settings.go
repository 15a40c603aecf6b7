package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/pelletier/go-toml/v2"

	"github.com/smazurov/rtspcam/internal/stream"
)

// Settings is the launcher state remembered between runs.
type Settings struct {
	Selection stream.Config `toml:"selection"`
	UpdatedAt time.Time     `toml:"updated_at"`
}

// DefaultSettingsPath returns $XDG_CONFIG_HOME/rtspcam/settings.toml,
// creating the directory if needed.
func DefaultSettingsPath() (string, error) {
	path, err := xdg.ConfigFile(filepath.Join("rtspcam", "settings.toml"))
	if err != nil {
		return "", fmt.Errorf("resolve settings path: %w", err)
	}
	return path, nil
}

// LoadSettings reads a settings file. A missing file yields zero Settings.
func LoadSettings(path string) (Settings, error) {
	var s Settings
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("failed to read settings: %w", err)
	}
	if err := toml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("failed to parse settings %s: %w", path, err)
	}
	return s, nil
}

// SettingsStore persists the last stream selection.
type SettingsStore struct {
	path string
	mu   sync.Mutex
}

// NewSettingsStore creates a store backed by path.
func NewSettingsStore(path string) *SettingsStore {
	return &SettingsStore{path: path}
}

// Path returns the backing file.
func (s *SettingsStore) Path() string {
	return s.path
}

// Load reads the stored settings.
func (s *SettingsStore) Load() (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return LoadSettings(s.path)
}

// Save stores sel as the last selection. The file is replaced atomically so
// a watcher never sees a partial write.
func (s *SettingsStore) Save(sel stream.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := toml.Marshal(Settings{Selection: sel, UpdatedAt: time.Now().UTC().Truncate(time.Second)})
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".settings-*.toml")
	if err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace settings: %w", err)
	}
	return nil
}
