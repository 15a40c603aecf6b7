package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/adrg/xdg"

	"github.com/smazurov/rtspcam/internal/stream"
)

func TestSettingsStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.toml")
	store := NewSettingsStore(path)

	empty, err := store.Load()
	if err != nil {
		t.Fatalf("Load() on missing file error = %v", err)
	}
	if empty.Selection.DeviceID != "" || !empty.UpdatedAt.IsZero() {
		t.Errorf("Load() on missing file = %+v, want zero", empty)
	}

	sel := stream.Config{
		DeviceID:   "usb-046d_HD_Pro_Webcam_C920-video-index0",
		Resolution: stream.Resolution{Width: 1280, Height: 720},
		FrameRate:  30,
		Bitrate:    2000,
		StreamPath: "live",
		Host:       "127.0.0.1",
		Port:       8554,
	}
	if err := store.Save(sel); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.Selection != sel {
		t.Errorf("Selection = %+v, want %+v", got.Selection, sel)
	}
	if got.UpdatedAt.IsZero() {
		t.Error("UpdatedAt not set")
	}

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "1280x720") {
		t.Errorf("settings file does not store resolution as text:\n%s", data)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %d entries", len(entries))
	}
}

func TestLoadSettingsInvalid(t *testing.T) {
	path := writeTOML(t, "[selection]\nresolution = 'wide'\n")
	if _, err := LoadSettings(path); err == nil {
		t.Error("LoadSettings() with bad resolution error = nil")
	}
}

func TestDefaultSettingsPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", home)
	xdg.Reload()
	t.Cleanup(xdg.Reload)

	path, err := DefaultSettingsPath()
	if err != nil {
		t.Fatalf("DefaultSettingsPath() error = %v", err)
	}
	if want := filepath.Join(home, "rtspcam", "settings.toml"); path != want {
		t.Errorf("DefaultSettingsPath() = %q, want %q", path, want)
	}
}
