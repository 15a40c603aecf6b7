package stream

import (
	"errors"
	"fmt"
	"testing"
)

func validConfig() Config {
	return Config{
		DeviceID:   "cam0",
		Resolution: Resolution{Width: 1280, Height: 720},
		FrameRate:  30,
		Bitrate:    2000,
		StreamPath: "live",
	}.WithDefaults()
}

func TestURL(t *testing.T) {
	cfg := validConfig()
	if got, want := cfg.URL(), "rtsp://127.0.0.1:8554/live"; got != want {
		t.Errorf("URL() = %q, want %q", got, want)
	}

	cfg.Host = "::1"
	if got, want := cfg.URL(), "rtsp://[::1]:8554/live"; got != want {
		t.Errorf("URL() with IPv6 host = %q, want %q", got, want)
	}
}

func TestWithDefaults(t *testing.T) {
	cfg := Config{DeviceID: " USB Camera ", StreamPath: "/cams/front"}.WithDefaults()

	if cfg.DeviceID != "USB Camera" {
		t.Errorf("DeviceID = %q, want trimmed", cfg.DeviceID)
	}
	if cfg.StreamPath != "cams/front" {
		t.Errorf("StreamPath = %q, want leading slash stripped", cfg.StreamPath)
	}
	if cfg.Resolution != DefaultResolution {
		t.Errorf("Resolution = %v, want %v", cfg.Resolution, DefaultResolution)
	}
	if cfg.FrameRate != DefaultFrameRate || cfg.Bitrate != DefaultBitrate {
		t.Errorf("FrameRate/Bitrate = %d/%d, want defaults", cfg.FrameRate, cfg.Bitrate)
	}
	if cfg.Host != DefaultHost || cfg.Port != DefaultPort {
		t.Errorf("endpoint = %s, want default", cfg.Address())
	}

	empty := Config{}.WithDefaults()
	if empty.StreamPath != DefaultStreamPath {
		t.Errorf("StreamPath = %q, want %q", empty.StreamPath, DefaultStreamPath)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"nested path", func(c *Config) { c.StreamPath = "cams/front-door_1" }, false},
		{"hostname", func(c *Config) { c.Host = "camera-box.local" }, false},
		{"device with spaces", func(c *Config) { c.DeviceID = "USB2.0 PC CAMERA" }, false},
		{"empty device", func(c *Config) { c.DeviceID = "" }, true},
		{"device with quote", func(c *Config) { c.DeviceID = `cam"0` }, true},
		{"device with newline", func(c *Config) { c.DeviceID = "cam\n0" }, true},
		{"zero width", func(c *Config) { c.Resolution.Width = 0 }, true},
		{"negative height", func(c *Config) { c.Resolution.Height = -720 }, true},
		{"too wide", func(c *Config) { c.Resolution.Width = MaxWidth + 1 }, true},
		{"zero fps", func(c *Config) { c.FrameRate = 0 }, true},
		{"fps too high", func(c *Config) { c.FrameRate = MaxFrameRate + 1 }, true},
		{"negative bitrate", func(c *Config) { c.Bitrate = -1 }, true},
		{"path with space", func(c *Config) { c.StreamPath = "my stream" }, true},
		{"path with semicolon", func(c *Config) { c.StreamPath = "live;rm" }, true},
		{"path with query", func(c *Config) { c.StreamPath = "live?x=1" }, true},
		{"path with dollar", func(c *Config) { c.StreamPath = "$MTX_PATH" }, true},
		{"path traversal", func(c *Config) { c.StreamPath = "a/../b" }, true},
		{"empty path segment", func(c *Config) { c.StreamPath = "a//b" }, true},
		{"bad host", func(c *Config) { c.Host = "bad host" }, true},
		{"port zero", func(c *Config) { c.Port = 0 }, true},
		{"port too high", func(c *Config) { c.Port = 70000 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() error = %v, want InvalidConfig kind", err)
			}
		})
	}
}

func TestParseResolution(t *testing.T) {
	tests := []struct {
		in      string
		want    Resolution
		wantErr bool
	}{
		{"1280x720", Resolution{1280, 720}, false},
		{" 1920X1080 ", Resolution{1920, 1080}, false},
		{"1280", Resolution{}, true},
		{"axb", Resolution{}, true},
		{"1280x", Resolution{}, true},
	}
	for _, tt := range tests {
		got, err := ParseResolution(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseResolution(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseResolution(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestResolutionText(t *testing.T) {
	var r Resolution
	if err := r.UnmarshalText([]byte("800x600")); err != nil {
		t.Fatalf("UnmarshalText: %v", err)
	}
	text, _ := r.MarshalText()
	if string(text) != "800x600" {
		t.Errorf("MarshalText = %q", text)
	}
}

func TestErrorKinds(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("start session: %w", NewError(KindStartupTimeout, "server not ready", cause))

	if !errors.Is(err, ErrStartupTimeout) {
		t.Error("errors.Is should match the StartupTimeout sentinel")
	}
	if errors.Is(err, ErrInvalidConfig) {
		t.Error("errors.Is should not match a different kind")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should reach the wrapped cause")
	}
	if KindOf(err) != KindStartupTimeout {
		t.Errorf("KindOf = %q, want %q", KindOf(err), KindStartupTimeout)
	}
	if KindOf(cause) != "" {
		t.Errorf("KindOf(plain error) = %q, want empty", KindOf(cause))
	}

	want := "StartupTimeout: server not ready: connection refused"
	if got := NewError(KindStartupTimeout, "server not ready", cause).Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
