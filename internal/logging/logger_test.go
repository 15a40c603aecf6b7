package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func resetState() {
	mutex.Lock()
	moduleLoggers = make(map[string]*slog.Logger)
	moduleLevelVars = make(map[string]*slog.LevelVar)
	isInitialized = false
	globalConfig = Config{}
	mutex.Unlock()
}

func TestModuleLevelOverride(t *testing.T) {
	resetState()

	Initialize(Config{
		Level:  "info",
		Format: "text",
		Modules: map[string]string{
			"supervisor": "debug",
			"mediamtx":   "warn",
		},
	})

	tests := []struct {
		module    string
		wantDebug bool
		wantInfo  bool
		wantWarn  bool
	}{
		{"supervisor", true, true, true},
		{"mediamtx", false, false, true},
		{"launcher", false, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.module, func(t *testing.T) {
			handler := GetLogger(tt.module).Handler()
			ctx := context.Background()

			if got := handler.Enabled(ctx, slog.LevelDebug); got != tt.wantDebug {
				t.Errorf("module %q: Debug enabled = %v, want %v", tt.module, got, tt.wantDebug)
			}
			if got := handler.Enabled(ctx, slog.LevelInfo); got != tt.wantInfo {
				t.Errorf("module %q: Info enabled = %v, want %v", tt.module, got, tt.wantInfo)
			}
			if got := handler.Enabled(ctx, slog.LevelWarn); got != tt.wantWarn {
				t.Errorf("module %q: Warn enabled = %v, want %v", tt.module, got, tt.wantWarn)
			}
		})
	}
}

func TestGetLoggerBeforeInitialize(t *testing.T) {
	resetState()

	before := GetLogger("ffmpeg")
	if before.Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("logger created before Initialize should default to info")
	}

	Initialize(Config{
		Level:   "info",
		Format:  "text",
		Modules: map[string]string{"ffmpeg": "debug"},
	})

	after := GetLogger("ffmpeg")
	if !after.Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("logger should pick up the module override after Initialize")
	}
}

func TestSetModuleLevel(t *testing.T) {
	resetState()
	Initialize(Config{Level: "info", Format: "text"})

	logger := GetLogger("launcher")
	if logger.Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("debug should be disabled initially")
	}

	if !SetModuleLevel("launcher", "debug") {
		t.Fatal("SetModuleLevel rejected a valid level")
	}
	if !logger.Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("debug should be enabled after SetModuleLevel")
	}

	if SetModuleLevel("launcher", "loud") {
		t.Error("SetModuleLevel accepted an invalid level")
	}
}

func TestMultiHandlerDebugOutput(t *testing.T) {
	var buf bytes.Buffer

	debugHandler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	infoHandler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})

	logger := slog.New(NewMultiHandler(debugHandler, infoHandler)).With("module", "test")
	logger.Debug("debug only message")
	logger.Info("info message")

	output := buf.String()
	if count := strings.Count(output, "debug only message"); count != 1 {
		t.Errorf("expected 1 debug line, got %d. Output: %s", count, output)
	}
	if count := strings.Count(output, "info message"); count != 2 {
		t.Errorf("expected 2 info lines, got %d. Output: %s", count, output)
	}
}

func TestAddAttrToFields(t *testing.T) {
	fields := make(map[string]string)

	addAttrToFields(fields, slog.String("session_id", "abc"), nil)
	addAttrToFields(fields, slog.Int("pid", 42), []string{"child"})
	addAttrToFields(fields, slog.Group("probe", slog.String("mode", "tcp")), nil)

	want := map[string]string{
		"SESSION_ID": "abc",
		"CHILD_PID":  "42",
		"PROBE_MODE": "tcp",
	}
	for k, v := range want {
		if fields[k] != v {
			t.Errorf("fields[%q] = %q, want %q", k, fields[k], v)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]*slog.Level{
		"debug":   ptr(slog.LevelDebug),
		"INFO":    ptr(slog.LevelInfo),
		"warning": ptr(slog.LevelWarn),
		"error":   ptr(slog.LevelError),
		"verbose": nil,
	}
	for in, want := range tests {
		got := parseLevel(in)
		if (got == nil) != (want == nil) {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
			continue
		}
		if got != nil && *got != *want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, *got, *want)
		}
	}
}

func ptr(l slog.Level) *slog.Level { return &l }
