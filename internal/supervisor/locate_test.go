package supervisor

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

func TestLocateBinary(t *testing.T) {
	tests := []struct {
		name    string
		goos    string
		exeDir  []string // files next to the executable
		workDir []string // files in the working directory
		onPath  []string // names lookPath resolves
		lookup  string
		want    string // "exe/<file>", "wd/<file>", "path/<file>" or "" for not found
	}{
		{"next to executable wins", "linux", []string{"ffmpeg"}, []string{"ffmpeg"}, []string{"ffmpeg"}, "ffmpeg", "exe/ffmpeg"},
		{"working directory before PATH", "linux", nil, []string{"mediamtx"}, []string{"mediamtx"}, "mediamtx", "wd/mediamtx"},
		{"PATH last", "linux", nil, nil, []string{"ffmpeg"}, "ffmpeg", "path/ffmpeg"},
		{"windows exe suffix", "windows", []string{"ffmpeg.exe"}, nil, nil, "ffmpeg", "exe/ffmpeg.exe"},
		{"windows exe on PATH", "windows", nil, nil, []string{"mediamtx.exe"}, "mediamtx", "path/mediamtx.exe"},
		{"no suffix off windows", "linux", []string{"ffmpeg.exe"}, nil, nil, "ffmpeg", ""},
		{"not found", "linux", nil, nil, nil, "ffmpeg", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			dirs := map[string]string{
				"exe":  filepath.Join(root, "exe"),
				"wd":   filepath.Join(root, "wd"),
				"path": filepath.Join(root, "path"),
			}
			for _, d := range dirs {
				if err := os.Mkdir(d, 0o755); err != nil {
					t.Fatal(err)
				}
			}
			writeExecutables(t, dirs["exe"], tt.exeDir)
			writeExecutables(t, dirs["wd"], tt.workDir)
			writeExecutables(t, dirs["path"], tt.onPath)

			lookPath := func(file string) (string, error) {
				path := filepath.Join(dirs["path"], file)
				if _, err := os.Stat(path); err != nil {
					return "", exec.ErrNotFound
				}
				return path, nil
			}

			got, err := locate(tt.lookup, tt.goos, []string{dirs["exe"], dirs["wd"]}, lookPath)
			if tt.want == "" {
				if !errors.Is(err, exec.ErrNotFound) {
					t.Fatalf("locate() = %q, %v; want exec.ErrNotFound", got, err)
				}
				if got != tt.lookup {
					t.Errorf("locate() = %q, want the bare name back", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("locate() error = %v", err)
			}
			want := filepath.Join(root, filepath.FromSlash(tt.want))
			if got != want {
				t.Errorf("locate() = %q, want %q", got, want)
			}
		})
	}
}

func TestLocateBinaryExplicitPath(t *testing.T) {
	dir := t.TempDir()
	writeExecutables(t, dir, []string{"ffmpeg"})
	path := filepath.Join(dir, "ffmpeg")

	got, err := LocateBinary(path)
	if err != nil || got != path {
		t.Errorf("LocateBinary(%q) = %q, %v", path, got, err)
	}

	missing := filepath.Join(dir, "mediamtx")
	if _, err := LocateBinary(missing); err == nil {
		t.Errorf("LocateBinary(%q) expected error", missing)
	}
}

func TestLocateBinarySkipsNonExecutable(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "ffmpeg"), []byte("not a program"), 0o644); err != nil {
		t.Fatal(err)
	}
	notFound := func(string) (string, error) { return "", exec.ErrNotFound }
	if got, err := locate("ffmpeg", "linux", []string{dir}, notFound); err == nil {
		t.Errorf("locate() = %q, want non-executable file skipped", got)
	}
}

func writeExecutables(t *testing.T, dir string, names []string) {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("#!/bin/sh\n"), 0o755); err != nil {
			t.Fatal(err)
		}
	}
}
