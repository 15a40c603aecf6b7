package supervisor

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// LocateBinary finds a bundled tool the way a user unpacking a release
// expects: next to the running executable first, then in the working
// directory, then on PATH. On Windows a bare name also matches name.exe.
// A name containing a path separator is only checked, never searched.
// When nothing matches, name is returned with an error wrapping
// exec.ErrNotFound.
func LocateBinary(name string) (string, error) {
	return locate(name, runtime.GOOS, searchDirs(), exec.LookPath)
}

// searchDirs lists the directories checked before PATH.
func searchDirs() []string {
	var dirs []string
	if exe, err := os.Executable(); err == nil {
		if resolved, err := filepath.EvalSymlinks(exe); err == nil {
			exe = resolved
		}
		dirs = append(dirs, filepath.Dir(exe))
	}
	if wd, err := os.Getwd(); err == nil {
		dirs = append(dirs, wd)
	}
	return dirs
}

func locate(name, goos string, dirs []string, lookPath func(string) (string, error)) (string, error) {
	if name == "" {
		return "", errors.New("empty executable name")
	}
	if strings.ContainsAny(name, `/\`) {
		if _, err := lookPath(name); err != nil {
			return name, err
		}
		return name, nil
	}

	candidates := []string{name}
	if goos == "windows" && filepath.Ext(name) == "" {
		candidates = []string{name + ".exe", name}
	}

	for _, dir := range dirs {
		for _, c := range candidates {
			path := filepath.Join(dir, c)
			if isExecutable(path, goos) {
				return path, nil
			}
		}
	}
	for _, c := range candidates {
		if path, err := lookPath(c); err == nil {
			return path, nil
		}
	}
	return name, fmt.Errorf("%s: %w", name, exec.ErrNotFound)
}

func isExecutable(path, goos string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	return goos == "windows" || info.Mode().Perm()&0o111 != 0
}
