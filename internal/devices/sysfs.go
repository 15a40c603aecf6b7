package devices

import (
	"cmp"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

// Default Linux locations.
const (
	DefaultSysfsRoot = "/sys/class/video4linux"
	DefaultByIDDir   = "/dev/v4l/by-id"
)

// SysfsLister reads V4L2 capture nodes from sysfs. Nodes with a stable
// /dev/v4l/by-id name are reported under that name so the selection
// survives re-plugging.
type SysfsLister struct {
	Root    string // default DefaultSysfsRoot
	ByIDDir string // default DefaultByIDDir
}

// List returns one descriptor per capture node. Metadata nodes (index > 0) are skipped.
func (l *SysfsLister) List(ctx context.Context) ([]Descriptor, error) {
	root := cmp.Or(l.Root, DefaultSysfsRoot)
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", root, err)
	}
	stable := stableNames(cmp.Or(l.ByIDDir, DefaultByIDDir))

	type node struct {
		num  int
		desc Descriptor
	}
	var nodes []node
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := e.Name()
		num, err := strconv.Atoi(strings.TrimPrefix(name, "video"))
		if !strings.HasPrefix(name, "video") || err != nil {
			continue
		}
		if index := readAttr(root, name, "index"); index != "" && index != "0" {
			continue
		}

		id := name
		if s, ok := stable[name]; ok {
			id = s
		}
		label := readAttr(root, name, "name")
		if label == "" {
			label = "/dev/" + name
		}
		nodes = append(nodes, node{num: num, desc: Descriptor{ID: id, Label: label}})
	}

	slices.SortFunc(nodes, func(a, b node) int { return a.num - b.num })
	devs := make([]Descriptor, 0, len(nodes))
	for _, n := range nodes {
		devs = append(devs, n.desc)
	}
	return devs, nil
}

// stableNames maps a node name such as "video0" to its by-id symlink.
// Primary capture links ("-video-index0") win over secondary ones.
func stableNames(dir string) map[string]string {
	names := make(map[string]string)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return names
	}
	for _, e := range entries {
		target, err := os.Readlink(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		node := filepath.Base(target)
		if prev, ok := names[node]; ok && strings.HasSuffix(prev, "-video-index0") {
			continue
		}
		names[node] = e.Name()
	}
	return names
}

func readAttr(root, node, attr string) string {
	b, err := os.ReadFile(filepath.Join(root, node, attr))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}
