package ffmpeg

import (
	"regexp"
	"strings"
)

// Device is a capture device as reported by ffmpeg.
type Device struct {
	ID    string // value passed to -i
	Label string // human readable name
}

var (
	quotedName  = regexp.MustCompile(`"([^"]+)"`)
	indexedName = regexp.MustCompile(`\[(\d+)\]\s+(.+)$`)
	v4l2Source  = regexp.MustCompile(`^\s*\*?\s*(/dev/\S+)\s*(?:\[(.*)\])?`)
)

// ParseDeviceList extracts video devices from the output of an invocation
// built with ListDevicesArgs. Duplicates are dropped and order is preserved.
// The result is never nil.
func ParseDeviceList(format InputFormat, output string) []Device {
	var devices []Device
	switch format {
	case InputAVFoundation:
		devices = parseAVFoundation(output)
	case InputV4L2:
		devices = parseV4L2Sources(output)
	default:
		devices = parseDShow(output)
		if len(devices) == 0 {
			devices = parseDShowSections(output)
		}
	}
	return dedupe(devices)
}

// stripPrefix removes the "[dshow @ 0x...]" component and any level tag.
func stripPrefix(line string) string {
	_, msg := ParseLogLevel(line)
	if strings.HasPrefix(msg, "[") {
		if end := strings.Index(msg, "] "); end != -1 {
			msg = msg[end+2:]
		}
	}
	return strings.TrimSpace(msg)
}

// parseDShow handles the ffmpeg >= 4.3 layout where each device line is tagged.
func parseDShow(output string) []Device {
	var devices []Device
	for line := range strings.Lines(output) {
		if !strings.Contains(line, "(video)") || strings.Contains(line, "Alternative name") {
			continue
		}
		if m := quotedName.FindStringSubmatch(line); m != nil {
			devices = append(devices, Device{ID: m[1], Label: m[1]})
		}
	}
	return devices
}

// parseDShowSections handles the older layout with "DirectShow video devices" headers.
func parseDShowSections(output string) []Device {
	var devices []Device
	inVideo := false
	for line := range strings.Lines(output) {
		switch {
		case strings.Contains(line, "DirectShow video devices"):
			inVideo = true
			continue
		case strings.Contains(line, "DirectShow audio devices"):
			inVideo = false
			continue
		}
		if !inVideo || strings.Contains(line, "Alternative name") {
			continue
		}
		if m := quotedName.FindStringSubmatch(line); m != nil {
			devices = append(devices, Device{ID: m[1], Label: m[1]})
		}
	}
	return devices
}

func parseAVFoundation(output string) []Device {
	var devices []Device
	inVideo := false
	for line := range strings.Lines(output) {
		switch {
		case strings.Contains(line, "AVFoundation video devices"):
			inVideo = true
			continue
		case strings.Contains(line, "AVFoundation audio devices"):
			inVideo = false
			continue
		}
		if !inVideo {
			continue
		}
		if m := indexedName.FindStringSubmatch(stripPrefix(line)); m != nil {
			name := strings.TrimSpace(m[2])
			devices = append(devices, Device{ID: name, Label: name})
		}
	}
	return devices
}

func parseV4L2Sources(output string) []Device {
	var devices []Device
	for line := range strings.Lines(output) {
		m := v4l2Source.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		label := m[2]
		if label == "" {
			label = m[1]
		}
		devices = append(devices, Device{ID: m[1], Label: label})
	}
	return devices
}

func dedupe(devices []Device) []Device {
	out := make([]Device, 0, len(devices))
	seen := make(map[string]bool, len(devices))
	for _, d := range devices {
		if seen[d.ID] {
			continue
		}
		seen[d.ID] = true
		out = append(out, d)
	}
	return out
}
