package ffmpeg

import (
	"regexp"
	"strings"
)

var shellSafe = regexp.MustCompile(`^[A-Za-z0-9_@%+=:,./-]+$`)

// FormatCommand renders an invocation as a single copy-pasteable POSIX shell line.
// It is for display only; processes are always started from the argument vector.
func FormatCommand(path string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, quote(path))
	for _, arg := range args {
		parts = append(parts, quote(arg))
	}
	return strings.Join(parts, " ")
}

func quote(s string) string {
	if s == "" {
		return "''"
	}
	if shellSafe.MatchString(s) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// ListDevicesArgs returns the arguments that make ffmpeg print the capture
// devices known to the demuxer. ffmpeg exits non-zero after listing.
func ListDevicesArgs(format InputFormat) []string {
	switch format {
	case InputAVFoundation:
		return []string{"-hide_banner", "-f", "avfoundation", "-list_devices", "true", "-i", ""}
	case InputV4L2:
		return []string{"-hide_banner", "-sources", "v4l2"}
	default:
		return []string{"-hide_banner", "-f", string(format), "-list_devices", "true", "-i", "dummy"}
	}
}
