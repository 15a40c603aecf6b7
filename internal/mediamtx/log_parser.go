package mediamtx

import "strings"

// ParseLogLevel extracts the level from a MediaMTX log line such as
// "2025/01/27 10:30:00 INF [RTSP] listener opened on :8554 (TCP)".
// The timestamp is dropped since the process logger adds its own.
func ParseLogLevel(line string) (level, msg string) {
	fields := strings.SplitN(line, " ", 4)
	if len(fields) == 4 {
		if level, ok := levels[fields[2]]; ok {
			return level, fields[3]
		}
	}
	return "info", line
}

var levels = map[string]string{
	"DEB": "debug",
	"INF": "info",
	"WAR": "warning",
	"ERR": "error",
}
