package ffmpeg

import (
	"strconv"
	"strings"
)

var logLevels = map[string]bool{
	"quiet": true, "panic": true, "fatal": true, "error": true, "warning": true,
	"info": true, "verbose": true, "debug": true, "trace": true,
}

// ParseLogLevel splits a line printed under -loglevel level+info, such as
// "[error] msg" or "[rtsp @ 0x55d0] [warning] msg", into its level and
// message. A component prefix stays in the message. Untagged lines are info,
// and statistics lines are demoted to debug so a running transcoder does not
// flood the default level.
func ParseLogLevel(line string) (level, msg string) {
	level, msg = splitLevel(line)
	if isStats(msg) {
		level = "debug"
	}
	return level, msg
}

func splitLevel(line string) (level, msg string) {
	if lvl, rest, ok := cutLevelTag(line); ok {
		return lvl, rest
	}
	if component, rest, ok := strings.Cut(line, "] "); ok && strings.HasPrefix(component, "[") {
		if lvl, rest, ok := cutLevelTag(rest); ok {
			return lvl, component + "] " + rest
		}
	}
	return "info", line
}

// cutLevelTag removes a leading "[level] " tag.
func cutLevelTag(s string) (level, rest string, ok bool) {
	tag, rest, found := strings.Cut(s, "] ")
	if !found || !strings.HasPrefix(tag, "[") || !logLevels[tag[1:]] {
		return "", s, false
	}
	return tag[1:], rest, true
}

func isStats(msg string) bool {
	return strings.HasPrefix(strings.TrimSpace(msg), "frame=")
}

// Progress is one periodic statistics line printed while encoding, e.g.
// "frame=  120 fps= 30 q=20.0 size=  512kB time=00:00:04.00 bitrate=1048.6kbits/s dup=0 drop=3 speed=1.00x".
type Progress struct {
	Frame   int64
	FPS     float64
	Dropped int64
	Dup     int64
	Speed   float64
}

// ParseProgress parses a statistics line. The second result is false for
// any other output.
func ParseProgress(line string) (Progress, bool) {
	_, msg := splitLevel(line)
	if !isStats(msg) {
		return Progress{}, false
	}

	var p Progress
	// Values may be padded after '=' ("fps= 30"), so re-join before splitting.
	fields := strings.Fields(strings.ReplaceAll(strings.TrimSpace(msg), "= ", "="))
	for len(fields) > 0 {
		key, value, ok := strings.Cut(fields[0], "=")
		fields = fields[1:]
		if !ok {
			continue
		}
		// Repeated padding ("frame=   12") leaves an empty value followed by the number.
		if value == "" && len(fields) > 0 && !strings.Contains(fields[0], "=") {
			value, fields = fields[0], fields[1:]
		}
		switch key {
		case "frame":
			p.Frame, _ = strconv.ParseInt(value, 10, 64)
		case "fps":
			p.FPS, _ = strconv.ParseFloat(value, 64)
		case "drop":
			p.Dropped, _ = strconv.ParseInt(value, 10, 64)
		case "dup":
			p.Dup, _ = strconv.ParseInt(value, 10, 64)
		case "speed":
			p.Speed, _ = strconv.ParseFloat(strings.TrimSuffix(value, "x"), 64)
		}
	}
	return p, true
}
