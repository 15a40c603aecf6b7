// Package stream defines the stream parameters a user selects and the error
// kinds every other package reports failures with.
package stream

import (
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// Defaults applied by WithDefaults.
const (
	DefaultHost       = "127.0.0.1"
	DefaultPort       = 8554
	DefaultStreamPath = "live.stream"
	DefaultFrameRate  = 30
	DefaultBitrate    = 2000
)

// Upper bounds accepted by Validate.
const (
	MaxWidth     = 7680
	MaxHeight    = 4320
	MaxFrameRate = 240
	MaxBitrate   = 100000 // kbps
	maxDeviceLen = 256
)

// DefaultResolution is used when no resolution is selected.
var DefaultResolution = Resolution{Width: 640, Height: 480}

var (
	// Path segments are RFC 3986 unreserved characters only, so the path
	// survives both the argv boundary and URL parsing unchanged.
	streamPathPattern = regexp.MustCompile(`^[A-Za-z0-9._~-]+(/[A-Za-z0-9._~-]+)*$`)
	hostnamePattern   = regexp.MustCompile(`^[A-Za-z0-9]([A-Za-z0-9-]{0,61}[A-Za-z0-9])?(\.[A-Za-z0-9]([A-Za-z0-9-]{0,61}[A-Za-z0-9])?)*$`)
)

// Resolution is a capture size in pixels.
type Resolution struct {
	Width  int
	Height int
}

// String returns the resolution as WIDTHxHEIGHT.
func (r Resolution) String() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// IsZero reports whether no resolution was set.
func (r Resolution) IsZero() bool {
	return r.Width == 0 && r.Height == 0
}

// MarshalText implements encoding.TextMarshaler.
func (r Resolution) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Resolution) UnmarshalText(text []byte) error {
	parsed, err := ParseResolution(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// ParseResolution parses "1280x720" (an upper-case X is accepted too).
func ParseResolution(s string) (Resolution, error) {
	w, h, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return Resolution{}, invalid("resolution %q must be WIDTHxHEIGHT", s)
	}
	width, err := strconv.Atoi(w)
	if err != nil {
		return Resolution{}, invalid("resolution %q has a non-numeric width", s)
	}
	height, err := strconv.Atoi(h)
	if err != nil {
		return Resolution{}, invalid("resolution %q has a non-numeric height", s)
	}
	return Resolution{Width: width, Height: height}, nil
}

// Config holds the parameters of one stream session.
// A session keeps its own copy, so later edits never reach a running stream.
type Config struct {
	DeviceID   string     `toml:"device" json:"device_id"`
	Resolution Resolution `toml:"resolution" json:"resolution"`
	FrameRate  int        `toml:"fps" json:"fps"`
	Bitrate    int        `toml:"bitrate_kbps" json:"bitrate_kbps"`
	StreamPath string     `toml:"path" json:"path"`
	Host       string     `toml:"host" json:"host"`
	Port       int        `toml:"port" json:"port"`
}

// WithDefaults returns a copy with unset fields filled in and a leading
// slash stripped from the stream path. Zero means unset: a FrameRate or
// Bitrate of 0 becomes DefaultFrameRate or DefaultBitrate. Negative values
// are kept so Validate rejects them.
func (c Config) WithDefaults() Config {
	c.DeviceID = strings.TrimSpace(c.DeviceID)
	c.Host = strings.TrimSpace(c.Host)
	c.StreamPath = strings.TrimLeft(strings.TrimSpace(c.StreamPath), "/")

	if c.Resolution.IsZero() {
		c.Resolution = DefaultResolution
	}
	if c.FrameRate == 0 {
		c.FrameRate = DefaultFrameRate
	}
	if c.Bitrate == 0 {
		c.Bitrate = DefaultBitrate
	}
	if c.StreamPath == "" {
		c.StreamPath = DefaultStreamPath
	}
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	return c
}

// Validate checks that every field is within bounds and safe to pass as a
// single process argument. It returns an InvalidConfig *Error.
// Validate does not apply defaults, so a zero FrameRate or Bitrate fails
// here; call WithDefaults first to treat zero as the default.
func (c Config) Validate() error {
	switch {
	case c.DeviceID == "":
		return invalid("no capture device selected")
	case len(c.DeviceID) > maxDeviceLen:
		return invalid("device id longer than %d bytes", maxDeviceLen)
	case strings.ContainsFunc(c.DeviceID, func(r rune) bool { return unicode.IsControl(r) || r == '"' }):
		return invalid("device id %q contains control characters or quotes", c.DeviceID)
	}

	if c.Resolution.Width <= 0 || c.Resolution.Height <= 0 {
		return invalid("resolution %s must be positive", c.Resolution)
	}
	if c.Resolution.Width > MaxWidth || c.Resolution.Height > MaxHeight {
		return invalid("resolution %s exceeds %dx%d", c.Resolution, MaxWidth, MaxHeight)
	}
	if c.FrameRate <= 0 || c.FrameRate > MaxFrameRate {
		return invalid("frame rate %d must be between 1 and %d", c.FrameRate, MaxFrameRate)
	}
	if c.Bitrate <= 0 || c.Bitrate > MaxBitrate {
		return invalid("bitrate %d kbps must be between 1 and %d", c.Bitrate, MaxBitrate)
	}

	if !streamPathPattern.MatchString(c.StreamPath) {
		return invalid("stream path %q may only contain letters, digits and ._~- separated by /", c.StreamPath)
	}
	for _, seg := range strings.Split(c.StreamPath, "/") {
		if seg == "." || seg == ".." {
			return invalid("stream path %q contains a relative segment", c.StreamPath)
		}
	}

	if net.ParseIP(c.Host) == nil && !hostnamePattern.MatchString(c.Host) {
		return invalid("host %q is not a hostname or IP address", c.Host)
	}
	if c.Port < 1 || c.Port > 65535 {
		return invalid("port %d out of range", c.Port)
	}
	return nil
}

// Address returns host:port of the media server's RTSP listener.
func (c Config) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// URL returns the connection string consumers use to read the stream.
func (c Config) URL() string {
	return "rtsp://" + c.Address() + "/" + c.StreamPath
}
