package supervisor

import (
	"os"
	"path/filepath"
	"time"

	"github.com/smazurov/rtspcam/internal/ffmpeg"
)

// ProbeMode selects how media server readiness is detected.
type ProbeMode string

// Readiness probe modes.
const (
	ProbeTCP  ProbeMode = "tcp"  // TCP connect to the RTSP port
	ProbeRTSP ProbeMode = "rtsp" // RTSP OPTIONS round-trip
	ProbeAPI  ProbeMode = "api"  // MediaMTX control API answers
)

// Config configures a Supervisor. Zero values are replaced by defaults.
type Config struct {
	FFmpegPath   string
	MediaMTXPath string

	// WorkDir holds the generated media server configuration files.
	WorkDir string

	// APIAddress enables the media server control API. Required for ProbeAPI.
	APIAddress string

	// Platform overrides runtime.GOOS when picking the capture demuxer.
	Platform      string
	FFmpegOptions []ffmpeg.OptionType
	Preset        string // x264 preset, see assembler.Options
	Tune          string

	ProbeMode     ProbeMode
	ProbeInterval time.Duration // time between probes
	ProbeTimeout  time.Duration // bound on a single probe
	ReadyTimeout  time.Duration // bound on one startup attempt

	StartupAttempts int           // attempts before StartupTimeout is surfaced
	RetryDelay      time.Duration // initial backoff between attempts

	// SettleTime is how long StartSession watches a fresh transcoder before
	// reporting success, so immediate device errors surface to the caller.
	// Negative disables the wait.
	SettleTime time.Duration

	GracePeriod time.Duration // SIGINT to SIGKILL
	KillTimeout time.Duration // SIGKILL to TerminationFailure

	// CollapseTail is how many output lines of a crashed child are kept.
	CollapseTail int
}

// Defaults.
const (
	DefaultProbeInterval   = 200 * time.Millisecond
	DefaultProbeTimeout    = 500 * time.Millisecond
	DefaultReadyTimeout    = 5 * time.Second
	DefaultStartupAttempts = 3
	DefaultRetryDelay      = 500 * time.Millisecond
	DefaultSettleTime      = time.Second
	DefaultGracePeriod     = 2 * time.Second
	DefaultKillTimeout     = 2 * time.Second
	DefaultCollapseTail    = 20
	DefaultAPIAddress      = "127.0.0.1:9997"
)

func (c Config) withDefaults() Config {
	if c.FFmpegPath == "" {
		c.FFmpegPath = "ffmpeg"
	}
	if c.MediaMTXPath == "" {
		c.MediaMTXPath = "mediamtx"
	}
	if c.WorkDir == "" {
		c.WorkDir = filepath.Join(os.TempDir(), "rtspcam")
	}
	if c.ProbeMode == "" {
		c.ProbeMode = ProbeTCP
	}
	if c.ProbeMode == ProbeAPI && c.APIAddress == "" {
		c.APIAddress = DefaultAPIAddress
	}
	if c.ProbeInterval <= 0 {
		c.ProbeInterval = DefaultProbeInterval
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = DefaultProbeTimeout
	}
	if c.ReadyTimeout <= 0 {
		c.ReadyTimeout = DefaultReadyTimeout
	}
	if c.StartupAttempts <= 0 {
		c.StartupAttempts = DefaultStartupAttempts
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = DefaultRetryDelay
	}
	if c.SettleTime < 0 {
		c.SettleTime = 0
	} else if c.SettleTime == 0 {
		c.SettleTime = DefaultSettleTime
	}
	if c.GracePeriod <= 0 {
		c.GracePeriod = DefaultGracePeriod
	}
	if c.KillTimeout <= 0 {
		c.KillTimeout = DefaultKillTimeout
	}
	if c.CollapseTail <= 0 {
		c.CollapseTail = DefaultCollapseTail
	}
	return c
}
