package cmd

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/smazurov/rtspcam/internal/config"
	"github.com/smazurov/rtspcam/internal/devices"
	"github.com/smazurov/rtspcam/internal/events"
	"github.com/smazurov/rtspcam/internal/ffmpeg"
	"github.com/smazurov/rtspcam/internal/logging"
	"github.com/smazurov/rtspcam/internal/stream"
	"github.com/smazurov/rtspcam/internal/supervisor"
	"github.com/spf13/cobra"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"rtspcam.toml"`

	// Server settings
	Port        string `help:"Address the HTTP API listens on" short:"p" default:":8090" toml:"server.port" env:"SERVER_PORT"`
	SubmitRate  int    `help:"Session submissions allowed per client per minute" default:"30" toml:"server.submit_rate" env:"SERVER_SUBMIT_RATE"`
	SubmitBurst int    `help:"Session submissions allowed at once" default:"5" toml:"server.submit_burst" env:"SERVER_SUBMIT_BURST"`
	CORSOrigins string `help:"Comma-separated origins allowed to call the API from a browser (* for any, empty disables CORS)" default:"*" toml:"server.cors_origins" env:"SERVER_CORS_ORIGINS"`

	// TrustedProxies lists the addresses or CIDRs whose X-Forwarded-For and
	// X-Real-IP headers are believed when rate limiting.
	TrustedProxies string `help:"Comma-separated proxy addresses or CIDRs whose forwarding headers are trusted" default:"" toml:"server.trusted_proxies" env:"SERVER_TRUSTED_PROXIES"`

	// Auth settings
	AuthUsername string `help:"Basic auth username (empty disables auth)" default:"" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Tool settings
	TranscoderBinary  string `help:"ffmpeg executable" default:"ffmpeg" toml:"tools.ffmpeg" env:"TOOLS_FFMPEG"`
	MediaServerBinary string `help:"MediaMTX executable" default:"mediamtx" toml:"tools.mediamtx" env:"TOOLS_MEDIAMTX"`
	WorkDir           string `help:"Directory for generated media server configs (default: system temp)" default:"" toml:"tools.work_dir" env:"TOOLS_WORK_DIR"`
	TranscoderOptions string `help:"Comma-separated ffmpeg options, see GET /api/options" default:"" toml:"tools.ffmpeg_options" env:"TOOLS_FFMPEG_OPTIONS"`
	Preset            string `help:"x264 preset" default:"" toml:"tools.preset" env:"TOOLS_PRESET"`
	Tune              string `help:"x264 tune" default:"" toml:"tools.tune" env:"TOOLS_TUNE"`

	// Supervisor settings
	ProbeMode       string `help:"Media server readiness probe (tcp, rtsp, api)" default:"tcp" toml:"supervisor.probe_mode" env:"SUPERVISOR_PROBE_MODE"`
	ControlAddress  string `help:"Media server control API address, enables the api probe" default:"" toml:"supervisor.control_address" env:"SUPERVISOR_CONTROL_ADDRESS"`
	ReadyTimeout    string `help:"Bound on one media server startup attempt" default:"5s" toml:"supervisor.ready_timeout" env:"SUPERVISOR_READY_TIMEOUT"`
	StartupAttempts int    `help:"Media server startup attempts" default:"3" toml:"supervisor.startup_attempts" env:"SUPERVISOR_STARTUP_ATTEMPTS"`
	SettleTime      string `help:"How long a fresh transcoder is watched before the stream is reported live" default:"1s" toml:"supervisor.settle_time" env:"SUPERVISOR_SETTLE_TIME"`
	GracePeriod     string `help:"Time between SIGINT and SIGKILL when stopping a child" default:"2s" toml:"supervisor.grace_period" env:"SUPERVISOR_GRACE_PERIOD"`

	// Device settings
	DeviceCacheTTL string `help:"How long a device listing is reused" default:"5s" toml:"devices.cache_ttl" env:"DEVICES_CACHE_TTL"`
	DeviceWatchDir string `help:"Directory watched for camera hotplug (Linux)" default:"/dev" toml:"devices.watch_dir" env:"DEVICES_WATCH_DIR"`
	TestSource     bool   `help:"Offer the built-in test pattern as a device" default:"false" toml:"devices.test_source" env:"DEVICES_TEST_SOURCE"`

	// Settings file
	SettingsFile string `help:"Where the last selection is saved (default: XDG config dir)" default:"" toml:"settings.file" env:"SETTINGS_FILE"`

	// Logging settings
	LoggingLevel      string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat     string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingSupervisor string `help:"Supervisor logging level" default:"info" toml:"logging.supervisor" env:"LOGGING_SUPERVISOR"`
	LoggingLauncher   string `help:"Launcher logging level" default:"info" toml:"logging.launcher" env:"LOGGING_LAUNCHER"`
	LoggingDevices    string `help:"Devices logging level" default:"info" toml:"logging.devices" env:"LOGGING_DEVICES"`
	LoggingFFmpeg     string `help:"ffmpeg output logging level" default:"info" toml:"logging.ffmpeg" env:"LOGGING_FFMPEG"`
	LoggingMediaMTX   string `help:"MediaMTX output logging level" default:"info" toml:"logging.mediamtx" env:"LOGGING_MEDIAMTX"`
	LoggingAPI        string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
}

// Setup loads the config file and environment into o and initializes
// logging. Flags set on cmd win over both.
func (o *Options) Setup(cmd *cobra.Command) error {
	err := config.LoadConfig(o, cmd)

	logCfg := logging.Config{
		Level:  o.LoggingLevel,
		Format: o.LoggingFormat,
		Modules: map[string]string{
			"supervisor": o.LoggingSupervisor,
			"launcher":   o.LoggingLauncher,
			"devices":    o.LoggingDevices,
			"ffmpeg":     o.LoggingFFmpeg,
			"mediamtx":   o.LoggingMediaMTX,
			"api":        o.LoggingAPI,
			"http":       o.LoggingAPI,
		},
	}
	if err != nil {
		// A bad value elsewhere in the file still leaves its [logging] table usable.
		logCfg = config.LoadLoggingConfig(o.Config)
	}
	logging.Initialize(logCfg)
	return err
}

// SupervisorConfig converts the options. Malformed durations are errors.
func (o *Options) SupervisorConfig() (supervisor.Config, error) {
	cfg := supervisor.Config{
		FFmpegPath:      binaryPath(o.TranscoderBinary),
		MediaMTXPath:    binaryPath(o.MediaServerBinary),
		WorkDir:         o.WorkDir,
		APIAddress:      o.ControlAddress,
		Platform:        runtime.GOOS,
		Preset:          o.Preset,
		Tune:            o.Tune,
		ProbeMode:       supervisor.ProbeMode(o.ProbeMode),
		StartupAttempts: o.StartupAttempts,
	}

	switch cfg.ProbeMode {
	case supervisor.ProbeTCP, supervisor.ProbeRTSP, supervisor.ProbeAPI:
	default:
		return cfg, fmt.Errorf("unknown probe mode %q", o.ProbeMode)
	}

	for _, opt := range splitList(o.TranscoderOptions) {
		cfg.FFmpegOptions = append(cfg.FFmpegOptions, ffmpeg.OptionType(opt))
	}
	if err := ffmpeg.ValidateOptions(cfg.FFmpegOptions); err != nil {
		return cfg, err
	}

	durations := []struct {
		name  string
		value string
		dst   *time.Duration
	}{
		{"ready-timeout", o.ReadyTimeout, &cfg.ReadyTimeout},
		{"settle-time", o.SettleTime, &cfg.SettleTime},
		{"grace-period", o.GracePeriod, &cfg.GracePeriod},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		v, err := time.ParseDuration(d.value)
		if err != nil {
			return cfg, fmt.Errorf("%s: %w", d.name, err)
		}
		*d.dst = v
	}
	return cfg, nil
}

// Enumerator builds the cached device enumerator for this platform.
func (o *Options) Enumerator(bus *events.Bus) *devices.Cached {
	var enum devices.Enumerator = devices.NewEnumerator(runtime.GOOS, binaryPath(o.TranscoderBinary))
	if o.TestSource {
		enum = devices.WithTestSource(enum)
	}
	ttl, err := time.ParseDuration(o.DeviceCacheTTL)
	if err != nil {
		ttl = devices.DefaultCacheTTL
	}
	return devices.NewCached(enum, ttl, bus)
}

// SettingsStore opens the settings file, defaulting to the XDG config dir.
func (o *Options) SettingsStore() (*config.SettingsStore, error) {
	path := o.SettingsFile
	if path == "" {
		var err error
		if path, err = config.DefaultSettingsPath(); err != nil {
			return nil, err
		}
	}
	return config.NewSettingsStore(path), nil
}

// savedSelection returns the stored selection, or the zero config when there
// is none or it cannot be read.
func savedSelection(store *config.SettingsStore) stream.Config {
	settings, err := store.Load()
	if err != nil {
		logging.GetLogger("launcher").Warn("Ignoring unreadable settings", "path", store.Path(), "error", err)
		return stream.Config{}
	}
	return settings.Selection
}

// binaryPath resolves a tool name with supervisor.LocateBinary. An
// unresolved name is kept so the spawn error names what was configured.
func binaryPath(name string) string {
	path, _ := supervisor.LocateBinary(name)
	return path
}

// ProxyList returns the configured trusted proxies.
func (o *Options) ProxyList() []string {
	return splitList(o.TrustedProxies)
}

// OriginList returns the configured CORS origins.
func (o *Options) OriginList() []string {
	return splitList(o.CORSOrigins)
}

func splitList(s string) []string {
	var out []string
	for item := range strings.SplitSeq(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
