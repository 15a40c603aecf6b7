package assembler

import (
	"fmt"
	"net"
	"net/netip"
	"runtime"
	"strconv"
	"strings"

	"github.com/smazurov/rtspcam/internal/ffmpeg"
	"github.com/smazurov/rtspcam/internal/mediamtx"
	"github.com/smazurov/rtspcam/internal/stream"
)

// TestSourceDevice selects the ffmpeg test pattern instead of a camera.
const TestSourceDevice = "testsrc"

// Options carries the environment-specific parts of a render.
type Options struct {
	FFmpegPath   string // default "ffmpeg"
	MediaMTXPath string // default "mediamtx"

	// ConfigPath is where the caller will write Plan.ServerConfig.
	ConfigPath string

	// APIAddress enables the media server control API when set.
	APIAddress string

	// Platform selects the capture demuxer. Defaults to runtime.GOOS.
	Platform string

	// FFmpegOptions defaults to ffmpeg.GetDefaultOptions().
	FFmpegOptions []ffmpeg.OptionType

	Preset string // default "ultrafast"
	Tune   string // default "zerolatency"
}

// Invocation is an executable plus its argument vector.
type Invocation struct {
	Path string   `json:"path"`
	Args []string `json:"args"`
}

// String renders the invocation as a shell-quoted preview.
func (i Invocation) String() string {
	return ffmpeg.FormatCommand(i.Path, i.Args)
}

// Plan is the rendered form of a stream.Config.
type Plan struct {
	Config       stream.Config
	Server       Invocation
	Transcoder   Invocation
	ServerConfig *mediamtx.Config
	ConfigPath   string
	URL          string
	Pipeline     string
}

// Render validates cfg and renders the session plan.
// Defaults are applied first, so a zero FrameRate or Bitrate streams at
// stream.DefaultFrameRate or stream.DefaultBitrate while a negative one is
// rejected. Validation failures are returned as stream.ErrInvalidConfig.
func Render(cfg stream.Config, opts Options) (*Plan, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.ConfigPath == "" {
		return nil, stream.NewError(stream.KindInvalidConfig, "media server config path is required", nil)
	}

	serverCfg := mediamtx.NewConfig(ListenAddress(cfg), opts.APIAddress)
	if err := serverCfg.AddStream(cfg.StreamPath); err != nil {
		return nil, stream.NewError(stream.KindInvalidConfig, "media server path", err)
	}

	params := transcoderParams(cfg, opts)
	args, err := ffmpeg.BuildArgs(params)
	if err != nil {
		return nil, stream.NewError(stream.KindInvalidConfig, "transcoder arguments", err)
	}

	return &Plan{
		Config: cfg,
		Server: Invocation{
			Path: defaultString(opts.MediaMTXPath, "mediamtx"),
			Args: []string{opts.ConfigPath},
		},
		Transcoder:   Invocation{Path: params.Path(), Args: args},
		ServerConfig: serverCfg,
		ConfigPath:   opts.ConfigPath,
		URL:          cfg.URL(),
		Pipeline:     GStreamerPipeline(cfg),
	}, nil
}

// URL returns the RTSP connection string for cfg.
func URL(cfg stream.Config) string {
	return cfg.WithDefaults().URL()
}

// GStreamerPipeline renders a low-latency consumer pipeline for cfg that
// decodes into BGRA frames on an appsink named "outsink".
func GStreamerPipeline(cfg stream.Config) string {
	return fmt.Sprintf("rtspsrc location=%s udp-reconnect=1 timeout=0 do-retransmission=false ! "+
		"application/x-rtp ! decodebin3 ! queue max-size-buffers=1 leaky=2 ! "+
		"videoconvert ! video/x-raw,format=BGRA ! appsink name=outsink sync=false", URL(cfg))
}

// ListenAddress is the media server's RTSP listen address. Loopback hosts
// keep the listener private; anything else binds all interfaces.
func ListenAddress(cfg stream.Config) string {
	cfg = cfg.WithDefaults()
	if addr, err := netip.ParseAddr(cfg.Host); err == nil && addr.IsLoopback() {
		return cfg.Address()
	}
	if cfg.Host == "localhost" {
		return cfg.Address()
	}
	return net.JoinHostPort("", strconv.Itoa(cfg.Port))
}

func transcoderParams(cfg stream.Config, opts Options) *ffmpeg.Params {
	format, device := captureInput(defaultString(opts.Platform, runtime.GOOS), cfg.DeviceID)

	options := opts.FFmpegOptions
	if options == nil {
		options = ffmpeg.GetDefaultOptions()
	}

	return &ffmpeg.Params{
		Binary:      opts.FFmpegPath,
		InputFormat: format,
		Device:      device,
		Resolution:  cfg.Resolution.String(),
		FPS:         cfg.FrameRate,
		Encoder:     ffmpeg.DefaultEncoder,
		Preset:      defaultString(opts.Preset, "ultrafast"),
		Tune:        defaultString(opts.Tune, "zerolatency"),
		Bitrate:     cfg.Bitrate,
		GOP:         max(1, cfg.FrameRate/2),
		OutputURL:   cfg.URL(),
		Options:     options,
	}
}

// captureInput maps a device id to the demuxer and input for the platform.
func captureInput(platform, deviceID string) (ffmpeg.InputFormat, string) {
	if deviceID == TestSourceDevice {
		return ffmpeg.InputLavfi, ""
	}
	switch platform {
	case "windows":
		return ffmpeg.InputDShow, deviceID
	case "darwin":
		return ffmpeg.InputAVFoundation, deviceID
	default:
		return ffmpeg.InputV4L2, DevicePath(deviceID)
	}
}

// DevicePath turns a V4L2 device id into a device node path.
// Stable by-id and by-path names are preferred over /dev/videoN.
func DevicePath(deviceID string) string {
	switch {
	case strings.HasPrefix(deviceID, "/"):
		return deviceID
	case strings.HasPrefix(deviceID, "usb-"):
		return "/dev/v4l/by-id/" + deviceID
	case strings.HasPrefix(deviceID, "platform-"), strings.HasPrefix(deviceID, "pci-"):
		return "/dev/v4l/by-path/" + deviceID
	default:
		return "/dev/" + deviceID
	}
}

func defaultString(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
