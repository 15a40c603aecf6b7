package assembler

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/smazurov/rtspcam/internal/stream"
)

func validConfig() stream.Config {
	return stream.Config{
		DeviceID:   "cam0",
		Resolution: stream.Resolution{Width: 1280, Height: 720},
		FrameRate:  30,
		Bitrate:    2000,
		StreamPath: "live",
	}
}

func testOptions(platform string) Options {
	return Options{ConfigPath: "/tmp/rtspcam/mediamtx.yml", Platform: platform}
}

func TestRenderURL(t *testing.T) {
	plan, err := Render(validConfig(), testOptions("linux"))
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if plan.URL != "rtsp://127.0.0.1:8554/live" {
		t.Errorf("URL = %q, want rtsp://127.0.0.1:8554/live", plan.URL)
	}
	if got := plan.Transcoder.Args[len(plan.Transcoder.Args)-1]; got != plan.URL {
		t.Errorf("transcoder publishes to %q, want %q", got, plan.URL)
	}
	if !strings.HasPrefix(plan.Pipeline, "rtspsrc location=rtsp://127.0.0.1:8554/live ") {
		t.Errorf("Pipeline = %q", plan.Pipeline)
	}
}

func TestRenderServer(t *testing.T) {
	opts := testOptions("linux")
	opts.MediaMTXPath = "/usr/local/bin/mediamtx"
	opts.APIAddress = "127.0.0.1:9997"

	plan, err := Render(validConfig(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if plan.Server.Path != "/usr/local/bin/mediamtx" || !slices.Equal(plan.Server.Args, []string{opts.ConfigPath}) {
		t.Errorf("Server = %+v", plan.Server)
	}
	if plan.ServerConfig.RTSPAddress != "127.0.0.1:8554" {
		t.Errorf("RTSPAddress = %q", plan.ServerConfig.RTSPAddress)
	}
	if !plan.ServerConfig.API || plan.ServerConfig.APIAddress != opts.APIAddress {
		t.Errorf("API not configured: %+v", plan.ServerConfig)
	}
	if src := plan.ServerConfig.Paths["live"].Source; src != "publisher" {
		t.Errorf("path source = %q", src)
	}
}

func TestRenderTranscoderArgs(t *testing.T) {
	plan, err := Render(validConfig(), testOptions("windows"))
	if err != nil {
		t.Fatal(err)
	}
	args := strings.Join(plan.Transcoder.Args, " ")
	for _, want := range []string{
		"-f dshow -rtbufsize 100M -thread_queue_size 512",
		"-video_size 1280x720 -framerate 30 -i video=cam0",
		"-c:v libx264 -preset ultrafast -tune zerolatency",
		"-x264-params keyint=15:min-keyint=15:scenecut=-1",
		"-b:v 2000k -maxrate 2000k -bufsize 4000k",
		"-f rtsp -rtsp_transport tcp rtsp://127.0.0.1:8554/live",
	} {
		if !strings.Contains(args, want) {
			t.Errorf("transcoder args missing %q:\n%s", want, args)
		}
	}
}

func TestRenderPlatforms(t *testing.T) {
	tests := []struct {
		platform string
		device   string
		input    string
	}{
		{"linux", "video0", "/dev/video0"},
		{"linux", "usb-046d_HD_Pro_Webcam_C920-video-index0", "/dev/v4l/by-id/usb-046d_HD_Pro_Webcam_C920-video-index0"},
		{"linux", "/dev/video2", "/dev/video2"},
		{"darwin", "FaceTime HD Camera", "FaceTime HD Camera:none"},
		{"windows", "USB Camera", "video=USB Camera"},
		{"linux", TestSourceDevice, "testsrc2=size=1280x720:rate=30"},
	}
	for _, tt := range tests {
		t.Run(tt.platform+"/"+tt.device, func(t *testing.T) {
			cfg := validConfig()
			cfg.DeviceID = tt.device
			plan, err := Render(cfg, testOptions(tt.platform))
			if err != nil {
				t.Fatal(err)
			}
			i := slices.Index(plan.Transcoder.Args, "-i")
			if i == -1 || plan.Transcoder.Args[i+1] != tt.input {
				t.Errorf("input = %v, want %q", plan.Transcoder.Args, tt.input)
			}
		})
	}
}

func TestRenderDeterministic(t *testing.T) {
	a, err := Render(validConfig(), testOptions("linux"))
	if err != nil {
		t.Fatal(err)
	}
	b, err := Render(validConfig(), testOptions("linux"))
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(a.Transcoder.Args, b.Transcoder.Args) || a.Server.String() != b.Server.String() {
		t.Error("Render() is not deterministic")
	}
	ya, _ := a.ServerConfig.Marshal()
	yb, _ := b.ServerConfig.Marshal()
	if string(ya) != string(yb) {
		t.Error("server config is not deterministic")
	}
}

func TestRenderArgsAreBoundarySafe(t *testing.T) {
	cfg := validConfig()
	cfg.DeviceID = "Logitech BRIO (USB) & 'friends' $HOME;"
	plan, err := Render(cfg, testOptions("windows"))
	if err != nil {
		t.Fatal(err)
	}
	for _, arg := range plan.Transcoder.Args {
		if strings.ContainsAny(arg, "\x00\n\r") {
			t.Errorf("argument %q contains a control character", arg)
		}
	}
	if !slices.Contains(plan.Transcoder.Args, "video="+cfg.DeviceID) {
		t.Errorf("device id not passed verbatim: %v", plan.Transcoder.Args)
	}
}

func TestRenderInvalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*stream.Config)
	}{
		{"negative fps", func(c *stream.Config) { c.FrameRate = -1 }},
		{"negative bitrate", func(c *stream.Config) { c.Bitrate = -1 }},
		{"huge bitrate", func(c *stream.Config) { c.Bitrate = stream.MaxBitrate + 1 }},
		{"path with space", func(c *stream.Config) { c.StreamPath = "live stream" }},
		{"path with query", func(c *stream.Config) { c.StreamPath = "live?x=1" }},
		{"path traversal", func(c *stream.Config) { c.StreamPath = "a/../b" }},
		{"device with newline", func(c *stream.Config) { c.DeviceID = "cam\n0" }},
		{"bad port", func(c *stream.Config) { c.Port = 70000 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			_, err := Render(cfg, testOptions("linux"))
			if !errors.Is(err, stream.ErrInvalidConfig) {
				t.Errorf("Render() error = %v, want InvalidConfig", err)
			}
		})
	}

	if _, err := Render(validConfig(), Options{}); !errors.Is(err, stream.ErrInvalidConfig) {
		t.Errorf("Render() without config path error = %v, want InvalidConfig", err)
	}
}

func TestRenderZeroMeansDefault(t *testing.T) {
	cfg := validConfig()
	cfg.FrameRate = 0
	cfg.Bitrate = 0

	plan, err := Render(cfg, testOptions("linux"))
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if plan.Config.FrameRate != stream.DefaultFrameRate {
		t.Errorf("FrameRate = %d, want %d", plan.Config.FrameRate, stream.DefaultFrameRate)
	}
	if plan.Config.Bitrate != stream.DefaultBitrate {
		t.Errorf("Bitrate = %d, want %d", plan.Config.Bitrate, stream.DefaultBitrate)
	}
}

func TestRenderStripsLeadingSlash(t *testing.T) {
	cfg := validConfig()
	cfg.StreamPath = "/live/cam"
	plan, err := Render(cfg, testOptions("linux"))
	if err != nil {
		t.Fatal(err)
	}
	if plan.URL != "rtsp://127.0.0.1:8554/live/cam" {
		t.Errorf("URL = %q", plan.URL)
	}
	if _, ok := plan.ServerConfig.Paths["live/cam"]; !ok {
		t.Errorf("paths = %v", plan.ServerConfig.Paths)
	}
}

func TestListenAddress(t *testing.T) {
	tests := []struct {
		host string
		want string
	}{
		{"127.0.0.1", "127.0.0.1:8554"},
		{"::1", "[::1]:8554"},
		{"localhost", "localhost:8554"},
		{"192.168.1.20", ":8554"},
		{"camera.lan", ":8554"},
	}
	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			cfg := validConfig()
			cfg.Host = tt.host
			if got := ListenAddress(cfg); got != tt.want {
				t.Errorf("ListenAddress() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestInvocationString(t *testing.T) {
	inv := Invocation{Path: "ffmpeg", Args: []string{"-i", "video=USB Camera"}}
	if got := inv.String(); got != "ffmpeg -i 'video=USB Camera'" {
		t.Errorf("String() = %q", got)
	}
}
