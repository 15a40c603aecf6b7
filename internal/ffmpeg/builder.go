package ffmpeg

import (
	"errors"
	"fmt"
	"strings"
)

// globalArgs precede every invocation. level+info prefixes each log line
// with its severity so ParseLogLevel can route it.
var globalArgs = []string{"-hide_banner", "-nostdin", "-loglevel", "level+info"}

// Path returns the executable the arguments from BuildArgs are meant for.
func (p *Params) Path() string {
	return p.binary()
}

// BuildArgs builds the ffmpeg argument vector from structured parameters.
// The executable itself is not included; see Path.
func BuildArgs(p *Params) ([]string, error) {
	if p.OutputURL == "" {
		return nil, errors.New("output URL is required")
	}
	if p.InputFormat != InputLavfi && p.Device == "" {
		return nil, errors.New("device is required")
	}
	if err := ValidateOptions(p.Options); err != nil {
		return nil, err
	}

	args := append([]string{}, globalArgs...)

	// Input configuration
	switch p.InputFormat {
	case InputLavfi:
		args = append(args, "-re", "-f", "lavfi", "-i", testSource(p))
	case InputDShow, InputAVFoundation, InputV4L2:
		args = append(args, "-f", string(p.InputFormat))
		args = append(args, inputArgs(p.Options, p.InputFormat)...)
		if p.Resolution != "" {
			args = append(args, "-video_size", p.Resolution)
		}
		if p.FPS > 0 {
			args = append(args, "-framerate", fmt.Sprint(p.FPS))
		}
		args = append(args, "-i", inputSpec(p.InputFormat, p.Device))
	default:
		return nil, fmt.Errorf("unsupported input format %q", p.InputFormat)
	}

	// Frame rate on the output side keeps the encoder cadence fixed
	// even when the device delivers jittery timestamps.
	if p.FPS > 0 {
		args = append(args, "-r", fmt.Sprint(p.FPS))
	}

	// Encoder
	encoder := p.Encoder
	if encoder == "" {
		encoder = DefaultEncoder
	}
	args = append(args, "-c:v", encoder)
	if p.Preset != "" {
		args = append(args, "-preset", p.Preset)
	}
	if p.Tune != "" {
		args = append(args, "-tune", p.Tune)
	}
	args = append(args, "-pix_fmt", "yuv420p")

	if p.GOP > 0 {
		if encoder == DefaultEncoder {
			args = append(args, "-x264-params", fmt.Sprintf("keyint=%d:min-keyint=%d:scenecut=-1", p.GOP, p.GOP))
		} else {
			args = append(args, "-g", fmt.Sprint(p.GOP))
		}
	}

	// Rate control
	if p.Bitrate > 0 {
		args = append(args,
			"-b:v", fmt.Sprintf("%dk", p.Bitrate),
			"-maxrate", fmt.Sprintf("%dk", p.Bitrate),
			"-bufsize", fmt.Sprintf("%dk", 2*p.Bitrate),
		)
	}

	args = append(args, outputArgs(p.Options, p.InputFormat)...)

	// Output configuration - detect format from URL
	if strings.HasPrefix(p.OutputURL, "rtsp://") {
		args = append(args, "-f", "rtsp", "-rtsp_transport", "tcp", p.OutputURL)
	} else {
		args = append(args, "-muxdelay", "0", "-muxpreload", "0", "-f", "mpegts", p.OutputURL)
	}

	return args, nil
}

// inputSpec renders the -i value in the syntax each demuxer expects.
func inputSpec(format InputFormat, device string) string {
	switch format {
	case InputDShow:
		if strings.HasPrefix(device, "video=") {
			return device
		}
		return "video=" + device
	case InputAVFoundation:
		// "<video>:<audio>"; audio capture is disabled.
		if strings.Contains(device, ":") {
			return device
		}
		return device + ":none"
	default:
		return device
	}
}

// testSource renders a lavfi test pattern sized like the requested capture.
func testSource(p *Params) string {
	size := p.Resolution
	if size == "" {
		size = "640x480"
	}
	rate := p.FPS
	if rate <= 0 {
		rate = 30
	}
	return fmt.Sprintf("testsrc2=size=%s:rate=%d", size, rate)
}
