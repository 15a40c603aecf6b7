package ffmpeg

// InputFormat is the ffmpeg demuxer used to open the capture device.
type InputFormat string

// Supported capture demuxers.
const (
	InputDShow        InputFormat = "dshow"
	InputAVFoundation InputFormat = "avfoundation"
	InputV4L2         InputFormat = "v4l2"
	InputLavfi        InputFormat = "lavfi"
)

// Params represents all parameters needed to generate an ffmpeg transcoder invocation.
type Params struct {
	// Binary is the ffmpeg executable. Empty means "ffmpeg" from PATH.
	Binary string

	// Input Configuration
	InputFormat InputFormat
	Device      string // device name, index or path as the demuxer expects it
	Resolution  string // 640x480
	FPS         int

	// Encoder Configuration
	Encoder string // libx264
	Preset  string // ultrafast
	Tune    string // zerolatency
	Bitrate int    // kbps, 0 leaves rate control to the encoder
	GOP     int    // keyframe interval in frames

	// Output
	OutputURL string // rtsp://127.0.0.1:8554/live.stream

	// Behavior Options
	Options []OptionType
}

// DefaultEncoder is the software H.264 encoder used for all sessions.
const DefaultEncoder = "libx264"

// binary returns the executable name.
func (p *Params) binary() string {
	if p.Binary == "" {
		return "ffmpeg"
	}
	return p.Binary
}
