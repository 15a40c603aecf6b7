package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"github.com/smazurov/rtspcam/internal/launcher"
	"github.com/smazurov/rtspcam/internal/stream"
)

// selectionFlags are the per-command stream selection flags. Only flags the
// user set override the saved selection.
type selectionFlags struct {
	device     string
	resolution string
	fps        int
	bitrate    int
	path       string
	host       string
	port       int
}

func (f *selectionFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.device, "device", "d", "", "Capture device identifier (see the devices command)")
	fs.StringVarP(&f.resolution, "resolution", "r", "", "Capture size WIDTHxHEIGHT")
	fs.IntVar(&f.fps, "fps", 0, "Frames per second")
	fs.IntVar(&f.bitrate, "bitrate", 0, "Video bitrate in kbps")
	fs.StringVar(&f.path, "path", "", "RTSP stream path")
	fs.StringVar(&f.host, "rtsp-host", "", "Host the media server listens on")
	fs.IntVar(&f.port, "rtsp-port", 0, "RTSP port")
}

// apply overlays the flags the user set on base.
func (f *selectionFlags) apply(fs *pflag.FlagSet, base stream.Config) (stream.Config, error) {
	sel := base
	if fs.Changed("device") {
		sel.DeviceID = f.device
	}
	if fs.Changed("resolution") {
		res, err := stream.ParseResolution(f.resolution)
		if err != nil {
			return sel, err
		}
		sel.Resolution = res
	}
	if fs.Changed("fps") {
		sel.FrameRate = f.fps
	}
	if fs.Changed("bitrate") {
		sel.Bitrate = f.bitrate
	}
	if fs.Changed("path") {
		sel.StreamPath = f.path
	}
	if fs.Changed("rtsp-host") {
		sel.Host = f.host
	}
	if fs.Changed("rtsp-port") {
		sel.Port = f.port
	}
	return sel, nil
}

func printResult(w io.Writer, res *launcher.Result) {
	fmt.Fprintf(w, "Session:    %s\n", res.SessionID)
	fmt.Fprintf(w, "Stream URL: %s\n", res.URL)
	fmt.Fprintf(w, "GStreamer:  %s\n", res.Pipeline)
}
