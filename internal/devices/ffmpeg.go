package devices

import (
	"context"
	"errors"
	"fmt"
	"os/exec"

	"github.com/smazurov/rtspcam/internal/ffmpeg"
	"github.com/smazurov/rtspcam/internal/logging"
)

// FFmpegLister asks ffmpeg for the devices of one input format.
type FFmpegLister struct {
	Binary string // default "ffmpeg"
	Format ffmpeg.InputFormat
}

// List runs the device listing and parses its output.
func (l *FFmpegLister) List(ctx context.Context) ([]Descriptor, error) {
	binary := l.Binary
	if binary == "" {
		binary = "ffmpeg"
	}
	args := ffmpeg.ListDevicesArgs(l.Format)

	out, err := exec.CommandContext(ctx, binary, args...).CombinedOutput()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil {
		// The listing ends by failing to open the dummy input, so a non-zero
		// exit is expected. Anything else means ffmpeg did not run.
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("list %s devices: %w", l.Format, err)
		}
	}

	found := ffmpeg.ParseDeviceList(l.Format, string(out))
	devs := make([]Descriptor, 0, len(found))
	for _, d := range found {
		devs = append(devs, Descriptor{ID: d.ID, Label: d.Label})
	}
	logging.GetLogger("devices").Debug("Listed devices via ffmpeg", "format", l.Format, "count", len(devs))
	return devs, nil
}
