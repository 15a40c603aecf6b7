// Package devices enumerates capture devices for the launcher.
package devices

import (
	"context"
	"errors"
	"slices"

	"github.com/smazurov/rtspcam/internal/assembler"
	"github.com/smazurov/rtspcam/internal/ffmpeg"
)

// Descriptor is a capture device the user can pick.
type Descriptor struct {
	ID    string `json:"id" example:"usb-046d_HD_Pro_Webcam_C920_8E0F7E5F-video-index0" doc:"Identifier passed to the transcoder"`
	Label string `json:"label" example:"HD Pro Webcam C920" doc:"Human readable device name"`
}

// Enumerator lists the capture devices currently attached.
// An empty result is a non-nil slice and not an error.
type Enumerator interface {
	List(ctx context.Context) ([]Descriptor, error)
}

// Static is a fixed device list.
type Static []Descriptor

// List returns a copy of the list.
func (s Static) List(context.Context) ([]Descriptor, error) {
	return append([]Descriptor{}, s...), nil
}

// NewEnumerator returns the enumerator for platform ("windows", "darwin",
// anything else is treated as Linux). ffmpegPath defaults to "ffmpeg".
func NewEnumerator(platform, ffmpegPath string) Enumerator {
	switch platform {
	case "windows":
		return &FFmpegLister{Binary: ffmpegPath, Format: ffmpeg.InputDShow}
	case "darwin":
		return &FFmpegLister{Binary: ffmpegPath, Format: ffmpeg.InputAVFoundation}
	default:
		return Fallback(&SysfsLister{}, &FFmpegLister{Binary: ffmpegPath, Format: ffmpeg.InputV4L2})
	}
}

type fallback []Enumerator

// Fallback tries each enumerator in order and returns the first result that
// is not an error.
func Fallback(enums ...Enumerator) Enumerator {
	return fallback(enums)
}

func (f fallback) List(ctx context.Context) ([]Descriptor, error) {
	var errs []error
	for _, e := range f {
		devs, err := e.List(ctx)
		if err == nil {
			return devs, nil
		}
		errs = append(errs, err)
	}
	return nil, errors.Join(errs...)
}

type withTestSource struct {
	inner Enumerator
}

// WithTestSource appends the synthetic test pattern source to inner's devices.
func WithTestSource(inner Enumerator) Enumerator {
	return withTestSource{inner: inner}
}

func (w withTestSource) List(ctx context.Context) ([]Descriptor, error) {
	devs, err := w.inner.List(ctx)
	if err != nil {
		return nil, err
	}
	if slices.ContainsFunc(devs, func(d Descriptor) bool { return d.ID == assembler.TestSourceDevice }) {
		return devs, nil
	}
	return append(devs, Descriptor{ID: assembler.TestSourceDevice, Label: "Test pattern"}), nil
}
