package models

import (
	"github.com/smazurov/rtspcam/internal/ffmpeg"
	"github.com/smazurov/rtspcam/internal/stream"
)

// Health check models
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
}

type HealthResponse struct {
	Body HealthData
}

// Version models
type VersionData struct {
	Version   string `json:"version" example:"1.0.0" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"abc1234" doc:"Git commit hash"`
	BuildDate string `json:"build_date" example:"2025-01-27T10:30:00Z" doc:"Build timestamp"`
	GoVersion string `json:"go_version" example:"go1.24.11" doc:"Go runtime version"`
	Platform  string `json:"platform" example:"linux/arm64" doc:"Operating system and architecture"`
}

type VersionResponse struct {
	Body VersionData
}

// Options models
type OptionsData struct {
	Options []ffmpeg.Option `json:"options" doc:"Available FFmpeg options"`
}

type OptionsResponse struct {
	Body OptionsData
}

// StreamSelection is a stream configuration as sent and returned over the API.
type StreamSelection struct {
	DeviceID   string `json:"device_id" example:"/dev/video0" maxLength:"256" doc:"Capture device identifier as returned by /api/devices"`
	Resolution string `json:"resolution,omitempty" example:"1280x720" pattern:"^[0-9]+x[0-9]+$" doc:"Capture size WIDTHxHEIGHT"`
	FrameRate  int    `json:"fps,omitempty" example:"30" minimum:"0" doc:"Frames per second"`
	Bitrate    int    `json:"bitrate_kbps,omitempty" example:"2000" minimum:"0" doc:"Target video bitrate in kbps"`
	StreamPath string `json:"path,omitempty" example:"live" doc:"RTSP path the stream is published on"`
	Host       string `json:"host,omitempty" example:"127.0.0.1" doc:"Host the media server listens on"`
	Port       int    `json:"port,omitempty" example:"8554" minimum:"0" maximum:"65535" doc:"RTSP port"`
}

// ToConfig converts the selection to a stream.Config.
func (s StreamSelection) ToConfig() (stream.Config, error) {
	cfg := stream.Config{
		DeviceID:   s.DeviceID,
		FrameRate:  s.FrameRate,
		Bitrate:    s.Bitrate,
		StreamPath: s.StreamPath,
		Host:       s.Host,
		Port:       s.Port,
	}
	if s.Resolution != "" {
		res, err := stream.ParseResolution(s.Resolution)
		if err != nil {
			return stream.Config{}, err
		}
		cfg.Resolution = res
	}
	return cfg, nil
}

// SelectionFromConfig converts a stream.Config for output.
func SelectionFromConfig(cfg stream.Config) StreamSelection {
	sel := StreamSelection{
		DeviceID:   cfg.DeviceID,
		FrameRate:  cfg.FrameRate,
		Bitrate:    cfg.Bitrate,
		StreamPath: cfg.StreamPath,
		Host:       cfg.Host,
		Port:       cfg.Port,
	}
	if !cfg.Resolution.IsZero() {
		sel.Resolution = cfg.Resolution.String()
	}
	return sel
}

// Render models
type RenderRequest struct {
	Body StreamSelection
}

type RenderData struct {
	Config            StreamSelection `json:"config" doc:"Effective stream configuration with defaults applied"`
	URL               string          `json:"url" example:"rtsp://127.0.0.1:8554/live" doc:"RTSP connection string"`
	Pipeline          string          `json:"pipeline" doc:"GStreamer consumer pipeline"`
	ServerCommand     string          `json:"server_command" doc:"Media server command line"`
	TranscoderCommand string          `json:"transcoder_command" doc:"Transcoder command line"`
	ServerConfig      string          `json:"server_config" doc:"Media server YAML configuration"`
}

type RenderResponse struct {
	Body RenderData
}
