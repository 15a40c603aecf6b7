package supervisor

import (
	"github.com/smazurov/rtspcam/internal/ffmpeg"
	"github.com/smazurov/rtspcam/internal/metrics"
)

// progressRecorder turns transcoder statistics lines into per-session gauges.
type progressRecorder struct {
	sessionID string
}

func (r progressRecorder) HandleLine(_, line string) {
	p, ok := ffmpeg.ParseProgress(line)
	if !ok {
		return
	}
	metrics.SetFFmpegFPS(r.sessionID, p.FPS)
	metrics.SetFFmpegDroppedFrames(r.sessionID, float64(p.Dropped))
	metrics.SetFFmpegDuplicateFrames(r.sessionID, float64(p.Dup))
	metrics.SetFFmpegSpeed(r.sessionID, p.Speed)
}
