// Package metrics provides Prometheus metrics for sessions, readiness probes
// and the transcoder.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ffmpegFPS = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "rtspcam",
		Subsystem: "ffmpeg",
		Name:      "fps",
		Help:      "Current FFmpeg encoding FPS",
	}, []string{"session_id"})

	ffmpegDroppedFrames = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "rtspcam",
		Subsystem: "ffmpeg",
		Name:      "dropped_frames",
		Help:      "Frames dropped by the transcoder since it started",
	}, []string{"session_id"})

	ffmpegDuplicateFrames = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "rtspcam",
		Subsystem: "ffmpeg",
		Name:      "duplicate_frames",
		Help:      "Frames duplicated by the transcoder since it started",
	}, []string{"session_id"})

	ffmpegSpeed = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "rtspcam",
		Subsystem: "ffmpeg",
		Name:      "processing_speed",
		Help:      "FFmpeg processing speed multiplier",
	}, []string{"session_id"})

	// Local cache for the session status endpoint.
	ffmpegCache   = make(map[string]*FFmpegSessionMetrics)
	ffmpegCacheMu sync.RWMutex
)

// FFmpegSessionMetrics holds current metric values for a session.
type FFmpegSessionMetrics struct {
	FPS             float64
	DroppedFrames   float64
	DuplicateFrames float64
	Speed           float64
}

// SetFFmpegFPS sets the current FPS for a session.
func SetFFmpegFPS(sessionID string, fps float64) {
	ffmpegFPS.WithLabelValues(sessionID).Set(fps)
	updateCache(sessionID, func(m *FFmpegSessionMetrics) { m.FPS = fps })
}

// SetFFmpegDroppedFrames sets the dropped frames count for a session.
func SetFFmpegDroppedFrames(sessionID string, count float64) {
	ffmpegDroppedFrames.WithLabelValues(sessionID).Set(count)
	updateCache(sessionID, func(m *FFmpegSessionMetrics) { m.DroppedFrames = count })
}

// SetFFmpegDuplicateFrames sets the duplicate frames count for a session.
func SetFFmpegDuplicateFrames(sessionID string, count float64) {
	ffmpegDuplicateFrames.WithLabelValues(sessionID).Set(count)
	updateCache(sessionID, func(m *FFmpegSessionMetrics) { m.DuplicateFrames = count })
}

// SetFFmpegSpeed sets the processing speed for a session.
func SetFFmpegSpeed(sessionID string, speed float64) {
	ffmpegSpeed.WithLabelValues(sessionID).Set(speed)
	updateCache(sessionID, func(m *FFmpegSessionMetrics) { m.Speed = speed })
}

// DeleteFFmpegMetrics removes all metrics for a session.
func DeleteFFmpegMetrics(sessionID string) {
	ffmpegFPS.DeleteLabelValues(sessionID)
	ffmpegDroppedFrames.DeleteLabelValues(sessionID)
	ffmpegDuplicateFrames.DeleteLabelValues(sessionID)
	ffmpegSpeed.DeleteLabelValues(sessionID)

	ffmpegCacheMu.Lock()
	delete(ffmpegCache, sessionID)
	ffmpegCacheMu.Unlock()
}

// GetFFmpegMetrics returns current metric values for a session.
func GetFFmpegMetrics(sessionID string) *FFmpegSessionMetrics {
	ffmpegCacheMu.RLock()
	defer ffmpegCacheMu.RUnlock()
	if m, ok := ffmpegCache[sessionID]; ok {
		dup := *m
		return &dup
	}
	return nil
}

func updateCache(sessionID string, update func(*FFmpegSessionMetrics)) {
	ffmpegCacheMu.Lock()
	defer ffmpegCacheMu.Unlock()
	m, ok := ffmpegCache[sessionID]
	if !ok {
		m = &FFmpegSessionMetrics{}
		ffmpegCache[sessionID] = m
	}
	update(m)
}
