package models

import "github.com/smazurov/rtspcam/internal/process"

// ChildData describes one supervised child process.
type ChildData struct {
	PID      int    `json:"pid" example:"4242" doc:"Process ID"`
	Status   string `json:"status" example:"running" enum:"starting,running,exited" doc:"Process status"`
	ExitCode int    `json:"exit_code" example:"0" doc:"Exit code, valid when status is exited"`
	Command  string `json:"command" doc:"Command line"`
}

// ChildFromHandle converts a process snapshot. A handle that never started
// returns nil.
func ChildFromHandle(h process.Handle) *ChildData {
	if h.PID == 0 && h.Status == "" {
		return nil
	}
	return &ChildData{
		PID:      h.PID,
		Status:   string(h.Status),
		ExitCode: h.ExitCode,
		Command:  h.Command,
	}
}

// ProgressData is the latest encoder progress reported by the transcoder.
type ProgressData struct {
	FPS             float64 `json:"fps" example:"30" doc:"Frames encoded per second"`
	Speed           float64 `json:"speed" example:"1" doc:"Encoding speed relative to real time"`
	DroppedFrames   float64 `json:"dropped_frames" doc:"Frames dropped since start"`
	DuplicateFrames float64 `json:"duplicate_frames" doc:"Frames duplicated since start"`
}

// SessionData is the launcher state plus the running session, if any.
type SessionData struct {
	State      string          `json:"state" example:"running" enum:"idle,starting,running,stopping,stopped,failed" doc:"Launcher lifecycle state"`
	SessionID  string          `json:"session_id,omitempty" doc:"Session identifier while running"`
	URL        string          `json:"url,omitempty" example:"rtsp://127.0.0.1:8554/live" doc:"RTSP connection string while running"`
	Pipeline   string          `json:"pipeline,omitempty" doc:"GStreamer consumer pipeline while running"`
	Selection  StreamSelection `json:"selection" doc:"Last submitted selection"`
	Server     *ChildData      `json:"server,omitempty" doc:"Media server process"`
	Transcoder *ChildData      `json:"transcoder,omitempty" doc:"Transcoder process"`
	Progress   *ProgressData   `json:"progress,omitempty" doc:"Encoder progress while running"`
	Error      string          `json:"error,omitempty" doc:"Why the last session failed"`
	ErrorKind  string          `json:"error_kind,omitempty" enum:"InvalidConfig,StartupTimeout,SessionCollapsed,TerminationFailure" doc:"Failure class of the last session"`
}

type SessionResponse struct {
	Body SessionData
}

type SessionRequest struct {
	Body StreamSelection
}
