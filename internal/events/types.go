package events

// Event type constants for kelindar/event.
const (
	TypeProcessStateChanged uint32 = iota + 1
	TypeSessionStateChanged
	TypeSessionCollapsed
	TypeDevicesListed
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// ProcessStateChangedEvent is published on every child status transition.
type ProcessStateChangedEvent struct {
	SessionID string `json:"session_id" example:"1f0c6c1e-8d0e-4c43-9d52-1f7c8ce0d7a4" doc:"Session identifier"`
	Role      string `json:"role" example:"server" enum:"server,transcoder" doc:"Which child changed"`
	PID       int    `json:"pid" example:"4242" doc:"Process ID"`
	Status    string `json:"status" example:"running" enum:"starting,running,exited" doc:"New process status"`
	ExitCode  int    `json:"exit_code" example:"0" doc:"Exit code, valid when status is exited"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for ProcessStateChangedEvent.
func (e ProcessStateChangedEvent) Type() uint32 { return TypeProcessStateChanged }

// SessionStateChangedEvent is published when the launcher changes lifecycle state.
type SessionStateChangedEvent struct {
	SessionID string `json:"session_id,omitempty" doc:"Session identifier, empty before a session exists"`
	State     string `json:"state" example:"running" doc:"New launcher state"`
	URL       string `json:"url,omitempty" example:"rtsp://127.0.0.1:8554/live.stream" doc:"Stream URL while running"`
	Error     string `json:"error,omitempty" doc:"Failure description when state is failed"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for SessionStateChangedEvent.
func (e SessionStateChangedEvent) Type() uint32 { return TypeSessionStateChanged }

// SessionCollapsedEvent is published when a child exits without a stop request
// and the supervisor tears the rest of the session down.
type SessionCollapsedEvent struct {
	SessionID string   `json:"session_id" doc:"Session identifier"`
	Role      string   `json:"role" example:"transcoder" doc:"Child that exited first"`
	ExitCode  int      `json:"exit_code" example:"1" doc:"Exit code of that child"`
	Output    []string `json:"output,omitempty" doc:"Last output lines of that child"`
	Timestamp string   `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for SessionCollapsedEvent.
func (e SessionCollapsedEvent) Type() uint32 { return TypeSessionCollapsed }

// DevicesListedEvent is published after a fresh (uncached) device enumeration.
type DevicesListedEvent struct {
	Count     int    `json:"count" example:"2" doc:"Number of capture devices found"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for DevicesListedEvent.
func (e DevicesListedEvent) Type() uint32 { return TypeDevicesListed }
