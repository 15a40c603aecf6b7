package process

import "time"

// Status represents the lifecycle stage of a child process.
type Status string

// Process statuses.
const (
	StatusStarting Status = "starting" // spawned, not yet confirmed usable
	StatusRunning  Status = "running"  // confirmed usable by the owner
	StatusExited   Status = "exited"   // terminated, ExitCode is valid
)

// Handle is a point-in-time snapshot of a Process.
type Handle struct {
	ID        string    `json:"id"`
	PID       int       `json:"pid"`
	Command   string    `json:"command"`
	StartedAt time.Time `json:"started_at"`
	Status    Status    `json:"status"`
	ExitCode  int       `json:"exit_code"`
	ExitedAt  time.Time `json:"exited_at,omitzero"`
}
