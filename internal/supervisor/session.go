package supervisor

import (
	"context"
	"iter"
	"sync"
	"time"

	"github.com/smazurov/rtspcam/internal/assembler"
	"github.com/smazurov/rtspcam/internal/process"
	"github.com/smazurov/rtspcam/internal/stream"
)

// Role identifies a child within a session.
type Role string

// Session children.
const (
	RoleServer     Role = "server"
	RoleTranscoder Role = "transcoder"
)

// StatusEvent is one status transition of a session child.
type StatusEvent struct {
	Seq       int            `json:"seq"`
	SessionID string         `json:"session_id"`
	Role      Role           `json:"role"`
	Status    process.Status `json:"status"`
	PID       int            `json:"pid"`
	ExitCode  int            `json:"exit_code"`
	Time      time.Time      `json:"time"`

	// Unexpected is set on an exit nobody asked for. Output then holds the
	// child's last output lines.
	Unexpected bool     `json:"unexpected,omitempty"`
	Output     []string `json:"output,omitempty"`
}

type phase int

const (
	phaseStarting phase = iota
	phaseRunning
	phaseEnded
)

// Session is one supervised media server and transcoder pair.
type Session struct {
	ID        string
	Config    stream.Config
	Plan      *assembler.Plan
	StartedAt time.Time

	mu            sync.Mutex
	phase         phase
	server        *process.Process
	transcoder    *process.Process
	history       []StatusEvent
	changed       chan struct{} // closed and replaced on every history append
	stopRequested bool          // StopSession was called
	tearingDown   bool          // a stop or collapse owns the teardown
	err           error         // why the session ended, nil after a clean stop
	done          chan struct{}
}

func newSession(id string, plan *assembler.Plan) *Session {
	return &Session{
		ID:        id,
		Config:    plan.Config,
		Plan:      plan,
		StartedAt: time.Now(),
		changed:   make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// URL is the RTSP connection string of the session.
func (s *Session) URL() string {
	return s.Plan.URL
}

// Server returns a snapshot of the media server, or a zero Handle before it exists.
func (s *Session) Server() process.Handle {
	return s.handle(RoleServer)
}

// Transcoder returns a snapshot of the transcoder, or a zero Handle before it exists.
func (s *Session) Transcoder() process.Handle {
	return s.handle(RoleTranscoder)
}

func (s *Session) handle(role Role) process.Handle {
	if p := s.proc(role); p != nil {
		return p.Handle()
	}
	return process.Handle{}
}

func (s *Session) proc(role Role) *process.Process {
	s.mu.Lock()
	defer s.mu.Unlock()
	if role == RoleServer {
		return s.server
	}
	return s.transcoder
}

func (s *Session) setProc(role Role, p *process.Process) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if role == RoleServer {
		s.server = p
	} else {
		s.transcoder = p
	}
}

// Done is closed when the session has ended, by StopSession, a collapse or a failed start.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Err returns why the session ended. It is nil while the session runs and
// after a requested stop.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Running reports whether both children are up and no teardown started.
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase == phaseRunning && !s.tearingDown
}

// History returns a copy of every status event recorded so far.
func (s *Session) History() []StatusEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]StatusEvent(nil), s.history...)
}

// events yields the history from the start and then live events until the
// session ends or ctx is done.
func (s *Session) events(ctx context.Context) iter.Seq[StatusEvent] {
	return func(yield func(StatusEvent) bool) {
		next := 0
		for {
			s.mu.Lock()
			pending := append([]StatusEvent(nil), s.history[next:]...)
			changed := s.changed
			ended := s.phase == phaseEnded
			s.mu.Unlock()

			for _, ev := range pending {
				if !yield(ev) {
					return
				}
				next++
			}
			if ended {
				return
			}

			select {
			case <-ctx.Done():
				return
			case <-changed:
			}
		}
	}
}

// appendLocked adds ev to the history and wakes watchers. s.mu must be held.
func (s *Session) appendLocked(ev StatusEvent) StatusEvent {
	ev.Seq = len(s.history) + 1
	ev.SessionID = s.ID
	s.history = append(s.history, ev)
	close(s.changed)
	s.changed = make(chan struct{})
	return ev
}

// end marks the session finished. Only the first call has an effect.
func (s *Session) end(err error) (wasRunning bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == phaseEnded {
		return false
	}
	wasRunning = s.phase == phaseRunning
	s.phase = phaseEnded
	if s.err == nil {
		s.err = err
	}
	close(s.changed)
	s.changed = make(chan struct{})
	close(s.done)
	return wasRunning
}
