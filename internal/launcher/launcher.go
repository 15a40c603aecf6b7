// Package launcher is the front-end state machine: it lists devices, turns
// a selection into a supervised session and tracks that session's lifecycle.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/smazurov/rtspcam/internal/assembler"
	"github.com/smazurov/rtspcam/internal/devices"
	"github.com/smazurov/rtspcam/internal/events"
	"github.com/smazurov/rtspcam/internal/logging"
	"github.com/smazurov/rtspcam/internal/process"
	"github.com/smazurov/rtspcam/internal/stream"
	"github.com/smazurov/rtspcam/internal/supervisor"
)

// State is the launcher lifecycle state.
type State string

// Launcher states. Failed is entered from Starting or Running.
const (
	StateIdle     State = "idle"
	StateStarting State = "starting"
	StateRunning  State = "running"
	StateStopping State = "stopping"
	StateStopped  State = "stopped"
	StateFailed   State = "failed"
)

var (
	// ErrNoDevices is returned by Submit when no capture device is attached.
	ErrNoDevices = errors.New("no capture devices available")
	// ErrBusy is returned by Submit while a session is starting, running or stopping.
	ErrBusy = errors.New("a session is already active")
	// ErrAborted is returned by Submit when Stop interrupted the start.
	ErrAborted = errors.New("start aborted")
)

// Supervisor is the part of *supervisor.Supervisor the launcher drives.
type Supervisor interface {
	StartSession(ctx context.Context, cfg stream.Config) (*supervisor.Session, error)
	StopSession(s *supervisor.Session) error
	Render(cfg stream.Config) (*assembler.Plan, error)
}

// SettingsStore remembers the last successful selection.
type SettingsStore interface {
	Save(sel stream.Config) error
}

// Result describes a running session.
type Result struct {
	SessionID  string        `json:"session_id" doc:"Session identifier"`
	URL        string        `json:"url" example:"rtsp://127.0.0.1:8554/live" doc:"RTSP connection string"`
	Pipeline   string        `json:"pipeline" doc:"GStreamer consumer pipeline"`
	Config     stream.Config `json:"config" doc:"Effective stream configuration"`
	Server     string        `json:"server_command" doc:"Media server command line"`
	Transcoder string        `json:"transcoder_command" doc:"Transcoder command line"`
}

// Status is a snapshot of the launcher.
type Status struct {
	State      State          `json:"state" enum:"idle,starting,running,stopping,stopped,failed" doc:"Lifecycle state"`
	Result     *Result        `json:"result,omitempty" doc:"Current session, while running"`
	Server     process.Handle `json:"server,omitzero" doc:"Media server process"`
	Transcoder process.Handle `json:"transcoder,omitzero" doc:"Transcoder process"`
	Error      string         `json:"error,omitempty" doc:"Why the last session failed"`
	ErrorKind  stream.Kind    `json:"error_kind,omitempty" doc:"Failure class of the last session"`
	Selection  stream.Config  `json:"selection" doc:"Last submitted selection"`
}

// Launcher holds at most one session.
type Launcher struct {
	sup      Supervisor
	devices  devices.Enumerator
	settings SettingsStore
	bus      *events.Bus
	logger   *slog.Logger

	mu          sync.Mutex
	state       State
	session     *supervisor.Session
	result      *Result
	selection   stream.Config
	lastErr     error
	cancelStart context.CancelFunc
	startDone   chan struct{}
}

// Option configures a Launcher.
type Option func(*Launcher)

// WithSettings persists every successful selection to store.
func WithSettings(store SettingsStore) Option {
	return func(l *Launcher) { l.settings = store }
}

// WithSelection pre-fills the selection, typically restored from settings.
func WithSelection(sel stream.Config) Option {
	return func(l *Launcher) { l.selection = sel }
}

// WithEventBus publishes state changes on bus.
func WithEventBus(bus *events.Bus) Option {
	return func(l *Launcher) { l.bus = bus }
}

// New creates an idle launcher.
func New(sup Supervisor, enum devices.Enumerator, opts ...Option) *Launcher {
	l := &Launcher{
		sup:     sup,
		devices: enum,
		state:   StateIdle,
		logger:  logging.GetLogger("launcher"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// ListDevices returns the attached capture devices. No devices is an empty
// slice, not an error.
func (l *Launcher) ListDevices(ctx context.Context) ([]devices.Descriptor, error) {
	devs, err := l.devices.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	if devs == nil {
		devs = []devices.Descriptor{}
	}
	return devs, nil
}

// Render previews the commands a selection would run without starting anything.
func (l *Launcher) Render(sel stream.Config) (*assembler.Plan, error) {
	return l.sup.Render(sel)
}

// Submit starts a session for sel and blocks until it runs or fails.
// The supervisor is never invoked when no device is attached or sel is invalid.
func (l *Launcher) Submit(ctx context.Context, sel stream.Config) (*Result, error) {
	if l.busy() {
		return nil, ErrBusy
	}

	devs, err := l.ListDevices(ctx)
	if err != nil {
		return nil, err
	}
	if len(devs) == 0 {
		return nil, ErrNoDevices
	}

	cfg := sel.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !slices.ContainsFunc(devs, func(d devices.Descriptor) bool { return d.ID == cfg.DeviceID }) {
		return nil, stream.NewError(stream.KindInvalidConfig, fmt.Sprintf("device %q is not attached", cfg.DeviceID), nil)
	}

	l.mu.Lock()
	if l.isBusyLocked() {
		l.mu.Unlock()
		return nil, ErrBusy
	}
	startCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	l.cancelStart = cancel
	l.startDone = done
	l.selection = cfg
	l.lastErr = nil
	l.result = nil
	l.setStateLocked(StateStarting)
	l.mu.Unlock()

	defer close(done)
	defer cancel()

	l.logger.Info("Starting stream", "device", cfg.DeviceID, "url", cfg.URL())
	s, err := l.sup.StartSession(startCtx, cfg)

	l.mu.Lock()
	aborted := l.state == StateStopping
	if err != nil {
		if aborted {
			l.setStateLocked(StateStopped)
			l.mu.Unlock()
			return nil, errors.Join(ErrAborted, err)
		}
		l.lastErr = err
		l.setStateLocked(StateFailed)
		l.mu.Unlock()
		l.logger.Error("Stream failed to start", "error", err)
		return nil, err
	}
	if aborted {
		l.mu.Unlock()
		stopErr := l.sup.StopSession(s)
		l.mu.Lock()
		l.setStateLocked(StateStopped)
		l.mu.Unlock()
		return nil, errors.Join(ErrAborted, stopErr)
	}

	result := newResult(s)
	l.session = s
	l.result = result
	l.setStateLocked(StateRunning)
	l.mu.Unlock()

	if l.settings != nil {
		if err := l.settings.Save(cfg); err != nil {
			l.logger.Warn("Failed to save settings", "error", err)
		}
	}
	go l.watch(s)

	l.logger.Info("Stream running", "url", result.URL, "session_id", result.SessionID)
	return result, nil
}

// Stop ends the current session or aborts a start in progress. Stopping an
// idle launcher is a no-op.
func (l *Launcher) Stop(ctx context.Context) error {
	l.mu.Lock()
	switch l.state {
	case StateStarting:
		cancel, done := l.cancelStart, l.startDone
		l.setStateLocked(StateStopping)
		l.mu.Unlock()

		cancel()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}

	case StateRunning:
		s := l.session
		l.setStateLocked(StateStopping)
		l.mu.Unlock()

		err := l.sup.StopSession(s)

		l.mu.Lock()
		l.session = nil
		l.result = nil
		if err != nil {
			l.lastErr = err
			l.setStateLocked(StateFailed)
		} else {
			l.setStateLocked(StateStopped)
		}
		l.mu.Unlock()
		return err

	default:
		l.mu.Unlock()
		return nil
	}
}

// State returns the lifecycle state.
func (l *Launcher) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Status returns a snapshot of the launcher and its session.
func (l *Launcher) Status() Status {
	l.mu.Lock()
	st := Status{
		State:     l.state,
		Result:    l.result,
		Selection: l.selection,
	}
	if l.lastErr != nil {
		st.Error = l.lastErr.Error()
		st.ErrorKind = stream.KindOf(l.lastErr)
	}
	s := l.session
	l.mu.Unlock()

	if s != nil {
		st.Server = s.Server()
		st.Transcoder = s.Transcoder()
	}
	return st
}

// Session returns the running session, or nil.
func (l *Launcher) Session() *supervisor.Session {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.session
}

// watch moves a running launcher to Failed when its session collapses.
func (l *Launcher) watch(s *supervisor.Session) {
	<-s.Done()

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.session != s || l.state != StateRunning {
		return
	}
	l.session = nil
	l.result = nil
	if err := s.Err(); err != nil {
		l.lastErr = err
		l.setStateLocked(StateFailed)
		l.logger.Error("Stream stopped unexpectedly", "session_id", s.ID, "error", err)
		return
	}
	l.setStateLocked(StateStopped)
}

func (l *Launcher) busy() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.isBusyLocked()
}

func (l *Launcher) isBusyLocked() bool {
	switch l.state {
	case StateStarting, StateRunning, StateStopping:
		return true
	}
	return false
}

// setStateLocked records a transition and publishes it. l.mu must be held.
func (l *Launcher) setStateLocked(st State) {
	prev := l.state
	l.state = st
	l.logger.Debug("Launcher state changed", "from", prev, "to", st)

	if l.bus == nil {
		return
	}
	ev := events.SessionStateChangedEvent{
		State:     string(st),
		Timestamp: time.Now().Format(time.RFC3339),
	}
	if l.result != nil {
		ev.SessionID = l.result.SessionID
		ev.URL = l.result.URL
	}
	if st == StateFailed && l.lastErr != nil {
		ev.Error = l.lastErr.Error()
	}
	l.bus.Publish(ev)
}

func newResult(s *supervisor.Session) *Result {
	return &Result{
		SessionID:  s.ID,
		URL:        s.URL(),
		Pipeline:   s.Plan.Pipeline,
		Config:     s.Config,
		Server:     s.Plan.Server.String(),
		Transcoder: s.Plan.Transcoder.String(),
	}
}
