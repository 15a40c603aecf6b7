package supervisor

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/smazurov/rtspcam/internal/assembler"
	"github.com/smazurov/rtspcam/internal/events"
	"github.com/smazurov/rtspcam/internal/ffmpeg"
	"github.com/smazurov/rtspcam/internal/logging"
	"github.com/smazurov/rtspcam/internal/mediamtx"
	"github.com/smazurov/rtspcam/internal/metrics"
	"github.com/smazurov/rtspcam/internal/process"
	"github.com/smazurov/rtspcam/internal/retry"
	"github.com/smazurov/rtspcam/internal/stream"
)

// Supervisor starts, monitors and stops sessions.
type Supervisor struct {
	cfg    Config
	bus    *events.Bus
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// New creates a Supervisor. bus may be nil.
func New(cfg Config, bus *events.Bus) *Supervisor {
	return &Supervisor{
		cfg:      cfg.withDefaults(),
		bus:      bus,
		logger:   logging.GetLogger("supervisor"),
		sessions: make(map[string]*Session),
	}
}

// Config returns the effective configuration.
func (sv *Supervisor) Config() Config {
	return sv.cfg
}

// Render previews the plan StartSession would run for cfg.
func (sv *Supervisor) Render(cfg stream.Config) (*assembler.Plan, error) {
	return assembler.Render(cfg, sv.renderOptions(filepath.Join(sv.cfg.WorkDir, "mediamtx.yml")))
}

func (sv *Supervisor) renderOptions(configPath string) assembler.Options {
	return assembler.Options{
		FFmpegPath:    sv.cfg.FFmpegPath,
		MediaMTXPath:  sv.cfg.MediaMTXPath,
		ConfigPath:    configPath,
		APIAddress:    sv.cfg.APIAddress,
		Platform:      sv.cfg.Platform,
		FFmpegOptions: sv.cfg.FFmpegOptions,
		Preset:        sv.cfg.Preset,
		Tune:          sv.cfg.Tune,
	}
}

// StartSession renders cfg, starts the media server, waits until it accepts
// connections and then starts the transcoder.
//
// A media server that does not become ready in time is retried with backoff;
// after the last attempt the stream.ErrStartupTimeout error is returned. No
// transcoder is started for a failed attempt. Cancelling ctx aborts the start
// and stops whatever was already running.
func (sv *Supervisor) StartSession(ctx context.Context, cfg stream.Config) (*Session, error) {
	begin := time.Now()
	id := uuid.NewString()

	plan, err := assembler.Render(cfg, sv.renderOptions(filepath.Join(sv.cfg.WorkDir, "mediamtx-"+id+".yml")))
	if err != nil {
		metrics.RecordSessionStart(resultLabel(err))
		return nil, err
	}

	s := newSession(id, plan)
	logger := sv.logger.With("session_id", id)
	logger.Info("Starting session", "url", plan.URL, "device", plan.Config.DeviceID)

	if err := sv.writeServerConfig(plan); err != nil {
		s.end(err)
		metrics.RecordSessionStart(resultLabel(err))
		return nil, err
	}

	err = retry.Do(ctx, sv.startupRetry(logger), func(attempt int) error {
		return sv.startServer(ctx, s, attempt)
	})
	if err == nil {
		err = sv.startTranscoder(ctx, s)
	}

	if err != nil {
		err = sv.abort(s, err)
		metrics.RecordSessionStart(resultLabel(err))
		logger.Error("Session failed to start", "error", err)
		return nil, err
	}

	sv.mu.Lock()
	sv.sessions[s.ID] = s
	sv.mu.Unlock()

	metrics.RecordSessionStart("ok")
	metrics.ObserveStartup(time.Since(begin))
	logger.Info("Session running", "url", plan.URL, "startup", time.Since(begin))
	return s, nil
}

// StopSession stops the transcoder and then the media server, escalating to
// a forced kill when a child ignores the graceful signal. A child that
// survives the kill is reported as stream.ErrTerminationFailure. Calling
// StopSession again returns nil.
func (sv *Supervisor) StopSession(s *Session) error {
	s.mu.Lock()
	if s.stopRequested {
		s.mu.Unlock()
		return nil
	}
	s.stopRequested = true
	owner := !s.tearingDown
	s.tearingDown = true
	s.mu.Unlock()

	if !owner {
		// A collapse is already tearing the session down.
		<-s.done
		return nil
	}

	sv.logger.Info("Stopping session", "session_id", s.ID)
	err := sv.stopChildren(s)
	sv.finish(s, err)
	return err
}

// Watch returns the status transitions of both children of s. Each
// iteration replays the history from the beginning and then follows live
// transitions until the session ends or ctx is done.
func (sv *Supervisor) Watch(ctx context.Context, s *Session) iter.Seq[StatusEvent] {
	return s.events(ctx)
}

// Sessions returns the running sessions.
func (sv *Supervisor) Sessions() []*Session {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	out := make([]*Session, 0, len(sv.sessions))
	for _, s := range sv.sessions {
		out = append(out, s)
	}
	return out
}

// Shutdown stops every running session.
func (sv *Supervisor) Shutdown() error {
	var errs []error
	for _, s := range sv.Sessions() {
		if err := sv.StopSession(s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (sv *Supervisor) writeServerConfig(plan *assembler.Plan) error {
	if err := os.MkdirAll(filepath.Dir(plan.ConfigPath), 0o750); err != nil {
		return fmt.Errorf("create work dir: %w", err)
	}
	if err := plan.ServerConfig.WriteToFile(plan.ConfigPath); err != nil {
		return fmt.Errorf("write media server config: %w", err)
	}
	return nil
}

func (sv *Supervisor) startServer(ctx context.Context, s *Session, attempt int) error {
	if err := checkPortFree(assembler.ListenAddress(s.Config)); err != nil {
		return stream.NewError(stream.KindStartupTimeout, fmt.Sprintf("rtsp port %d unavailable", s.Config.Port), err)
	}

	proc := sv.newProcess(s, RoleServer, s.Plan.Server)
	s.setProc(RoleServer, proc)

	sv.logger.Info("Starting media server", "session_id", s.ID, "attempt", attempt, "config", s.Plan.ConfigPath)
	if err := proc.Start(); err != nil {
		return fmt.Errorf("start media server: %w", err)
	}

	if err := sv.waitReady(ctx, s, proc); err != nil {
		if stopErr := sv.stopChild(RoleServer, proc); stopErr != nil {
			return errors.Join(err, stopErr)
		}
		return err
	}

	proc.MarkRunning()
	return nil
}

func (sv *Supervisor) startTranscoder(ctx context.Context, s *Session) error {
	proc := sv.newProcess(s, RoleTranscoder, s.Plan.Transcoder)
	s.setProc(RoleTranscoder, proc)

	// From here on an unexpected exit of either child collapses the session.
	s.mu.Lock()
	s.phase = phaseRunning
	s.mu.Unlock()
	metrics.SessionActive(1)

	sv.logger.Info("Starting transcoder", "session_id", s.ID, "command", s.Plan.Transcoder.String())
	if err := proc.Start(); err != nil {
		return fmt.Errorf("start transcoder: %w", err)
	}
	proc.MarkRunning()

	if sv.cfg.SettleTime <= 0 {
		return nil
	}
	timer := time.NewTimer(sv.cfg.SettleTime)
	defer timer.Stop()
	select {
	case <-s.done:
		return s.Err()
	case <-ctx.Done():
		return fmt.Errorf("startup cancelled: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

// abort tears down a session whose start failed and returns the error to report.
func (sv *Supervisor) abort(s *Session, cause error) error {
	s.mu.Lock()
	owner := !s.tearingDown
	s.tearingDown = true
	s.mu.Unlock()

	if !owner {
		// The transcoder collapsed while settling; the collapse owns teardown.
		<-s.done
		if err := s.Err(); err != nil {
			return err
		}
		return cause
	}

	if stopErr := sv.stopChildren(s); stopErr != nil {
		cause = errors.Join(cause, stopErr)
	}
	sv.finish(s, cause)
	return cause
}

// collapse stops the surviving child after role exited unexpectedly.
func (sv *Supervisor) collapse(s *Session, role Role, ev StatusEvent) {
	msg := fmt.Sprintf("%s exited with code %d", role, ev.ExitCode)
	if last := lastLine(ev.Output); last != "" {
		msg += ": " + last
	}
	err := stream.NewError(stream.KindSessionCollapsed, msg, nil)

	sv.logger.Error("Session collapsed", "session_id", s.ID, "role", role, "exit_code", ev.ExitCode,
		"output", strings.Join(ev.Output, "\n"))
	metrics.RecordCollapse(string(role))
	sv.publish(events.SessionCollapsedEvent{
		SessionID: s.ID,
		Role:      string(role),
		ExitCode:  ev.ExitCode,
		Output:    ev.Output,
		Timestamp: ev.Time.Format(time.RFC3339),
	})

	var collapseErr error = err
	if stopErr := sv.stopChildren(s); stopErr != nil {
		collapseErr = errors.Join(err, stopErr)
	}
	sv.finish(s, collapseErr)
}

// stopChildren stops the transcoder and then the media server.
func (sv *Supervisor) stopChildren(s *Session) error {
	var errs []error
	for _, role := range []Role{RoleTranscoder, RoleServer} {
		if proc := s.proc(role); proc != nil {
			if err := sv.stopChild(role, proc); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (sv *Supervisor) stopChild(role Role, proc *process.Process) error {
	if err := proc.Stop(); err != nil {
		metrics.RecordTerminationFailure(string(role))
		sv.logger.Error("Child survived forced kill", "role", role, "pid", proc.Handle().PID, "error", err)
		return stream.NewError(stream.KindTerminationFailure, fmt.Sprintf("%s pid %d", role, proc.Handle().PID), err)
	}
	return nil
}

// finish ends s and releases everything it held.
func (sv *Supervisor) finish(s *Session, err error) {
	if s.end(err) {
		metrics.SessionActive(-1)
	}
	metrics.DeleteFFmpegMetrics(s.ID)

	if rmErr := os.Remove(s.Plan.ConfigPath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
		sv.logger.Warn("Failed to remove media server config", "path", s.Plan.ConfigPath, "error", rmErr)
	}

	sv.mu.Lock()
	delete(sv.sessions, s.ID)
	sv.mu.Unlock()
}

// startupRetry bounds media server startup. Only readiness timeouts are
// retried; a child that exits or fails to spawn ends the session at once.
func (sv *Supervisor) startupRetry(logger *slog.Logger) retry.Config {
	cfg := retry.DefaultConfig()
	cfg.MaxAttempts = sv.cfg.StartupAttempts
	cfg.InitialDelay = sv.cfg.RetryDelay
	cfg.MaxDelay = 8 * sv.cfg.RetryDelay
	cfg.Retryable = retry.RetryableErrors(stream.ErrStartupTimeout)
	cfg.OnRetry = func(attempt int, delay time.Duration, err error) {
		logger.Warn("Media server not ready, retrying", "attempt", attempt, "delay", delay, "error", err)
	}
	return cfg
}

func (sv *Supervisor) newProcess(s *Session, role Role, inv assembler.Invocation) *process.Process {
	var proc *process.Process
	opts := []process.Option{
		process.WithTimeouts(sv.cfg.GracePeriod, sv.cfg.KillTimeout),
		process.WithTailSize(sv.cfg.CollapseTail),
		process.WithStateChange(func(h process.Handle) {
			sv.onStateChange(s, role, proc, h)
		}),
	}

	switch role {
	case RoleServer:
		opts = append(opts, process.WithLogParser(logging.GetLogger("mediamtx"), mediamtx.ParseLogLevel))
	case RoleTranscoder:
		opts = append(opts,
			process.WithLogParser(logging.GetLogger("ffmpeg"), ffmpeg.ParseLogLevel),
			process.WithOutputHandler(progressRecorder{sessionID: s.ID}),
		)
	}

	proc = process.New(string(role), inv.Path, inv.Args, sv.logger.With("session_id", s.ID), opts...)
	return proc
}

// onStateChange records a child transition and starts a collapse when a
// running session loses a child nobody asked to stop.
func (sv *Supervisor) onStateChange(s *Session, role Role, proc *process.Process, h process.Handle) {
	ev := StatusEvent{
		Role:     role,
		Status:   h.Status,
		PID:      h.PID,
		ExitCode: h.ExitCode,
		Time:     time.Now(),
	}

	collapse := false
	if h.Status == process.StatusExited {
		requested := proc.StopRequested()
		metrics.RecordChildExit(string(role), requested)
		if !requested && h.PID != 0 {
			ev.Unexpected = true
			ev.Output = proc.Tail(sv.cfg.CollapseTail)
		}
	}

	s.mu.Lock()
	if ev.Unexpected && s.phase == phaseRunning && !s.tearingDown {
		s.tearingDown = true
		collapse = true
	}
	ev = s.appendLocked(ev)
	s.mu.Unlock()

	sv.publish(events.ProcessStateChangedEvent{
		SessionID: s.ID,
		Role:      string(role),
		PID:       h.PID,
		Status:    string(h.Status),
		ExitCode:  h.ExitCode,
		Timestamp: ev.Time.Format(time.RFC3339),
	})

	if collapse {
		go sv.collapse(s, role, ev)
	}
}

func (sv *Supervisor) publish(ev events.Event) {
	if sv.bus != nil {
		sv.bus.Publish(ev)
	}
}

// resultLabel is the metrics label for a StartSession outcome.
func resultLabel(err error) string {
	if kind := stream.KindOf(err); kind != "" {
		return string(kind)
	}
	return "error"
}

func lastLine(lines []string) string {
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
