package process

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/smazurov/rtspcam/internal/logging"
)

// OutputHandler receives output lines from the subprocess.
type OutputHandler interface {
	HandleLine(source, line string)
}

// LogParser parses a log line and returns the log level and message.
// Used to extract structured log info from process output (ffmpeg, mediamtx).
type LogParser func(line string) (level, msg string)

var (
	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("process already started")
	// ErrKillTimeout is returned by Stop when the child survives the forced kill.
	ErrKillTimeout = errors.New("process did not exit after kill signal")
)

// Option configures a Process.
type Option func(*Process)

// WithLogParser sets the logger and parser used for process output.
// The logger is used for process output (e.g., module="ffmpeg").
func WithLogParser(logger logging.Logger, parser LogParser) Option {
	return func(p *Process) {
		p.processLogger = logger
		p.logParser = parser
	}
}

// WithOutputHandler forwards every output line to h.
func WithOutputHandler(h OutputHandler) Option {
	return func(p *Process) { p.outputHandler = h }
}

// WithTimeouts overrides the graceful shutdown and post-kill timeouts.
func WithTimeouts(graceful, kill time.Duration) Option {
	return func(p *Process) {
		p.gracefulTimeout = graceful
		p.killTimeout = kill
	}
}

// WithStateChange registers fn to receive a snapshot after every status change.
// fn is called without internal locks held.
func WithStateChange(fn func(Handle)) Option {
	return func(p *Process) { p.onStateChange = fn }
}

// WithTailSize sets how many output lines Tail can return.
func WithTailSize(n int) Option {
	return func(p *Process) { p.tail = newTail(n) }
}

// Process manages the lifecycle of a subprocess.
type Process struct {
	id              string
	path            string
	args            []string
	logger          logging.Logger
	processLogger   logging.Logger // logger for process output (nil = use logger)
	logParser       LogParser      // parses process output for log level (nil = no parsing)
	outputHandler   OutputHandler
	onStateChange   func(Handle)
	gracefulTimeout time.Duration // timeout for graceful shutdown before force kill
	killTimeout     time.Duration // timeout after kill before giving up
	tail            *tail

	mu       sync.Mutex
	cmd      *exec.Cmd
	handle   Handle
	started  bool
	stopping bool
	done     chan struct{}
}

// New creates a process that is not yet started.
func New(id, path string, args []string, logger logging.Logger, opts ...Option) *Process {
	p := &Process{
		id:              id,
		path:            path,
		args:            append([]string(nil), args...),
		logger:          logger,
		gracefulTimeout: 5 * time.Second,
		killTimeout:     5 * time.Second,
		done:            make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.tail == nil {
		p.tail = newTail(DefaultTailSize)
	}
	p.handle = Handle{ID: id, Command: p.commandLine()}
	return p
}

// ID returns the identifier given to New.
func (p *Process) ID() string {
	return p.id
}

// Handle returns a snapshot of the process.
func (p *Process) Handle() Handle {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.handle
}

// Done is closed once the child has exited and its output is drained.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// StopRequested reports whether Stop was called.
func (p *Process) StopRequested() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopping
}

// Tail returns up to n of the most recent output lines, oldest first.
// n <= 0 returns everything retained.
func (p *Process) Tail(n int) []string {
	return p.tail.last(n)
}

// Start spawns the child and moves it to StatusStarting.
func (p *Process) Start() error {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return ErrAlreadyStarted
	}
	p.started = true

	cmd := exec.Command(p.path, p.args...)
	setProcGroup(cmd)

	// exec copies into the pipe writers; Wait returns at most WaitDelay after
	// exit even when a grandchild keeps the descriptors open.
	stdoutR, stdoutW := io.Pipe()
	stderrR, stderrW := io.Pipe()
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW
	cmd.WaitDelay = time.Second

	if err := cmd.Start(); err != nil {
		p.mu.Unlock()
		stdoutW.Close()
		stderrW.Close()
		p.logger.Error("Failed to start process", "id", p.id, "error", err, "command", p.handle.Command)
		p.finish(-1)
		return fmt.Errorf("start %s: %w", p.path, err)
	}

	p.cmd = cmd
	p.handle.PID = cmd.Process.Pid
	p.handle.StartedAt = time.Now()
	p.handle.Status = StatusStarting
	snapshot := p.handle
	p.mu.Unlock()

	p.logger.Info("Process started", "id", p.id, "pid", snapshot.PID, "command", snapshot.Command)
	p.notify(snapshot)

	// Stream output in separate goroutines
	var outputDone sync.WaitGroup
	outputDone.Add(2)
	go func() {
		defer outputDone.Done()
		p.streamOutput(stdoutR, "stdout")
	}()
	go func() {
		defer outputDone.Done()
		p.streamOutput(stderrR, "stderr")
	}()

	go func() {
		err := cmd.Wait()
		stdoutW.Close()
		stderrW.Close()
		outputDone.Wait()
		p.handleProcessExit(err, cmd.ProcessState)
	}()

	return nil
}

// MarkRunning moves a starting process to StatusRunning.
// It reports false if the process is not in StatusStarting.
func (p *Process) MarkRunning() bool {
	p.mu.Lock()
	if p.handle.Status != StatusStarting {
		p.mu.Unlock()
		return false
	}
	p.handle.Status = StatusRunning
	snapshot := p.handle
	p.mu.Unlock()

	p.notify(snapshot)
	return true
}

// Stop sends SIGINT to the process group, waits for the graceful timeout,
// then kills the group. It returns ErrKillTimeout if the child still has not
// exited after the kill timeout. Calling Stop on an exited or never started
// process returns nil.
func (p *Process) Stop() error {
	p.mu.Lock()
	p.stopping = true
	cmd := p.cmd
	exited := p.handle.Status == StatusExited
	p.mu.Unlock()

	if cmd == nil {
		return nil
	}
	if exited {
		// Let the exit notification finish before reporting the child gone.
		<-p.done
		return nil
	}

	p.logger.Info("Sending SIGINT to process", "id", p.id, "pid", cmd.Process.Pid)
	if err := interrupt(cmd); err != nil && !errors.Is(err, os.ErrProcessDone) {
		p.logger.Warn("Failed to send SIGINT", "id", p.id, "error", err)
	}

	select {
	case <-p.done:
		return nil
	case <-time.After(p.gracefulTimeout):
	}

	p.logger.Warn("Graceful shutdown timeout, forcing kill", "id", p.id, "timeout", p.gracefulTimeout)
	if err := kill(cmd); err != nil && !errors.Is(err, os.ErrProcessDone) {
		p.logger.Error("Failed to kill process", "id", p.id, "error", err)
	}

	select {
	case <-p.done:
		return nil
	case <-time.After(p.killTimeout):
		p.logger.Error("Process did not exit after kill signal", "id", p.id, "pid", cmd.Process.Pid)
		return fmt.Errorf("%s (pid %d): %w", p.id, cmd.Process.Pid, ErrKillTimeout)
	}
}

// handleProcessExit records the exit code and closes Done.
func (p *Process) handleProcessExit(waitErr error, state *os.ProcessState) {
	code := exitCode(state)
	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) && !errors.Is(waitErr, exec.ErrWaitDelay) {
		p.logger.Error("Process exited with error", "id", p.id, "error", waitErr)
	}
	p.logger.Info("Process exited", "id", p.id, "exit_code", code)
	p.finish(code)
}

func (p *Process) finish(code int) {
	p.mu.Lock()
	p.handle.Status = StatusExited
	p.handle.ExitCode = code
	p.handle.ExitedAt = time.Now()
	snapshot := p.handle
	p.mu.Unlock()

	p.notify(snapshot)
	close(p.done)
}

func (p *Process) notify(h Handle) {
	if p.onStateChange != nil {
		p.onStateChange(h)
	}
}

// streamOutput streams output from the subprocess.
// Uses the configured processLogger (or falls back to default logger).
// Uses the configured LogParser to extract log levels from process output.
func (p *Process) streamOutput(reader io.Reader, source string) {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	scanner.Split(scanLines)

	// Use process logger if configured, otherwise fall back to default logger
	logger := p.processLogger
	if logger == nil {
		logger = p.logger
	}

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		p.tail.add(line)

		if p.outputHandler != nil {
			p.outputHandler.HandleLine(source, line)
		}

		// Use configured parser or default to info level
		level, msg := "info", line
		if p.logParser != nil {
			level, msg = p.logParser(line)
		}

		switch level {
		case "panic", "fatal", "error":
			logger.Error(msg)
		case "warning", "warn":
			logger.Warn(msg)
		case "verbose", "debug", "trace":
			logger.Debug(msg)
		default:
			logger.Info(msg)
		}
	}

	if err := scanner.Err(); err != nil {
		p.logger.Warn("Error reading output", "id", p.id, "source", source, "error", err)
		_, _ = io.Copy(io.Discard, reader)
	}
}

// scanLines is bufio.ScanLines that also breaks on a bare carriage return,
// which ffmpeg uses to redraw its statistics line.
func scanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// commandLine renders the invocation for logs and snapshots.
func (p *Process) commandLine() string {
	return strings.Join(append([]string{p.path}, p.args...), " ")
}
