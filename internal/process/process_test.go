//go:build !windows

package process

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestProcess creates a shell process with short timeouts for testing.
func newTestProcess(script string, opts ...Option) *Process {
	opts = append([]Option{WithTimeouts(100*time.Millisecond, 100*time.Millisecond)}, opts...)
	return New("test", "sh", []string{"-c", script}, testLogger(), opts...)
}

// waitDone waits for the process to exit, fails test on timeout.
func waitDone(t *testing.T, p *Process, timeout time.Duration) Handle {
	t.Helper()
	select {
	case <-p.Done():
		return p.Handle()
	case <-time.After(timeout):
		t.Fatal("timeout waiting for process to exit")
		return Handle{}
	}
}

func TestGracefulShutdown(t *testing.T) {
	// Process that handles SIGINT
	p := newTestProcess("trap 'exit 0' INT TERM; while :; do sleep 0.1; done", WithTimeouts(500*time.Millisecond, 100*time.Millisecond))
	if err := p.Start(); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)

	if err := p.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if h := waitDone(t, p, time.Second); h.ExitCode != 0 {
		t.Errorf("expected exit code 0, got %d", h.ExitCode)
	}
}

func TestForceKillOnTimeout(t *testing.T) {
	// Process that ignores SIGINT; the ignore disposition is inherited by sleep
	p := newTestProcess("trap '' INT; sleep 10", WithTimeouts(50*time.Millisecond, 500*time.Millisecond))
	if err := p.Start(); err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)

	if err := p.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	// Process was killed, expect 137 (128 + 9 for SIGKILL)
	if h := waitDone(t, p, 500*time.Millisecond); h.ExitCode != 137 {
		t.Errorf("expected exit code 137, got %d", h.ExitCode)
	}
}

func TestStopIsFast(t *testing.T) {
	p := New("test", "sleep", []string{"10"}, testLogger())
	if err := p.Start(); err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)

	start := time.Now()
	if err := p.Stop(); err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed > 300*time.Millisecond {
		t.Errorf("shutdown took too long: %v", elapsed)
	}
	if h := p.Handle(); h.ExitCode != 128+int(syscall.SIGINT) {
		t.Errorf("expected exit code %d, got %d", 128+int(syscall.SIGINT), h.ExitCode)
	}
}

func TestProcessAlreadyExited(t *testing.T) {
	p := newTestProcess("true")
	if err := p.Start(); err != nil {
		t.Fatal(err)
	}
	if h := waitDone(t, p, 500*time.Millisecond); h.ExitCode != 0 {
		t.Errorf("expected exit code 0, got %d", h.ExitCode)
	}

	// Stop after process has already exited - should be a no-op
	if err := p.Stop(); err != nil {
		t.Errorf("Stop() after exit error = %v", err)
	}
	if !p.StopRequested() {
		t.Error("StopRequested() = false after Stop")
	}
}

func TestProcessExitWithError(t *testing.T) {
	p := newTestProcess("exit 42")
	if err := p.Start(); err != nil {
		t.Fatal(err)
	}
	if h := waitDone(t, p, 500*time.Millisecond); h.ExitCode != 42 {
		t.Errorf("expected exit code 42, got %d", h.ExitCode)
	}
}

func TestStartNonExistentCommand(t *testing.T) {
	p := New("test", "/nonexistent/command/that/does/not/exist", nil, testLogger())
	if err := p.Start(); err == nil {
		t.Fatal("expected start error")
	}
	h := waitDone(t, p, 100*time.Millisecond)
	if h.Status != StatusExited || h.PID != 0 {
		t.Errorf("handle after failed start = %+v", h)
	}
}

func TestStartTwice(t *testing.T) {
	p := newTestProcess("true")
	if err := p.Start(); err != nil {
		t.Fatal(err)
	}
	if err := p.Start(); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start() error = %v, want ErrAlreadyStarted", err)
	}
	waitDone(t, p, 500*time.Millisecond)
}

func TestStopBeforeStart(t *testing.T) {
	p := newTestProcess("sleep 10")
	if err := p.Stop(); err != nil {
		t.Errorf("Stop() before Start error = %v", err)
	}
}

func TestStatusTransitions(t *testing.T) {
	var mu sync.Mutex
	var seen []Status
	p := newTestProcess("sleep 0.2", WithStateChange(func(h Handle) {
		mu.Lock()
		seen = append(seen, h.Status)
		mu.Unlock()
	}))

	if p.MarkRunning() {
		t.Error("MarkRunning() before Start returned true")
	}
	if err := p.Start(); err != nil {
		t.Fatal(err)
	}
	if h := p.Handle(); h.Status != StatusStarting || h.PID == 0 || h.StartedAt.IsZero() {
		t.Errorf("handle after Start = %+v", h)
	}
	if !p.MarkRunning() {
		t.Error("MarkRunning() returned false")
	}
	if p.MarkRunning() {
		t.Error("second MarkRunning() returned true")
	}
	waitDone(t, p, time.Second)

	mu.Lock()
	defer mu.Unlock()
	want := []Status{StatusStarting, StatusRunning, StatusExited}
	if !slices.Equal(seen, want) {
		t.Errorf("transitions = %v, want %v", seen, want)
	}
}

func TestStopKillsProcessGroup(t *testing.T) {
	p := newTestProcess("sleep 30 & echo $!; wait")
	if err := p.Start(); err != nil {
		t.Fatal(err)
	}

	var child int
	deadline := time.Now().Add(time.Second)
	for child == 0 && time.Now().Before(deadline) {
		if lines := p.Tail(1); len(lines) == 1 {
			child, _ = strconv.Atoi(strings.TrimSpace(lines[0]))
		}
		time.Sleep(10 * time.Millisecond)
	}
	if child == 0 {
		t.Fatal("background child pid not reported")
	}

	if err := p.Stop(); err != nil {
		t.Fatal(err)
	}

	deadline = time.Now().Add(time.Second)
	for alive(child) {
		if time.Now().After(deadline) {
			t.Fatalf("grandchild %d still alive after Stop", child)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestTailKeepsLastLines(t *testing.T) {
	p := newTestProcess("i=1; while [ $i -le 100 ]; do echo line$i; i=$((i+1)); done")
	if err := p.Start(); err != nil {
		t.Fatal(err)
	}
	waitDone(t, p, time.Second)

	if got := len(p.Tail(0)); got != DefaultTailSize {
		t.Errorf("len(Tail(0)) = %d, want %d", got, DefaultTailSize)
	}
	last := p.Tail(20)
	if len(last) != 20 || last[0] != "line81" || last[19] != "line100" {
		t.Errorf("Tail(20) = %v", last)
	}
}

func TestStreamOutputLogLevels(t *testing.T) {
	script := `echo "[error] error message" && echo "[warning] warn message" && echo "[debug] debug message" && echo "[fatal] fatal message" && echo "plain message"`
	parser := func(line string) (string, string) {
		if strings.HasPrefix(line, "[") {
			level, msg, _ := strings.Cut(line[1:], "] ")
			return level, msg
		}
		return "info", line
	}
	p := newTestProcess(script, WithLogParser(testLogger(), parser))
	if err := p.Start(); err != nil {
		t.Fatal(err)
	}
	if h := waitDone(t, p, time.Second); h.ExitCode != 0 {
		t.Errorf("expected exit code 0, got %d", h.ExitCode)
	}
}

func TestOutputHandler(t *testing.T) {
	handler := &testOutputHandler{}
	p := newTestProcess("echo line1; echo line2 >&2", WithOutputHandler(handler))
	if err := p.Start(); err != nil {
		t.Fatal(err)
	}
	waitDone(t, p, time.Second)

	handler.mu.Lock()
	defer handler.mu.Unlock()
	if !slices.Contains(handler.lines, "stdout:line1") || !slices.Contains(handler.lines, "stderr:line2") {
		t.Errorf("handler lines = %v", handler.lines)
	}
}

// alive reports whether pid exists and is not a zombie waiting to be reaped.
func alive(pid int) bool {
	if syscall.Kill(pid, 0) != nil {
		return false
	}
	stat, err := os.ReadFile("/proc/" + strconv.Itoa(pid) + "/stat")
	if err != nil {
		return true
	}
	return !strings.Contains(string(stat), ") Z ")
}

type testOutputHandler struct {
	mu    sync.Mutex
	lines []string
}

func (h *testOutputHandler) HandleLine(source, line string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lines = append(h.lines, source+":"+line)
}
