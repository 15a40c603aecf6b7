// Package supervisortest provides stand-ins for the media server and the
// transcoder so supervisor-driven code can be tested without MediaMTX or ffmpeg.
//
// The fake media server is the test binary itself. A package using it must
// call RunIfFake first thing in TestMain:
//
//	func TestMain(m *testing.M) {
//		supervisortest.RunIfFake()
//		os.Exit(m.Run())
//	}
package supervisortest

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"testing"
	"time"

	"github.com/bluenviron/gortsplib/v4"

	"github.com/smazurov/rtspcam/internal/mediamtx"
)

// EnvMode makes the test binary act as the media server.
const EnvMode = "RTSPCAM_FAKE_MEDIAMTX"

// Mode selects how the fake media server behaves.
type Mode string

// Fake media server modes.
const (
	ModeServe Mode = "serve" // serve until interrupted
	ModeCrash Mode = "crash" // exit with code 3 shortly after becoming ready
)

// CrashAfter is how long a ModeCrash server stays up.
const CrashAfter = 1500 * time.Millisecond

// Transcoder scripts.
const (
	// Healthy prints one statistics line and runs until interrupted.
	Healthy = `trap 'exit 0' INT TERM
echo "frame=   25 fps= 25 q=21.0 size=     128kB time=00:00:01.00 bitrate=1048.6kbits/s dup=1 drop=2 speed=1.01x" >&2
while :; do sleep 0.1; done
`
	// Broken fails immediately the way ffmpeg does for a missing device.
	Broken = `echo "[video4linux2,v4l2 @ 0x55d0] Cannot open video device /dev/video9: No such file or directory" >&2
exit 1
`
	// Stubborn ignores SIGINT and must be killed.
	Stubborn = `trap '' INT
while :; do sleep 0.1; done
`
)

// RunIfFake runs the fake media server and exits when EnvMode is set.
func RunIfFake() {
	if mode := os.Getenv(EnvMode); mode != "" {
		os.Exit(serve(Mode(mode), os.Args[1:]))
	}
}

type handler struct{}

// serve loads the rendered config and serves RTSP (and the control API when
// enabled) like the real media server would.
func serve(mode Mode, args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: fake-mediamtx <config>")
		return 2
	}
	cfg, err := mediamtx.LoadFromFile(args[0])
	if err != nil {
		fmt.Fprintln(os.Stderr, "ERR", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &gortsplib.Server{
		Handler:     handler{},
		RTSPAddress: cfg.RTSPAddress,
	}
	if err := srv.Start(); err != nil {
		fmt.Fprintln(os.Stderr, "ERR", err)
		return 1
	}
	defer srv.Close()
	fmt.Println("INF [RTSP] listener opened on", cfg.RTSPAddress)

	if cfg.API {
		ln, err := net.Listen("tcp", cfg.APIAddress)
		if err != nil {
			fmt.Fprintln(os.Stderr, "ERR", err)
			return 1
		}
		defer ln.Close()
		mux := http.NewServeMux()
		mux.HandleFunc("GET /v3/paths/list", func(w http.ResponseWriter, _ *http.Request) {
			var resp mediamtx.PathListResponse
			for name := range cfg.Paths {
				resp.Items = append(resp.Items, &mediamtx.PathInfo{Name: name})
			}
			resp.ItemCount = len(resp.Items)
			_ = json.NewEncoder(w).Encode(resp)
		})
		go func() { _ = http.Serve(ln, mux) }()
	}

	if mode == ModeCrash {
		select {
		case <-ctx.Done():
			return 0
		case <-time.After(CrashAfter):
			fmt.Fprintln(os.Stderr, "ERR listener failed: fake crash")
			return 3
		}
	}

	<-ctx.Done()
	return 0
}

// FakeServer returns the path of a media server executable running in mode.
func FakeServer(t testing.TB, mode Mode) string {
	t.Helper()
	exe, err := os.Executable()
	if err != nil {
		t.Fatalf("executable: %v", err)
	}
	return Script(t, "mediamtx", fmt.Sprintf("%s=%s exec %s \"$@\"\n", EnvMode, mode, strconv.Quote(exe)))
}

// Script writes an executable shell script into a temp dir and returns its path.
func Script(t testing.TB, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

// FreePort returns a loopback TCP port that was free a moment ago.
func FreePort(t testing.TB) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}
