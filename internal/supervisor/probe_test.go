package supervisor

import (
	"context"
	"errors"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/bluenviron/gortsplib/v4"

	"github.com/smazurov/rtspcam/internal/supervisor/supervisortest"
)

type rtspHandler struct{}

func startRTSPServer(t *testing.T) string {
	t.Helper()
	addr := "127.0.0.1:" + strconv.Itoa(supervisortest.FreePort(t))
	srv := &gortsplib.Server{
		Handler:     rtspHandler{},
		RTSPAddress: addr,
	}
	if err := srv.Start(); err != nil {
		t.Fatalf("start rtsp server: %v", err)
	}
	t.Cleanup(srv.Close)
	return addr
}

func TestProbeRTSP(t *testing.T) {
	addr := startRTSPServer(t)

	if err := probeRTSP("rtsp://"+addr+"/live.stream", time.Second); err != nil {
		t.Errorf("probeRTSP() against live server = %v", err)
	}

	// A plain TCP listener accepts the connection but never answers OPTIONS.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			defer conn.Close()
		}
	}()
	if err := probeRTSP("rtsp://"+ln.Addr().String()+"/live.stream", 200*time.Millisecond); err == nil {
		t.Error("probeRTSP() against a silent listener succeeded")
	}

	if err := probeRTSP("rtsp://127.0.0.1:"+strconv.Itoa(supervisortest.FreePort(t))+"/x", 200*time.Millisecond); err == nil {
		t.Error("probeRTSP() against a closed port succeeded")
	}
}

func TestProbeTCP(t *testing.T) {
	addr := startRTSPServer(t)
	if err := probeTCP(context.Background(), addr); err != nil {
		t.Errorf("probeTCP() = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if err := probeTCP(ctx, "127.0.0.1:"+strconv.Itoa(supervisortest.FreePort(t))); err == nil {
		t.Error("probeTCP() against a closed port succeeded")
	}
}

func TestCheckPortFree(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()

	if err := checkPortFree(addr); !errors.Is(err, ErrPortInUse) {
		t.Errorf("checkPortFree(bound) = %v, want ErrPortInUse", err)
	}
	ln.Close()
	if err := checkPortFree(addr); err != nil {
		t.Errorf("checkPortFree(released) = %v", err)
	}
}

func TestLastLine(t *testing.T) {
	tests := []struct {
		lines []string
		want  string
	}{
		{nil, ""},
		{[]string{"a", "b"}, "b"},
		{[]string{"a", "  ", ""}, "a"},
	}
	for _, tt := range tests {
		if got := lastLine(tt.lines); got != tt.want {
			t.Errorf("lastLine(%q) = %q, want %q", tt.lines, got, tt.want)
		}
	}
}
