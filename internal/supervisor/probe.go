package supervisor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/bluenviron/gortsplib/v4"
	"github.com/bluenviron/gortsplib/v4/pkg/base"

	"github.com/smazurov/rtspcam/internal/assembler"
	"github.com/smazurov/rtspcam/internal/mediamtx"
	"github.com/smazurov/rtspcam/internal/metrics"
	"github.com/smazurov/rtspcam/internal/process"
	"github.com/smazurov/rtspcam/internal/stream"
)

// ErrPortInUse is returned when the RTSP port is taken before the media server starts.
var ErrPortInUse = errors.New("port already in use")

// probeFunc reports nil once the media server accepts connections.
type probeFunc func(ctx context.Context) error

func (sv *Supervisor) prober(plan *assembler.Plan) probeFunc {
	switch sv.cfg.ProbeMode {
	case ProbeRTSP:
		timeout := sv.cfg.ProbeTimeout
		return func(context.Context) error {
			return probeRTSP(plan.URL, timeout)
		}
	case ProbeAPI:
		// Ready once the API lists the configured path.
		client := mediamtx.NewClient("http://" + sv.cfg.APIAddress)
		path := plan.Config.StreamPath
		return func(ctx context.Context) error {
			_, err := client.Path(ctx, path)
			return err
		}
	default:
		addr := plan.Config.Address()
		return func(ctx context.Context) error {
			return probeTCP(ctx, addr)
		}
	}
}

// waitReady probes the media server until it answers, exits or the attempt times out.
func (sv *Supervisor) waitReady(ctx context.Context, s *Session, proc *process.Process) error {
	probe := sv.prober(s.Plan)
	mode := string(sv.cfg.ProbeMode)

	deadline := time.NewTimer(sv.cfg.ReadyTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(sv.cfg.ProbeInterval)
	defer ticker.Stop()

	for {
		probeCtx, cancel := context.WithTimeout(ctx, sv.cfg.ProbeTimeout)
		err := probe(probeCtx)
		cancel()
		metrics.RecordProbe(mode, err == nil)
		if err == nil {
			sv.logger.Debug("Media server ready", "session_id", s.ID, "probe", mode)
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("startup cancelled: %w", ctx.Err())
		case <-proc.Done():
			msg := fmt.Sprintf("media server exited with code %d before accepting connections", proc.Handle().ExitCode)
			if last := lastLine(proc.Tail(sv.cfg.CollapseTail)); last != "" {
				msg += ": " + last
			}
			return stream.NewError(stream.KindStartupTimeout, msg, nil)
		case <-deadline.C:
			return stream.NewError(stream.KindStartupTimeout,
				fmt.Sprintf("media server not ready after %s", sv.cfg.ReadyTimeout), err)
		case <-ticker.C:
		}
	}
}

func probeTCP(ctx context.Context, addr string) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	return conn.Close()
}

// probeRTSP completes an OPTIONS round-trip against the stream URL.
func probeRTSP(rawURL string, timeout time.Duration) error {
	u, err := base.ParseURL(rawURL)
	if err != nil {
		return fmt.Errorf("parse %s: %w", rawURL, err)
	}

	c := gortsplib.Client{
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	}
	if err := c.Start(u.Scheme, u.Host); err != nil {
		return err
	}
	defer c.Close()

	res, err := c.Options(u)
	if err != nil {
		return err
	}
	if res.StatusCode != base.StatusOK {
		return fmt.Errorf("OPTIONS %s: %s", rawURL, res.StatusMessage)
	}
	return nil
}

// checkPortFree fails with ErrPortInUse when addr cannot be bound.
func checkPortFree(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrPortInUse, addr, err)
	}
	return ln.Close()
}
