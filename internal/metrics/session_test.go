package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSessionCounters(t *testing.T) {
	before := testutil.ToFloat64(sessionStarts.WithLabelValues("ok"))
	RecordSessionStart("ok")
	if got := testutil.ToFloat64(sessionStarts.WithLabelValues("ok")); got != before+1 {
		t.Errorf("starts_total{ok} = %v, want %v", got, before+1)
	}

	probesBefore := testutil.ToFloat64(probeAttempts.WithLabelValues("tcp", "fail"))
	RecordProbe("tcp", false)
	RecordProbe("tcp", true)
	if got := testutil.ToFloat64(probeAttempts.WithLabelValues("tcp", "fail")); got != probesBefore+1 {
		t.Errorf("probe attempts{tcp,fail} = %v, want %v", got, probesBefore+1)
	}

	exitsBefore := testutil.ToFloat64(childExits.WithLabelValues("server", "false"))
	RecordChildExit("server", false)
	if got := testutil.ToFloat64(childExits.WithLabelValues("server", "false")); got != exitsBefore+1 {
		t.Errorf("exits{server,false} = %v, want %v", got, exitsBefore+1)
	}
}

func TestSessionActiveGauge(t *testing.T) {
	before := testutil.ToFloat64(sessionsActive)
	SessionActive(1)
	SessionActive(1)
	SessionActive(-1)
	if got := testutil.ToFloat64(sessionsActive); got != before+1 {
		t.Errorf("active = %v, want %v", got, before+1)
	}
	SessionActive(-1)
}

func TestObserveStartup(t *testing.T) {
	ObserveStartup(300 * time.Millisecond)
	if n := testutil.CollectAndCount(sessionStartupSeconds); n != 1 {
		t.Errorf("startup histogram series = %d, want 1", n)
	}
}
