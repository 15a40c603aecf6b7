package api

import (
	"bufio"
	"io"
	"strings"
	"testing"
	"time"
)

type sseEvent struct {
	name string
	data string
}

// eventReader parses a text/event-stream body on a background goroutine.
type eventReader struct {
	events chan sseEvent
}

func newEventReader(body io.Reader) *eventReader {
	r := &eventReader{events: make(chan sseEvent, 32)}
	go func() {
		defer close(r.events)
		scanner := bufio.NewScanner(body)
		var ev sseEvent
		for scanner.Scan() {
			line := scanner.Text()
			switch {
			case line == "":
				if ev.data != "" {
					r.events <- ev
				}
				ev = sseEvent{}
			case strings.HasPrefix(line, "event:"):
				ev.name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			case strings.HasPrefix(line, "data:"):
				ev.data += strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			}
		}
	}()
	return r
}

func (r *eventReader) next(t *testing.T) sseEvent {
	t.Helper()
	select {
	case ev, ok := <-r.events:
		if !ok {
			t.Fatal("event stream closed")
		}
		return ev
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return sseEvent{}
}

// until skips events until one named name arrives.
func (r *eventReader) until(t *testing.T, name, contains string) sseEvent {
	t.Helper()
	deadline := time.After(10 * time.Second)
	for {
		select {
		case ev, ok := <-r.events:
			if !ok {
				t.Fatalf("event stream closed before %s", name)
			}
			if ev.name == name && strings.Contains(ev.data, contains) {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s containing %q", name, contains)
		}
	}
}
