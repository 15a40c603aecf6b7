package events

import (
	"context"
	"testing"
	"time"
)

func TestBus_PublishSubscribe(t *testing.T) {
	bus := New()
	received := make(chan SessionStateChangedEvent, 1)

	unsub := bus.Subscribe(func(e SessionStateChangedEvent) {
		received <- e
	})
	defer unsub()

	event := SessionStateChangedEvent{
		SessionID: "abc",
		State:     "running",
		URL:       "rtsp://127.0.0.1:8554/live.stream",
		Timestamp: "2025-01-27T10:30:00Z",
	}
	bus.Publish(event)

	select {
	case got := <-received:
		if got != event {
			t.Errorf("got %+v, want %+v", got, event)
		}
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestBus_MultipleSubscribers(t *testing.T) {
	bus := New()
	received1 := make(chan ProcessStateChangedEvent, 1)
	received2 := make(chan ProcessStateChangedEvent, 1)

	unsub1 := bus.Subscribe(func(e ProcessStateChangedEvent) {
		received1 <- e
	})
	defer unsub1()

	unsub2 := bus.Subscribe(func(e ProcessStateChangedEvent) {
		received2 <- e
	})
	defer unsub2()

	bus.Publish(ProcessStateChangedEvent{Role: "server", Status: "running"})

	for _, ch := range []chan ProcessStateChangedEvent{received1, received2} {
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Fatal("event not delivered to every subscriber")
		}
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := New()
	received := make(chan SessionCollapsedEvent, 1)

	unsub := bus.Subscribe(func(e SessionCollapsedEvent) {
		received <- e
	})

	bus.Publish(SessionCollapsedEvent{Role: "server"})
	<-received

	unsub()

	bus.Publish(SessionCollapsedEvent{Role: "transcoder"})
	select {
	case <-received:
		t.Fatal("Should not have received event after unsubscribe")
	case <-time.After(10 * time.Millisecond):
		// Expected - no event
	}
}

func TestBus_TypeIsolation(t *testing.T) {
	bus := New()
	received := make(chan DevicesListedEvent, 1)

	unsub := bus.Subscribe(func(e DevicesListedEvent) {
		received <- e
	})
	defer unsub()

	bus.Publish(SessionStateChangedEvent{State: "idle"})
	bus.Publish(DevicesListedEvent{Count: 2})

	select {
	case got := <-received:
		if got.Count != 2 {
			t.Errorf("Count = %d, want 2", got.Count)
		}
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestBus_UnknownHandler(t *testing.T) {
	bus := New()
	unsub := bus.Subscribe(func(string) {})
	unsub() // no-op, must not panic
}

func TestFeedPrependComesFirst(t *testing.T) {
	bus := New()
	feed := NewFeed(bus, 4)
	defer feed.Close()

	bus.Publish(ProcessStateChangedEvent{Role: "transcoder", Status: "exited", ExitCode: 1})
	feed.Prepend(SessionStateChangedEvent{State: "idle"})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	first, ok := feed.Next(ctx)
	if !ok {
		t.Fatal("Next() returned no event")
	}
	if s, isState := first.(SessionStateChangedEvent); !isState || s.State != "idle" {
		t.Fatalf("first event = %#v, want the prepended snapshot", first)
	}

	second, ok := feed.Next(ctx)
	if !ok {
		t.Fatal("Next() returned no second event")
	}
	if p, isProc := second.(ProcessStateChangedEvent); !isProc || p.ExitCode != 1 {
		t.Errorf("second event = %#v", second)
	}
}

func TestFeedCarriesEveryType(t *testing.T) {
	bus := New()
	feed := NewFeed(bus, 8)
	defer feed.Close()

	bus.Publish(SessionCollapsedEvent{Role: "transcoder", ExitCode: 1, Output: []string{"boom"}})
	bus.Publish(DevicesListedEvent{Count: 2})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	seen := make(map[uint32]bool)
	for range 2 {
		ev, ok := feed.Next(ctx)
		if !ok {
			t.Fatalf("received %d events, want 2", len(seen))
		}
		seen[ev.Type()] = true
		if c, isCollapse := ev.(SessionCollapsedEvent); isCollapse && (len(c.Output) != 1 || c.Output[0] != "boom") {
			t.Errorf("Output = %v", c.Output)
		}
	}
	if !seen[TypeSessionCollapsed] || !seen[TypeDevicesListed] {
		t.Errorf("event types seen = %v", seen)
	}
}

func TestFeedNextStopsOnContext(t *testing.T) {
	feed := NewFeed(nil, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if ev, ok := feed.Next(ctx); ok {
		t.Errorf("Next() on cancelled context = %#v", ev)
	}
}

func TestFeedDropsWhenFull(t *testing.T) {
	bus := New()
	feed := NewFeed(bus, 1) // never read
	defer feed.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for range 10 {
			bus.Publish(DevicesListedEvent{Count: 1})
		}
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full feed")
	}

	// kelindar/event delivers asynchronously; wait for the overflow to be counted.
	deadline := time.Now().Add(time.Second)
	for feed.Dropped() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if feed.Dropped() == 0 {
		t.Error("Dropped() = 0, want overflow counted")
	}
}
