package events

import (
	"context"
	"sync/atomic"
)

// Feed buffers every event published on a bus for one slow consumer, such
// as an SSE client. Publishers never block on it: once the buffer is full
// new events are dropped and counted.
type Feed struct {
	ch      chan Event
	pending []Event
	unsubs  []func()
	dropped atomic.Int64
}

// NewFeed subscribes a feed of the given buffer size to all event types on
// bus. A nil bus yields a feed that only returns prepended events.
func NewFeed(bus *Bus, size int) *Feed {
	f := &Feed{ch: make(chan Event, size)}
	if bus == nil {
		return f
	}
	f.unsubs = []func(){
		bus.Subscribe(func(e ProcessStateChangedEvent) { f.push(e) }),
		bus.Subscribe(func(e SessionStateChangedEvent) { f.push(e) }),
		bus.Subscribe(func(e SessionCollapsedEvent) { f.push(e) }),
		bus.Subscribe(func(e DevicesListedEvent) { f.push(e) }),
	}
	return f
}

func (f *Feed) push(e Event) {
	select {
	case f.ch <- e:
	default:
		f.dropped.Add(1)
	}
}

// Prepend queues ev ahead of everything buffered so far. Call it before the
// first Next, typically with a snapshot taken after NewFeed so no change
// between the snapshot and the subscription is lost.
func (f *Feed) Prepend(ev Event) {
	f.pending = append([]Event{ev}, f.pending...)
}

// Next returns the next event, blocking until one arrives or ctx is done.
func (f *Feed) Next(ctx context.Context) (Event, bool) {
	if len(f.pending) > 0 {
		ev := f.pending[0]
		f.pending = f.pending[1:]
		return ev, true
	}
	select {
	case <-ctx.Done():
		return nil, false
	case ev := <-f.ch:
		return ev, true
	}
}

// Dropped reports how many events did not fit in the buffer.
func (f *Feed) Dropped() int64 {
	return f.dropped.Load()
}

// Close unsubscribes the feed from the bus.
func (f *Feed) Close() {
	for _, unsub := range f.unsubs {
		unsub()
	}
	f.unsubs = nil
}
