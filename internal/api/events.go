package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/smazurov/rtspcam/internal/events"
)

// registerSSERoutes registers the native Huma SSE endpoint.
func (s *Server) registerSSERoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "Real-time stream of launcher state, child process and device events. The first event is the current launcher state.",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"session-state-changed": events.SessionStateChangedEvent{},
		"process-state-changed": events.ProcessStateChangedEvent{},
		"session-collapsed":     events.SessionCollapsedEvent{},
		"devices-listed":        events.DevicesListedEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		// Subscribe before taking the snapshot so no change falls in between.
		feed := events.NewFeed(s.eventBus, 32)
		defer func() {
			if n := feed.Dropped(); n > 0 {
				s.logger.Warn("SSE client fell behind, events dropped", "count", n)
			}
			feed.Close()
		}()
		feed.Prepend(s.currentState())

		for {
			ev, ok := feed.Next(ctx)
			if !ok {
				return
			}
			if err := send.Data(ev); err != nil {
				return
			}
		}
	})
}

// currentState describes the launcher as a state change event so a new
// subscriber starts from a known state.
func (s *Server) currentState() events.SessionStateChangedEvent {
	st := s.launcher.Status()
	ev := events.SessionStateChangedEvent{
		State:     string(st.State),
		Error:     st.Error,
		Timestamp: time.Now().Format(time.RFC3339),
	}
	if st.Result != nil {
		ev.SessionID = st.Result.SessionID
		ev.URL = st.Result.URL
	}
	return ev
}
