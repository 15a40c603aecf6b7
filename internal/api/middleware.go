package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

// logRequest logs each API call once it completes. Session calls carry the
// resulting launcher state so a start or stop can be traced in the log.
func (s *Server) logRequest(ctx huma.Context, next func(huma.Context)) {
	start := time.Now()
	method := ctx.Method()
	path := ctx.URL().Path

	next(ctx)

	status := ctx.Status()
	attrs := []slog.Attr{
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Duration("duration", time.Since(start)),
		slog.String("remote_addr", ctx.RemoteAddr()),
	}
	if ua := ctx.Header("User-Agent"); ua != "" {
		attrs = append(attrs, slog.String("user_agent", ua))
	}
	if path == "/api/session" && s.launcher != nil {
		st := s.launcher.Status()
		attrs = append(attrs, slog.String("state", string(st.State)))
		if st.Result != nil {
			attrs = append(attrs, slog.String("session_id", st.Result.SessionID))
		}
		if st.ErrorKind != "" {
			attrs = append(attrs, slog.String("error_kind", string(st.ErrorKind)))
		}
	}

	s.httpLogger.LogAttrs(ctx.Context(), requestLevel(method, status), "HTTP request completed", attrs...)
}

// requestLevel picks the log level for a completed request. Reads, including
// the long-lived event stream and status polling, stay at debug unless they
// fail.
func requestLevel(method string, status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	case method == http.MethodGet, method == http.MethodOptions:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}
