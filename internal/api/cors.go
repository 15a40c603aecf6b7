package api

import (
	"net/http"
	"slices"

	"github.com/danielgtaylor/huma/v2"
)

// corsPaths are the endpoints a browser front-end on another origin needs:
// pick a device, start or stop the session, preview it and follow events.
var corsPaths = []string{"/api/devices", "/api/session", "/api/render", "/api/events"}

const (
	corsMethods = "GET, POST, DELETE, OPTIONS"
	corsHeaders = "Content-Type, Authorization, Last-Event-ID"
	corsMaxAge  = "600"
)

// corsPolicy decides which origins may call corsPaths. An empty policy
// sends no CORS headers at all.
type corsPolicy struct {
	anyOrigin bool
	origins   []string
}

func newCORSPolicy(origins []string) corsPolicy {
	return corsPolicy{
		anyOrigin: slices.Contains(origins, "*"),
		origins:   origins,
	}
}

func (p corsPolicy) enabled() bool {
	return len(p.origins) > 0
}

// allowOrigin returns the Access-Control-Allow-Origin value for a request,
// or "" when the request gets no CORS headers.
func (p corsPolicy) allowOrigin(path, origin string) string {
	if origin == "" || !slices.Contains(corsPaths, path) {
		return ""
	}
	if p.anyOrigin {
		return "*"
	}
	if slices.Contains(p.origins, origin) {
		return origin
	}
	return ""
}

func (p corsPolicy) setHeaders(h http.Header, allow string) {
	h.Set("Access-Control-Allow-Origin", allow)
	if !p.anyOrigin {
		h.Add("Vary", "Origin")
	}
}

// middleware adds the allow-origin header to actual cross-origin requests.
func (p corsPolicy) middleware(ctx huma.Context, next func(huma.Context)) {
	if allow := p.allowOrigin(ctx.URL().Path, ctx.Header("Origin")); allow != "" {
		ctx.SetHeader("Access-Control-Allow-Origin", allow)
		if !p.anyOrigin {
			ctx.AppendHeader("Vary", "Origin")
		}
	}
	next(ctx)
}

// registerPreflight answers OPTIONS on the mux, since huma only routes the
// methods operations are registered for.
func (p corsPolicy) registerPreflight(mux *http.ServeMux) {
	for _, path := range corsPaths {
		mux.HandleFunc("OPTIONS "+path, func(w http.ResponseWriter, r *http.Request) {
			allow := p.allowOrigin(r.URL.Path, r.Header.Get("Origin"))
			if allow == "" {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			p.setHeaders(w.Header(), allow)
			w.Header().Set("Access-Control-Allow-Methods", corsMethods)
			w.Header().Set("Access-Control-Allow-Headers", corsHeaders)
			w.Header().Set("Access-Control-Max-Age", corsMaxAge)
			w.WriteHeader(http.StatusNoContent)
		})
	}
}
