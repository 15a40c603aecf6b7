package api

import (
	"context"
	"encoding/base64"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/smazurov/rtspcam/internal/api/models"
	"github.com/smazurov/rtspcam/internal/events"
	"github.com/smazurov/rtspcam/internal/launcher"
	"github.com/smazurov/rtspcam/internal/logging"
	"github.com/smazurov/rtspcam/internal/version"
)

const authRealm = `Basic realm="rtspcam API"`

// Server is the HTTP front-end of the launcher.
type Server struct {
	api        huma.API
	mux        *http.ServeMux
	mu         sync.Mutex
	httpServer *http.Server
	launcher   *launcher.Launcher
	eventBus   *events.Bus
	limiter    *submitLimiter
	proxies    proxyList
	options    *Options
	logger     *slog.Logger
	httpLogger *slog.Logger
}

// basicAuthMiddleware creates middleware for HTTP basic authentication
func (s *Server) basicAuthMiddleware(username, password string) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		// Skip auth for operations without security requirements
		op := ctx.Operation()
		if op != nil && len(op.Security) == 0 {
			next(ctx)
			return
		}

		var credentials string
		if authHeader := ctx.Header("Authorization"); authHeader != "" {
			const prefix = "Basic "
			if !strings.HasPrefix(authHeader, prefix) {
				s.unauthorized(ctx, "Invalid authentication type")
				return
			}
			decoded, err := base64.StdEncoding.DecodeString(authHeader[len(prefix):])
			if err != nil {
				s.unauthorized(ctx, "Invalid credentials format", err)
				return
			}
			credentials = string(decoded)
		} else if queryAuth := ctx.Query("auth"); queryAuth != "" {
			// EventSource cannot set headers, so SSE clients pass credentials here.
			decoded, err := base64.StdEncoding.DecodeString(queryAuth)
			if err != nil {
				s.unauthorized(ctx, "Invalid credentials format", err)
				return
			}
			credentials = string(decoded)
		}

		if credentials == "" {
			s.unauthorized(ctx, "Authentication required")
			return
		}

		user, pass, ok := strings.Cut(credentials, ":")
		if !ok {
			s.unauthorized(ctx, "Invalid credentials format")
			return
		}
		if user != username || pass != password {
			s.unauthorized(ctx, "Invalid credentials")
			return
		}

		next(ctx)
	}
}

func (s *Server) unauthorized(ctx huma.Context, msg string, errs ...error) {
	ctx.SetHeader("WWW-Authenticate", authRealm)
	_ = huma.WriteErr(s.api, ctx, http.StatusUnauthorized, msg, errs...)
}

// Options configures the API server.
type Options struct {
	AuthUsername      string
	AuthPassword      string
	Launcher          *launcher.Launcher
	EventBus          *events.Bus
	PrometheusHandler http.Handler // Optional Prometheus metrics handler

	// SubmitRate is the number of session submissions allowed per client per
	// minute, SubmitBurst how many may arrive at once. Zero uses the defaults.
	SubmitRate  float64
	SubmitBurst int

	// TrustedProxies lists proxy addresses or CIDRs whose X-Forwarded-For and
	// X-Real-IP headers identify the client. Others are ignored.
	TrustedProxies []string

	// CORSOrigins may call the session endpoints from a browser. "*" allows
	// any origin; empty disables CORS.
	CORSOrigins []string
}

// NewServer creates the API server on Go's native mux.
func NewServer(opts *Options) *Server {
	mux := http.NewServeMux()

	cors := newCORSPolicy(opts.CORSOrigins)
	if cors.enabled() {
		cors.registerPreflight(mux)
	}

	config := huma.DefaultConfig("rtspcam API", version.String())
	config.Info.Description = "Launch a camera as a local RTSP stream"
	// Empty servers list will make OpenAPI use relative paths, working with any host
	config.Servers = []*huma.Server{}
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"basicAuth": {
			Type:   "http",
			Scheme: "basic",
		},
	}

	api := humago.New(mux, config)

	server := &Server{
		api:        api,
		mux:        mux,
		launcher:   opts.Launcher,
		eventBus:   opts.EventBus,
		limiter:    newSubmitLimiter(opts.SubmitRate, opts.SubmitBurst),
		options:    opts,
		logger:     logging.GetLogger("api"),
		httpLogger: logging.GetLogger("http"),
	}

	proxies, err := parseProxies(opts.TrustedProxies)
	if err != nil {
		server.logger.Warn("Ignoring trusted proxies, forwarding headers disabled", "error", err)
	}
	server.proxies = proxies

	// CORS first, then logging, then auth
	if cors.enabled() {
		api.UseMiddleware(cors.middleware)
	}
	api.UseMiddleware(server.logRequest)
	if opts.AuthUsername != "" && opts.AuthPassword != "" {
		api.UseMiddleware(server.basicAuthMiddleware(opts.AuthUsername, opts.AuthPassword))
	}
	api.UseMiddleware(server.rateLimitMiddleware)

	// Registered on the mux directly so scrapers need no credentials
	if opts.PrometheusHandler != nil {
		mux.Handle("GET /metrics", opts.PrometheusHandler)
	}

	server.registerRoutes()

	return server
}

// GetMux returns the underlying HTTP ServeMux for additional setup
func (s *Server) GetMux() *http.ServeMux {
	return s.mux
}

// GetAPI returns the Huma API instance
func (s *Server) GetAPI() huma.API {
	return s.api
}

// Serve serves the API on ln until Stop is called.
func (s *Server) Serve(ln net.Listener) error {
	addr := ln.Addr().String()
	s.logger.Info("Starting rtspcam API server", "addr", addr)
	s.logger.Info("OpenAPI documentation available", "url", "http://"+addr+"/docs")

	s.mu.Lock()
	s.httpServer = &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := s.httpServer
	s.mu.Unlock()

	return srv.Serve(ln)
}

// Stop closes the listener and every open connection, including SSE streams.
func (s *Server) Stop() error {
	s.logger.Info("Stopping API server")

	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()
	if srv != nil {
		return srv.Close()
	}

	return nil
}

// registerRoutes sets up all API endpoints
func (s *Server) registerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "health-check",
		Method:      http.MethodGet,
		Path:        "/api/health",
		Summary:     "Health",
		Description: "Check API health status",
		Tags:        []string{"health"},
		Security:    []map[string][]string{}, // Empty security = no auth required
	}, func(ctx context.Context, input *struct{}) (*models.HealthResponse, error) {
		return &models.HealthResponse{
			Body: models.HealthData{
				Status:  "ok",
				Message: "API is healthy",
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-version",
		Method:      http.MethodGet,
		Path:        "/api/version",
		Summary:     "Version",
		Description: "Get application version information",
		Tags:        []string{"system"},
		Security:    []map[string][]string{},
	}, func(ctx context.Context, input *struct{}) (*models.VersionResponse, error) {
		info := version.Get()
		return &models.VersionResponse{
			Body: models.VersionData{
				Version:   info.Version,
				GitCommit: info.GitCommit,
				BuildDate: info.BuildDate,
				GoVersion: info.GoVersion,
				Platform:  info.Platform,
			},
		}, nil
	})

	s.registerDeviceRoutes()
	s.registerSessionRoutes()
	s.registerOptionsRoutes()
	s.registerSSERoutes()
}

// withAuth returns security requirement for basic auth
func withAuth() []map[string][]string {
	return []map[string][]string{
		{"basicAuth": {}},
	}
}
