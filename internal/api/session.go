package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/rtspcam/internal/api/models"
	"github.com/smazurov/rtspcam/internal/launcher"
	"github.com/smazurov/rtspcam/internal/metrics"
)

// registerSessionRoutes registers the launch, stop, status and preview endpoints.
func (s *Server) registerSessionRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-session",
		Method:      http.MethodGet,
		Path:        "/api/session",
		Summary:     "Get Session",
		Description: "Get the launcher state and the running session, if any",
		Tags:        []string{"session"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(ctx context.Context, input *struct{}) (*models.SessionResponse, error) {
		return &models.SessionResponse{Body: sessionData(s.launcher.Status())}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID:   "start-session",
		Method:        http.MethodPost,
		Path:          "/api/session",
		Summary:       "Start Session",
		Description:   "Start the media server and transcoder for a device and wait until the stream is live",
		Tags:          []string{"session"},
		Security:      withAuth(),
		Errors:        []int{401, 409, 422, 429, 500, 504},
		DefaultStatus: http.StatusCreated,
		Metadata:      map[string]any{metaRateLimited: true},
	}, func(ctx context.Context, input *models.SessionRequest) (*models.SessionResponse, error) {
		cfg, err := input.Body.ToConfig()
		if err != nil {
			return nil, launchError(err)
		}
		// A dropped connection must not abort the launch; DELETE does that.
		if _, err := s.launcher.Submit(context.WithoutCancel(ctx), cfg); err != nil {
			return nil, launchError(err)
		}
		return &models.SessionResponse{Body: sessionData(s.launcher.Status())}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "stop-session",
		Method:      http.MethodDelete,
		Path:        "/api/session",
		Summary:     "Stop Session",
		Description: "Stop the running session or abort one that is starting. Stopping an idle launcher succeeds.",
		Tags:        []string{"session"},
		Security:    withAuth(),
		Errors:      []int{401, 500},
	}, func(ctx context.Context, input *struct{}) (*models.SessionResponse, error) {
		if err := s.launcher.Stop(ctx); err != nil {
			return nil, launchError(err)
		}
		return &models.SessionResponse{Body: sessionData(s.launcher.Status())}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "render-session",
		Method:      http.MethodPost,
		Path:        "/api/render",
		Summary:     "Preview Session",
		Description: "Render the commands, media server configuration and URLs for a selection without starting anything",
		Tags:        []string{"session"},
		Security:    withAuth(),
		Errors:      []int{401, 422, 500},
	}, func(ctx context.Context, input *models.RenderRequest) (*models.RenderResponse, error) {
		cfg, err := input.Body.ToConfig()
		if err != nil {
			return nil, launchError(err)
		}
		plan, err := s.launcher.Render(cfg)
		if err != nil {
			return nil, launchError(err)
		}
		serverCfg, err := plan.ServerConfig.Marshal()
		if err != nil {
			return nil, huma.Error500InternalServerError("Failed to render media server config", err)
		}
		return &models.RenderResponse{
			Body: models.RenderData{
				Config:            models.SelectionFromConfig(plan.Config),
				URL:               plan.URL,
				Pipeline:          plan.Pipeline,
				ServerCommand:     plan.Server.String(),
				TranscoderCommand: plan.Transcoder.String(),
				ServerConfig:      string(serverCfg),
			},
		}, nil
	})
}

func sessionData(st launcher.Status) models.SessionData {
	data := models.SessionData{
		State:      string(st.State),
		Selection:  models.SelectionFromConfig(st.Selection),
		Server:     models.ChildFromHandle(st.Server),
		Transcoder: models.ChildFromHandle(st.Transcoder),
		Error:      st.Error,
	}
	if st.ErrorKind != "" {
		data.ErrorKind = string(st.ErrorKind)
	}
	if st.Result != nil {
		data.SessionID = st.Result.SessionID
		data.URL = st.Result.URL
		data.Pipeline = st.Result.Pipeline
		if m := metrics.GetFFmpegMetrics(st.Result.SessionID); m != nil {
			data.Progress = &models.ProgressData{
				FPS:             m.FPS,
				Speed:           m.Speed,
				DroppedFrames:   m.DroppedFrames,
				DuplicateFrames: m.DuplicateFrames,
			}
		}
	}
	return data
}
