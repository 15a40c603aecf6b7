package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/rtspcam/internal/api/models"
	"github.com/smazurov/rtspcam/internal/ffmpeg"
)

// registerOptionsRoutes registers the FFmpeg options listing.
func (s *Server) registerOptionsRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-ffmpeg-options",
		Method:      http.MethodGet,
		Path:        "/api/options",
		Summary:     "Get FFmpeg Options",
		Description: "List the transcoder options that can be enabled in the configuration, with conflict groups",
		Tags:        []string{"configuration"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, _ *struct{}) (*models.OptionsResponse, error) {
		return &models.OptionsResponse{
			Body: models.OptionsData{
				Options: ffmpeg.AllOptions,
			},
		}, nil
	})
}
