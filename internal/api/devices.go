package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/rtspcam/internal/api/models"
)

// registerDeviceRoutes registers the device listing.
func (s *Server) registerDeviceRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-devices",
		Method:      http.MethodGet,
		Path:        "/api/devices",
		Summary:     "List Devices",
		Description: "List attached capture devices. Results are cached for a few seconds.",
		Tags:        []string{"devices"},
		Security:    withAuth(),
		Errors:      []int{401, 500},
	}, func(ctx context.Context, input *struct{}) (*models.DevicesResponse, error) {
		devs, err := s.launcher.ListDevices(ctx)
		if err != nil {
			return nil, huma.Error500InternalServerError("Failed to list devices", err)
		}
		return &models.DevicesResponse{
			Body: models.DeviceData{
				Devices: devs,
				Count:   len(devs),
			},
		}, nil
	})
}
