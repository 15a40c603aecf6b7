package api

import (
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/rtspcam/internal/launcher"
	"github.com/smazurov/rtspcam/internal/stream"
)

// launchError maps launcher and supervisor failures to HTTP errors.
func launchError(err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, launcher.ErrBusy), errors.Is(err, launcher.ErrAborted), errors.Is(err, launcher.ErrNoDevices):
		status = http.StatusConflict
	default:
		switch stream.KindOf(err) {
		case stream.KindInvalidConfig:
			status = http.StatusUnprocessableEntity
		case stream.KindStartupTimeout:
			status = http.StatusGatewayTimeout
		case stream.KindSessionCollapsed:
			status = http.StatusConflict
		case stream.KindTerminationFailure:
			status = http.StatusInternalServerError
		}
	}
	return huma.NewError(status, err.Error())
}
