package models

import "github.com/smazurov/rtspcam/internal/devices"

// DeviceData is the device listing.
type DeviceData struct {
	Devices []devices.Descriptor `json:"devices" doc:"Attached capture devices"`
	Count   int                  `json:"count" example:"1" doc:"Number of devices"`
}

type DevicesResponse struct {
	Body DeviceData
}
