package registry

import (
	"github.com/google/uuid"

	"github.com/gangnameyes/docent/pkg/io/device"
)

type DeviceRegistry interface {
	// device lifecycle
	UpsertDevice(userID uuid.UUID, d device.Device) error
	RemoveDevice(userID uuid.UUID, deviceID uuid.UUID) error
	// endpoint lifecycle
	AttachEndpoint(userID uuid.UUID, deviceID uuid.UUID, ep device.Endpoint) error
	DetachEndpoint(userID uuid.UUID, deviceID uuid.UUID, epID device.EndpointID)
	// queries
	ListUserEndpoints(userID uuid.UUID) []device.Endpoint
	// selection
	SelectEndpointWithMRU(userID uuid.UUID, want device.Capabilities) (device.Endpoint, bool)
	FetchTextFanoutEndpoints(userID uuid.UUID) ([]device.Endpoint, bool)
}
