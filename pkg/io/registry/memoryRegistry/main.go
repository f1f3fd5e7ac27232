package memoryregistry

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/gangnameyes/docent/pkg/io/device"
	"github.com/gangnameyes/docent/pkg/io/registry"
)

type mmrRegistry struct {
	mu    sync.RWMutex
	dvMap map[uuid.UUID]map[uuid.UUID]*device.Device
}

// UpsertDevice implements registry.DeviceRegistry.
func (m *mmrRegistry) UpsertDevice(userID uuid.UUID, d device.Device) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if userMap := m.dvMap[userID]; userMap == nil {
		m.dvMap[userID] = make(map[uuid.UUID]*device.Device)
	}
	if d.Endpoints == nil {
		d.Endpoints = make(map[device.EndpointID]device.Endpoint)
	}
	m.dvMap[userID][d.DeviceID] = &d
	return nil
}

// RemoveDevice implements registry.DeviceRegistry.
func (m *mmrRegistry) RemoveDevice(userID uuid.UUID, deviceID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if userMap := m.dvMap[userID]; userMap != nil {
		if d := userMap[deviceID]; d != nil {
			for _, ep := range d.Endpoints {
				_ = ep.Close()
			}
		}
		delete(userMap, deviceID)
	}
	return nil
}

// AttachEndpoint implements registry.DeviceRegistry.
func (m *mmrRegistry) AttachEndpoint(userID uuid.UUID, deviceID uuid.UUID, ep device.Endpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if userMap := m.dvMap[userID]; userMap != nil {
		if d := userMap[deviceID]; d != nil {
			if d.Endpoints == nil {
				d.Endpoints = make(map[device.EndpointID]device.Endpoint)
			}
			d.Endpoints[ep.ID()] = ep
			return nil
		}
	}
	return fmt.Errorf("couldn't attach endpoint")
}

// DetachEndpoint implements registry.DeviceRegistry.
func (m *mmrRegistry) DetachEndpoint(userID uuid.UUID, deviceID uuid.UUID, epID device.EndpointID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if userMap := m.dvMap[userID]; userMap != nil {
		if d := userMap[deviceID]; d != nil {
			delete(d.Endpoints, epID)
		}
	}
}

// ListUserEndpoints implements registry.DeviceRegistry.
func (m *mmrRegistry) ListUserEndpoints(userID uuid.UUID) []device.Endpoint {
	m.mu.RLock()
	defer m.mu.RUnlock()
	eps := make([]device.Endpoint, 0)
	for _, d := range m.dvMap[userID] {
		for _, ep := range d.Endpoints {
			eps = append(eps, ep)
		}
	}
	return eps
}

// SelectEndpointWithMRU picks the most recently used endpoint matching the
// wanted capabilities.
func (m *mmrRegistry) SelectEndpointWithMRU(userID uuid.UUID, want device.Capabilities) (device.Endpoint, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var best device.Endpoint
	for _, d := range m.dvMap[userID] {
		for _, ep := range d.Endpoints {
			caps := ep.Caps()
			if want.AudioSink && !caps.AudioSink {
				continue
			}
			if want.TextSink && !caps.TextSink {
				continue
			}
			if best == nil || ep.LastActive().After(best.LastActive()) {
				best = ep
			}
		}
	}
	return best, best != nil
}

// FetchTextFanoutEndpoints returns every text-capable endpoint for the user.
func (m *mmrRegistry) FetchTextFanoutEndpoints(userID uuid.UUID) ([]device.Endpoint, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	eps := make([]device.Endpoint, 0)
	for _, d := range m.dvMap[userID] {
		for _, ep := range d.Endpoints {
			if ep.Caps().TextSink {
				eps = append(eps, ep)
			}
		}
	}
	return eps, len(eps) > 0
}

func New() registry.DeviceRegistry {
	return &mmrRegistry{
		dvMap: make(map[uuid.UUID]map[uuid.UUID]*device.Device),
	}
}
