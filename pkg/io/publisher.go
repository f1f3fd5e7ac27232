package io

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/gangnameyes/docent/internal/types"
	"github.com/gangnameyes/docent/pkg/io/device"
	"github.com/gangnameyes/docent/pkg/io/registry"
)

// Publisher fans delivery output out to the user's registered endpoints.
type Publisher struct {
	reg registry.DeviceRegistry
}

func New(reg registry.DeviceRegistry) Publisher {
	return Publisher{reg: reg}
}

// SendSegment broadcasts one answer segment to every text-capable endpoint.
func (p *Publisher) SendSegment(
	ctx context.Context,
	userID uuid.UUID,
	sessionID uuid.UUID,
	seq int,
	segment types.AnswerSegment,
) error {
	if eps, ok := p.reg.FetchTextFanoutEndpoints(userID); ok {
		for _, ep := range eps {
			_ = ep.SendSegment(sessionID, seq, segment)
		}
		return nil
	}
	return fmt.Errorf("couldn't broadcast segment")
}

// SendAudioFrame routes narration audio to the most recently used audio sink.
func (p *Publisher) SendAudioFrame(
	ctx context.Context,
	userID uuid.UUID,
	sessionID uuid.UUID,
	frame []byte,
) error {
	ep, ok := p.reg.SelectEndpointWithMRU(userID, device.Capabilities{AudioSink: true})
	if !ok || !ep.IsAlive() {
		return fmt.Errorf("couldn't send audio frame")
	}
	return ep.SendAudioFrame(sessionID, frame)
}

func (p *Publisher) SendEvent(
	ctx context.Context,
	userID uuid.UUID,
	sessionID uuid.UUID,
	name string,
	payload any,
) error {
	eps := p.reg.ListUserEndpoints(userID)
	for _, ep := range eps {
		if ep.IsAlive() {
			_ = ep.SendEvent(sessionID, name, payload)
		}
	}
	return nil
}
