package device

import (
	"time"

	"github.com/google/uuid"

	"github.com/gangnameyes/docent/internal/types"
)

type Transport string

const (
	TransportWS   Transport = "ws"
	TransportHTTP Transport = "http"
)

type Capabilities struct {
	AudioSink bool // can sink synthesized narration audio
	TextSink  bool // can sink answer segments and events
}

type EndpointID uuid.UUID

// Endpoint is one client-facing sink for a session's delivery output.
type Endpoint interface {
	// Identity
	ID() EndpointID
	Caps() Capabilities
	Transport() Transport
	// abstraction for publisher
	SendSegment(sessionID uuid.UUID, seq int, segment types.AnswerSegment) error
	SendAudioFrame(sessionID uuid.UUID, frame []byte) error
	SendEvent(sessionID uuid.UUID, name string, payload any) error
	Touch()
	// lifecycle
	IsAlive() bool
	Close() error
	LastActive() time.Time
}

type Device struct {
	UserID     uuid.UUID
	DeviceID   uuid.UUID
	SessionID  uuid.UUID
	Caps       Capabilities
	LastActive time.Time
	// each device can handle multiple endpoints (ws, http push, etc)
	Endpoints map[EndpointID]Endpoint
}
