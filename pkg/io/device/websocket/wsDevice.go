package websocket

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/gangnameyes/docent/internal/types"
	"github.com/gangnameyes/docent/pkg/io/device"
)

type wsEndpoint struct {
	id         uuid.UUID
	client     *websocket.Conn
	caps       device.Capabilities
	lastActive time.Time
	mu         sync.Mutex // gorilla conns allow one concurrent writer
	closed     bool
}

type wsEnvelope struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
	Seq       int    `json:"seq,omitempty"`
	Name      string `json:"name,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// Caps implements device.Endpoint.
func (w *wsEndpoint) Caps() device.Capabilities {
	return w.caps
}

// Close implements device.Endpoint.
func (w *wsEndpoint) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return w.client.Close()
}

// ID implements device.Endpoint.
func (w *wsEndpoint) ID() device.EndpointID {
	return device.EndpointID(w.id)
}

func (w *wsEndpoint) Touch() {
	w.lastActive = time.Now()
}

// IsAlive implements device.Endpoint.
func (w *wsEndpoint) IsAlive() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return false
	}
	return w.client.WriteMessage(websocket.PingMessage, []byte("ping")) == nil
}

// LastActive implements device.Endpoint.
func (w *wsEndpoint) LastActive() time.Time {
	return w.lastActive
}

// SendSegment implements device.Endpoint.
func (w *wsEndpoint) SendSegment(sessionID uuid.UUID, seq int, segment types.AnswerSegment) error {
	return w.writeJSON(wsEnvelope{
		Type:      "segment",
		SessionID: sessionID.String(),
		Seq:       seq,
		Payload:   segment,
	})
}

// SendAudioFrame implements device.Endpoint.
func (w *wsEndpoint) SendAudioFrame(sessionID uuid.UUID, frame []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.client.WriteMessage(websocket.BinaryMessage, frame)
}

// SendEvent implements device.Endpoint.
func (w *wsEndpoint) SendEvent(sessionID uuid.UUID, name string, payload any) error {
	return w.writeJSON(wsEnvelope{
		Type:      "event",
		SessionID: sessionID.String(),
		Name:      name,
		Payload:   payload,
	})
}

// Transport implements device.Endpoint.
func (w *wsEndpoint) Transport() device.Transport {
	return device.TransportWS
}

func (w *wsEndpoint) writeJSON(msg wsEnvelope) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.client.WriteJSON(msg)
}

func New(client *websocket.Conn, caps device.Capabilities) device.Endpoint {
	return &wsEndpoint{
		id:         uuid.New(),
		client:     client,
		caps:       caps,
		lastActive: time.Now(),
	}
}
