package server

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/gangnameyes/docent/internal/config"
	"github.com/gangnameyes/docent/internal/domains/conversation"
	"github.com/gangnameyes/docent/internal/domains/delivery"
	"github.com/gangnameyes/docent/internal/domains/intent"
	"github.com/gangnameyes/docent/internal/domains/ledger"
	"github.com/gangnameyes/docent/internal/domains/narration"
	"github.com/gangnameyes/docent/internal/domains/speech"
	"github.com/gangnameyes/docent/internal/types"
	"github.com/gangnameyes/docent/pkg/Logger"
	"github.com/gangnameyes/docent/pkg/io"
	"github.com/gangnameyes/docent/pkg/io/device"
	websockete "github.com/gangnameyes/docent/pkg/io/device/websocket"
	"github.com/gangnameyes/docent/pkg/io/registry"
	"github.com/gangnameyes/docent/pkg/io/stt"
	audioring "github.com/gangnameyes/docent/pkg/io/stt/audioRing"
	"github.com/gangnameyes/docent/pkg/io/stt/vad"
)

// Client control messages over the websocket text channel.
type MessageType string

const (
	MessageTypeInit            MessageType = "init"
	MessageTypeText            MessageType = "text"
	MessageTypeStartRecording  MessageType = "start_recording"
	MessageTypeStopRecording   MessageType = "stop_recording"
	MessageTypeCancelRecording MessageType = "cancel_recording"
	MessageTypeFeedback        MessageType = "feedback"
	MessageTypeContinue        MessageType = "continue"
)

type WSMessage struct {
	Type MessageType `json:"type"`
	Data wsPayload   `json:"data,omitempty"`
}

type wsPayload struct {
	Content          string `json:"content,omitempty"`
	OnboardingOption string `json:"onboardingOption,omitempty"`
	Preference       string `json:"preference,omitempty"`
}

type Dependencies struct {
	Configs     *config.Settings
	Logger      *Logger.Logger
	Registry    registry.DeviceRegistry
	Publisher   *io.Publisher
	Gen         conversation.Generator
	Transcriber stt.Transcriber
	TTS         delivery.Synthesizer
	Narrator    *narration.Narrator
	Router      *intent.Router
	Ledger      *ledger.Ledger
}

func NewServerDependencies(
	cfg *config.Settings,
	logger *Logger.Logger,
	reg registry.DeviceRegistry,
	pub *io.Publisher,
	gen conversation.Generator,
	transcriber stt.Transcriber,
	tts delivery.Synthesizer,
	narrator *narration.Narrator,
	router *intent.Router,
	led *ledger.Ledger,
) Dependencies {
	return Dependencies{
		Configs:     cfg,
		Logger:      logger,
		Registry:    reg,
		Publisher:   pub,
		Gen:         gen,
		Transcriber: transcriber,
		TTS:         tts,
		Narrator:    narrator,
		Router:      router,
		Ledger:      led,
	}
}

// clientSession is one connected client: its websocket, conversation
// controller and speech pipeline.
type clientSession struct {
	userID   uuid.UUID
	streamID uuid.UUID
	deviceID uuid.UUID
	conn     *websocket.Conn

	ctrl     *conversation.Controller
	pipeline *speech.Pipeline
	ring     audioring.FrameRingBuffer

	// audioWake nudges the consumer goroutine after an enqueue; done
	// stops it when the connection goes away.
	audioWake chan struct{}
	done      chan struct{}

	connectedAt time.Time
}

// RoutesManager owns the active client sessions.
type RoutesManager struct {
	deps     Dependencies
	sessions map[uuid.UUID]*clientSession
	mu       sync.RWMutex
}

func NewRoutesManager(deps Dependencies) *RoutesManager {
	return &RoutesManager{
		deps:     deps,
		sessions: make(map[uuid.UUID]*clientSession),
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true }, // dev-only
}

func InitializeRoutes(cfg *config.Settings, r *gin.Engine, deps Dependencies) {
	r.GET("/", func(ctx *gin.Context) { ctx.JSON(200, gin.H{"message": "Server healthy"}) })
	r.GET("/health", func(ctx *gin.Context) { ctx.JSON(200, gin.H{"status": "ok"}) })

	rm := NewRoutesManager(deps)

	r.GET("/ws", rm.handleWebSocket)

	api := r.Group("/api")
	{
		api.POST("/turn", rm.handleTurn)
		api.POST("/feedback", rm.handleFeedback)
		api.POST("/continue", rm.handleContinue)
		api.GET("/history", rm.handleHistory)
	}
}

func (rm *RoutesManager) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		rm.deps.Logger.Errorf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	cs := rm.newClientSession(conn, c.Query("onboardingOption"))
	rm.register(cs)
	defer rm.cleanup(cs)

	rm.deps.Logger.Infof("ws connected - user %s stream %s", cs.userID, cs.streamID)

	// tell the client its stream id so REST calls can address this session
	_ = rm.deps.Publisher.SendEvent(c.Request.Context(), cs.userID, cs.streamID, "ready", cs.streamID.String())

	rm.readLoop(cs)
}

func (rm *RoutesManager) newClientSession(conn *websocket.Conn, onboardingOption string) *clientSession {
	userID := uuid.New()
	streamID := uuid.New()
	deviceID := uuid.New()

	caps := device.Capabilities{AudioSink: true, TextSink: true}
	rm.deps.Registry.UpsertDevice(userID, device.Device{
		UserID:    userID,
		SessionID: streamID,
		DeviceID:  deviceID,
		Caps:      caps,
	})
	rm.deps.Registry.AttachEndpoint(userID, deviceID, websockete.New(conn, caps))

	session := types.NewConversationSession(onboardingOption)

	ctrl := conversation.NewController(conversation.Params{
		Config:   rm.deps.Configs.Conversation,
		Session:  session,
		UserID:   userID,
		StreamID: streamID,
		Router:   rm.deps.Router,
		Narrator: rm.deps.Narrator,
		Gen:      rm.deps.Gen,
		Queue: delivery.NewQueue(
			rm.deps.Publisher,
			rm.deps.TTS,
			rm.deps.Configs.Conversation.ThinkingFloor,
			rm.deps.Configs.Conversation.SegmentGap,
			func(u types.TokenUsage) {
				rm.deps.Ledger.AccrueTokens(context.Background(), session, u)
			},
			rm.deps.Logger,
		),
		Ledger: rm.deps.Ledger,
		Events: rm.deps.Publisher,
		Logger: rm.deps.Logger,
	})

	cs := &clientSession{
		userID:      userID,
		streamID:    streamID,
		deviceID:    deviceID,
		conn:        conn,
		ctrl:        ctrl,
		ring:        audioring.New(rm.deps.Configs.Voice.BufferBytes),
		audioWake:   make(chan struct{}, 1),
		done:        make(chan struct{}),
		connectedAt: time.Now(),
	}

	detector := vad.NewEnergyVAD(vad.Config{
		SampleRate: rm.deps.Configs.Voice.SampleRate,
		Threshold:  rm.deps.Configs.Voice.SilenceThreshold,
	})
	cs.pipeline = speech.NewPipeline(
		rm.deps.Configs.Voice,
		detector,
		rm.deps.Transcriber,
		ctrl,
		func(text string) { rm.submitUtterance(cs, text, types.SourceVoice) },
		func(code, message string) {
			rm.sendEvent(cs, "stt_notice", map[string]string{"code": code, "message": message})
		},
		rm.deps.Logger,
	)

	go rm.audioLoop(cs)

	return cs
}

func (rm *RoutesManager) readLoop(cs *clientSession) {
	for {
		messageType, msgBytes, err := cs.conn.ReadMessage()
		if err != nil {
			rm.deps.Logger.Infof("ws closed for user %s: %v", cs.userID, err)
			return
		}

		switch messageType {
		case websocket.TextMessage:
			rm.handleControlMessage(cs, msgBytes)
		case websocket.BinaryMessage:
			rm.handleAudioFrame(cs, msgBytes)
		default:
			rm.deps.Logger.Warnf("unknown ws message type %d from user %s", messageType, cs.userID)
		}
	}
}

func (rm *RoutesManager) handleControlMessage(cs *clientSession, msgBytes []byte) {
	var msg WSMessage
	if err := json.Unmarshal(msgBytes, &msg); err != nil {
		// plain text is treated as a typed turn
		rm.submitUtterance(cs, string(msgBytes), types.SourceText)
		return
	}

	switch msg.Type {
	case MessageTypeInit:
		if msg.Data.OnboardingOption != "" {
			cs.ctrl.SetCompanionOption(msg.Data.OnboardingOption)
		}
	case MessageTypeText:
		rm.submitUtterance(cs, msg.Data.Content, types.SourceText)
	case MessageTypeStartRecording:
		if err := cs.pipeline.Start(); err != nil {
			rm.sendEvent(cs, "stt_notice", map[string]string{"code": "rejected", "message": err.Error()})
		}
	case MessageTypeStopRecording:
		go func() {
			if err := cs.pipeline.Stop(context.Background()); err != nil && !errors.Is(err, speech.ErrNotRecording) {
				rm.deps.Logger.Warnf("stop recording for user %s: %v", cs.userID, err)
			}
		}()
	case MessageTypeCancelRecording:
		cs.pipeline.Cancel()
	case MessageTypeFeedback:
		ok := cs.ctrl.SetFeedback(types.FeedbackPreference(msg.Data.Preference))
		rm.sendEvent(cs, "feedback_ack", ok)
	case MessageTypeContinue:
		go func() {
			if err := cs.ctrl.ContinueSameDirection(context.Background()); err != nil {
				rm.notifyTurnError(cs, err)
			}
		}()
	default:
		rm.deps.Logger.Warnf("unhandled control message %q from user %s", msg.Type, cs.userID)
	}
}

// Binary frame layout: sampleRate(4) + channels(2) + reserved(2) + PCM16LE.
// The read loop only enqueues; the per-session consumer goroutine drains, so
// a transcription in flight never stalls control messages.
func (rm *RoutesManager) handleAudioFrame(cs *clientSession, msgBytes []byte) {
	if len(msgBytes) < 8 {
		rm.deps.Logger.Errorf("invalid audio frame size %d from user %s", len(msgBytes), cs.userID)
		return
	}

	frame := audioring.Frame{
		Data:       msgBytes[8:],
		Timestamp:  time.Now(),
		SampleRate: int32(binary.LittleEndian.Uint32(msgBytes[0:4])),
		Channels:   int16(binary.LittleEndian.Uint16(msgBytes[4:6])),
	}

	// the ring absorbs bursts; oldest frames are evicted under pressure
	if err := cs.ring.Enqueue(frame); err != nil {
		rm.deps.Logger.Debugf("audio buffer issue for user %s: %v", cs.userID, err)
		return
	}
	select {
	case cs.audioWake <- struct{}{}:
	default:
	}
}

// audioLoop is the consumer side of the frame ring: one per session, feeding
// the speech pipeline until the connection closes.
func (rm *RoutesManager) audioLoop(cs *clientSession) {
	ctx := context.Background()
	for {
		select {
		case <-cs.done:
			return
		case <-cs.audioWake:
		}
		for {
			f, ok := cs.ring.Dequeue()
			if !ok {
				break
			}
			cs.pipeline.Feed(ctx, f)
		}
	}
}

func (rm *RoutesManager) submitUtterance(cs *clientSession, text string, source types.UtteranceSource) {
	go func() {
		err := cs.ctrl.Submit(context.Background(), types.Utterance{Text: text, Source: source})
		if err != nil {
			rm.notifyTurnError(cs, err)
		}
	}()
}

func (rm *RoutesManager) notifyTurnError(cs *clientSession, err error) {
	switch {
	case errors.Is(err, conversation.ErrBusy):
		rm.sendEvent(cs, "busy", nil)
	case errors.Is(err, conversation.ErrEnded):
		rm.sendEvent(cs, "session_ended", nil)
	case errors.Is(err, conversation.ErrEmptyUtterance):
		// nothing to say
	default:
		rm.deps.Logger.Errorf("turn failed for user %s: %v", cs.userID, err)
	}
}

func (rm *RoutesManager) sendEvent(cs *clientSession, name string, payload any) {
	_ = rm.deps.Publisher.SendEvent(context.Background(), cs.userID, cs.streamID, name, payload)
}

func (rm *RoutesManager) register(cs *clientSession) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.sessions[cs.streamID] = cs
}

func (rm *RoutesManager) cleanup(cs *clientSession) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	close(cs.done)
	cs.pipeline.Cancel()
	cs.ctrl.Close()
	rm.deps.Registry.RemoveDevice(cs.userID, cs.deviceID)
	delete(rm.sessions, cs.streamID)
	rm.deps.Logger.Infof("session %s cleaned up (connected %v)", cs.streamID, time.Since(cs.connectedAt))
}

func (rm *RoutesManager) lookup(c *gin.Context) (*clientSession, bool) {
	id, err := uuid.Parse(c.Query("stream"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid stream id"})
		return nil, false
	}
	rm.mu.RLock()
	cs, ok := rm.sessions[id]
	rm.mu.RUnlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown stream"})
		return nil, false
	}
	return cs, true
}

// handleTurn is the REST fallback for clients without a websocket turn path.
// Delivery still happens over the stream's endpoints.
func (rm *RoutesManager) handleTurn(c *gin.Context) {
	cs, ok := rm.lookup(c)
	if !ok {
		return
	}

	var body struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	err := cs.ctrl.Submit(c.Request.Context(), types.Utterance{Text: body.Text, Source: types.SourceText})
	switch {
	case errors.Is(err, conversation.ErrBusy):
		c.JSON(http.StatusConflict, gin.H{"error": "turn in progress"})
	case errors.Is(err, conversation.ErrEnded):
		c.JSON(http.StatusGone, gin.H{"error": "conversation ended"})
	case errors.Is(err, conversation.ErrEmptyUtterance):
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty utterance"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		snap := cs.ctrl.Snapshot()
		c.JSON(http.StatusOK, gin.H{
			"turnCount":     snap.TurnCount,
			"messageNumber": snap.MessageNumber,
		})
	}
}

func (rm *RoutesManager) handleFeedback(c *gin.Context) {
	cs, ok := rm.lookup(c)
	if !ok {
		return
	}

	var body struct {
		Preference string `json:"preference"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	if !cs.ctrl.SetFeedback(types.FeedbackPreference(body.Preference)) {
		c.JSON(http.StatusConflict, gin.H{"error": "no answer awaiting feedback"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (rm *RoutesManager) handleContinue(c *gin.Context) {
	cs, ok := rm.lookup(c)
	if !ok {
		return
	}

	err := cs.ctrl.ContinueSameDirection(c.Request.Context())
	switch {
	case errors.Is(err, conversation.ErrBusy):
		c.JSON(http.StatusConflict, gin.H{"error": "turn in progress"})
	case errors.Is(err, conversation.ErrEnded):
		c.JSON(http.StatusGone, gin.H{"error": "conversation ended"})
	case errors.Is(err, conversation.ErrEmptyUtterance):
		c.JSON(http.StatusConflict, gin.H{"error": "nothing to continue"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, gin.H{"turnCount": cs.ctrl.Snapshot().TurnCount})
	}
}

func (rm *RoutesManager) handleHistory(c *gin.Context) {
	cs, ok := rm.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"session": cs.ctrl.Snapshot(),
		"history": cs.ctrl.History(),
		"ended":   cs.ctrl.Ended(),
	})
}
