package conversation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/looplab/fsm"

	"github.com/gangnameyes/docent/internal/config"
	"github.com/gangnameyes/docent/internal/constants/prompts"
	"github.com/gangnameyes/docent/internal/domains/delivery"
	"github.com/gangnameyes/docent/internal/domains/feedback"
	"github.com/gangnameyes/docent/internal/domains/intent"
	"github.com/gangnameyes/docent/internal/domains/narration"
	"github.com/gangnameyes/docent/internal/types"
	"github.com/gangnameyes/docent/pkg/Logger"
	"github.com/gangnameyes/docent/pkg/backend"
)

const (
	stateIdle       = "idle"
	stateThinking   = "thinking"
	stateDelivering = "delivering"
	stateEnded      = "ended"

	eventSubmit = "submit"
	eventFail   = "fail"
	eventDeliv  = "deliver"
	eventSettle = "settle"
	eventEnd    = "end"
)

var (
	ErrBusy           = errors.New("a turn is already in progress")
	ErrEnded          = errors.New("conversation has ended")
	ErrEmptyUtterance = errors.New("empty utterance")
)

const generationFailureText = "죄송해요, 지금은 답변을 만들지 못했어요. 잠시 후 다시 질문해 주세요."

type Generator interface {
	Generate(ctx context.Context, req backend.GenerationRequest) (*backend.GenerationResponse, error)
}

type Deliverer interface {
	Deliver(ctx context.Context, userID, sessionID uuid.UUID, segments []types.AnswerSegment, opts delivery.Options) error
}

type Recorder interface {
	Record(ctx context.Context, session *types.ConversationSession, turnNumber int, userText, answerText, systemPrompt string)
	AccrueTokens(ctx context.Context, session *types.ConversationSession, delta types.TokenUsage)
}

type Eventer interface {
	SendEvent(ctx context.Context, userID, sessionID uuid.UUID, name string, payload any) error
}

type Params struct {
	Config   config.ConversationConfig
	Session  *types.ConversationSession
	UserID   uuid.UUID
	StreamID uuid.UUID
	Router   *intent.Router
	Narrator *narration.Narrator
	Gen      Generator
	Queue    Deliverer
	Ledger   Recorder
	Events   Eventer
	Logger   *Logger.Logger
}

// Controller runs the turn loop of one conversation: accepts finalized
// utterances, routes them to a fixed answer or the generation backend,
// paces delivery, and enforces the turn budget. One controller per session.
type Controller struct {
	cfg      config.ConversationConfig
	session  *types.ConversationSession
	userID   uuid.UUID
	streamID uuid.UUID

	router   *intent.Router
	narrator *narration.Narrator
	gen      Generator
	queue    Deliverer
	ledger   Recorder
	events   Eventer
	feedback *feedback.Tracker
	logger   *Logger.Logger

	mu           sync.Mutex
	machine      *fsm.FSM
	history      []types.Message
	lastQuestion string
	graceTimer   *time.Timer
}

func NewController(p Params) *Controller {
	c := &Controller{
		cfg:      p.Config,
		session:  p.Session,
		userID:   p.UserID,
		streamID: p.StreamID,
		router:   p.Router,
		narrator: p.Narrator,
		gen:      p.Gen,
		queue:    p.Queue,
		ledger:   p.Ledger,
		events:   p.Events,
		feedback: feedback.NewTracker(),
		logger:   p.Logger,
	}
	c.machine = fsm.NewFSM(
		stateIdle,
		fsm.Events{
			{Name: eventSubmit, Src: []string{stateIdle}, Dst: stateThinking},
			{Name: eventFail, Src: []string{stateThinking}, Dst: stateIdle},
			{Name: eventDeliv, Src: []string{stateThinking}, Dst: stateDelivering},
			{Name: eventSettle, Src: []string{stateDelivering}, Dst: stateIdle},
			{Name: eventEnd, Src: []string{stateIdle}, Dst: stateEnded},
		},
		fsm.Callbacks{},
	)
	return c
}

// Submit runs one full turn for a finalized utterance and blocks until its
// answer has been delivered. Rejected while a turn is in flight or after
// the budget is spent.
func (c *Controller) Submit(ctx context.Context, utt types.Utterance) error {
	text := strings.TrimSpace(utt.Text)
	if text == "" {
		return ErrEmptyUtterance
	}

	c.mu.Lock()
	if c.machine.Current() == stateEnded || c.session.TurnCount >= c.cfg.MaxTurns {
		c.mu.Unlock()
		return ErrEnded
	}
	if c.machine.Current() != stateIdle {
		c.mu.Unlock()
		return ErrBusy
	}
	if err := c.machine.Event(ctx, eventSubmit); err != nil {
		c.mu.Unlock()
		return ErrBusy
	}
	c.history = append(c.history, types.NewUserMessage(text))
	c.mu.Unlock()

	return c.runTurn(ctx, text)
}

func (c *Controller) runTurn(ctx context.Context, text string) error {
	thinkingStarted := time.Now()
	snap := c.Snapshot()
	log := c.logger.ForSession(snap.SessionID, snap.TurnCount+1)

	if topic, ok := c.router.MatchFixedTopic(text); ok {
		log.Infof("fixed topic %q matched", topic.TopicID)
		c.sendEvent(ctx, "thinking", topic.ThinkingText)
		return c.deliverAndComplete(ctx, text, topic.Answers, nil, nil, thinkingStarted, log)
	}

	req := backend.GenerationRequest{
		Question:         text,
		SystemPrompt:     prompts.ForTurn(snap.TurnCount + 1),
		History:          c.compressedHistory(),
		RowIndex:         snap.RowIndex,
		SessionID:        snap.SessionID,
		MessageNumber:    snap.MessageNumber + 1,
		Feedback:         c.feedback.Current(),
		OnboardingOption: snap.CompanionOption,
	}

	type genOut struct {
		resp *backend.GenerationResponse
		err  error
	}
	genCh := make(chan genOut, 1)
	go func() {
		resp, err := c.gen.Generate(ctx, req)
		genCh <- genOut{resp: resp, err: err}
	}()

	catCh := make(chan *types.Category, 1)
	go func() {
		catCh <- c.router.ClassifyCategory(ctx, text)
	}()

	nar := c.narrator.Start(ctx, text, &snap)
	c.sendEvent(ctx, "thinking", nar.Wait(ctx))

	out := <-genCh
	nar.Cancel()

	if out.err != nil {
		log.Errorf("generation failed: %v", out.err)
		c.failTurn(ctx)
		return nil
	}

	c.mu.Lock()
	c.session.AdoptCoordinates(out.resp.SessionID, out.resp.RowIndex)
	c.mu.Unlock()
	segments := segmentsFromAnswer(out.resp.Answer)

	var category *types.Category
	select {
	case category = <-catCh:
	default:
		// classification is advisory, never wait for it past generation
	}

	return c.deliverAndComplete(ctx, text, segments, out.resp.Tokens, category, thinkingStarted, log)
}

func (c *Controller) deliverAndComplete(
	ctx context.Context,
	userText string,
	segments []types.AnswerSegment,
	tokens *types.TokenUsage,
	category *types.Category,
	thinkingStarted time.Time,
	log *Logger.Logger,
) error {
	c.mu.Lock()
	firstTurn := c.session.TurnCount == 0
	contextWord := companionContext(c.session.CompanionOption)
	if err := c.machine.Event(ctx, eventDeliv); err != nil {
		c.mu.Unlock()
		return err
	}
	c.mu.Unlock()

	opts := delivery.Options{
		ThinkingStarted:  thinkingStarted,
		CombineNarration: firstTurn && len(segments) > 1,
		ContextWord:      contextWord,
	}
	if err := c.queue.Deliver(ctx, c.userID, c.streamID, segments, opts); err != nil {
		log.Warnf("delivery degraded: %v", err)
	}

	c.completeTurn(ctx, userText, segments, tokens, category)
	return nil
}

func (c *Controller) completeTurn(
	ctx context.Context,
	userText string,
	segments []types.AnswerSegment,
	tokens *types.TokenUsage,
	category *types.Category,
) {
	c.mu.Lock()
	msg := types.NewAssistantMessage(segments)
	msg.Tokens = tokens
	msg.QuestionCategory = category
	if len(segments) > 0 {
		msg.ThumbnailURL = segments[0].Image
		msg.SiteURL = segments[0].URL
		msg.LinkText = segments[0].LinkText
	}
	c.history = append(c.history, msg)

	c.session.TurnCount++
	c.session.MessageNumber++
	if category != nil {
		c.session.LastCategory = category
	}
	c.lastQuestion = userText
	turn := c.session.TurnCount
	reachedCap := turn >= c.cfg.MaxTurns

	_ = c.machine.Event(ctx, eventSettle)
	c.mu.Unlock()

	c.feedback.Arm()

	// one log row per turn; only the first segment's text is recorded
	answerText := ""
	if len(segments) > 0 {
		answerText = segments[0].Text
	}
	prompt := prompts.ForTurn(turn)
	bg := context.WithoutCancel(ctx)
	go func() {
		c.ledger.Record(bg, c.session, turn, userText, answerText, prompt)
		if tokens != nil {
			c.ledger.AccrueTokens(bg, c.session, *tokens)
		}
	}()

	if reachedCap {
		c.mu.Lock()
		c.graceTimer = time.AfterFunc(c.cfg.GraceWindow, func() { c.End(bg) })
		c.mu.Unlock()
	}
}

func (c *Controller) failTurn(ctx context.Context) {
	c.mu.Lock()
	c.history = append(c.history, types.NewAssistantMessage([]types.AnswerSegment{{
		Text:          generationFailureText,
		SkipNarration: true,
	}}))
	_ = c.machine.Event(ctx, eventFail)
	c.mu.Unlock()

	c.sendEvent(ctx, "notice", generationFailureText)
}

// End closes the conversation. Reachable only from idle; safe to call twice.
func (c *Controller) End(ctx context.Context) {
	c.mu.Lock()
	if c.machine.Current() != stateIdle {
		c.mu.Unlock()
		return
	}
	_ = c.machine.Event(ctx, eventEnd)
	c.mu.Unlock()

	c.sendEvent(ctx, "session_ended", nil)
}

// SetFeedback records a like/dislike for the most recent answer. One signal
// per answer.
func (c *Controller) SetFeedback(pref types.FeedbackPreference) bool {
	if !c.feedback.Set(pref) {
		return false
	}
	c.mu.Lock()
	c.session.Feedback = pref
	c.mu.Unlock()
	return true
}

// ContinueSameDirection re-asks the previous question with feedback forced
// positive, steering the next answer toward more of the same.
func (c *Controller) ContinueSameDirection(ctx context.Context) error {
	c.mu.Lock()
	question := c.lastQuestion
	c.mu.Unlock()
	if question == "" {
		return ErrEmptyUtterance
	}

	c.feedback.ForcePositive()
	c.mu.Lock()
	c.session.Feedback = types.FeedbackPositive
	c.mu.Unlock()

	return c.Submit(ctx, types.Utterance{Text: question, Source: types.SourceText})
}

// CanRecord implements the speech gate: the microphone may open only while
// the assistant is idle and the budget has turns left.
func (c *Controller) CanRecord() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.machine.Current() == stateIdle && c.session.TurnCount < c.cfg.MaxTurns
}

// Ended reports whether the conversation is closed.
func (c *Controller) Ended() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.machine.Current() == stateEnded
}

// History returns a copy of the conversation transcript.
func (c *Controller) History() []types.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]types.Message, len(c.history))
	copy(out, c.history)
	return out
}

// Snapshot returns a copy of the session state. Handlers read through this
// instead of the live pointer so an in-flight turn can't race them.
func (c *Controller) Snapshot() types.ConversationSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	return *c.session
}

// SetCompanionOption updates who the visitor is here with. Takes effect from
// the next turn.
func (c *Controller) SetCompanionOption(option string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session.CompanionOption = option
}

// Close stops the grace timer.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.graceTimer != nil {
		c.graceTimer.Stop()
	}
}

func (c *Controller) sendEvent(ctx context.Context, name string, payload any) {
	if c.events == nil {
		return
	}
	if err := c.events.SendEvent(ctx, c.userID, c.streamID, name, payload); err != nil {
		c.logger.Debugf("event %q not delivered: %v", name, err)
	}
}

// compressedHistory bounds prompt growth: user turns go in verbatim, prior
// assistant turns are reduced to at most two keywords each. The trailing
// user message (the current question) is excluded.
func (c *Controller) compressedHistory() []backend.HistoryEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	msgs := c.history
	if n := len(msgs); n > 0 && msgs[n-1].Role == types.USER {
		msgs = msgs[:n-1]
	}

	entries := make([]backend.HistoryEntry, 0, len(msgs))
	for _, m := range msgs {
		content := m.Content
		if m.Role == types.ASSISTANT {
			content = answerKeywords(m)
		}
		entries = append(entries, backend.HistoryEntry{Role: m.Role, Content: content})
	}
	return entries
}

func segmentsFromAnswer(answer string) []types.AnswerSegment {
	var segments []types.AnswerSegment
	for _, part := range strings.Split(answer, "\n\n") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		segments = append(segments, types.AnswerSegment{Text: part})
	}
	return segments
}

func companionContext(option string) string {
	switch option {
	case "연인":
		return "연인과 함께"
	case "가족":
		return "가족과 함께"
	case "친구":
		return "친구와 함께"
	case "혼자":
		return "혼자서"
	default:
		return ""
	}
}
