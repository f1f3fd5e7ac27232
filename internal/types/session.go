package types

import "github.com/google/uuid"

type FeedbackPreference string

const (
	FeedbackPositive FeedbackPreference = "positive"
	FeedbackNegative FeedbackPreference = "negative"
	FeedbackNone     FeedbackPreference = ""
)

// ConversationSession is the per-tab session value object. It is created
// lazily on the first successful backend exchange (when the logging boundary
// hands back a sessionId and rowIndex) and passed by reference to every
// component; there is no process-wide session singleton.
type ConversationSession struct {
	LocalID uuid.UUID `json:"localId"`

	// Backend correlation. SessionID is empty and RowIndex zero until the
	// first log append succeeds; RowIndex is 1-based in the backing store.
	SessionID string `json:"sessionId,omitempty"`
	RowIndex  int    `json:"rowIndex,omitempty"`

	// MessageNumber increments by exactly one per user turn, regardless of
	// how many answer segments that turn produced.
	MessageNumber int `json:"messageNumber"`

	// TurnCount counts successful user turns only. Capped by the budget.
	TurnCount int `json:"turnCount"`

	Feedback     FeedbackPreference `json:"feedbackPreference,omitempty"`
	LastCategory *Category          `json:"lastCategory,omitempty"`

	// Onboarding companion-type option, parameterizes fixed-QA variants and
	// the combined narration context word.
	CompanionOption string `json:"onboardingOption,omitempty"`
}

func NewConversationSession(companionOption string) *ConversationSession {
	return &ConversationSession{
		LocalID:         uuid.New(),
		CompanionOption: companionOption,
	}
}

// Correlated reports whether the backend has issued log coordinates yet.
func (s *ConversationSession) Correlated() bool {
	return s.SessionID != "" && s.RowIndex > 0
}

// AdoptCoordinates stores backend coordinates exactly once; later calls with
// different values are ignored so retries cannot re-key the session.
func (s *ConversationSession) AdoptCoordinates(sessionID string, rowIndex int) {
	if s.Correlated() {
		return
	}
	if sessionID != "" {
		s.SessionID = sessionID
	}
	if rowIndex > 0 {
		s.RowIndex = rowIndex
	}
}
