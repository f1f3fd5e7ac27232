package feedback

import (
	"sync"

	"github.com/gangnameyes/docent/internal/types"
)

// Tracker holds the user's most recent like/dislike signal. At most one
// preference is active at a time and it can be set once per delivered
// answer; the next generation request folds it in as a soft hint.
type Tracker struct {
	mu      sync.Mutex
	current types.FeedbackPreference
	armed   bool
}

func NewTracker() *Tracker {
	return &Tracker{}
}

// Arm opens the one-shot window after an answer has been delivered.
func (t *Tracker) Arm() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.armed = true
}

// Set records the signal. Returns false when no answer is awaiting feedback
// or feedback for the current answer was already given.
func (t *Tracker) Set(pref types.FeedbackPreference) bool {
	if pref != types.FeedbackPositive && pref != types.FeedbackNegative {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.armed {
		return false
	}
	t.current = pref
	t.armed = false
	return true
}

// ForcePositive overrides the preference, used by the "continue in this
// direction" follow-up action.
func (t *Tracker) ForcePositive() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current = types.FeedbackPositive
	t.armed = false
}

// Current returns the active preference, or FeedbackNone.
func (t *Tracker) Current() types.FeedbackPreference {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}
