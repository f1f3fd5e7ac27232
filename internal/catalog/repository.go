package catalog

import (
	"strings"
	"unicode"
)

// Repository resolves user utterances against the fixed question set.
type Repository struct {
	topics []FixedQATopic
	byID   map[string]*FixedQATopic
}

func NewRepository() *Repository {
	return newRepository(builtinTopics())
}

func newRepository(topics []FixedQATopic) *Repository {
	r := &Repository{
		topics: topics,
		byID:   make(map[string]*FixedQATopic, len(topics)),
	}
	for i := range r.topics {
		r.byID[r.topics[i].TopicID] = &r.topics[i]
	}
	return r
}

// Topics returns all topics in registration order.
func (r *Repository) Topics() []FixedQATopic {
	return r.topics
}

// ByID looks a topic up by its identifier.
func (r *Repository) ByID(topicID string) (*FixedQATopic, bool) {
	t, ok := r.byID[topicID]
	return t, ok
}

// Match resolves an utterance to a topic. Matching is containment of a
// normalized trigger keyword in the normalized utterance, so "강남아이즈",
// "강남 아이즈" and "GangnamEyes" all land on the same topic. Registration
// order breaks ties.
func (r *Repository) Match(text string) (*FixedQATopic, bool) {
	norm := Normalize(text)
	if norm == "" {
		return nil, false
	}
	for i := range r.topics {
		for _, kw := range r.topics[i].TriggerKeywords {
			if strings.Contains(norm, Normalize(kw)) {
				return &r.topics[i], true
			}
		}
	}
	return nil, false
}

// Question returns the topic's question wording for a companion option,
// falling back to the default variant.
func (t *FixedQATopic) Question(companionOption string) string {
	if q, ok := t.QuestionVariants[companionOption]; ok {
		return q
	}
	return t.QuestionVariants[""]
}

// Normalize lowercases the input and strips whitespace and punctuation so
// spacing and symbol differences cannot defeat a match.
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		if unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
