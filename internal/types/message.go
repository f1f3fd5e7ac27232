package types

import (
	"time"
)

type Role string

const (
	USER      Role = "user"
	ASSISTANT Role = "assistant"
)

type UtteranceSource string

const (
	SourceVoice UtteranceSource = "voice"
	SourceText  UtteranceSource = "text"
)

// Utterance is one finalized user input. Created at submission, consumed once.
type Utterance struct {
	Text   string          `json:"text"`
	Source UtteranceSource `json:"source"`
}

// Category of an information request, assigned by the classification backend.
type Category string

// AnswerSegment is one discrete piece of an assistant answer.
// Immutable once constructed, either from a fixed template or a generation response.
type AnswerSegment struct {
	Text     string `json:"text"`
	Image    string `json:"image,omitempty"`
	URL      string `json:"url,omitempty"`
	LinkText string `json:"linkText,omitempty"`
	// SkipNarration suppresses synthesized TTS for this segment.
	// NarrationAsset names a pre-recorded clip played instead, when set.
	SkipNarration  bool   `json:"skipNarration,omitempty"`
	NarrationAsset string `json:"narrationAsset,omitempty"`
}

// TokenUsage accumulates additively per session, never decremented.
type TokenUsage struct {
	Input  int `json:"input"`
	Output int `json:"output"`
	Total  int `json:"total"`
}

func (t TokenUsage) Add(o TokenUsage) TokenUsage {
	return TokenUsage{
		Input:  t.Input + o.Input,
		Output: t.Output + o.Output,
		Total:  t.Total + o.Total,
	}
}

func (t TokenUsage) IsZero() bool {
	return t.Input == 0 && t.Output == 0 && t.Total == 0
}

// Message is one entry of the append-only conversation history.
// Owned exclusively by the turn controller.
type Message struct {
	Role             Role            `json:"role"`
	Content          string          `json:"content"`
	Segments         []AnswerSegment `json:"segments,omitempty"`
	Tokens           *TokenUsage     `json:"tokens,omitempty"`
	ThumbnailURL     string          `json:"thumbnailUrl,omitempty"`
	SiteURL          string          `json:"siteUrl,omitempty"`
	LinkText         string          `json:"linkText,omitempty"`
	QuestionCategory *Category       `json:"questionCategory,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
}

func NewUserMessage(text string) Message {
	return Message{Role: USER, Content: text, CreatedAt: time.Now()}
}

func NewAssistantMessage(segments []AnswerSegment) Message {
	content := ""
	if len(segments) > 0 {
		content = segments[0].Text
	}
	return Message{Role: ASSISTANT, Content: content, Segments: segments, CreatedAt: time.Now()}
}
