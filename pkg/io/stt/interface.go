package stt

import "context"

// Result is the speech-to-text boundary response.
type Result struct {
	Success bool   `json:"success"`
	Text    string `json:"text,omitempty"`
	Details string `json:"details,omitempty"`
}

// Transcriber converts one encoded audio buffer into text.
type Transcriber interface {
	Transcribe(ctx context.Context, wavData []byte) (*Result, error)
}
