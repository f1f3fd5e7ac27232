package vad

import (
	audioring "github.com/gangnameyes/docent/pkg/io/stt/audioRing"
)

// Result of voice activity detection for one frame.
type Result struct {
	HasVoice  bool    `json:"hasVoice"`
	Amplitude float64 `json:"amplitude"`
}

// VAD decides whether a frame carries voice. Implementations must be
// synchronous and local; the recording loop thresholds every frame.
type VAD interface {
	DetectVoice(frame audioring.Frame) Result
}

type Config struct {
	SampleRate int32   `json:"sampleRate"` // expected sample rate (e.g., 16000)
	Threshold  float64 `json:"threshold"`  // mean abs amplitude above which a frame counts as voice
}

func DefaultConfig() Config {
	return Config{
		SampleRate: 16000,
		Threshold:  500,
	}
}
