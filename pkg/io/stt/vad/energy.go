package vad

import (
	audioring "github.com/gangnameyes/docent/pkg/io/stt/audioRing"
)

// energyVAD thresholds the mean absolute amplitude of each frame. No model,
// no network; deterministic per frame.
type energyVAD struct {
	cfg Config
}

func NewEnergyVAD(cfg Config) VAD {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultConfig().Threshold
	}
	return &energyVAD{cfg: cfg}
}

// DetectVoice implements VAD.
func (e *energyVAD) DetectVoice(frame audioring.Frame) Result {
	amp := frame.MeanAbsAmplitude()
	return Result{
		HasVoice:  amp > e.cfg.Threshold,
		Amplitude: amp,
	}
}
