package vad

import (
	"encoding/binary"
	"testing"

	audioring "github.com/gangnameyes/docent/pkg/io/stt/audioRing"
)

func frameOf(amplitude int16, n int) audioring.Frame {
	data := make([]byte, n*2)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint16(data[2*i:], uint16(amplitude))
	}
	return audioring.Frame{Data: data, SampleRate: 16000, Channels: 1}
}

func TestEnergyVAD(t *testing.T) {
	v := NewEnergyVAD(Config{SampleRate: 16000, Threshold: 500})

	loud := v.DetectVoice(frameOf(2000, 160))
	if !loud.HasVoice {
		t.Errorf("Expected voice for amplitude %v", loud.Amplitude)
	}

	quiet := v.DetectVoice(frameOf(100, 160))
	if quiet.HasVoice {
		t.Errorf("Expected silence for amplitude %v", quiet.Amplitude)
	}
}

func TestEnergyVADDefaultThreshold(t *testing.T) {
	v := NewEnergyVAD(Config{})
	if r := v.DetectVoice(frameOf(0, 160)); r.HasVoice {
		t.Error("Zero frame should never count as voice")
	}
}
