package server

import (
	"context"
	"encoding/binary"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gangnameyes/docent/internal/config"
	"github.com/gangnameyes/docent/internal/domains/speech"
	"github.com/gangnameyes/docent/pkg/Logger"
	"github.com/gangnameyes/docent/pkg/io/stt"
	audioring "github.com/gangnameyes/docent/pkg/io/stt/audioRing"
	"github.com/gangnameyes/docent/pkg/io/stt/vad"
)

// blockingTranscriber holds the STT call open until released, standing in
// for a slow transcription backend.
type blockingTranscriber struct {
	entered chan struct{}
	release chan struct{}
}

func (b *blockingTranscriber) Transcribe(ctx context.Context, _ []byte) (*stt.Result, error) {
	close(b.entered)
	select {
	case <-b.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &stt.Result{Success: true, Text: "근처 맛집 알려줘"}, nil
}

func packFrame(sampleRate int32, samples []int16) []byte {
	buf := make([]byte, 8+len(samples)*2)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(sampleRate))
	binary.LittleEndian.PutUint16(buf[4:6], 1)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[8+2*i:], uint16(s))
	}
	return buf
}

func tone(n int, amp int16) []int16 {
	samples := make([]int16, n)
	for i := range samples {
		samples[i] = amp
	}
	return samples
}

func TestAudioIngestionNotBlockedByTranscription(t *testing.T) {
	tr := &blockingTranscriber{entered: make(chan struct{}), release: make(chan struct{})}
	finals := make(chan string, 1)

	cfg := config.VoiceConfig{
		SampleRate:       16000,
		Channels:         1,
		SilenceThreshold: 100,
		SilenceWindow:    30 * time.Millisecond,
		MinRecording:     10 * time.Millisecond,
		BufferBytes:      64 * 1024,
	}
	detector := vad.NewEnergyVAD(vad.Config{SampleRate: cfg.SampleRate, Threshold: cfg.SilenceThreshold})
	pipeline := speech.NewPipeline(cfg, detector, tr, nil,
		func(text string) { finals <- text }, nil, Logger.New(false))

	rm := NewRoutesManager(Dependencies{Logger: Logger.New(false)})
	cs := &clientSession{
		userID:    uuid.New(),
		pipeline:  pipeline,
		ring:      audioring.New(cfg.BufferBytes),
		audioWake: make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	t.Cleanup(func() { close(cs.done) })
	go rm.audioLoop(cs)

	require.NoError(t, pipeline.Start())

	// 20ms of voice, then enough silence for the auto-stop
	const frameSamples = 320
	rm.handleAudioFrame(cs, packFrame(cfg.SampleRate, tone(frameSamples, 1000)))
	rm.handleAudioFrame(cs, packFrame(cfg.SampleRate, tone(frameSamples, 0)))
	rm.handleAudioFrame(cs, packFrame(cfg.SampleRate, tone(frameSamples, 0)))

	select {
	case <-tr.entered:
	case <-time.After(time.Second):
		t.Fatal("auto-stop never reached transcription")
	}

	// transcription is in flight on the consumer goroutine: ingestion must
	// return immediately and the ring must hold what arrives meanwhile
	fed := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			rm.handleAudioFrame(cs, packFrame(cfg.SampleRate, tone(frameSamples, 0)))
		}
		close(fed)
	}()
	select {
	case <-fed:
	case <-time.After(time.Second):
		t.Fatal("audio ingestion blocked while transcription was in flight")
	}
	assert.Greater(t, cs.ring.Len(), 0)

	close(tr.release)
	select {
	case text := <-finals:
		assert.Equal(t, "근처 맛집 알려줘", text)
	case <-time.After(time.Second):
		t.Fatal("transcribed utterance never surfaced")
	}
	assert.Eventually(t, func() bool { return cs.ring.Len() == 0 },
		time.Second, 5*time.Millisecond)
}
