package speech

import (
	"context"
	"fmt"
	"sync"

	"github.com/gangnameyes/docent/internal/config"
	"github.com/gangnameyes/docent/pkg/Logger"
	"github.com/gangnameyes/docent/pkg/io/stt"
	audioring "github.com/gangnameyes/docent/pkg/io/stt/audioRing"
	"github.com/gangnameyes/docent/pkg/io/stt/vad"
	"github.com/gangnameyes/docent/pkg/io/stt/wav"
)

type captureState int

const (
	stateIdle captureState = iota
	stateRecording
	stateFinalizing
)

// Notice codes surfaced to the client when a recording cannot become a turn.
const (
	NoticeTooShort        = "too_short"
	NoticeTranscribeError = "transcribe_error"
)

var (
	ErrAlreadyRecording = fmt.Errorf("recording already in progress")
	ErrNotRecording     = fmt.Errorf("no recording in progress")
	ErrAssistantBusy    = fmt.Errorf("assistant is responding")
)

// Gate lets the conversation side veto recording while an answer is being
// produced or spoken.
type Gate interface {
	CanRecord() bool
}

// Pipeline accumulates microphone frames, detects end of speech, and turns
// the captured utterance into text. Exactly one finalize happens per
// recording no matter how stop is triggered.
type Pipeline struct {
	cfg         config.VoiceConfig
	vad         vad.VAD
	transcriber stt.Transcriber
	gate        Gate
	logger      *Logger.Logger

	// onFinal receives the transcribed utterance of a finished recording.
	onFinal func(text string)
	// onNotice fires at most once per recording when it produced no turn.
	onNotice func(code, message string)

	mu         sync.Mutex
	state      captureState
	frames     []audioring.Frame
	silence    float64 // trailing silence, seconds of audio time
	total      float64 // total captured, seconds of audio time
	noticeSent bool
}

func NewPipeline(
	cfg config.VoiceConfig,
	detector vad.VAD,
	transcriber stt.Transcriber,
	gate Gate,
	onFinal func(text string),
	onNotice func(code, message string),
	logger *Logger.Logger,
) *Pipeline {
	return &Pipeline{
		cfg:         cfg,
		vad:         detector,
		transcriber: transcriber,
		gate:        gate,
		onFinal:     onFinal,
		onNotice:    onNotice,
		logger:      logger,
	}
}

// Start opens a recording. Refused while the assistant holds the floor or a
// recording is already open.
func (p *Pipeline) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != stateIdle {
		return ErrAlreadyRecording
	}
	if p.gate != nil && !p.gate.CanRecord() {
		return ErrAssistantBusy
	}

	p.state = stateRecording
	p.frames = p.frames[:0]
	p.silence = 0
	p.total = 0
	p.noticeSent = false
	p.logger.Debug("recording started")
	return nil
}

// Feed ingests one captured frame. Frames arriving outside a recording are
// dropped. Returns true when this frame triggered the automatic stop.
func (p *Pipeline) Feed(ctx context.Context, frame audioring.Frame) bool {
	p.mu.Lock()
	if p.state != stateRecording {
		p.mu.Unlock()
		return false
	}

	p.frames = append(p.frames, frame)
	dur := frame.Duration().Seconds()
	p.total += dur
	if p.vad.DetectVoice(frame).HasVoice {
		p.silence = 0
	} else {
		p.silence += dur
	}

	autoStop := p.silence >= p.cfg.SilenceWindow.Seconds() &&
		p.total >= p.cfg.MinRecording.Seconds()
	if !autoStop {
		p.mu.Unlock()
		return false
	}

	p.state = stateFinalizing
	frames := p.takeFramesLocked()
	p.mu.Unlock()

	p.logger.Debugf("auto-stop after %.1fs silence (%.1fs total)", p.silence, p.total)
	p.finalize(ctx, frames)
	return true
}

// Stop ends the recording manually. Harmless when auto-stop already fired.
func (p *Pipeline) Stop(ctx context.Context) error {
	p.mu.Lock()
	if p.state != stateRecording {
		p.mu.Unlock()
		return ErrNotRecording
	}
	p.state = stateFinalizing
	frames := p.takeFramesLocked()
	total := p.total
	p.mu.Unlock()

	if total < p.cfg.MinRecording.Seconds() {
		p.notice(NoticeTooShort, "말씀이 너무 짧았어요. 다시 한 번 말씀해 주세요.")
		p.reset()
		return nil
	}
	p.finalize(ctx, frames)
	return nil
}

// Cancel abandons the recording and discards everything captured so far.
func (p *Pipeline) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = stateIdle
	p.frames = nil
	p.silence = 0
	p.total = 0
}

// Recording reports whether a capture is currently open.
func (p *Pipeline) Recording() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state == stateRecording
}

func (p *Pipeline) takeFramesLocked() []audioring.Frame {
	frames := p.frames
	p.frames = nil
	return frames
}

func (p *Pipeline) finalize(ctx context.Context, frames []audioring.Frame) {
	defer p.reset()

	wavData, err := wav.Encode(frames)
	if err != nil {
		p.logger.Errorf("wav encoding failed: %v", err)
		p.notice(NoticeTranscribeError, "음성을 처리하지 못했어요. 다시 시도해 주세요.")
		return
	}

	result, err := p.transcriber.Transcribe(ctx, wavData)
	if err != nil {
		p.logger.Errorf("transcription failed: %v", err)
		p.notice(NoticeTranscribeError, "음성을 처리하지 못했어요. 다시 시도해 주세요.")
		return
	}
	if !result.Success || result.Text == "" {
		p.logger.Infof("transcription rejected: %s", result.Details)
		p.notice(NoticeTranscribeError, "말씀을 알아듣지 못했어요. 다시 한 번 말씀해 주세요.")
		return
	}

	if p.onFinal != nil {
		p.onFinal(result.Text)
	}
}

func (p *Pipeline) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = stateIdle
	p.silence = 0
	p.total = 0
}

func (p *Pipeline) notice(code, message string) {
	p.mu.Lock()
	if p.noticeSent || p.onNotice == nil {
		p.mu.Unlock()
		return
	}
	p.noticeSent = true
	p.mu.Unlock()
	p.onNotice(code, message)
}
