package delivery

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/gangnameyes/docent/internal/types"
	"github.com/gangnameyes/docent/pkg/Logger"
	"github.com/gangnameyes/docent/pkg/io/tts/speech"
)

const audioChunkSize = 4096

type Transport interface {
	SendSegment(ctx context.Context, userID, sessionID uuid.UUID, seq int, segment types.AnswerSegment) error
	SendAudioFrame(ctx context.Context, userID, sessionID uuid.UUID, frame []byte) error
	SendEvent(ctx context.Context, userID, sessionID uuid.UUID, name string, payload any) error
}

type Synthesizer interface {
	Prepare(ctx context.Context, text string) (*speech.Prepared, error)
}

// Options shapes one delivery run.
type Options struct {
	// ThinkingStarted anchors the minimum-thinking floor. Delivery of the
	// first segment never starts before the floor has elapsed since this
	// instant, so the answer doesn't pop in faster than a person can track.
	ThinkingStarted time.Time
	// CombineNarration collapses a multi-segment answer into one spoken
	// recommendation line, voiced with the first segment only.
	CombineNarration bool
	// ContextWord prefixes the combined line, e.g. "연인과 함께".
	ContextWord string
}

// Queue pushes answer segments to the user's endpoints in order, paced, with
// per-segment narration audio.
type Queue struct {
	transport     Transport
	tts           Synthesizer
	thinkingFloor time.Duration
	segmentGap    time.Duration
	onTokens      func(types.TokenUsage)
	logger        *Logger.Logger
}

func NewQueue(
	transport Transport,
	tts Synthesizer,
	thinkingFloor, segmentGap time.Duration,
	onTokens func(types.TokenUsage),
	logger *Logger.Logger,
) *Queue {
	return &Queue{
		transport:     transport,
		tts:           tts,
		thinkingFloor: thinkingFloor,
		segmentGap:    segmentGap,
		onTokens:      onTokens,
		logger:        logger,
	}
}

// Deliver sends every segment in order. Segment text always reaches the
// client even when narration synthesis fails; only transport errors abort.
func (q *Queue) Deliver(ctx context.Context, userID, sessionID uuid.UUID, segments []types.AnswerSegment, opts Options) error {
	if len(segments) == 0 {
		return nil
	}

	if err := q.waitThinkingFloor(ctx, opts.ThinkingStarted); err != nil {
		return err
	}

	var combined string
	if opts.CombineNarration && len(segments) > 1 {
		combined = CombinedNarration(PlaceNames(segments), opts.ContextWord)
	}

	for i, seg := range segments {
		if i > 0 {
			if err := sleepCtx(ctx, q.segmentGap); err != nil {
				return err
			}
		}
		if err := q.transport.SendSegment(ctx, userID, sessionID, i, seg); err != nil {
			return err
		}

		if seg.SkipNarration {
			if seg.NarrationAsset != "" {
				if err := q.transport.SendEvent(ctx, userID, sessionID, "narration_asset", seg.NarrationAsset); err != nil {
					q.logger.Warnf("narration asset event failed: %v", err)
				}
			}
			continue
		}

		switch {
		case combined != "" && i == 0:
			q.narrate(ctx, userID, sessionID, combined)
		case combined != "":
			// remaining segments of a combined answer stay silent
		default:
			q.narrate(ctx, userID, sessionID, seg.Text)
		}
	}
	return nil
}

func (q *Queue) waitThinkingFloor(ctx context.Context, started time.Time) error {
	wait := q.thinkingFloor
	if !started.IsZero() {
		wait -= time.Since(started)
	}
	return sleepCtx(ctx, wait)
}

func (q *Queue) narrate(ctx context.Context, userID, sessionID uuid.UUID, text string) {
	if q.tts == nil || text == "" {
		return
	}

	prepared, err := q.tts.Prepare(ctx, text)
	if err != nil {
		q.logger.Warnf("narration synthesis failed, delivering text only: %v", err)
		return
	}
	if prepared.Tokens != nil && q.onTokens != nil {
		// accrual may do store I/O; segment pacing never waits on it
		go q.onTokens(*prepared.Tokens)
	}

	for off := 0; off < len(prepared.Audio); off += audioChunkSize {
		end := off + audioChunkSize
		if end > len(prepared.Audio) {
			end = len(prepared.Audio)
		}
		if err := q.transport.SendAudioFrame(ctx, userID, sessionID, prepared.Audio[off:end]); err != nil {
			q.logger.Warnf("narration audio dropped mid-stream: %v", err)
			return
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
