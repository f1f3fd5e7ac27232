package delivery

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gangnameyes/docent/internal/types"
	"github.com/gangnameyes/docent/pkg/Logger"
	"github.com/gangnameyes/docent/pkg/io/tts/speech"
)

type sentOp struct {
	kind string // "segment", "audio", "event"
	seq  int
	text string
	name string
}

type recordingTransport struct {
	mu  sync.Mutex
	ops []sentOp
}

func (r *recordingTransport) SendSegment(_ context.Context, _, _ uuid.UUID, seq int, seg types.AnswerSegment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, sentOp{kind: "segment", seq: seq, text: seg.Text})
	return nil
}

func (r *recordingTransport) SendAudioFrame(_ context.Context, _, _ uuid.UUID, _ []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, sentOp{kind: "audio"})
	return nil
}

func (r *recordingTransport) SendEvent(_ context.Context, _, _ uuid.UUID, name string, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	text, _ := payload.(string)
	r.ops = append(r.ops, sentOp{kind: "event", name: name, text: text})
	return nil
}

type stubTTS struct {
	mu       sync.Mutex
	prepared []string
	err      error
	tokens   *types.TokenUsage
}

func (s *stubTTS) Prepare(_ context.Context, text string) (*speech.Prepared, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	s.prepared = append(s.prepared, text)
	return &speech.Prepared{Audio: []byte{1, 2, 3}, Tokens: s.tokens}, nil
}

func newTestQueue(tp Transport, tts Synthesizer, onTokens func(types.TokenUsage)) *Queue {
	return NewQueue(tp, tts, time.Millisecond, time.Millisecond, onTokens, Logger.New(false))
}

func TestDeliverKeepsSegmentOrder(t *testing.T) {
	tp := &recordingTransport{}
	tts := &stubTTS{}
	q := newTestQueue(tp, tts, nil)

	segments := []types.AnswerSegment{
		{Text: "첫 번째"},
		{Text: "두 번째"},
		{Text: "세 번째"},
	}
	require.NoError(t, q.Deliver(context.Background(), uuid.New(), uuid.New(), segments, Options{}))

	var seqs []int
	for _, op := range tp.ops {
		if op.kind == "segment" {
			seqs = append(seqs, op.seq)
		}
	}
	assert.Equal(t, []int{0, 1, 2}, seqs)
	assert.Equal(t, []string{"첫 번째", "두 번째", "세 번째"}, tts.prepared)
}

func TestDeliverHonorsThinkingFloor(t *testing.T) {
	tp := &recordingTransport{}
	q := NewQueue(tp, nil, 60*time.Millisecond, 0, nil, Logger.New(false))

	started := time.Now()
	require.NoError(t, q.Deliver(context.Background(), uuid.New(), uuid.New(),
		[]types.AnswerSegment{{Text: "늦게 와야 해요"}},
		Options{ThinkingStarted: started}))

	assert.GreaterOrEqual(t, time.Since(started), 55*time.Millisecond)
}

func TestDeliverCombinedNarrationVoicesFirstSegmentOnly(t *testing.T) {
	tp := &recordingTransport{}
	tts := &stubTTS{}
	q := newTestQueue(tp, tts, nil)

	segments := []types.AnswerSegment{
		{Text: "'메가박스 코엑스'는 영화 보기 좋아요."},
		{Text: "'코엑스 아쿠아리움'도 추천해요."},
	}
	require.NoError(t, q.Deliver(context.Background(), uuid.New(), uuid.New(), segments, Options{
		CombineNarration: true,
		ContextWord:      "연인과 함께",
	}))

	require.Len(t, tts.prepared, 1)
	assert.Equal(t, "연인과 함께 갈 수 있는 곳으로 메가박스나 아쿠아리움를 추천드려요", tts.prepared[0])
}

func TestDeliverSkipNarrationPlaysAsset(t *testing.T) {
	tp := &recordingTransport{}
	tts := &stubTTS{}
	q := newTestQueue(tp, tts, nil)

	segments := []types.AnswerSegment{
		{Text: "강남아이즈 소개", SkipNarration: true, NarrationAsset: "gangnam_eyes_intro"},
	}
	require.NoError(t, q.Deliver(context.Background(), uuid.New(), uuid.New(), segments, Options{}))

	assert.Empty(t, tts.prepared)
	require.Len(t, tp.ops, 2)
	assert.Equal(t, "segment", tp.ops[0].kind)
	assert.Equal(t, "event", tp.ops[1].kind)
	assert.Equal(t, "narration_asset", tp.ops[1].name)
	assert.Equal(t, "gangnam_eyes_intro", tp.ops[1].text)
}

func TestDeliverSurvivesSynthesisFailure(t *testing.T) {
	tp := &recordingTransport{}
	tts := &stubTTS{err: errors.New("tts down")}
	q := newTestQueue(tp, tts, nil)

	segments := []types.AnswerSegment{{Text: "텍스트는 그래도 도착해요"}}
	require.NoError(t, q.Deliver(context.Background(), uuid.New(), uuid.New(), segments, Options{}))

	require.Len(t, tp.ops, 1)
	assert.Equal(t, "segment", tp.ops[0].kind)
}

func TestDeliverReportsNarrationTokens(t *testing.T) {
	tp := &recordingTransport{}
	tts := &stubTTS{tokens: &types.TokenUsage{Input: 3, Output: 4, Total: 7}}

	gotCh := make(chan types.TokenUsage, 1)
	q := newTestQueue(tp, tts, func(u types.TokenUsage) { gotCh <- u })

	require.NoError(t, q.Deliver(context.Background(), uuid.New(), uuid.New(),
		[]types.AnswerSegment{{Text: "안내 문구"}}, Options{}))

	select {
	case got := <-gotCh:
		assert.Equal(t, 7, got.Total)
	case <-time.After(time.Second):
		t.Fatal("token usage was never reported")
	}
}

func TestDeliverNotPacedBySlowTokenSink(t *testing.T) {
	tp := &recordingTransport{}
	tts := &stubTTS{tokens: &types.TokenUsage{Total: 5}}

	release := make(chan struct{})
	reported := make(chan types.TokenUsage, 2)
	q := newTestQueue(tp, tts, func(u types.TokenUsage) {
		<-release
		reported <- u
	})

	done := make(chan error, 1)
	go func() {
		done <- q.Deliver(context.Background(), uuid.New(), uuid.New(),
			[]types.AnswerSegment{{Text: "첫 번째"}, {Text: "두 번째"}}, Options{})
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("delivery waited on the token sink")
	}

	close(release)
	for i := 0; i < 2; i++ {
		select {
		case u := <-reported:
			assert.Equal(t, 5, u.Total)
		case <-time.After(time.Second):
			t.Fatal("token usage was never reported")
		}
	}
}

func TestPlaceNames(t *testing.T) {
	segments := []types.AnswerSegment{
		{Text: "'메가박스 코엑스'에서 영화를 보고, '별마당 도서관(B1)'에 들러보세요."},
		{Text: "'코엑스 아쿠아리움'도 있고, '메가박스 코엑스'는 이미 말씀드렸죠."},
	}

	assert.Equal(t, []string{"메가박스", "별마당 도서관", "아쿠아리움"}, PlaceNames(segments))
}

func TestCombinedNarration(t *testing.T) {
	assert.Equal(t, "", CombinedNarration(nil, "가족과"))
	assert.Equal(t, "갈 수 있는 곳으로 식당가를 추천드려요", CombinedNarration([]string{"식당가"}, ""))
	assert.Equal(t,
		"가족과 갈 수 있는 곳으로 아쿠아리움, 별마당 도서관나 메가박스를 추천드려요",
		CombinedNarration([]string{"아쿠아리움", "별마당 도서관", "메가박스"}, "가족과"))
}
