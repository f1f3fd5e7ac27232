package narration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/gangnameyes/docent/pkg/Logger"
	"github.com/gangnameyes/docent/pkg/backend"
)

type stubRemote struct {
	text  string
	err   error
	delay time.Duration
}

func (s *stubRemote) Narrate(ctx context.Context, _ backend.NarrateRequest) (*backend.NarrateResponse, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return &backend.NarrateResponse{ThinkingText: s.text}, nil
}

func TestFallbackKeywordGroups(t *testing.T) {
	assert.Equal(t, "맛있는 식당을 찾아보고 있어요", Fallback("근처에 점심 먹을 곳 있어?"))
	assert.Equal(t, "분위기 좋은 카페를 둘러보고 있어요", Fallback("커피 마시고 싶어"))
	assert.Equal(t, "함께 즐길 만한 곳을 고르고 있어요", Fallback("가족이랑 갈 만한 데"))
	assert.Equal(t, genericFallback, Fallback("흠"))
}

func TestWaitPrefersRemotePhrase(t *testing.T) {
	n := NewNarrator(&stubRemote{text: "잠시만요, 좋은 곳을 찾고 있어요"}, time.Second, Logger.New(false))

	nar := n.Start(context.Background(), "맛집 추천해줘", nil)
	got := nar.Wait(context.Background())
	assert.Equal(t, "잠시만요, 좋은 곳을 찾고 있어요", got)
}

func TestWaitFallsBackOnRemoteError(t *testing.T) {
	n := NewNarrator(&stubRemote{err: errors.New("boom")}, time.Second, Logger.New(false))

	nar := n.Start(context.Background(), "맛집 추천해줘", nil)
	got := nar.Wait(context.Background())
	assert.Equal(t, "맛있는 식당을 찾아보고 있어요", got)
}

func TestWaitFallsBackWhenWindowCloses(t *testing.T) {
	n := NewNarrator(&stubRemote{text: "너무 늦은 답", delay: time.Second}, 20*time.Millisecond, Logger.New(false))

	nar := n.Start(context.Background(), "카페 알려줘", nil)
	got := nar.Wait(context.Background())
	assert.Equal(t, "분위기 좋은 카페를 둘러보고 있어요", got)
}

func TestCancelDiscardsLateResult(t *testing.T) {
	n := NewNarrator(&stubRemote{text: "늦은 답", delay: 500 * time.Millisecond}, 5*time.Second, Logger.New(false))

	nar := n.Start(context.Background(), "카페 알려줘", nil)
	nar.Cancel()
	got := nar.Wait(context.Background())
	assert.Equal(t, "분위기 좋은 카페를 둘러보고 있어요", got)
}

func TestNilClientUsesFallbackImmediately(t *testing.T) {
	n := NewNarrator(nil, time.Second, Logger.New(false))

	nar := n.Start(context.Background(), "쉴 곳 있어?", nil)
	got := nar.Wait(context.Background())
	assert.Equal(t, "편하게 쉴 수 있는 곳을 찾아보고 있어요", got)
}
