package narration

import (
	"context"
	"strings"
	"time"

	"github.com/gangnameyes/docent/internal/types"
	"github.com/gangnameyes/docent/pkg/Logger"
	"github.com/gangnameyes/docent/pkg/backend"
)

const genericFallback = "말씀하신 내용을 살펴보고 있어요"

// fallbackGroups map utterance keywords to canned thinking phrases. The
// first matching group wins; scanning is over the raw utterance, so it is
// fully deterministic and never blocks.
var fallbackGroups = []struct {
	keywords []string
	phrase   string
}{
	{[]string{"먹", "밥", "맛집", "식당", "점심", "저녁", "레스토랑"}, "맛있는 식당을 찾아보고 있어요"},
	{[]string{"카페", "커피", "디저트", "빵"}, "분위기 좋은 카페를 둘러보고 있어요"},
	{[]string{"쇼핑", "매장", "살 만한", "기념품"}, "쇼핑하기 좋은 곳을 찾아보고 있어요"},
	{[]string{"쉬", "휴식", "앉을", "조용"}, "편하게 쉴 수 있는 곳을 찾아보고 있어요"},
	{[]string{"데이트", "연인", "가족", "아이", "친구"}, "함께 즐길 만한 곳을 고르고 있어요"},
}

type remoteNarrator interface {
	Narrate(ctx context.Context, req backend.NarrateRequest) (*backend.NarrateResponse, error)
}

// Narrator produces the interim "thinking" line shown while generation is
// in flight. It races the narration service against a deadline; the local
// fallback is computed up front, so there is always something to show.
type Narrator struct {
	client remoteNarrator
	window time.Duration
	logger *Logger.Logger
}

func NewNarrator(client remoteNarrator, window time.Duration, logger *Logger.Logger) *Narrator {
	return &Narrator{
		client: client,
		window: window,
		logger: logger,
	}
}

// Narration is one in-flight thinking request.
type Narration struct {
	fallback string
	remote   chan string
	cancel   context.CancelFunc
}

// Fallback returns the deterministic phrase for an utterance.
func Fallback(text string) string {
	for _, g := range fallbackGroups {
		for _, kw := range g.keywords {
			if strings.Contains(text, kw) {
				return g.phrase
			}
		}
	}
	return genericFallback
}

// Start kicks off the remote narration request in the background and
// returns immediately.
func (n *Narrator) Start(ctx context.Context, utterance string, session *types.ConversationSession) *Narration {
	ctx, cancel := context.WithTimeout(ctx, n.window)
	nar := &Narration{
		fallback: Fallback(utterance),
		remote:   make(chan string, 1),
		cancel:   cancel,
	}

	if n.client == nil {
		cancel()
		close(nar.remote)
		return nar
	}

	go func() {
		defer close(nar.remote)
		req := backend.NarrateRequest{UserInput: utterance}
		if session != nil {
			req.SessionID = session.SessionID
			req.RowIndex = session.RowIndex
		}
		resp, err := n.client.Narrate(ctx, req)
		if err != nil {
			n.logger.Debugf("remote narration unavailable, using fallback: %v", err)
			return
		}
		if text := strings.TrimSpace(resp.ThinkingText); text != "" {
			nar.remote <- text
		}
	}()

	return nar
}

// Wait blocks until the remote phrase arrives, the narration window closes,
// or ctx is done, then returns whichever text is available.
func (nar *Narration) Wait(ctx context.Context) string {
	select {
	case text, ok := <-nar.remote:
		if ok && text != "" {
			return text
		}
		return nar.fallback
	case <-ctx.Done():
		return nar.fallback
	}
}

// Cancel abandons the remote request. Once the answer itself has started
// delivering, a late thinking phrase must never surface.
func (nar *Narration) Cancel() {
	nar.cancel()
}
