package intent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gangnameyes/docent/internal/catalog"
	"github.com/gangnameyes/docent/internal/types"
	"github.com/gangnameyes/docent/pkg/Logger"
	"github.com/gangnameyes/docent/pkg/backend"
)

type stubClassifier struct {
	resp  *backend.ClassifyResponse
	err   error
	calls int
}

func (s *stubClassifier) Classify(_ context.Context, _ string) (*backend.ClassifyResponse, error) {
	s.calls++
	return s.resp, s.err
}

func newTestRouter(c Classifier) *Router {
	return NewRouter(catalog.NewRepository(), c, Logger.New(false))
}

func TestMatchFixedTopicNormalization(t *testing.T) {
	r := newTestRouter(nil)

	topic, ok := r.MatchFixedTopic("강남 아이즈가 뭐예요?")
	require.True(t, ok)
	assert.Equal(t, "gangnam-eyes", topic.TopicID)

	topic, ok = r.MatchFixedTopic("GANGNAMEYES")
	require.True(t, ok)
	assert.Equal(t, "gangnam-eyes", topic.TopicID)

	_, ok = r.MatchFixedTopic("근처에 밥 먹을 데 있어?")
	assert.False(t, ok)
}

func TestIsInformationRequest(t *testing.T) {
	r := newTestRouter(nil)

	assert.True(t, r.IsInformationRequest("조용한 카페 좀 추천해줘"))
	assert.True(t, r.IsInformationRequest("화장실이 어디야?"))
	assert.True(t, r.IsInformationRequest("where can I eat lunch"))
	assert.False(t, r.IsInformationRequest("고마워"))
	assert.False(t, r.IsInformationRequest("응 맞아"))
}

func TestClassifyCategorySwallowsFailures(t *testing.T) {
	c := &stubClassifier{err: errors.New("backend down")}
	r := newTestRouter(c)

	got := r.ClassifyCategory(context.Background(), "근처 맛집 추천해줘")
	assert.Nil(t, got)
	assert.Equal(t, 1, c.calls)
}

func TestClassifyCategorySkipsNonRequests(t *testing.T) {
	cat := types.Category("dining")
	c := &stubClassifier{resp: &backend.ClassifyResponse{Category: &cat}}
	r := newTestRouter(c)

	assert.Nil(t, r.ClassifyCategory(context.Background(), "안녕하세요"))
	assert.Equal(t, 0, c.calls)

	got := r.ClassifyCategory(context.Background(), "점심 먹을 만한 식당 알려줘")
	require.NotNil(t, got)
	assert.Equal(t, cat, *got)
}
