package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchIsSpacingAndCaseInvariant(t *testing.T) {
	repo := NewRepository()

	for _, utterance := range []string{
		"강남아이즈가 뭐야?",
		"강남 아이즈 가 뭐야",
		"GangnamEyes에 대해 알려줘",
		"gangnam eyes?",
	} {
		topic, ok := repo.Match(utterance)
		require.True(t, ok, "expected a match for %q", utterance)
		assert.Equal(t, "gangnam-eyes", topic.TopicID)
	}
}

func TestMatchFirstRegisteredWins(t *testing.T) {
	repo := newRepository([]FixedQATopic{
		{TopicID: "first", TriggerKeywords: []string{"코엑스"}},
		{TopicID: "second", TriggerKeywords: []string{"코엑스 맛집"}},
	})

	topic, ok := repo.Match("코엑스 맛집 알려줘")
	require.True(t, ok)
	assert.Equal(t, "first", topic.TopicID)
}

func TestMatchMissesFreeformQuestions(t *testing.T) {
	repo := NewRepository()

	for _, utterance := range []string{
		"",
		"   ",
		"근처에 조용한 카페 있을까?",
		"오늘 날씨 어때",
	} {
		_, ok := repo.Match(utterance)
		assert.False(t, ok, "unexpected match for %q", utterance)
	}
}

func TestQuestionVariantFallsBackToDefault(t *testing.T) {
	repo := NewRepository()
	topic, ok := repo.ByID("coex-aquarium")
	require.True(t, ok)

	assert.Equal(t, "연인과 가기 좋은 아쿠아리움 코스가 있나요?", topic.Question("연인"))
	assert.Equal(t, "코엑스 아쿠아리움은 어떤 곳이에요?", topic.Question("혼자"))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "강남아이즈", Normalize("강남 아이즈!"))
	assert.Equal(t, "gangnameyes", Normalize("Gangnam-Eyes"))
	assert.Equal(t, "", Normalize(" ?! "))
}
