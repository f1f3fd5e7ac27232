package catalog

import (
	"github.com/gangnameyes/docent/internal/types"
)

// FixedQATopic is one pre-authored question with its ordered answer
// segments. Topics bypass the generative backend entirely.
type FixedQATopic struct {
	TopicID         string
	TriggerKeywords []string
	// QuestionVariants maps a companion-type option to the paraphrased
	// question shown for that context. The empty key is the default wording.
	QuestionVariants map[string]string
	ThinkingText     string
	ChipKey          string
	Answers          []types.AnswerSegment
}

// Declaration order is the matching precedence: when an utterance matches
// several topics, the first-registered topic wins.
func builtinTopics() []FixedQATopic {
	return []FixedQATopic{
		{
			// The venue-feature topic is exempt from synthesized narration:
			// its first segment always plays the pre-recorded intro clip.
			TopicID:         "gangnam-eyes",
			TriggerKeywords: []string{"강남아이즈", "gangnameyes", "강남 아이즈"},
			QuestionVariants: map[string]string{
				"": "강남아이즈가 뭐예요?",
			},
			ThinkingText: "강남아이즈를 소개할 준비를 하고 있어요",
			ChipKey:      "about_gangnam_eyes",
			Answers: []types.AnswerSegment{
				{
					Text:           "강남아이즈는 코엑스 일대를 한눈에 안내하는 미디어 도슨트예요. 지금처럼 궁금한 장소를 물어보시면 바로 알려드려요.",
					SkipNarration:  true,
					NarrationAsset: "gangnam_eyes_intro",
				},
			},
		},
		{
			TopicID:         "coex-aquarium",
			TriggerKeywords: []string{"아쿠아리움", "수족관", "aquarium"},
			QuestionVariants: map[string]string{
				"":   "코엑스 아쿠아리움은 어떤 곳이에요?",
				"연인": "연인과 가기 좋은 아쿠아리움 코스가 있나요?",
				"가족": "아이와 함께 아쿠아리움을 둘러보려면 어떻게 해야 하나요?",
			},
			ThinkingText: "아쿠아리움 정보를 찾아보고 있어요",
			ChipKey:      "coex_aquarium",
			Answers: []types.AnswerSegment{
				{
					Text:     "'코엑스 아쿠아리움'은 650여 종의 해양 생물을 만날 수 있는 도심 속 수족관이에요.",
					Image:    "https://assets.gangnameyes.io/topics/aquarium_main.jpg",
					URL:      "https://www.coexaqua.com",
					LinkText: "아쿠아리움 바로가기",
				},
				{
					Text: "메인 수조의 상어 먹이 시간은 오후 2시예요. 시간 맞춰 가시면 가장 볼거리가 많아요.",
				},
				{
					Text:     "입장권은 현장 구매보다 온라인 예매가 보통 더 저렴해요.",
					URL:      "https://www.coexaqua.com/ticket",
					LinkText: "예매 안내",
				},
			},
		},
		{
			TopicID:         "byeolmadang-library",
			TriggerKeywords: []string{"별마당", "도서관", "library"},
			QuestionVariants: map[string]string{
				"": "별마당 도서관은 어디에 있어요?",
			},
			ThinkingText: "별마당 도서관 가는 길을 살펴보고 있어요",
			ChipKey:      "byeolmadang",
			Answers: []types.AnswerSegment{
				{
					Text:     "'별마당 도서관'은 코엑스몰 중앙 B1~1층에 있는 열린 도서관이에요. 13미터 높이 서가가 상징이죠.",
					Image:    "https://assets.gangnameyes.io/topics/byeolmadang.jpg",
					URL:      "https://www.starfield.co.kr/coexmall",
					LinkText: "코엑스몰 안내",
				},
				{
					Text: "무료로 이용할 수 있고, 계절마다 바뀌는 미디어 아트도 함께 볼 수 있어요.",
				},
			},
		},
	}
}
