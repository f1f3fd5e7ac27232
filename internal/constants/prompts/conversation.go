package prompts

var (
	DEFAULT_PROMPT = SYS_PROMPT{
		Intent:         "VenueGuide",
		CurrentVersion: 0.2,
		Items: map[float32]PromptDefinition{
			0.2: {
				Version: 0.2,
				Content: `
				당신은 코엑스 일대를 안내하는 베뉴 가이드 도슨트입니다. 방문객의
				질문에 장소 중심으로 간결하게 답하고, 장소 이름은 작은따옴표로
				감싸서 말해 주세요. 과장 없이 친근한 존댓말을 사용합니다.
				`,
			},
		},
	}
)

// Turn-keyed prompt mutations. The fifth answer must not invite further
// questions; the sixth wraps the conversation up.
const (
	NoFollowUpInstruction = `
	이번 답변에서는 "더 궁금한 점이 있으면 물어보세요" 같은 추가 질문을
	유도하는 문구를 절대 넣지 마세요.`

	ClosingInstruction = `
	방문객이 만족했는지에 대한 암묵적인 질문에 답하듯, 2~3문장의 따뜻한
	마무리 인사를 작성하세요. 새로운 장소 추천이나 추가 질문 유도는 하지
	마세요.`
)

// ForTurn returns the system prompt for the given upcoming turn number
// (the turn the user is about to consume, 1-based).
func ForTurn(turn int) string {
	base := DEFAULT_PROMPT.GetCurrentPrompt().Content
	switch turn {
	case 5:
		return base + NoFollowUpInstruction
	case 6:
		return base + ClosingInstruction
	default:
		return base
	}
}
