package prompts

import (
	"fmt"
	"strings"
)

// ============================================================================
// 반복 방지 (Repetition Guard)
// ============================================================================

// RepetitivePhrases are filler phrases the downstream writer is told to avoid.
var RepetitivePhrases = []string{
	"안녕하세요 오늘은",
	"추천드립니다",
	"정리해봤어요",
	"끝까지 읽어주세요",
	"개인적으로 좋았습니다",
	"호불호가 갈릴 수 있습니다",
}

// WritingDirection is the fixed instruction that accompanies the repetition guard.
const WritingDirection = "이전 글과 도입 문장 구조를 다르게 시작하고, 섹션 제목 톤을 바꿔라. " +
	"같은 접속어 반복(예: 그리고/또한/한편으로)을 줄이고 문장 길이를 섞어라."

// NoRecentTitles stands in for the recent-title list when nothing has been generated yet.
const NoRecentTitles = "(최근 생성 이력 없음)"

// ============================================================================
// 스타일 레시피 (Style Recipes)
// ============================================================================

// StyleRecipe is one tone and structure preset for a generated review.
type StyleRecipe struct {
	Name        string
	IntroStyle  string
	SectionFlow string
	EndingStyle string
	EmojiPool   string
}

// StyleRecipes is the rotation pool. Order matters: the persisted cursor indexes into it.
var StyleRecipes = []StyleRecipe{
	{
		Name:        "Q_HOOK",
		IntroStyle:  "질문형 도입으로 공감 포인트를 먼저 던진다",
		SectionFlow: "도입 갈등 -> 인물 선택 -> 분위기 전환 -> 개인 감상",
		EndingStyle: "짧은 여운 + 취향 추천형 마무리",
		EmojiPool:   "👀,🔥,😮‍💨",
	},
	{
		Name:        "CONFESS_HOOK",
		IntroStyle:  "개인 경험 고백형 도입으로 친밀하게 시작한다",
		SectionFlow: "보는 계기 -> 초반 몰입 구간 -> 중반 긴장 포인트 -> 한줄 총평",
		EndingStyle: "솔직한 호불호 + 다음 작품 암시",
		EmojiPool:   "🫠,🥹,✨",
	},
	{
		Name:        "SCENE_HOOK",
		IntroStyle:  "한 장면 묘사로 시작해 궁금증을 만든다",
		SectionFlow: "장면 티저 -> 시간순 줄거리 정리 -> 포인트 해설 -> 추천 대상",
		EndingStyle: "짧은 질문형 엔딩",
		EmojiPool:   "🎬,💥,🤭",
	},
	{
		Name:        "COMPARE_HOOK",
		IntroStyle:  "비슷한 작품과 비교하면서 진입한다",
		SectionFlow: "비교 기준 -> 차별점 -> 캐릭터/연출 포인트 -> 시청 팁",
		EndingStyle: "취향 분기형 마무리",
		EmojiPool:   "🧠,👀,🫶",
	},
	{
		Name:        "ONE_LINE_HOOK",
		IntroStyle:  "강한 한줄평으로 시작하고 바로 이유를 푼다",
		SectionFlow: "한줄평 근거 -> 줄거리 핵심 흐름 -> 감정선 포인트 -> 결론",
		EndingStyle: "간결한 재시청 의향 코멘트",
		EmojiPool:   "😵‍💫,😭,🔥",
	},
}

// RecipeAt returns the recipe selected by cursor, wrapping around the pool.
func RecipeAt(cursor int) StyleRecipe {
	n := len(StyleRecipes)
	idx := cursor % n
	if idx < 0 {
		idx += n
	}
	return StyleRecipes[idx]
}

// ============================================================================
// 프롬프트 템플릿 (Prompt Template)
// ============================================================================

// styleGuardMarker is the placeholder whose presence means a template already carries the guard.
const styleGuardMarker = "{style_recipe_name}"

const runtimeGuard = "\n[이번 글 레퍼토리 가이드]\n" +
	"- 스타일 코드: {style_recipe_name}\n" +
	"- 도입 방식: {style_intro}\n" +
	"- 섹션 전개: {style_flow}\n" +
	"- 마무리 톤: {style_ending}\n" +
	"- 이모지 후보: {emoji_pool}\n" +
	"- 최근 생성 작품(톤/구성 반복 금지): {recent_titles}\n" +
	"- 금지 문구: {avoid_phrases}\n" +
	"- 추가 지시: {writing_direction}\n"

// ComposeTemplate appends the style and repetition guard block to base
// unless base already references the style placeholders itself.
func ComposeTemplate(base string) string {
	if strings.Contains(base, styleGuardMarker) {
		return base
	}
	return strings.TrimRight(base, " \t\r\n") + "\n" + runtimeGuard
}

// OverviewContext lays out the original and enriched overview for the writer.
func OverviewContext(original, enriched string) string {
	return fmt.Sprintf("[원본 줄거리]\n%s\n\n[보강 줄거리]\n%s", orNone(original), orNone(enriched))
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(없음)"
	}
	return s
}

// ============================================================================
// 줄거리 보강 (Overview Enrichment)
// ============================================================================

// SummarySystemPrompt instructs the summarizer to write a factual, chronological synopsis.
const SummarySystemPrompt = "너는 작품 줄거리 정리기다. 블로그 글감으로 사용할 수 있게 상세 줄거리를 작성한다. " +
	"항목 나열이 아닌 자연스러운 문단형으로 작성하고, 사건 전개는 반드시 시간 순서를 유지한다. " +
	"핵심 사건, 인물 선택, 갈등 변화를 빠짐없이 담되 사실 기반으로만 작성한다. " +
	"과장, 추측, 홍보 문구를 금지한다."

// SummaryUserPrompt builds the summarizer request from the search results.
func SummaryUserPrompt(title, year, current, searchResults string) string {
	return fmt.Sprintf("작품명: %s\n연도: %s\n현재 줄거리: %s\n\n웹 검색 결과:\n%s\n\n"+
		"출력 형식:\n"+
		"1) 줄거리 본문만 출력\n"+
		"2) 4~7개 문단\n"+
		"3) 문단당 2~4문장\n"+
		"4) 처음-중반-후반 흐름이 보이게 작성",
		title, year, orNone(current), searchResults)
}

// SearchQuery builds the web search query for a title's plot.
func SearchQuery(title, year string, series bool, genres string) string {
	hint := "영화"
	if series {
		hint = "드라마"
	}
	genreHint := strings.TrimSpace(strings.ReplaceAll(genres, ",", " "))
	return strings.TrimSpace(fmt.Sprintf("%s %s %s 줄거리 %s", title, year, hint, genreHint))
}
