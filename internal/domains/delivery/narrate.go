package delivery

import (
	"regexp"
	"strings"

	"github.com/gangnameyes/docent/internal/types"
)

var (
	quotedName       = regexp.MustCompile(`['‘]([^'’]+)['’]`)
	trailingBracket  = regexp.MustCompile(`\s*\([^)]*\)\s*$`)
	venueComplexName = "코엑스"
)

// PlaceNames pulls the quoted place names out of answer segments, in
// display order and deduplicated.
func PlaceNames(segments []types.AnswerSegment) []string {
	var names []string
	seen := make(map[string]struct{})
	for _, seg := range segments {
		for _, m := range quotedName.FindAllStringSubmatch(seg.Text, -1) {
			name := cleanPlaceName(m[1])
			if name == "" {
				continue
			}
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}
	return names
}

// cleanPlaceName shortens a display name into its speakable core: trailing
// parentheticals go, and when the name is a compound with the venue complex
// ("메가박스 코엑스", "코엑스 아쿠아리움") only the distinctive part is kept.
func cleanPlaceName(name string) string {
	name = strings.TrimSpace(trailingBracket.ReplaceAllString(name, ""))
	parts := strings.Fields(name)
	if len(parts) < 2 {
		return name
	}

	var kept []string
	for _, p := range parts {
		if p == venueComplexName || strings.EqualFold(p, "coex") {
			continue
		}
		kept = append(kept, p)
	}
	if len(kept) == 0 {
		return name
	}
	return strings.Join(kept, " ")
}

// CombinedNarration builds the single spoken line used when a first answer
// arrives in several segments: one recommendation sentence naming the
// places, instead of reading every segment aloud.
func CombinedNarration(names []string, contextWord string) string {
	if len(names) == 0 {
		return ""
	}

	var list string
	if len(names) == 1 {
		list = names[0]
	} else {
		list = strings.Join(names[:len(names)-1], ", ") + "나 " + names[len(names)-1]
	}

	if contextWord != "" {
		return contextWord + " 갈 수 있는 곳으로 " + list + "를 추천드려요"
	}
	return "갈 수 있는 곳으로 " + list + "를 추천드려요"
}
