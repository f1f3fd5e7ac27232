package conversation

import (
	"regexp"
	"strings"

	"github.com/gangnameyes/docent/internal/types"
)

var quotedName = regexp.MustCompile(`['‘]([^'’]+)['’]`)

// answerKeywords reduces an assistant message to at most two keywords.
// Quoted place names are the best signal; without them the first two words
// of the text have to do.
func answerKeywords(msg types.Message) string {
	text := msg.Content
	for _, seg := range msg.Segments {
		text += "\n" + seg.Text
	}

	var names []string
	seen := make(map[string]struct{})
	for _, m := range quotedName.FindAllStringSubmatch(text, -1) {
		name := strings.TrimSpace(m[1])
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
		if len(names) == 2 {
			break
		}
	}
	if len(names) > 0 {
		return strings.Join(names, ", ")
	}

	fields := strings.Fields(msg.Content)
	if len(fields) > 2 {
		fields = fields[:2]
	}
	return strings.Join(fields, " ")
}
