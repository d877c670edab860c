package llm

import (
	"regexp"
	"strings"
)

var (
	reFence         = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*(.*?)```")
	reTrailingComma = regexp.MustCompile(`,\s*([}\]])`)
)

// repairPayload strips code fences and surrounding prose, cuts the text to
// the outermost JSON object or array, and removes trailing commas.
func repairPayload(text string) ([]byte, bool) {
	if m := reFence.FindStringSubmatch(text); m != nil {
		text = m[1]
	}

	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return nil, false
	}
	closer := "}"
	if text[start] == '[' {
		closer = "]"
	}
	end := strings.LastIndex(text, closer)
	if end <= start {
		return nil, false
	}

	payload := text[start : end+1]
	payload = strings.NewReplacer("“", `"`, "”", `"`).Replace(payload)
	payload = reTrailingComma.ReplaceAllString(payload, "$1")
	return []byte(payload), true
}
