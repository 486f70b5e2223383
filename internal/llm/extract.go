package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Veraticus/the-bills-must-flow/internal/model"
)

const thinkCloseTag = "</think>"

// ExtractJSONObject returns the outermost JSON object candidate in a model reply.
// Reasoning output up to the last </think> is discarded, then everything from the
// first '{' to the last '}' is kept.
func ExtractJSONObject(content string) (string, error) {
	if i := strings.LastIndex(content, thinkCloseTag); i >= 0 {
		content = content[i+len(thinkCloseTag):]
	}

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end < start {
		return "", fmt.Errorf("%w: %q", ErrNoJSONObject, truncate(content, 200))
	}
	return content[start : end+1], nil
}

// DecodeSuggestions parses a reply into suggestions keyed by correlation token.
// Any decode failure rejects the whole reply.
func DecodeSuggestions(content string) (map[string]model.Suggestion, error) {
	candidate, err := ExtractJSONObject(content)
	if err != nil {
		return nil, err
	}

	var suggestions map[string]model.Suggestion
	if err := json.Unmarshal([]byte(candidate), &suggestions); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if suggestions == nil {
		suggestions = map[string]model.Suggestion{}
	}
	return suggestions, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
