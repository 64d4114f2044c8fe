package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractJSON returns the outermost JSON object in content. Models often wrap
// their answer in a ```json fence or add a sentence before it.
func ExtractJSON(content string) (string, bool) {
	s := strings.TrimSpace(content)
	if i := strings.Index(s, "```"); i >= 0 {
		rest := s[i+3:]
		rest = strings.TrimPrefix(rest, "json")
		if j := strings.Index(rest, "```"); j >= 0 {
			s = strings.TrimSpace(rest[:j])
		}
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

// DecodeJSON extracts and unmarshals the JSON object in content.
func DecodeJSON(content string, v any) error {
	raw, ok := ExtractJSON(content)
	if !ok {
		return fmt.Errorf("no JSON object in response")
	}
	return json.Unmarshal([]byte(raw), v)
}
