package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractJSON unmarshals model output into v. Models wrap JSON in prose or
// markdown fences more often than not, so after a direct parse fails the
// first balanced {…} block is tried, with brace depth tracked outside of
// string literals.
func ExtractJSON(raw string, v any) error {
	trimmed := strings.TrimSpace(raw)
	if err := json.Unmarshal([]byte(trimmed), v); err == nil {
		return nil
	}

	block, ok := FirstJSONBlock(trimmed)
	if !ok {
		return fmt.Errorf("no JSON object found in model output")
	}
	if err := json.Unmarshal([]byte(block), v); err != nil {
		return fmt.Errorf("failed to parse extracted JSON block: %w", err)
	}
	return nil
}

// FirstJSONBlock returns the first balanced top-level {…} substring of s.
func FirstJSONBlock(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
