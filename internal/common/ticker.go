// Package common provides shared utilities across the application.
package common

import (
	"regexp"
	"strings"
)

// tickerPattern matches plain symbols ("AAPL", "C") and class-share symbols
// ("BRK.B"). Max 5 characters total, uppercase alphanumerics only.
var tickerPattern = regexp.MustCompile(`^(?:[A-Z0-9]{1,5}|[A-Z0-9]{1,3}\.[A-Z])$`)

// IsValidTicker reports whether s is a well-formed ticker symbol. Symbols the
// LLM is uncertain about carry a trailing "?" and are rejected here.
func IsValidTicker(s string) bool {
	if s == "" || len(s) > 5 {
		return false
	}
	if strings.HasSuffix(s, "?") {
		return false
	}
	return tickerPattern.MatchString(s)
}

// NormalizeTickers uppercases, trims, validates, and de-dupes an AI-proposed
// ticker list, preserving first-seen order.
func NormalizeTickers(proposed []string) []string {
	seen := make(map[string]struct{}, len(proposed))
	out := make([]string, 0, len(proposed))
	for _, raw := range proposed {
		t := strings.ToUpper(strings.TrimSpace(raw))
		if !IsValidTicker(t) {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// NormalizeDomain extracts the lowercase host from a URL for domain-health
// tracking. A leading "www." is stripped so both forms share one record.
func NormalizeDomain(rawURL string) string {
	s := rawURL
	if idx := strings.Index(s, "://"); idx >= 0 {
		s = s[idx+3:]
	}
	if idx := strings.IndexAny(s, "/?#"); idx >= 0 {
		s = s[:idx]
	}
	if idx := strings.Index(s, "@"); idx >= 0 {
		s = s[idx+1:]
	}
	if idx := strings.Index(s, ":"); idx >= 0 {
		s = s[:idx]
	}
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.TrimPrefix(s, "www.")
}
