package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidTicker(t *testing.T) {
	tests := []struct {
		ticker string
		valid  bool
	}{
		{"AAPL", true},
		{"BRK.B", true},
		{"C", true},
		{"MSFT", true},
		{"NVDA", true},
		{"", false},
		{"ABCDEF", false},
		{"Apple", false},
		{"AAPL?", false},
		{"AA PL", false},
		{"$SPY", false},
		{"brk.b", false},
	}

	for _, tt := range tests {
		t.Run(tt.ticker, func(t *testing.T) {
			assert.Equal(t, tt.valid, IsValidTicker(tt.ticker), "ticker %q", tt.ticker)
		})
	}
}

func TestNormalizeTickers(t *testing.T) {
	in := []string{" nvda ", "NVDA", "AMD?", "msft", "TOOLONGG", "BRK.B"}
	out := NormalizeTickers(in)
	assert.Equal(t, []string{"NVDA", "MSFT", "BRK.B"}, out)
}

func TestNormalizeTickersEmpty(t *testing.T) {
	assert.Empty(t, NormalizeTickers(nil))
	assert.Empty(t, NormalizeTickers([]string{"", "?", "abcdef"}))
}

func TestNormalizeDomain(t *testing.T) {
	tests := []struct {
		url    string
		domain string
	}{
		{"https://www.example.com/news/article", "example.com"},
		{"http://Example.COM:8080/x", "example.com"},
		{"https://sub.news.site.io/path?q=1", "sub.news.site.io"},
		{"https://user@host.com/a", "host.com"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.domain, NormalizeDomain(tt.url))
	}
}
