package social

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMentionPattern(t *testing.T) {
	tests := []struct {
		name   string
		ticker string
		text   string
		want   bool
	}{
		{"cashtag", "NVDA", "loaded up on $NVDA today", true},
		{"cashtag lowercase", "NVDA", "what about $nvda calls?", true},
		{"bare uppercase word", "NVDA", "NVDA earnings next week", true},
		{"bare lowercase rejected", "NVDA", "nvda to the moon", false},
		{"short ticker as pronoun", "IT", "I think it will go up", false},
		{"short ticker uppercase", "IT", "IT just broke resistance", true},
		{"short ticker cashtag", "A", "buying $A here", true},
		{"substring rejected", "AMD", "the AMDGPU driver update", false},
		{"no mention", "TSLA", "general market discussion", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mentionPattern(tt.ticker).MatchString(tt.text))
		})
	}
}
