package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFirstJSONBlock(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{
			name:  "bare object",
			input: `{"a": 1}`,
			want:  `{"a": 1}`,
			ok:    true,
		},
		{
			name:  "prose before and after",
			input: "Sure, here is the analysis:\n{\"a\": 1}\nLet me know if you need more.",
			want:  `{"a": 1}`,
			ok:    true,
		},
		{
			name:  "markdown fence",
			input: "```json\n{\"a\": 1}\n```",
			want:  `{"a": 1}`,
			ok:    true,
		},
		{
			name:  "nested objects",
			input: `{"outer": {"inner": 2}} trailing`,
			want:  `{"outer": {"inner": 2}}`,
			ok:    true,
		},
		{
			name:  "braces inside strings",
			input: `{"text": "a } brace and a { brace", "n": 1}`,
			want:  `{"text": "a } brace and a { brace", "n": 1}`,
			ok:    true,
		},
		{
			name:  "escaped quote inside string",
			input: `{"text": "she said \"hi}\"", "n": 1}`,
			want:  `{"text": "she said \"hi}\"", "n": 1}`,
			ok:    true,
		},
		{
			name:  "no object",
			input: "the model refused to answer",
			ok:    false,
		},
		{
			name:  "unbalanced",
			input: `{"a": 1`,
			ok:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FirstJSONBlock(tt.input)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestExtractJSON(t *testing.T) {
	type payload struct {
		Verdict string  `json:"verdict"`
		Score   float64 `json:"score"`
	}

	t.Run("direct parse", func(t *testing.T) {
		var p payload
		require.NoError(t, ExtractJSON(`{"verdict": "ok", "score": 0.9}`, &p))
		assert.Equal(t, "ok", p.Verdict)
		assert.InDelta(t, 0.9, p.Score, 1e-9)
	})

	t.Run("wrapped in prose", func(t *testing.T) {
		var p payload
		require.NoError(t, ExtractJSON("Analysis follows.\n```json\n{\"verdict\": \"risky\", \"score\": 0.4}\n```", &p))
		assert.Equal(t, "risky", p.Verdict)
	})

	t.Run("no json", func(t *testing.T) {
		var p payload
		assert.Error(t, ExtractJSON("nothing useful here", &p))
	})

	t.Run("malformed block", func(t *testing.T) {
		var p payload
		assert.Error(t, ExtractJSON(`{"verdict": }`, &p))
	})
}
