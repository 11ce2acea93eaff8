package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/prospectus/internal/models"
)

func TestFormatVector(t *testing.T) {
	assert.Equal(t, "[]", formatVector(nil))
	assert.Equal(t, "[0.5,-1,0.25]", formatVector([]float32{0.5, -1, 0.25}))
}

func TestParseVector(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		in := []float32{0.123, -4.5, 0, 1}
		out, err := parseVector(formatVector(in))
		require.NoError(t, err)
		assert.Equal(t, in, out)
	})

	t.Run("empty literal", func(t *testing.T) {
		out, err := parseVector("[]")
		require.NoError(t, err)
		assert.Nil(t, out)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := parseVector("0.1,0.2")
		assert.Error(t, err)

		_, err = parseVector("[0.1,abc]")
		assert.Error(t, err)
	})

	t.Run("full dimension", func(t *testing.T) {
		in := make([]float32, models.EmbeddingDim)
		for i := range in {
			in[i] = float32(i) / 1000
		}
		out, err := parseVector(formatVector(in))
		require.NoError(t, err)
		assert.Len(t, out, models.EmbeddingDim)
	})
}
