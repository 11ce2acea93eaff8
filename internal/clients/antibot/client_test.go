package antibot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONPayload(t *testing.T) {
	t.Run("raw json passes through", func(t *testing.T) {
		got, err := extractJSONPayload(`{"messages": []}`)
		require.NoError(t, err)
		assert.JSONEq(t, `{"messages": []}`, string(got))
	})

	t.Run("json wrapped in html", func(t *testing.T) {
		body := `<html><head></head><body><pre>{"messages": [{"id": 1}]}</pre></body></html>`
		got, err := extractJSONPayload(body)
		require.NoError(t, err)
		assert.JSONEq(t, `{"messages": [{"id": 1}]}`, string(got))
	})

	t.Run("challenge page without json", func(t *testing.T) {
		_, err := extractJSONPayload(`<html><body>Checking your browser before accessing...</body></html>`)
		assert.Error(t, err)
	})

	t.Run("broken json block", func(t *testing.T) {
		_, err := extractJSONPayload(`<pre>{"messages": [</pre>`)
		assert.Error(t, err)
	})
}
