package chromedpcapture

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractEmbeddedStateNextData(t *testing.T) {
	html := `<html><body>
		<script id="__NEXT_DATA__" type="application/json">{"props":{"cityId":"3444"}}</script>
	</body></html>`

	state := ExtractEmbeddedState(html)
	require.NotNil(t, state)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(state["next_data"], &decoded))
	assert.Contains(t, decoded, "props")
}

func TestExtractEmbeddedStateInitialState(t *testing.T) {
	html := `<html><head>
		<script>window.__INITIAL_STATE__ = {"city":{"name":"Bucharest","population":1800000}};</script>
	</head></html>`

	state := ExtractEmbeddedState(html)
	require.NotNil(t, state)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(state["initial_state"], &decoded))
	assert.Contains(t, decoded, "city")
}

func TestExtractEmbeddedStateBoth(t *testing.T) {
	html := `<html>
		<script id="__NEXT_DATA__">{"page":"/city/[id]"}</script>
		<script>var x = 1; window.__INITIAL_STATE__ = {"a":1}</script>
	</html>`

	state := ExtractEmbeddedState(html)
	require.NotNil(t, state)
	assert.Len(t, state, 2)
}

func TestExtractEmbeddedStateNothingRecognizable(t *testing.T) {
	assert.Nil(t, ExtractEmbeddedState(`<html><script>console.log("hi")</script></html>`))
	assert.Nil(t, ExtractEmbeddedState(``))
}

func TestExtractEmbeddedStateInvalidJSONIgnored(t *testing.T) {
	html := `<html><script>window.__INITIAL_STATE__ = {broken</script></html>`
	assert.Nil(t, ExtractEmbeddedState(html))
}
