package store

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchema(t *testing.T) {
	data, err := Schema()
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))

	assert.Equal(t, "object", doc["type"])
	assert.Equal(t, "peerwatch store", doc["title"])

	entry, ok := doc["additionalProperties"].(map[string]any)
	require.True(t, ok, "entries are described by additionalProperties")

	props, ok := entry["properties"].(map[string]any)
	require.True(t, ok)
	for _, field := range []string{"ip", "direction", "port", "first_seen", "last_seen"} {
		assert.Contains(t, props, field)
	}

	direction := props["direction"].(map[string]any)
	assert.ElementsMatch(t, []any{"in", "out"}, direction["enum"])
}
