package jsonx

import (
	"testing"

	"github.com/invopop/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDynamicJSON(t *testing.T) {
	got, err := ToDynamicJSON(&jsonschema.Schema{Type: "object", Required: []string{"city"}})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"type": "object", "required": []any{"city"}}, got)

	_, err = ToDynamicJSON(make(chan int))
	assert.Error(t, err)

	_, err = ToDynamicJSON([]int{1, 2})
	assert.Error(t, err)
}

func TestPrune(t *testing.T) {
	doc := map[string]any{
		"$schema":              "https://json-schema.org/draft/2020-12/schema",
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"tags": map[string]any{
				"type":                 "array",
				"additionalProperties": false,
				"items": []any{
					map[string]any{"type": "string", "$id": "x"},
				},
			},
		},
	}

	got := Prune(doc, "$schema", "$id", "additionalProperties")
	assert.Equal(t, map[string]any{
		"type": "object",
		"properties": map[string]any{
			"tags": map[string]any{
				"type": "array",
				"items": []any{
					map[string]any{"type": "string"},
				},
			},
		},
	}, got)
}
