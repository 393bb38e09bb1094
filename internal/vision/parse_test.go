package vision

import (
	"errors"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDetectionResponse_FullItems(t *testing.T) {
	text := `{"items": [
		{"name": "whole milk", "category": "Dairy", "quantity": 1, "unit": "Liters", "quantity_confidence": 0.85},
		{"name": "red apples", "category": "Fruits", "quantity": 4, "unit": "Pieces", "quantity_confidence": 0.95}
	]}`

	items, err := parseDetectionResponse(text)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "whole milk", items[0].Name)
	assert.Equal(t, "Dairy", items[0].Category)
	require.NotNil(t, items[0].Quantity)
	assert.Equal(t, 1.0, *items[0].Quantity)
	assert.Equal(t, "Liters", items[0].Unit)
	require.NotNil(t, items[0].QuantityConfidence)
	assert.Equal(t, 0.85, *items[0].QuantityConfidence)

	assert.Equal(t, "red apples", items[1].Name)
}

func TestParseDetectionResponse_EmptyList(t *testing.T) {
	items, err := parseDetectionResponse(`{"items": []}`)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestParseDetectionResponse_MarkdownWrapped(t *testing.T) {
	text := "```json\n{\"items\": [{\"name\": \"butter\"}]}\n```"

	items, err := parseDetectionResponse(text)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "butter", items[0].Name)
	assert.Nil(t, items[0].Quantity)
	assert.Empty(t, items[0].Category)
}

func TestParseDetectionResponse_NullFields(t *testing.T) {
	text := `{"items": [{"name": "mystery jar", "category": null, "quantity": null, "unit": null, "quantity_confidence": null}]}`

	items, err := parseDetectionResponse(text)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Empty(t, items[0].Category)
	assert.Nil(t, items[0].Quantity)
	assert.Empty(t, items[0].Unit)
	assert.Nil(t, items[0].QuantityConfidence)
}

func TestParseDetectionResponse_SkipsNamelessItems(t *testing.T) {
	text := `{"items": [{"name": ""}, {"name": "   "}, {"category": "Dairy"}, {"name": " eggs "}]}`

	items, err := parseDetectionResponse(text)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "eggs", items[0].Name)
}

func TestParseDetectionResponse_CoercesLeafValues(t *testing.T) {
	text := `{"items": [
		{"name": "yogurt", "quantity": "125", "quantity_confidence": "0.6"},
		{"name": "rice", "quantity": -3, "quantity_confidence": 1.5},
		{"name": "tea", "quantity": "a few", "category": 42},
		{"name": "flour", "quantity": "Inf", "quantity_confidence": "NaN"},
		{"name": "salt", "quantity": "-Infinity"}
	]}`

	items, err := parseDetectionResponse(text)
	require.NoError(t, err)
	require.Len(t, items, 5)

	require.NotNil(t, items[0].Quantity)
	assert.Equal(t, 125.0, *items[0].Quantity)
	require.NotNil(t, items[0].QuantityConfidence)
	assert.Equal(t, 0.6, *items[0].QuantityConfidence)

	assert.Nil(t, items[1].Quantity)
	assert.Nil(t, items[1].QuantityConfidence)

	assert.Nil(t, items[2].Quantity)
	assert.Empty(t, items[2].Category)
	assert.Nil(t, items[3].Quantity, "non-finite quantity is dropped")
	assert.Nil(t, items[3].QuantityConfidence)
	assert.Nil(t, items[4].Quantity)
}

func TestTruncate_KeepsRunesWhole(t *testing.T) {
	assert.Equal(t, "ab", truncate("ab", 5))
	assert.Equal(t, "ab...", truncate("abcdef", 2))

	// "é" is two bytes; cutting after one byte would split it
	got := truncate("aéb", 2)
	assert.Equal(t, "a...", got)
	assert.True(t, utf8.ValidString(got))
}

func TestParseDetectionResponse_ShapeErrors(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"whitespace", "   \n"},
		{"no json", "I could not see any food."},
		{"invalid json", `{"items": [}`},
		{"missing items", `{"foods": []}`},
		{"null items", `{"items": null}`},
		{"items not array", `{"items": "milk"}`},
		{"null entry", `{"items": [null]}`},
		{"entry not object", `{"items": ["milk"]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := parseDetectionResponse(tt.text)
			assert.Nil(t, items)
			var parseErr *ResponseParseError
			assert.True(t, errors.As(err, &parseErr), "expected ResponseParseError, got %v", err)
		})
	}
}
