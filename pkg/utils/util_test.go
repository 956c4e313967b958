package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseJSONResponse(t *testing.T) {
	result, err := ParseJSONResponse(`{"diagnosis": "ok", "confidence": 0.8}`)
	assert.NoError(t, err)
	assert.Equal(t, "ok", result["diagnosis"])
	assert.Equal(t, 0.8, result["confidence"])
}

func TestParseJSONResponseFencedBlock(t *testing.T) {
	result, err := ParseJSONResponse("```json\n{\"a\": 1}\n```")
	assert.NoError(t, err)
	assert.Equal(t, float64(1), result["a"])
}

func TestParseJSONResponseInvalid(t *testing.T) {
	_, err := ParseJSONResponse("not json at all")
	assert.Error(t, err)
}

func TestParseNumberedList(t *testing.T) {
	content := `Here are some variations:
1. First instruction.
2) Second instruction.
- Third instruction.
* Fourth instruction.

Some trailing prose.`

	items := ParseNumberedList(content)
	assert.Equal(t, []string{
		"First instruction.",
		"Second instruction.",
		"Third instruction.",
		"Fourth instruction.",
	}, items)
}

func TestParseNumberedListEmpty(t *testing.T) {
	assert.Empty(t, ParseNumberedList("no list here"))
}
