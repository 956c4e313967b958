package llms

import (
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evolvekit/revolve/pkg/core"
	"github.com/evolvekit/revolve/pkg/errors"
)

func TestNewAnthropicLLM(t *testing.T) {
	llm, err := NewAnthropicLLM("test-key", anthropic.ModelClaudeSonnet4_5_20250929)
	require.NoError(t, err)
	assert.Equal(t, "anthropic", llm.ProviderName())
	assert.Equal(t, string(anthropic.ModelClaudeSonnet4_5_20250929), llm.ModelID())

	var _ core.LLM = llm
}

func TestNewAnthropicLLMRequiresKey(t *testing.T) {
	_, err := NewAnthropicLLM("", anthropic.ModelClaudeSonnet4_5_20250929)
	require.Error(t, err)
	assert.Equal(t, errors.InvalidInput, errors.CodeOf(err))
}

func TestNewAnthropicLLMRejectsUnknownModel(t *testing.T) {
	_, err := NewAnthropicLLM("test-key", "gpt-4o")
	require.Error(t, err)
	assert.Equal(t, errors.InvalidInput, errors.CodeOf(err))
}

func TestIsValidAnthropicModel(t *testing.T) {
	assert.True(t, isValidAnthropicModel("claude-sonnet-4-5"))
	assert.True(t, isValidAnthropicModel("claude-3-haiku-20240307"))
	assert.True(t, isValidAnthropicModel("claude-opus-4-1"))
	assert.False(t, isValidAnthropicModel("gemini-pro"))
	assert.False(t, isValidAnthropicModel(""))
}

func TestFactory(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "test-key")

	llm, err := New("anthropic", "")
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, llm.ModelID())

	llm, err = New("", "claude-haiku-4-5")
	require.NoError(t, err)
	assert.Equal(t, "claude-haiku-4-5", llm.ModelID())

	_, err = New("unknown-provider", "")
	assert.Error(t, err)
}
