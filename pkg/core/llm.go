package core

import (
	"context"
)

// TokenInfo tracks token usage for a single generation.
type TokenInfo struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// LLMResponse encapsulates a text completion and its usage accounting.
type LLMResponse struct {
	Content string     `json:"content"`
	Usage   *TokenInfo `json:"usage,omitempty"`
}

// LLM represents an interface for language models. Both the program under
// optimization and the reflection stage speak through this interface; provider
// formatting and transport retries live entirely behind it.
type LLM interface {
	// Generate produces a text completion for the given prompt
	Generate(ctx context.Context, prompt string, options ...GenerateOption) (*LLMResponse, error)

	// GenerateWithJSON produces structured JSON output for the given prompt
	GenerateWithJSON(ctx context.Context, prompt string, options ...GenerateOption) (map[string]interface{}, error)

	ProviderName() string
	ModelID() string
}

// GenerateOption represents an option for text generation.
type GenerateOption func(*GenerateOptions)

// GenerateOptions holds configuration for text generation.
type GenerateOptions struct {
	MaxTokens     int
	Temperature   float64
	TopP          float64
	StopSequences []string
}

// NewGenerateOptions creates GenerateOptions with default values.
func NewGenerateOptions() *GenerateOptions {
	return &GenerateOptions{
		MaxTokens:   8192,
		Temperature: 0.5,
	}
}

// WithMaxTokens sets the maximum number of tokens to generate.
func WithMaxTokens(n int) GenerateOption {
	return func(o *GenerateOptions) {
		o.MaxTokens = n
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) GenerateOption {
	return func(o *GenerateOptions) {
		o.Temperature = t
	}
}

// WithTopP sets the nucleus sampling parameter.
func WithTopP(p float64) GenerateOption {
	return func(o *GenerateOptions) {
		o.TopP = p
	}
}

// WithStopSequences sets the stop sequences for generation.
func WithStopSequences(sequences ...string) GenerateOption {
	return func(o *GenerateOptions) {
		o.StopSequences = sequences
	}
}

// BaseLLM provides common provider/model bookkeeping for LLM implementations.
type BaseLLM struct {
	providerName string
	modelID      string
}

// NewBaseLLM creates a new BaseLLM.
func NewBaseLLM(providerName, modelID string) *BaseLLM {
	return &BaseLLM{
		providerName: providerName,
		modelID:      modelID,
	}
}

func (b *BaseLLM) ProviderName() string {
	return b.providerName
}

func (b *BaseLLM) ModelID() string {
	return b.modelID
}
