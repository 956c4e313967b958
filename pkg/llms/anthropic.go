// Package llms provides core.LLM implementations for hosted model providers.
package llms

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/evolvekit/revolve/pkg/core"
	"github.com/evolvekit/revolve/pkg/errors"
	"github.com/evolvekit/revolve/pkg/logging"
	"github.com/evolvekit/revolve/pkg/utils"
)

// AnthropicLLM implements core.LLM for Anthropic's models.
type AnthropicLLM struct {
	client *anthropic.Client
	*core.BaseLLM
}

// NewAnthropicLLM creates a client for the given model. Extra request options
// (base URL, retries) pass straight through to the SDK.
func NewAnthropicLLM(apiKey string, model anthropic.Model, opts ...option.RequestOption) (*AnthropicLLM, error) {
	if apiKey == "" {
		return nil, errors.New(errors.InvalidInput, "API key is required")
	}
	if !isValidAnthropicModel(string(model)) {
		return nil, errors.WithFields(
			errors.New(errors.InvalidInput, "unsupported Anthropic model"),
			errors.Fields{"model": string(model)})
	}

	clientOpts := append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	client := anthropic.NewClient(clientOpts...)

	return &AnthropicLLM{
		client:  &client,
		BaseLLM: core.NewBaseLLM("anthropic", string(model)),
	}, nil
}

// isValidAnthropicModel checks the model against known model-name families.
func isValidAnthropicModel(model string) bool {
	validPrefixes := []string{
		"claude-3",
		"claude-4",
		"claude-haiku",
		"claude-sonnet",
		"claude-opus",
	}
	for _, prefix := range validPrefixes {
		if strings.HasPrefix(model, prefix) {
			return true
		}
	}
	return false
}

// Generate implements core.LLM.
func (a *AnthropicLLM) Generate(ctx context.Context, prompt string, options ...core.GenerateOption) (*core.LLMResponse, error) {
	logger := logging.GetLogger()
	opts := core.NewGenerateOptions()
	for _, opt := range options {
		opt(opts)
	}

	params := anthropic.MessageNewParams{
		Model: anthropic.Model(a.ModelID()),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewTextBlock(prompt),
			),
		},
		MaxTokens:   int64(opts.MaxTokens),
		Temperature: anthropic.Float(opts.Temperature),
	}
	if opts.TopP > 0 {
		params.TopP = anthropic.Float(opts.TopP)
	}
	if len(opts.StopSequences) > 0 {
		params.StopSequences = opts.StopSequences
	}

	message, err := a.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if stderrors.As(err, &apiErr) {
			logger.Error(ctx, "Anthropic API error: status code %d", apiErr.StatusCode)
		}
		return nil, errors.WithFields(
			errors.Wrap(err, errors.LLMGenerationFailed, "failed to generate response"),
			errors.Fields{
				"model":      a.ModelID(),
				"max_tokens": opts.MaxTokens,
			})
	}

	if message == nil || len(message.Content) == 0 {
		return nil, errors.New(errors.LLMGenerationFailed, "received empty response from Anthropic API")
	}

	var responseText string
	if block := message.Content[0]; block.Type == "text" {
		responseText = block.Text
	}

	usage := &core.TokenInfo{
		PromptTokens:     int(message.Usage.InputTokens),
		CompletionTokens: int(message.Usage.OutputTokens),
		TotalTokens:      int(message.Usage.InputTokens + message.Usage.OutputTokens),
	}

	logger.Debug(ctx, "Anthropic response: %d prompt tokens, %d completion tokens",
		message.Usage.InputTokens, message.Usage.OutputTokens)

	return &core.LLMResponse{Content: responseText, Usage: usage}, nil
}

// GenerateWithJSON implements core.LLM: it generates and parses the response
// as JSON, stripping markdown code fences when present.
func (a *AnthropicLLM) GenerateWithJSON(ctx context.Context, prompt string, options ...core.GenerateOption) (map[string]interface{}, error) {
	response, err := a.Generate(ctx, prompt, options...)
	if err != nil {
		return nil, err
	}
	return utils.ParseJSONResponse(response.Content)
}
