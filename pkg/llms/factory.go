package llms

import (
	"os"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/evolvekit/revolve/pkg/core"
	"github.com/evolvekit/revolve/pkg/errors"
)

// DefaultModel is used when a model name is not specified.
const DefaultModel = string(anthropic.ModelClaudeSonnet4_5_20250929)

// New builds a core.LLM from a provider and model name, taking credentials
// from the environment.
func New(provider, model string) (core.LLM, error) {
	switch provider {
	case "anthropic", "":
		if model == "" {
			model = DefaultModel
		}
		return NewAnthropicLLM(os.Getenv("ANTHROPIC_API_KEY"), anthropic.Model(model))
	default:
		return nil, errors.WithFields(
			errors.New(errors.InvalidInput, "unknown LLM provider"),
			errors.Fields{"provider": provider})
	}
}
