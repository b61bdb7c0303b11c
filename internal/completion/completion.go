// Package completion sends multimodal prompts to a generative model.
package completion

import (
	"context"
	"errors"
	"fmt"

	"github.com/steve-cardenas/snagent/internal/assets"
	"github.com/steve-cardenas/snagent/internal/config"
)

// ErrEmptyResponse is returned when the model answers without any text.
var ErrEmptyResponse = errors.New("empty response from model")

// Completer generates text from a prompt and its image attachments. One call
// per analysis tier; implementations hold no conversation state.
type Completer interface {
	Generate(ctx context.Context, text string, images []assets.Handle) (string, error)
	Name() string
}

// New returns the completer selected by cfg.CompletionProvider.
func New(ctx context.Context, cfg *config.Config) (Completer, error) {
	switch cfg.CompletionProvider {
	case config.ProviderGemini, "":
		return NewGemini(ctx, GeminiConfig{
			APIKey: cfg.GeminiAPIKey,
			Model:  cfg.GeminiModel,
		})
	case config.ProviderClaude:
		return NewClaude(ClaudeConfig{
			APIKey: cfg.AnthropicAPIKey,
			Model:  cfg.ClaudeModel,
		}), nil
	default:
		return nil, fmt.Errorf("unknown completion provider %q", cfg.CompletionProvider)
	}
}
