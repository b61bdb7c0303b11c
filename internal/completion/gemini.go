package completion

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/steve-cardenas/snagent/internal/assets"
)

const defaultGeminiModel = "gemini-2.0-flash"

// Gemini is a Completer backed by the Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
}

// GeminiConfig holds configuration for the Gemini completer.
type GeminiConfig struct {
	APIKey string
	Model  string
}

var _ Completer = (*Gemini)(nil)

// NewGemini creates a new Gemini completer.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	model := cfg.Model
	if model == "" {
		model = defaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &Gemini{client: client, model: model}, nil
}

// Name returns the provider and model.
func (g *Gemini) Name() string {
	return "gemini/" + g.model
}

// Generate sends the text followed by every image as inline data.
func (g *Gemini) Generate(ctx context.Context, text string, images []assets.Handle) (string, error) {
	parts, err := geminiParts(text, images)
	if err != nil {
		return "", err
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{Role: "user", Parts: parts}},
		nil,
	)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	return geminiText(result)
}

func geminiParts(text string, images []assets.Handle) ([]*genai.Part, error) {
	parts := make([]*genai.Part, 0, len(images)+1)
	parts = append(parts, &genai.Part{Text: text})
	for _, img := range images {
		data, err := img.Bytes()
		if err != nil {
			return nil, fmt.Errorf("read image %s: %w", img.Path, err)
		}
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{MIMEType: img.MIMEType, Data: data},
		})
	}
	return parts, nil
}

// geminiText joins the text parts of the first candidate.
func geminiText(result *genai.GenerateContentResponse) (string, error) {
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return "", ErrEmptyResponse
	}

	var sb strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	if sb.Len() == 0 {
		return "", ErrEmptyResponse
	}
	return sb.String(), nil
}
