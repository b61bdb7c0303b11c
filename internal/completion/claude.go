package completion

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/steve-cardenas/snagent/internal/assets"
)

const (
	claudeAPIURL       = "https://api.anthropic.com/v1/messages"
	claudeAPIVersion   = "2023-06-01"
	defaultClaudeModel = "claude-sonnet-4-20250514"
	maxTokens          = 2048
)

// claudeImageTypes are the media types the messages API accepts.
var claudeImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// Claude is a Completer backed by the Anthropic messages API.
type Claude struct {
	apiKey     string
	apiURL     string
	httpClient *http.Client
	model      string
}

// ClaudeConfig holds configuration for the Claude completer.
type ClaudeConfig struct {
	APIKey string
	Model  string
	APIURL string // defaults to the public messages endpoint
}

var _ Completer = (*Claude)(nil)

// NewClaude creates a new Claude completer.
func NewClaude(cfg ClaudeConfig) *Claude {
	model := cfg.Model
	if model == "" {
		model = defaultClaudeModel
	}
	apiURL := cfg.APIURL
	if apiURL == "" {
		apiURL = claudeAPIURL
	}

	return &Claude{
		apiKey: cfg.APIKey,
		apiURL: apiURL,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		model: model,
	}
}

// Name returns the provider and model.
func (c *Claude) Name() string {
	return "claude/" + c.model
}

type claudeMessage struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type   string       `json:"type"`
	Text   string       `json:"text,omitempty"`
	Source *imageSource `json:"source,omitempty"`
}

type imageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type claudeRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	Messages  []claudeMessage `json:"messages"`
}

type claudeResponse struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Role    string `json:"role"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Generate sends the images as base64 blocks followed by the text. Images of
// a type the API does not accept are skipped.
func (c *Claude) Generate(ctx context.Context, text string, images []assets.Handle) (string, error) {
	blocks, err := claudeBlocks(text, images)
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(claudeRequest{
		Model:     c.model,
		MaxTokens: maxTokens,
		Messages:  []claudeMessage{{Role: "user", Content: blocks}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", claudeAPIVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var claudeResp claudeResponse
	if err := json.Unmarshal(respBody, &claudeResp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	if claudeResp.Error != nil {
		return "", fmt.Errorf("API error: %s - %s", claudeResp.Error.Type, claudeResp.Error.Message)
	}

	var sb strings.Builder
	for _, block := range claudeResp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", ErrEmptyResponse
	}

	slog.Debug("claude completion",
		"model", c.model,
		"input_tokens", claudeResp.Usage.InputTokens,
		"output_tokens", claudeResp.Usage.OutputTokens,
	)
	return sb.String(), nil
}

func claudeBlocks(text string, images []assets.Handle) ([]contentBlock, error) {
	blocks := make([]contentBlock, 0, len(images)+1)
	for _, img := range images {
		if !claudeImageTypes[img.MIMEType] {
			slog.Debug("skipping unsupported image type", "path", img.Path, "mime_type", img.MIMEType)
			continue
		}
		data, err := img.Bytes()
		if err != nil {
			return nil, fmt.Errorf("read image %s: %w", img.Path, err)
		}
		blocks = append(blocks, contentBlock{
			Type: "image",
			Source: &imageSource{
				Type:      "base64",
				MediaType: img.MIMEType,
				Data:      base64.StdEncoding.EncodeToString(data),
			},
		})
	}
	return append(blocks, contentBlock{Type: "text", Text: text}), nil
}
