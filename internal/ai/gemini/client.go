// Package gemini implements ai.ChatProvider over the official Gemini SDK.
package gemini

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/stillwave/recut/internal/ai"
	"github.com/stillwave/recut/pkg/logger"
)

// Client represents a Google Gemini API client
type Client struct {
	client *genai.Client
	logger *logger.Logger
}

// NewClient creates a new Gemini Client
func NewClient(ctx context.Context, apiKey string, log *logger.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Client{
		client: client,
		logger: log.Named("gemini"),
	}, nil
}

// ChatCompletion implements ai.ChatProvider. System messages become the
// system instruction; the remaining messages are concatenated into one
// user turn, which is all the cleanup pipeline sends.
func (c *Client) ChatCompletion(ctx context.Context, messages []ai.ChatMessage, config ai.ChatConfig) (string, error) {
	var systemParts []string
	var userParts []string
	for _, msg := range messages {
		if msg.Role == "system" {
			systemParts = append(systemParts, msg.Content)
		} else {
			userParts = append(userParts, msg.Content)
		}
	}

	genCfg := &genai.GenerateContentConfig{}
	if len(systemParts) > 0 {
		genCfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: strings.Join(systemParts, "\n\n")}},
		}
	}
	temp := float32(config.Temperature)
	genCfg.Temperature = &temp
	if config.MaxTokens > 0 {
		genCfg.MaxOutputTokens = int32(config.MaxTokens)
	}

	c.logger.Debug("Sending generate content request",
		logger.String("model", config.Model))

	resp, err := c.client.Models.GenerateContent(ctx, config.Model,
		genai.Text(strings.Join(userParts, "\n\n")), genCfg)
	if err != nil {
		return "", fmt.Errorf("generate content failed: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("no text in response")
	}

	return text, nil
}
