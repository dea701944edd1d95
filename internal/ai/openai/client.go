// Package openai implements ai.ChatProvider against OpenAI-compatible
// chat completion endpoints. Three URL dialects are supported: the
// standard OpenAI shape (base URL + /v1), a no-auth local shape for
// Ollama-style servers (base URL + /api), and a full-path shape where the
// configured URL is used verbatim.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/stillwave/recut/internal/ai"
	"github.com/stillwave/recut/pkg/logger"
)

// Dialect selects the URL/auth convention for an OpenAI-compatible endpoint
type Dialect string

const (
	// DialectStandard appends /v1 to the base URL and sends bearer auth
	DialectStandard Dialect = "openai"
	// DialectLocal appends /api to the base URL; no real key is required,
	// a placeholder is sent for servers that insist on the header
	DialectLocal Dialect = "ollama"
	// DialectFullPath uses the configured URL verbatim (for providers that
	// expose an OpenAI-compatible endpoint at a fully-qualified path)
	DialectFullPath Dialect = "fullpath"
)

const chatCompletionsPath = "/chat/completions"

// Client handles communication with an OpenAI-compatible chat API
type Client struct {
	dialect    Dialect
	apiKey     string
	baseURL    string // dialect-shaped, without trailing slash
	httpClient *http.Client
	logger     *logger.Logger
}

// NewClient creates a new OpenAI-compatible chat client
func NewClient(dialect Dialect, baseURL, apiKey string, timeout time.Duration, log *logger.Logger) *Client {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		dialect: dialect,
		apiKey:  apiKey,
		baseURL: ShapeBaseURL(dialect, baseURL),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: log.Named("openai"),
	}
}

// ShapeBaseURL applies the dialect's URL-shaping rule to a raw base URL
func ShapeBaseURL(dialect Dialect, baseURL string) string {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		if dialect == DialectStandard {
			return "https://api.openai.com/v1"
		}
		return base
	}

	switch dialect {
	case DialectStandard:
		if !strings.HasSuffix(base, "/v1") {
			base += "/v1"
		}
	case DialectLocal:
		if !strings.HasSuffix(base, "/api") {
			base += "/api"
		}
	case DialectFullPath:
		// Used verbatim
	}
	return base
}

// ChatCompletion implements ai.ChatProvider
func (c *Client) ChatCompletion(ctx context.Context, messages []ai.ChatMessage, config ai.ChatConfig) (string, error) {
	if c.baseURL == "" {
		return "", fmt.Errorf("chat API base URL is not configured")
	}
	if c.dialect != DialectLocal && c.apiKey == "" {
		return "", fmt.Errorf("chat API key is required for dialect %q", c.dialect)
	}

	apiURL := c.baseURL + chatCompletionsPath

	type Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}

	type Request struct {
		Model       string    `json:"model"`
		Messages    []Message `json:"messages"`
		MaxTokens   int       `json:"max_tokens,omitempty"`
		Temperature float64   `json:"temperature"`
	}

	reqMessages := make([]Message, len(messages))
	for i, msg := range messages {
		reqMessages[i] = Message{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	reqBody := Request{
		Model:       config.Model,
		Messages:    reqMessages,
		MaxTokens:   config.MaxTokens,
		Temperature: config.Temperature,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", err
	}

	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.dialect == DialectLocal && c.apiKey == "":
		// Ollama-style servers do not check the key but some reject a
		// missing Authorization header outright
		req.Header.Set("Authorization", "Bearer ollama")
	default:
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	c.logger.Debug("Sending chat completion request",
		logger.String("url", apiURL),
		logger.String("model", config.Model),
		logger.Int("messages", len(messages)))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("chat completion failed: %s %s", resp.Status, string(body))
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	return result.Choices[0].Message.Content, nil
}
