// Package judge asks a chat model which transcript segments are low
// quality and should be removed from the recording.
package judge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/stillwave/recut/internal/ai"
	"github.com/stillwave/recut/internal/subtitle"
	"github.com/stillwave/recut/pkg/logger"
)

// DefaultSystemPrompt is the cleanup rubric sent as the system turn.
const DefaultSystemPrompt = `你是一个音频内容质量分析师。请仔细分析以下音频转录文本片段，识别出需要删除的低质量内容。

请重点关注以下类型的问题：
1. 录了一半的句子（突然中断的句子）
2. 重复录制的内容（同一句话说了多遍）
3. 录音失败的部分（含糊不清、杂音干扰）
4. 口误后重新说的话（说错了重新说）
5. 明显的废话和无意义的填充词

请返回一个JSON数组，包含所有需要删除的片段索引号（基于片段编号，不是数组索引）。
例如：如果要删除片段3和片段7，返回 [3, 7]

只返回JSON数组，不要包含其他文字。`

// Config holds settings for a quality judgment call
type Config struct {
	Model          string
	Temperature    float64
	MaxTokens      int
	TimeoutSeconds int
	SystemPrompt   string
}

// Judge formats segments for a chat model and parses its deletion verdict
type Judge struct {
	provider ai.ChatProvider
	config   Config
	logger   *logger.Logger
}

// New creates a new quality judge
func New(provider ai.ChatProvider, config Config, log *logger.Logger) (*Judge, error) {
	if provider == nil {
		return nil, fmt.Errorf("chat provider is required for quality judgment")
	}
	if config.Temperature == 0 {
		config.Temperature = 0.1
	}
	if config.TimeoutSeconds <= 0 {
		config.TimeoutSeconds = 120
	}
	if config.SystemPrompt == "" {
		config.SystemPrompt = DefaultSystemPrompt
	}
	return &Judge{
		provider: provider,
		config:   config,
		logger:   log.Named("quality-judge"),
	}, nil
}

// FormatSegments renders segments as the user turn: one line per segment,
// "[segment N] text", in order.
func FormatSegments(segments []subtitle.Segment) string {
	lines := make([]string, 0, len(segments))
	for _, seg := range segments {
		lines = append(lines, fmt.Sprintf("[segment %d] %s", seg.Index, seg.Text))
	}
	return strings.Join(lines, "\n")
}

// Evaluate asks the provider which segments to delete and returns their
// indices. On any provider or parse failure it returns an empty set along
// with the error; the caller logs the cause and proceeds as if nothing
// were flagged. Evaluate never panics and never blocks past the
// configured timeout. Returned indices are not validated against the
// segment set — the splicer ignores unknown ones.
func (j *Judge) Evaluate(ctx context.Context, segments []subtitle.Segment) (map[int]struct{}, error) {
	empty := map[int]struct{}{}
	if len(segments) == 0 {
		return empty, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, time.Duration(j.config.TimeoutSeconds)*time.Second)
	defer cancel()

	messages := []ai.ChatMessage{
		{Role: "system", Content: j.config.SystemPrompt},
		{Role: "user", Content: FormatSegments(segments)},
	}

	options := ai.ChatConfig{
		Model:       j.config.Model,
		Temperature: j.config.Temperature,
		MaxTokens:   j.config.MaxTokens,
	}

	j.logger.Info("Requesting quality judgment",
		logger.Int("segments", len(segments)),
		logger.String("model", j.config.Model))

	content, err := j.provider.ChatCompletion(callCtx, messages, options)
	if err != nil {
		return empty, fmt.Errorf("chat completion failed: %w", err)
	}

	indices, err := parseIndices(content)
	if err != nil {
		return empty, err
	}

	result := make(map[int]struct{}, len(indices))
	for _, idx := range indices {
		result[idx] = struct{}{}
	}

	j.logger.Info("Quality judgment complete",
		logger.Int("flagged", len(result)))

	return result, nil
}

// parseIndices extracts a JSON integer array from the model reply. Models
// sometimes wrap the array in prose or code fences, so the outermost
// bracket pair is scanned out before unmarshalling.
func parseIndices(content string) ([]int, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("empty response from model")
	}

	startIdx := strings.Index(content, "[")
	endIdx := strings.LastIndex(content, "]")
	if startIdx == -1 || endIdx == -1 || startIdx >= endIdx {
		return nil, fmt.Errorf("response does not contain a JSON array: %s", content)
	}

	var indices []int
	if err := json.Unmarshal([]byte(content[startIdx:endIdx+1]), &indices); err != nil {
		return nil, fmt.Errorf("failed to parse deletion indices: %w", err)
	}

	return indices, nil
}
