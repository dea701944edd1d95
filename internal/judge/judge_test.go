package judge

import (
	"context"
	"errors"
	"testing"

	"github.com/stillwave/recut/internal/ai"
	"github.com/stillwave/recut/internal/subtitle"
	"github.com/stillwave/recut/pkg/logger"
)

type fakeProvider struct {
	response string
	err      error
	messages []ai.ChatMessage
	config   ai.ChatConfig
}

func (f *fakeProvider) ChatCompletion(ctx context.Context, messages []ai.ChatMessage, config ai.ChatConfig) (string, error) {
	f.messages = messages
	f.config = config
	return f.response, f.err
}

func testSegments() []subtitle.Segment {
	return []subtitle.Segment{
		subtitle.NewSegment(1, 0, 2000, "第一句。"),
		subtitle.NewSegment(2, 2000, 4000, "第二句。"),
		subtitle.NewSegment(3, 4000, 6000, "第三句。"),
	}
}

func TestNewRequiresProvider(t *testing.T) {
	if _, err := New(nil, Config{}, logger.NewNop()); err == nil {
		t.Fatal("New(nil provider) succeeded, want error")
	}
}

func TestFormatSegments(t *testing.T) {
	got := FormatSegments(testSegments())
	want := "[segment 1] 第一句。\n[segment 2] 第二句。\n[segment 3] 第三句。"
	if got != want {
		t.Errorf("FormatSegments() = %q, want %q", got, want)
	}
}

func TestEvaluateParsesVerdict(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     []int
	}{
		{name: "plain array", response: "[1, 3]", want: []int{1, 3}},
		{name: "empty array", response: "[]", want: nil},
		{name: "prose wrapped", response: "需要删除的片段：[2]，以上。", want: []int{2}},
		{name: "code fenced", response: "```json\n[1]\n```", want: []int{1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &fakeProvider{response: tt.response}
			j, err := New(provider, Config{Model: "test-model"}, logger.NewNop())
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}

			got, err := j.Evaluate(context.Background(), testSegments())
			if err != nil {
				t.Fatalf("Evaluate() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Evaluate() flagged %d segments, want %d", len(got), len(tt.want))
			}
			for _, idx := range tt.want {
				if _, ok := got[idx]; !ok {
					t.Errorf("Evaluate() missing index %d", idx)
				}
			}
		})
	}
}

func TestEvaluateFailsOpen(t *testing.T) {
	tests := []struct {
		name     string
		provider *fakeProvider
	}{
		{name: "provider error", provider: &fakeProvider{err: errors.New("connection refused")}},
		{name: "empty response", provider: &fakeProvider{response: ""}},
		{name: "no array in response", provider: &fakeProvider{response: "好的，没有需要删除的片段"}},
		{name: "non-integer array", provider: &fakeProvider{response: `["a", "b"]`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j, err := New(tt.provider, Config{Model: "test-model"}, logger.NewNop())
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}

			got, err := j.Evaluate(context.Background(), testSegments())
			if err == nil {
				t.Fatal("Evaluate() succeeded, want error for caller to log")
			}
			if got == nil {
				t.Fatal("Evaluate() returned nil set, want empty set")
			}
			if len(got) != 0 {
				t.Errorf("Evaluate() flagged %d segments on failure, want 0", len(got))
			}
		})
	}
}

func TestEvaluateEmptyInput(t *testing.T) {
	provider := &fakeProvider{response: "[1]"}
	j, err := New(provider, Config{Model: "test-model"}, logger.NewNop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	got, err := j.Evaluate(context.Background(), nil)
	if err != nil {
		t.Fatalf("Evaluate(nil) error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Evaluate(nil) flagged %d segments, want 0", len(got))
	}
	if provider.messages != nil {
		t.Error("Evaluate(nil) called the provider, want no call")
	}
}

func TestEvaluateSendsRubricAndDefaults(t *testing.T) {
	provider := &fakeProvider{response: "[]"}
	j, err := New(provider, Config{Model: "test-model"}, logger.NewNop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if _, err := j.Evaluate(context.Background(), testSegments()); err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	if len(provider.messages) != 2 {
		t.Fatalf("provider received %d messages, want 2", len(provider.messages))
	}
	if provider.messages[0].Role != "system" || provider.messages[0].Content != DefaultSystemPrompt {
		t.Error("system turn does not carry the default rubric")
	}
	if provider.messages[1].Role != "user" {
		t.Errorf("second turn role = %q, want user", provider.messages[1].Role)
	}
	if provider.config.Temperature != 0.1 {
		t.Errorf("temperature = %v, want default 0.1", provider.config.Temperature)
	}
	if provider.config.Model != "test-model" {
		t.Errorf("model = %q, want test-model", provider.config.Model)
	}
}
