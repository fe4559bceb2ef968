package agent

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"ai-taskchat-be/internal/constant"
	"ai-taskchat-be/pkg/llm"
)

type nopLogger struct{}

func (nopLogger) Debug(module, message string, details map[string]interface{}) {}
func (nopLogger) Info(module, message string, details map[string]interface{})  {}
func (nopLogger) Warn(module, message string, details map[string]interface{})  {}
func (nopLogger) Error(module, message string, details map[string]interface{}) {}
func (nopLogger) Sync() error                                                  { return nil }

// scriptedProvider returns one canned result per call, recording the
// message history it was handed each time.
type scriptedProvider struct {
	results []*llm.ChatResult
	errs    []error
	calls   [][]llm.Message
}

func (p *scriptedProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	res, err := p.ChatWithTools(ctx, history, nil, options...)
	if err != nil {
		return "", err
	}
	return res.Content, nil
}

func (p *scriptedProvider) ChatWithTools(ctx context.Context, history []llm.Message, tools []llm.ToolDefinition, options ...llm.Option) (*llm.ChatResult, error) {
	i := len(p.calls)
	p.calls = append(p.calls, history)
	if i < len(p.errs) && p.errs[i] != nil {
		return nil, p.errs[i]
	}
	if i < len(p.results) {
		return p.results[i], nil
	}
	return &llm.ChatResult{Content: "done"}, nil
}

func newTestOrchestrator(p llm.LLMProvider) *Orchestrator {
	return NewOrchestrator(p, nopLogger{}, 5*time.Second, 5)
}

func TestRunDirectReply(t *testing.T) {
	provider := &scriptedProvider{results: []*llm.ChatResult{{Content: "Hello there!"}}}
	ts, _ := newToolSetWithTasks("alice")

	result, err := newTestOrchestrator(provider).Run(context.Background(), []llm.Message{{Role: "user", Content: "hi"}}, ts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Reply != "Hello there!" {
		t.Errorf("reply = %q", result.Reply)
	}
	if result.ToolCalls != nil {
		t.Errorf("tool calls = %v, want nil", result.ToolCalls)
	}

	// System prompt must lead the transcript.
	first := provider.calls[0][0]
	if first.Role != constant.ChatMessageRoleSystem {
		t.Errorf("first message role = %q, want system", first.Role)
	}
}

func TestRunEmptyReplyFallsBack(t *testing.T) {
	provider := &scriptedProvider{results: []*llm.ChatResult{{Content: "   "}}}
	ts, _ := newToolSetWithTasks("alice")

	result, err := newTestOrchestrator(provider).Run(context.Background(), nil, ts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Reply != constant.AssistantFallbackReply {
		t.Errorf("reply = %q, want fallback", result.Reply)
	}
}

func TestRunToolRound(t *testing.T) {
	provider := &scriptedProvider{
		results: []*llm.ChatResult{
			{ToolCalls: []llm.ToolCall{{
				ID:        "call_0",
				Name:      "add_task",
				Arguments: json.RawMessage(`{"title":"Buy milk"}`),
			}}},
			{Content: "Added 'Buy milk' to your list."},
		},
	}
	ts, repo := newToolSetWithTasks("alice")

	result, err := newTestOrchestrator(provider).Run(context.Background(), []llm.Message{{Role: "user", Content: "add buy milk"}}, ts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Reply != "Added 'Buy milk' to your list." {
		t.Errorf("reply = %q", result.Reply)
	}
	if len(result.ToolCalls) != 1 {
		t.Fatalf("recorded invocations = %d, want 1", len(result.ToolCalls))
	}
	inv := result.ToolCalls[0]
	if inv.Tool != "add_task" {
		t.Errorf("tool = %q", inv.Tool)
	}
	if inv.Args["title"] != "Buy milk" {
		t.Errorf("args = %v", inv.Args)
	}
	if inv.Result["success"] != true {
		t.Errorf("result = %v", inv.Result)
	}
	if len(repo.tasks) != 1 {
		t.Errorf("tasks persisted = %d, want 1", len(repo.tasks))
	}

	// Second call must see the assistant turn plus the tool answer.
	second := provider.calls[1]
	last := second[len(second)-1]
	if last.Role != constant.ChatMessageRoleTool {
		t.Fatalf("last role = %q, want tool", last.Role)
	}
	if last.ToolCallID != "call_0" {
		t.Errorf("tool call id = %q, want call_0", last.ToolCallID)
	}
	var payload map[string]interface{}
	if err := json.Unmarshal([]byte(last.Content), &payload); err != nil {
		t.Fatalf("tool payload not JSON: %v", err)
	}
	if payload["success"] != true {
		t.Errorf("tool payload = %v", payload)
	}
}

func TestRunFailedToolStaysData(t *testing.T) {
	provider := &scriptedProvider{
		results: []*llm.ChatResult{
			{ToolCalls: []llm.ToolCall{{
				ID:        "call_0",
				Name:      "complete_task",
				Arguments: json.RawMessage(`{"task_id":42}`),
			}}},
			{Content: "I couldn't find that task."},
		},
	}
	ts, _ := newToolSetWithTasks("alice")

	result, err := newTestOrchestrator(provider).Run(context.Background(), nil, ts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.ToolCalls) != 1 {
		t.Fatalf("recorded invocations = %d, want 1", len(result.ToolCalls))
	}
	if result.ToolCalls[0].Result["error_code"] != ErrorCodeNotFound {
		t.Errorf("error_code = %v, want %s", result.ToolCalls[0].Result["error_code"], ErrorCodeNotFound)
	}
}

func TestRunEngineErrors(t *testing.T) {
	ts, _ := newToolSetWithTasks("alice")

	t.Run("timeout", func(t *testing.T) {
		provider := &scriptedProvider{errs: []error{context.DeadlineExceeded}}
		_, err := newTestOrchestrator(provider).Run(context.Background(), nil, ts)
		if !errors.Is(err, ErrEngineTimeout) {
			t.Errorf("err = %v, want ErrEngineTimeout", err)
		}
	})

	t.Run("unavailable", func(t *testing.T) {
		provider := &scriptedProvider{errs: []error{errors.New("connection refused")}}
		_, err := newTestOrchestrator(provider).Run(context.Background(), nil, ts)
		if !errors.Is(err, ErrEngineUnavailable) {
			t.Errorf("err = %v, want ErrEngineUnavailable", err)
		}
	})
}

func TestRunRoundBudget(t *testing.T) {
	// Model keeps asking for tools; after maxRounds the loop gives up with
	// the fallback reply instead of spinning.
	var results []*llm.ChatResult
	for i := 0; i < 10; i++ {
		results = append(results, &llm.ChatResult{ToolCalls: []llm.ToolCall{{
			ID:        "call_0",
			Name:      "list_tasks",
			Arguments: json.RawMessage(`{}`),
		}}})
	}
	provider := &scriptedProvider{results: results}
	ts, _ := newToolSetWithTasks("alice")

	result, err := newTestOrchestrator(provider).Run(context.Background(), nil, ts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Reply != constant.AssistantFallbackReply {
		t.Errorf("reply = %q, want fallback", result.Reply)
	}
	if len(provider.calls) != 5 {
		t.Errorf("engine calls = %d, want 5", len(provider.calls))
	}
	if len(result.ToolCalls) != 5 {
		t.Errorf("recorded invocations = %d, want 5", len(result.ToolCalls))
	}
}
