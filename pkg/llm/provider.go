package llm

import (
	"context"
	"encoding/json"
)

// Message represents a chat message in a provider-agnostic format
type Message struct {
	Role       string // "user", "assistant", "system", "tool"
	Content    string
	ToolCallID string     // set on "tool" role messages, echoes the call being answered
	ToolCalls  []ToolCall // set on assistant messages that requested tools
}

// ToolCall is a model-requested function invocation.
type ToolCall struct {
	ID        string
	Name      string
	Arguments json.RawMessage
}

// ToolDefinition describes a function the model may call.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]interface{} // JSON schema for the arguments object
}

// ChatResult is the assistant turn produced by a tool-enabled call.
// ToolCalls is non-empty when the model wants tools executed before replying.
type ChatResult struct {
	Content   string
	ToolCalls []ToolCall
}

// Option allows for optional parameters like Temperature, MaxTokens, etc.
type Option func(*Options)

type Options struct {
	Temperature float64
	MaxTokens   int
	Model       string // Override default model
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithMaxTokens(maxTokens int) Option {
	return func(o *Options) {
		o.MaxTokens = maxTokens
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

// LLMProvider defines the contract for any LLM backend
type LLMProvider interface {
	// Chat sends a chat history to the model and returns the response
	Chat(ctx context.Context, history []Message, options ...Option) (string, error)

	// ChatWithTools sends a chat history plus tool definitions; the model may
	// answer directly or request tool invocations
	ChatWithTools(ctx context.Context, history []Message, tools []ToolDefinition, options ...Option) (*ChatResult, error)
}
