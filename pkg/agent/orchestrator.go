package agent

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"ai-taskchat-be/internal/constant"
	"ai-taskchat-be/internal/entity"
	"ai-taskchat-be/internal/pkg/logger"
	"ai-taskchat-be/pkg/llm"
)

var (
	// ErrEngineTimeout indicates the reasoning engine did not answer within
	// the configured deadline.
	ErrEngineTimeout = errors.New("reasoning engine timed out")
	// ErrEngineUnavailable indicates the reasoning engine is unreachable or
	// returned a transport-level failure.
	ErrEngineUnavailable = errors.New("reasoning engine unavailable")
)

// Result is the outcome of one orchestrated assistant turn.
type Result struct {
	Reply     string
	ToolCalls []entity.ToolInvocation // nil when no tool ran
}

// Orchestrator drives one chat turn against the reasoning engine: it
// advertises the owner-bound tools, executes the calls the model requests
// and loops until the model produces a plain reply or the round budget
// runs out. One Run is one logical engine invocation from the caller's
// point of view.
type Orchestrator struct {
	provider  llm.LLMProvider
	log       logger.ILogger
	timeout   time.Duration
	maxRounds int
}

func NewOrchestrator(provider llm.LLMProvider, log logger.ILogger, timeout time.Duration, maxRounds int) *Orchestrator {
	if maxRounds <= 0 {
		maxRounds = 5
	}
	return &Orchestrator{
		provider:  provider,
		log:       log,
		timeout:   timeout,
		maxRounds: maxRounds,
	}
}

func (o *Orchestrator) Run(ctx context.Context, history []llm.Message, tools *ToolSet) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	messages := make([]llm.Message, 0, len(history)+1)
	messages = append(messages, llm.Message{
		Role:    constant.ChatMessageRoleSystem,
		Content: constant.AssistantSystemPrompt,
	})
	messages = append(messages, history...)

	definitions := tools.Definitions()
	var invocations []entity.ToolInvocation

	for round := 0; round < o.maxRounds; round++ {
		res, err := o.provider.ChatWithTools(ctx, messages, definitions)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
				o.log.Error("AGENT", "Engine call timed out", map[string]interface{}{
					"round":   round + 1,
					"timeout": o.timeout.String(),
				})
				return nil, ErrEngineTimeout
			}
			o.log.Error("AGENT", "Engine call failed", map[string]interface{}{
				"round": round + 1,
				"error": err.Error(),
			})
			return nil, ErrEngineUnavailable
		}

		if len(res.ToolCalls) == 0 {
			reply := strings.TrimSpace(res.Content)
			if reply == "" {
				reply = constant.AssistantFallbackReply
			}
			return &Result{Reply: reply, ToolCalls: invocations}, nil
		}

		// Echo the assistant turn that requested the calls, then answer
		// each call with its result before asking the model again.
		messages = append(messages, llm.Message{
			Role:      constant.ChatMessageRoleAssistant,
			Content:   res.Content,
			ToolCalls: res.ToolCalls,
		})

		for _, call := range res.ToolCalls {
			var args map[string]interface{}
			if err := json.Unmarshal(call.Arguments, &args); err != nil || args == nil {
				args = map[string]interface{}{}
			}

			result := tools.Execute(ctx, call.Name, call.Arguments)
			invocations = append(invocations, entity.ToolInvocation{
				Tool:   call.Name,
				Args:   args,
				Result: result,
			})

			o.log.Info("AGENT", "Tool executed", map[string]interface{}{
				"tool":    call.Name,
				"round":   round + 1,
				"success": result["success"],
			})

			payload, err := json.Marshal(result)
			if err != nil {
				payload = []byte(`{"success":false,"error_code":"INTERNAL_ERROR","message":"failed to encode tool result"}`)
			}
			messages = append(messages, llm.Message{
				Role:       constant.ChatMessageRoleTool,
				Content:    string(payload),
				ToolCallID: call.ID,
			})
		}
	}

	o.log.Warn("AGENT", "Round budget exhausted before final reply", map[string]interface{}{
		"max_rounds": o.maxRounds,
		"tool_calls": len(invocations),
	})
	return &Result{Reply: constant.AssistantFallbackReply, ToolCalls: invocations}, nil
}
