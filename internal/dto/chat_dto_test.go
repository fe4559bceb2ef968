package dto

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestChatResponseToolCallsNullVsArray(t *testing.T) {
	withoutTools, err := json.Marshal(ChatResponse{ConversationId: 1, Response: "hi"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(withoutTools), `"tool_calls":null`) {
		t.Errorf("no-tools turn must marshal tool_calls as null, got %s", withoutTools)
	}

	withTools, err := json.Marshal(ChatResponse{
		ConversationId: 1,
		Response:       "done",
		ToolCalls: []ToolCallDTO{{
			Tool:   "add_task",
			Args:   map[string]interface{}{"title": "x"},
			Result: map[string]interface{}{"success": true},
		}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(withTools), `"tool_calls":[{`) {
		t.Errorf("tool turn must marshal tool_calls as an array, got %s", withTools)
	}
}
