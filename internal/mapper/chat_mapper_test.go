package mapper

import (
	"testing"
	"time"

	"ai-taskchat-be/internal/entity"
)

func TestMessageToolCallsRoundTrip(t *testing.T) {
	m := NewChatMapper()

	invocations := []entity.ToolInvocation{
		{
			Tool:   "add_task",
			Args:   map[string]interface{}{"title": "Buy milk"},
			Result: map[string]interface{}{"success": true, "task_id": float64(3)},
		},
	}

	msg := &entity.Message{
		Id:             1,
		ConversationId: 2,
		UserId:         "alice",
		Role:           entity.MessageRoleAssistant,
		Content:        "Done.",
		ToolCalls:      invocations,
		CreatedAt:      time.Now(),
	}

	row, err := m.MessageToModel(msg)
	if err != nil {
		t.Fatalf("MessageToModel: %v", err)
	}
	if len(row.ToolCalls) == 0 {
		t.Fatal("tool calls not serialized")
	}

	back, err := m.MessageToEntity(row)
	if err != nil {
		t.Fatalf("MessageToEntity: %v", err)
	}
	if len(back.ToolCalls) != 1 {
		t.Fatalf("tool calls = %d, want 1", len(back.ToolCalls))
	}
	if back.ToolCalls[0].Tool != "add_task" {
		t.Errorf("tool = %q", back.ToolCalls[0].Tool)
	}
	if back.ToolCalls[0].Args["title"] != "Buy milk" {
		t.Errorf("args = %v", back.ToolCalls[0].Args)
	}
	if back.ToolCalls[0].Result["success"] != true {
		t.Errorf("result = %v", back.ToolCalls[0].Result)
	}
}

func TestMessageWithoutToolCallsStaysNull(t *testing.T) {
	m := NewChatMapper()

	msg := &entity.Message{
		Id:             1,
		ConversationId: 2,
		UserId:         "alice",
		Role:           entity.MessageRoleUser,
		Content:        "hello",
		CreatedAt:      time.Now(),
	}

	row, err := m.MessageToModel(msg)
	if err != nil {
		t.Fatalf("MessageToModel: %v", err)
	}
	// nil slice must become SQL NULL, not "[]".
	if row.ToolCalls != nil {
		t.Errorf("tool calls column = %q, want nil", string(row.ToolCalls))
	}

	back, err := m.MessageToEntity(row)
	if err != nil {
		t.Fatalf("MessageToEntity: %v", err)
	}
	if back.ToolCalls != nil {
		t.Errorf("entity tool calls = %v, want nil", back.ToolCalls)
	}
}

func TestConversationDeletedAtMapping(t *testing.T) {
	m := NewChatMapper()

	now := time.Now()
	conversation := &entity.Conversation{Id: 1, UserId: "alice", CreatedAt: now, DeletedAt: &now, IsDeleted: true}

	row := m.ConversationToModel(conversation)
	if !row.DeletedAt.Valid {
		t.Fatal("deleted_at not set on model")
	}

	back := m.ConversationToEntity(row)
	if !back.IsDeleted || back.DeletedAt == nil {
		t.Error("deleted flag lost on round trip")
	}
}
