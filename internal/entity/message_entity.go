package entity

import (
	"time"
)

const (
	MessageRoleUser      = "user"
	MessageRoleAssistant = "assistant"
)

// ToolInvocation is one {operation, arguments, result} triple recorded during
// an assistant turn. A nil []ToolInvocation means no operation ran; the
// distinction from an empty slice is observable and must round-trip.
type ToolInvocation struct {
	Tool   string                 `json:"tool"`
	Args   map[string]interface{} `json:"args"`
	Result map[string]interface{} `json:"result"`
}

type Message struct {
	Id             int64
	ConversationId int64
	UserId         string
	Role           string
	Content        string
	ToolCalls      []ToolInvocation // nil when no tool ran
	CreatedAt      time.Time
}
