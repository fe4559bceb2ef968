package dto

import "time"

type ChatRequest struct {
	ConversationId *int64 `json:"conversation_id"`
	Message        string `json:"message" validate:"required,min=1,max=2000"`
}

// ToolCallDTO mirrors the persisted tool record verbatim.
type ToolCallDTO struct {
	Tool   string                 `json:"tool"`
	Args   map[string]interface{} `json:"args"`
	Result map[string]interface{} `json:"result"`
}

// ChatResponse is one completed turn. ToolCalls deliberately has no
// omitempty: a turn without tools marshals as tool_calls: null, which
// clients distinguish from an empty array.
type ChatResponse struct {
	ConversationId int64         `json:"conversation_id"`
	Response       string        `json:"response"`
	ToolCalls      []ToolCallDTO `json:"tool_calls"`
}

type MessageResponse struct {
	Id        int64         `json:"id"`
	Role      string        `json:"role"`
	Content   string        `json:"content"`
	ToolCalls []ToolCallDTO `json:"tool_calls"`
	CreatedAt time.Time     `json:"created_at"`
}

type GetConversationMessagesResponse struct {
	ConversationId int64              `json:"conversation_id"`
	Messages       []*MessageResponse `json:"messages"`
}

type DeleteConversationResponse struct {
	ConversationId int64 `json:"conversation_id"`
	Deleted        bool  `json:"deleted"`
}
