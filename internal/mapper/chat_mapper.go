package mapper

import (
	"encoding/json"
	"time"

	"ai-taskchat-be/internal/entity"
	"ai-taskchat-be/internal/model"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ChatMapper struct{}

func NewChatMapper() *ChatMapper {
	return &ChatMapper{}
}

// Conversation Mappers

func (m *ChatMapper) ConversationToEntity(c *model.Conversation) *entity.Conversation {
	if c == nil {
		return nil
	}

	var deletedAt *time.Time
	if c.DeletedAt.Valid {
		t := c.DeletedAt.Time
		deletedAt = &t
	}

	var updatedAt *time.Time
	if !c.UpdatedAt.IsZero() {
		t := c.UpdatedAt
		updatedAt = &t
	}

	return &entity.Conversation{
		Id:        c.Id,
		UserId:    c.UserId,
		CreatedAt: c.CreatedAt,
		UpdatedAt: updatedAt,
		DeletedAt: deletedAt,
		IsDeleted: c.DeletedAt.Valid,
	}
}

func (m *ChatMapper) ConversationToModel(c *entity.Conversation) *model.Conversation {
	if c == nil {
		return nil
	}

	var deletedAt gorm.DeletedAt
	if c.DeletedAt != nil {
		deletedAt = gorm.DeletedAt{Time: *c.DeletedAt, Valid: true}
	} else if c.IsDeleted {
		deletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	}

	var updatedAt time.Time
	if c.UpdatedAt != nil {
		updatedAt = *c.UpdatedAt
	}

	return &model.Conversation{
		Id:        c.Id,
		UserId:    c.UserId,
		CreatedAt: c.CreatedAt,
		UpdatedAt: updatedAt,
		DeletedAt: deletedAt,
	}
}

// Message Mappers
//
// ToolCalls round-trips through a nullable jsonb column. A nil invocation
// slice maps to SQL NULL, never to an empty JSON array.

func (m *ChatMapper) MessageToEntity(msg *model.Message) (*entity.Message, error) {
	if msg == nil {
		return nil, nil
	}

	var toolCalls []entity.ToolInvocation
	if len(msg.ToolCalls) > 0 {
		if err := json.Unmarshal(msg.ToolCalls, &toolCalls); err != nil {
			return nil, err
		}
	}

	return &entity.Message{
		Id:             msg.Id,
		ConversationId: msg.ConversationId,
		UserId:         msg.UserId,
		Role:           msg.Role,
		Content:        msg.Content,
		ToolCalls:      toolCalls,
		CreatedAt:      msg.CreatedAt,
	}, nil
}

func (m *ChatMapper) MessageToModel(msg *entity.Message) (*model.Message, error) {
	if msg == nil {
		return nil, nil
	}

	var toolCalls datatypes.JSON
	if msg.ToolCalls != nil {
		raw, err := json.Marshal(msg.ToolCalls)
		if err != nil {
			return nil, err
		}
		toolCalls = datatypes.JSON(raw)
	}

	return &model.Message{
		Id:             msg.Id,
		ConversationId: msg.ConversationId,
		UserId:         msg.UserId,
		Role:           msg.Role,
		Content:        msg.Content,
		ToolCalls:      toolCalls,
		CreatedAt:      msg.CreatedAt,
	}, nil
}
