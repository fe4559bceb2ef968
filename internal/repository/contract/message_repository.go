package contract

import (
	"context"

	"ai-taskchat-be/internal/entity"
	"ai-taskchat-be/internal/repository/specification"
)

// MessageRepository is append-only: messages are never updated or deleted
// individually. Conversation-level deletion leaves message rows in place.
type MessageRepository interface {
	Create(ctx context.Context, message *entity.Message) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Message, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
