package contract

import (
	"context"

	"ai-taskchat-be/internal/entity"
	"ai-taskchat-be/internal/repository/specification"
)

type ConversationRepository interface {
	Create(ctx context.Context, conversation *entity.Conversation) error
	Update(ctx context.Context, conversation *entity.Conversation) error
	// SoftDelete marks the conversation deleted; message rows are untouched.
	SoftDelete(ctx context.Context, id int64) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Conversation, error)
	// FindOneUnscoped includes soft-deleted rows, for idempotent delete checks.
	FindOneUnscoped(ctx context.Context, specs ...specification.Specification) (*entity.Conversation, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Conversation, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
