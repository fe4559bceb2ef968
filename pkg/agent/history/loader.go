package history

import (
	"context"

	"ai-taskchat-be/internal/constant"
	"ai-taskchat-be/internal/entity"
	"ai-taskchat-be/internal/repository/specification"
	"ai-taskchat-be/internal/repository/unitofwork"
	"ai-taskchat-be/pkg/llm"
)

// Loader builds the engine-facing context window from persisted messages.
type Loader struct {
	uowFactory unitofwork.RepositoryFactory
	limit      int
}

// NewLoader creates a new history loader. limit caps how many of the most
// recent messages are replayed to the engine per turn.
func NewLoader(uowFactory unitofwork.RepositoryFactory, limit int) *Loader {
	if limit <= 0 {
		limit = 50
	}
	return &Loader{
		uowFactory: uowFactory,
		limit:      limit,
	}
}

// LoadConversationHistory loads the most recent messages of a conversation
// in chronological order. Tool records on past assistant turns are not
// replayed; the engine only sees the role and text of each turn.
func (l *Loader) LoadConversationHistory(ctx context.Context, userId string, conversationId int64) ([]llm.Message, error) {
	uow := l.uowFactory.NewUnitOfWork(ctx)

	rows, err := uow.MessageRepository().FindAll(ctx,
		specification.ByConversationID{ConversationID: conversationId},
		specification.OwnedBy{UserID: userId},
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: l.limit},
	)
	if err != nil {
		return nil, err
	}

	messages := make([]llm.Message, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		row := rows[i]

		role := constant.ChatMessageRoleUser
		if row.Role == entity.MessageRoleAssistant {
			role = constant.ChatMessageRoleAssistant
		}
		messages = append(messages, llm.Message{
			Role:    role,
			Content: row.Content,
		})
	}

	return messages, nil
}
