package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"ai-taskchat-be/internal/dto"
	"ai-taskchat-be/internal/entity"
	"ai-taskchat-be/internal/pkg/logger"
	"ai-taskchat-be/internal/repository/specification"
	"ai-taskchat-be/internal/repository/unitofwork"
	"ai-taskchat-be/pkg/agent"
	"ai-taskchat-be/pkg/agent/history"
	"ai-taskchat-be/pkg/llm"
)

// ErrConversationNotFound covers absent, foreign-owned and soft-deleted
// conversations alike; callers cannot tell the three cases apart.
var ErrConversationNotFound = errors.New("conversation not found")

// ErrEmptyMessage rejects messages that are blank once trimmed. The DTO
// min=1 bound counts whitespace, so the check happens after TrimSpace.
var ErrEmptyMessage = errors.New("message is empty")

type IChatService interface {
	SendChat(ctx context.Context, userId string, req *dto.ChatRequest) (*dto.ChatResponse, error)
	GetConversationMessages(ctx context.Context, userId string, conversationId int64, limit int) (*dto.GetConversationMessagesResponse, error)
	DeleteConversation(ctx context.Context, userId string, conversationId int64) (bool, error)
}

type ChatConfig struct {
	HistoryLimit  int
	AgentTimeout  time.Duration
	MaxToolRounds int
}

type chatService struct {
	uowFactory       unitofwork.RepositoryFactory
	provider         llm.LLMProvider
	historyLoader    *history.Loader
	publisherService IPublisherService
	log              logger.ILogger
	cfg              ChatConfig
}

func NewChatService(
	uowFactory unitofwork.RepositoryFactory,
	provider llm.LLMProvider,
	publisherService IPublisherService,
	log logger.ILogger,
	cfg ChatConfig,
) IChatService {
	return &chatService{
		uowFactory:       uowFactory,
		provider:         provider,
		historyLoader:    history.NewLoader(uowFactory, cfg.HistoryLimit),
		publisherService: publisherService,
		log:              log,
		cfg:              cfg,
	}
}

// SendChat runs one full chat turn. Each side of the turn commits in its
// own short transaction and the user's side is never rolled back: a failed
// engine call must leave the user's message intact, so no transaction
// spans the orchestration.
func (c *chatService) SendChat(ctx context.Context, userId string, req *dto.ChatRequest) (*dto.ChatResponse, error) {
	content := strings.TrimSpace(req.Message)
	if content == "" {
		return nil, ErrEmptyMessage
	}

	uow := c.uowFactory.NewUnitOfWork(ctx)

	conversation, err := c.resolveConversation(ctx, uow, userId, req.ConversationId)
	if err != nil {
		return nil, err
	}

	userMessage := &entity.Message{
		ConversationId: conversation.Id,
		UserId:         userId,
		Role:           entity.MessageRoleUser,
		Content:        content,
	}
	if err := c.persistTurn(ctx, uow, conversation, userMessage); err != nil {
		return nil, err
	}

	turns, err := c.historyLoader.LoadConversationHistory(ctx, userId, conversation.Id)
	if err != nil {
		return nil, err
	}

	toolset := agent.NewToolSet(userId, c.uowFactory)
	orchestrator := agent.NewOrchestrator(c.provider, c.log, c.cfg.AgentTimeout, c.cfg.MaxToolRounds)

	result, err := orchestrator.Run(ctx, turns, toolset)
	if err != nil {
		c.publisherService.PublishSecurityEvent(ctx, SecurityEventEngineFailure, userId, "chat", map[string]interface{}{
			"conversation_id": conversation.Id,
			"error":           err.Error(),
		})
		return nil, err
	}

	assistantMessage := &entity.Message{
		ConversationId: conversation.Id,
		UserId:         userId,
		Role:           entity.MessageRoleAssistant,
		Content:        result.Reply,
		ToolCalls:      result.ToolCalls,
	}
	if err := c.persistTurn(ctx, uow, conversation, assistantMessage); err != nil {
		return nil, err
	}

	for _, invocation := range result.ToolCalls {
		c.publisherService.PublishSecurityEvent(ctx, SecurityEventToolInvoked, userId, invocation.Tool, map[string]interface{}{
			"conversation_id": conversation.Id,
			"success":         invocation.Result["success"],
		})
	}

	return &dto.ChatResponse{
		ConversationId: conversation.Id,
		Response:       result.Reply,
		ToolCalls:      toolCallDTOs(result.ToolCalls),
	}, nil
}

// persistTurn appends one message and bumps the conversation's updated_at
// in a single transaction, so recency ordering always reflects the latest
// stored turn.
func (c *chatService) persistTurn(ctx context.Context, uow unitofwork.UnitOfWork, conversation *entity.Conversation, message *entity.Message) error {
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	if err := uow.MessageRepository().Create(ctx, message); err != nil {
		uow.Rollback()
		return err
	}
	if err := uow.ConversationRepository().Update(ctx, conversation); err != nil {
		uow.Rollback()
		return err
	}
	return uow.Commit()
}

func (c *chatService) resolveConversation(ctx context.Context, uow unitofwork.UnitOfWork, userId string, conversationId *int64) (*entity.Conversation, error) {
	if conversationId == nil {
		conversation := &entity.Conversation{UserId: userId}
		if err := uow.ConversationRepository().Create(ctx, conversation); err != nil {
			return nil, err
		}
		return conversation, nil
	}

	conversation, err := uow.ConversationRepository().FindOne(ctx,
		specification.ByID{ID: *conversationId},
		specification.OwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if conversation == nil {
		c.publisherService.PublishSecurityEvent(ctx, SecurityEventCrossUserAccess, userId, "chat", map[string]interface{}{
			"conversation_id": *conversationId,
		})
		return nil, ErrConversationNotFound
	}
	return conversation, nil
}

// GetConversationMessages returns the most recent messages in chronological
// order. limit is clamped to 1..100 upstream.
func (c *chatService) GetConversationMessages(ctx context.Context, userId string, conversationId int64, limit int) (*dto.GetConversationMessagesResponse, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)

	conversation, err := uow.ConversationRepository().FindOne(ctx,
		specification.ByID{ID: conversationId},
		specification.OwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if conversation == nil {
		c.publisherService.PublishSecurityEvent(ctx, SecurityEventCrossUserAccess, userId, "read_messages", map[string]interface{}{
			"conversation_id": conversationId,
		})
		return nil, ErrConversationNotFound
	}

	if limit <= 0 {
		limit = c.cfg.HistoryLimit
	}
	rows, err := uow.MessageRepository().FindAll(ctx,
		specification.ByConversationID{ConversationID: conversationId},
		specification.OwnedBy{UserID: userId},
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: limit},
	)
	if err != nil {
		return nil, err
	}

	messages := make([]*dto.MessageResponse, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		row := rows[i]
		messages = append(messages, &dto.MessageResponse{
			Id:        row.Id,
			Role:      row.Role,
			Content:   row.Content,
			ToolCalls: toolCallDTOs(row.ToolCalls),
			CreatedAt: row.CreatedAt,
		})
	}

	return &dto.GetConversationMessagesResponse{
		ConversationId: conversationId,
		Messages:       messages,
	}, nil
}

// DeleteConversation is idempotent. Deleting an absent or foreign
// conversation reports false; deleting an already-deleted one is a no-op
// success. Messages stay in place, hidden behind the deleted parent.
func (c *chatService) DeleteConversation(ctx context.Context, userId string, conversationId int64) (bool, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)

	conversation, err := uow.ConversationRepository().FindOneUnscoped(ctx,
		specification.ByID{ID: conversationId},
		specification.OwnedBy{UserID: userId},
	)
	if err != nil {
		return false, err
	}
	if conversation == nil {
		return false, nil
	}
	if conversation.IsDeleted {
		return true, nil
	}

	if err := uow.ConversationRepository().SoftDelete(ctx, conversation.Id); err != nil {
		return false, err
	}

	c.publisherService.PublishSecurityEvent(ctx, SecurityEventConversationGone, userId, "delete", map[string]interface{}{
		"conversation_id": conversationId,
	})
	return true, nil
}

// toolCallDTOs preserves the nil-vs-empty distinction end to end.
func toolCallDTOs(invocations []entity.ToolInvocation) []dto.ToolCallDTO {
	if invocations == nil {
		return nil
	}
	out := make([]dto.ToolCallDTO, len(invocations))
	for i, inv := range invocations {
		out[i] = dto.ToolCallDTO{
			Tool:   inv.Tool,
			Args:   inv.Args,
			Result: inv.Result,
		}
	}
	return out
}
