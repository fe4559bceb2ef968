package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"ai-taskchat-be/internal/dto"
	"ai-taskchat-be/internal/entity"
	"ai-taskchat-be/internal/repository/contract"
	"ai-taskchat-be/internal/repository/specification"
	"ai-taskchat-be/internal/repository/unitofwork"
	"ai-taskchat-be/pkg/agent"
	"ai-taskchat-be/pkg/llm"

	"github.com/stretchr/testify/assert"
)

// --- In-memory repositories ---

type memConversationRepository struct {
	conversations map[int64]*entity.Conversation
	nextId        int64
}

func (r *memConversationRepository) Create(ctx context.Context, c *entity.Conversation) error {
	c.Id = r.nextId
	r.nextId++
	c.CreatedAt = time.Now()
	copied := *c
	r.conversations[c.Id] = &copied
	return nil
}

func (r *memConversationRepository) Update(ctx context.Context, c *entity.Conversation) error {
	now := time.Now()
	c.UpdatedAt = &now
	copied := *c
	r.conversations[c.Id] = &copied
	return nil
}

func (r *memConversationRepository) SoftDelete(ctx context.Context, id int64) error {
	if c, ok := r.conversations[id]; ok {
		now := time.Now()
		c.DeletedAt = &now
		c.IsDeleted = true
	}
	return nil
}

func (r *memConversationRepository) find(includeDeleted bool, specs []specification.Specification) *entity.Conversation {
	for _, c := range r.conversations {
		if c.IsDeleted && !includeDeleted {
			continue
		}
		ok := true
		for _, spec := range specs {
			switch s := spec.(type) {
			case specification.ByID:
				if c.Id != s.ID {
					ok = false
				}
			case specification.OwnedBy:
				if c.UserId != s.UserID {
					ok = false
				}
			}
		}
		if ok {
			copied := *c
			return &copied
		}
	}
	return nil
}

func (r *memConversationRepository) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Conversation, error) {
	return r.find(false, specs), nil
}

func (r *memConversationRepository) FindOneUnscoped(ctx context.Context, specs ...specification.Specification) (*entity.Conversation, error) {
	return r.find(true, specs), nil
}

func (r *memConversationRepository) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Conversation, error) {
	return nil, nil
}

func (r *memConversationRepository) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	return int64(len(r.conversations)), nil
}

type memMessageRepository struct {
	messages []*entity.Message
	nextId   int64
}

func (r *memMessageRepository) Create(ctx context.Context, m *entity.Message) error {
	m.Id = r.nextId
	r.nextId++
	m.CreatedAt = time.Now()
	copied := *m
	r.messages = append(r.messages, &copied)
	return nil
}

func (r *memMessageRepository) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Message, error) {
	var convId int64
	var owner string
	desc := false
	limit := 0
	for _, spec := range specs {
		switch s := spec.(type) {
		case specification.ByConversationID:
			convId = s.ConversationID
		case specification.OwnedBy:
			owner = s.UserID
		case specification.OrderBy:
			desc = s.Desc
		case specification.Pagination:
			limit = s.Limit
		}
	}
	var out []*entity.Message
	for _, m := range r.messages {
		if convId != 0 && m.ConversationId != convId {
			continue
		}
		if owner != "" && m.UserId != owner {
			continue
		}
		out = append(out, m)
	}
	if desc {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memMessageRepository) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	return int64(len(r.messages)), nil
}

type memTaskRepository struct {
	tasks  map[int64]*entity.Task
	nextId int64
}

func (r *memTaskRepository) Create(ctx context.Context, t *entity.Task) error {
	t.Id = r.nextId
	r.nextId++
	copied := *t
	r.tasks[t.Id] = &copied
	return nil
}

func (r *memTaskRepository) Update(ctx context.Context, t *entity.Task) error {
	copied := *t
	r.tasks[t.Id] = &copied
	return nil
}

func (r *memTaskRepository) SoftDelete(ctx context.Context, id int64) error { return nil }

func (r *memTaskRepository) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Task, error) {
	return nil, nil
}

func (r *memTaskRepository) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Task, error) {
	return nil, nil
}

func (r *memTaskRepository) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	return 0, nil
}

type memUnitOfWork struct {
	conversations *memConversationRepository
	messages      *memMessageRepository
	tasks         *memTaskRepository
	begun         int
	committed     int
	rolledBack    int
}

func (u *memUnitOfWork) Begin(ctx context.Context) error { u.begun++; return nil }
func (u *memUnitOfWork) Commit() error                   { u.committed++; return nil }
func (u *memUnitOfWork) Rollback() error                 { u.rolledBack++; return nil }
func (u *memUnitOfWork) ConversationRepository() contract.ConversationRepository {
	return u.conversations
}
func (u *memUnitOfWork) MessageRepository() contract.MessageRepository { return u.messages }
func (u *memUnitOfWork) TaskRepository() contract.TaskRepository       { return u.tasks }

type memFactory struct {
	uow *memUnitOfWork
}

func (f *memFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork { return f.uow }

// --- Test doubles for engine and audit bus ---

type stubProvider struct {
	reply string
	err   error
	calls int
}

func (p *stubProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return p.reply, p.err
}

func (p *stubProvider) ChatWithTools(ctx context.Context, history []llm.Message, tools []llm.ToolDefinition, options ...llm.Option) (*llm.ChatResult, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return &llm.ChatResult{Content: p.reply}, nil
}

type recordingPublisher struct {
	events []string
}

func (p *recordingPublisher) PublishSecurityEvent(ctx context.Context, eventType, userId, action string, details map[string]interface{}) {
	p.events = append(p.events, eventType)
}

type nopLogger struct{}

func (nopLogger) Debug(module, message string, details map[string]interface{}) {}
func (nopLogger) Info(module, message string, details map[string]interface{})  {}
func (nopLogger) Warn(module, message string, details map[string]interface{})  {}
func (nopLogger) Error(module, message string, details map[string]interface{}) {}
func (nopLogger) Sync() error                                                  { return nil }

func newTestService(provider llm.LLMProvider) (IChatService, *memUnitOfWork, *recordingPublisher) {
	uow := &memUnitOfWork{
		conversations: &memConversationRepository{conversations: map[int64]*entity.Conversation{}, nextId: 1},
		messages:      &memMessageRepository{nextId: 1},
		tasks:         &memTaskRepository{tasks: map[int64]*entity.Task{}, nextId: 1},
	}
	publisher := &recordingPublisher{}
	svc := NewChatService(&memFactory{uow: uow}, provider, publisher, nopLogger{}, ChatConfig{
		HistoryLimit:  50,
		AgentTimeout:  5 * time.Second,
		MaxToolRounds: 5,
	})
	return svc, uow, publisher
}

// --- Tests ---

func TestSendChatCreatesConversation(t *testing.T) {
	svc, uow, _ := newTestService(&stubProvider{reply: "Hi! How can I help?"})

	res, err := svc.SendChat(context.Background(), "alice", &dto.ChatRequest{Message: "  hello  "})
	assert.NoError(t, err)
	assert.Equal(t, int64(1), res.ConversationId)
	assert.Equal(t, "Hi! How can I help?", res.Response)
	assert.Nil(t, res.ToolCalls, "turn without tools must keep tool_calls nil")

	assert.Len(t, uow.messages.messages, 2)
	assert.Equal(t, entity.MessageRoleUser, uow.messages.messages[0].Role)
	assert.Equal(t, "hello", uow.messages.messages[0].Content, "message is stored trimmed")
	assert.Equal(t, entity.MessageRoleAssistant, uow.messages.messages[1].Role)
}

func TestSendChatContinuesConversation(t *testing.T) {
	svc, uow, _ := newTestService(&stubProvider{reply: "ok"})

	first, err := svc.SendChat(context.Background(), "alice", &dto.ChatRequest{Message: "one"})
	assert.NoError(t, err)

	second, err := svc.SendChat(context.Background(), "alice", &dto.ChatRequest{
		ConversationId: &first.ConversationId,
		Message:        "two",
	})
	assert.NoError(t, err)
	assert.Equal(t, first.ConversationId, second.ConversationId)
	assert.Len(t, uow.conversations.conversations, 1)
	assert.Len(t, uow.messages.messages, 4)
}

func TestSendChatForeignConversation(t *testing.T) {
	svc, uow, publisher := newTestService(&stubProvider{reply: "ok"})

	uow.conversations.conversations[9] = &entity.Conversation{Id: 9, UserId: "bob"}
	uow.conversations.nextId = 10

	nine := int64(9)
	_, err := svc.SendChat(context.Background(), "alice", &dto.ChatRequest{ConversationId: &nine, Message: "hi"})
	assert.ErrorIs(t, err, ErrConversationNotFound)
	assert.Contains(t, publisher.events, SecurityEventCrossUserAccess)
	assert.Empty(t, uow.messages.messages, "nothing persisted against a foreign conversation")
}

func TestSendChatUserTurnSurvivesEngineFailure(t *testing.T) {
	svc, uow, publisher := newTestService(&stubProvider{err: errors.New("connection refused")})

	_, err := svc.SendChat(context.Background(), "alice", &dto.ChatRequest{Message: "remind me later"})
	assert.ErrorIs(t, err, agent.ErrEngineUnavailable)

	// The user's side of the transcript is already committed.
	assert.Len(t, uow.messages.messages, 1)
	assert.Equal(t, entity.MessageRoleUser, uow.messages.messages[0].Role)
	assert.Equal(t, "remind me later", uow.messages.messages[0].Content)
	assert.Equal(t, 1, uow.committed, "user turn commits before the engine runs")
	assert.Contains(t, publisher.events, SecurityEventEngineFailure)
}

func TestSendChatRejectsWhitespaceOnlyMessage(t *testing.T) {
	svc, uow, _ := newTestService(&stubProvider{reply: "ok"})

	for _, message := range []string{"", "   ", "\t", " \n "} {
		_, err := svc.SendChat(context.Background(), "alice", &dto.ChatRequest{Message: message})
		assert.ErrorIs(t, err, ErrEmptyMessage, "message %q", message)
	}

	assert.Empty(t, uow.messages.messages, "blank turns store nothing")
	assert.Empty(t, uow.conversations.conversations, "blank turns create no conversation")
}

func TestSendChatTouchesConversationEachTurn(t *testing.T) {
	svc, uow, _ := newTestService(&stubProvider{reply: "done"})

	res, err := svc.SendChat(context.Background(), "alice", &dto.ChatRequest{Message: "hello"})
	assert.NoError(t, err)

	// One transaction per stored turn: user message, then assistant message.
	assert.Equal(t, 2, uow.begun)
	assert.Equal(t, 2, uow.committed)
	assert.Zero(t, uow.rolledBack)

	conversation := uow.conversations.conversations[res.ConversationId]
	assistant := uow.messages.messages[1]
	assert.NotNil(t, conversation.UpdatedAt)
	assert.False(t, conversation.UpdatedAt.Before(assistant.CreatedAt),
		"updated_at reflects the assistant turn, not just the user turn")
}

func TestGetConversationMessages(t *testing.T) {
	svc, _, _ := newTestService(&stubProvider{reply: "sure"})

	res, err := svc.SendChat(context.Background(), "alice", &dto.ChatRequest{Message: "hello"})
	assert.NoError(t, err)

	out, err := svc.GetConversationMessages(context.Background(), "alice", res.ConversationId, 50)
	assert.NoError(t, err)
	assert.Len(t, out.Messages, 2)
	assert.Equal(t, "user", out.Messages[0].Role)
	assert.Equal(t, "assistant", out.Messages[1].Role)
	assert.Nil(t, out.Messages[0].ToolCalls)

	// Foreign reader gets not-found, not forbidden.
	_, err = svc.GetConversationMessages(context.Background(), "mallory", res.ConversationId, 50)
	assert.ErrorIs(t, err, ErrConversationNotFound)
}

func TestDeleteConversationIdempotent(t *testing.T) {
	svc, uow, _ := newTestService(&stubProvider{reply: "ok"})

	res, err := svc.SendChat(context.Background(), "alice", &dto.ChatRequest{Message: "hello"})
	assert.NoError(t, err)

	deleted, err := svc.DeleteConversation(context.Background(), "alice", res.ConversationId)
	assert.NoError(t, err)
	assert.True(t, deleted)

	// Second delete is a no-op success.
	deleted, err = svc.DeleteConversation(context.Background(), "alice", res.ConversationId)
	assert.NoError(t, err)
	assert.True(t, deleted)

	// Absent or foreign ids report false.
	deleted, err = svc.DeleteConversation(context.Background(), "alice", 999)
	assert.NoError(t, err)
	assert.False(t, deleted)

	deleted, err = svc.DeleteConversation(context.Background(), "mallory", res.ConversationId)
	assert.NoError(t, err)
	assert.False(t, deleted)

	// Deleted conversation is gone for reads and new turns.
	_, err = svc.GetConversationMessages(context.Background(), "alice", res.ConversationId, 50)
	assert.ErrorIs(t, err, ErrConversationNotFound)

	id := res.ConversationId
	_, err = svc.SendChat(context.Background(), "alice", &dto.ChatRequest{ConversationId: &id, Message: "still there?"})
	assert.ErrorIs(t, err, ErrConversationNotFound)

	// Messages remain stored underneath.
	assert.Len(t, uow.messages.messages, 2)
}
