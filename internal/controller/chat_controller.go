package controller

import (
	"errors"
	"strconv"

	"ai-taskchat-be/internal/dto"
	"ai-taskchat-be/internal/pkg/serverutils"
	"ai-taskchat-be/internal/service"
	"ai-taskchat-be/pkg/agent"

	"github.com/gofiber/fiber/v2"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	SendChat(ctx *fiber.Ctx) error
	GetConversationMessages(ctx *fiber.Ctx) error
	DeleteConversation(ctx *fiber.Ctx) error
}

type chatController struct {
	service          service.IChatService
	auth             fiber.Handler
	limiter          *serverutils.RateLimiter
	chatPerMinute    int
	historyPerMinute int
}

func NewChatController(service service.IChatService, auth fiber.Handler, limiter *serverutils.RateLimiter, chatPerMinute, historyPerMinute int) IChatController {
	return &chatController{
		service:          service,
		auth:             auth,
		limiter:          limiter,
		chatPerMinute:    chatPerMinute,
		historyPerMinute: historyPerMinute,
	}
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/chat/v1")
	h.Use(c.auth)
	h.Post("", c.limiter.Limit(c.chatPerMinute), c.SendChat)
	h.Get("conversations/:id/messages", c.limiter.Limit(c.historyPerMinute), c.GetConversationMessages)
	h.Delete("conversations/:id", c.DeleteConversation)
}

func (c *chatController) SendChat(ctx *fiber.Ctx) error {
	userId := ctx.Locals("user_id").(string)

	var req dto.ChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return serverutils.NewApiError(fiber.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.SendChat(ctx.Context(), userId, &req)
	if err != nil {
		return mapChatError(err)
	}

	return ctx.JSON(res)
}

func (c *chatController) GetConversationMessages(ctx *fiber.Ctx) error {
	userId := ctx.Locals("user_id").(string)

	conversationId, err := strconv.ParseInt(ctx.Params("id"), 10, 64)
	if err != nil || conversationId <= 0 {
		return serverutils.NewApiError(fiber.StatusBadRequest, "VALIDATION_ERROR", "Invalid conversation id")
	}

	limit := ctx.QueryInt("limit", 50)
	if limit < 1 || limit > 100 {
		return serverutils.NewApiError(fiber.StatusBadRequest, "VALIDATION_ERROR", "limit must be between 1 and 100")
	}

	res, err := c.service.GetConversationMessages(ctx.Context(), userId, conversationId, limit)
	if err != nil {
		return mapChatError(err)
	}

	return ctx.JSON(res)
}

func (c *chatController) DeleteConversation(ctx *fiber.Ctx) error {
	userId := ctx.Locals("user_id").(string)

	conversationId, err := strconv.ParseInt(ctx.Params("id"), 10, 64)
	if err != nil || conversationId <= 0 {
		return serverutils.NewApiError(fiber.StatusBadRequest, "VALIDATION_ERROR", "Invalid conversation id")
	}

	deleted, err := c.service.DeleteConversation(ctx.Context(), userId, conversationId)
	if err != nil {
		return mapChatError(err)
	}
	if !deleted {
		return serverutils.NewApiError(fiber.StatusNotFound, "NOT_FOUND", "Conversation not found")
	}

	return ctx.JSON(dto.DeleteConversationResponse{
		ConversationId: conversationId,
		Deleted:        true,
	})
}

func mapChatError(err error) error {
	switch {
	case errors.Is(err, service.ErrEmptyMessage):
		return serverutils.NewApiError(fiber.StatusUnprocessableEntity, "VALIDATION_ERROR", "Message cannot be empty")
	case errors.Is(err, service.ErrConversationNotFound):
		return serverutils.NewApiError(fiber.StatusNotFound, "NOT_FOUND", "Conversation not found")
	case errors.Is(err, agent.ErrEngineTimeout):
		return serverutils.NewApiError(fiber.StatusGatewayTimeout, "AI_SERVICE_UNAVAILABLE", "AI service timed out. Please try again.")
	case errors.Is(err, agent.ErrEngineUnavailable):
		return serverutils.NewApiError(fiber.StatusServiceUnavailable, "AI_SERVICE_UNAVAILABLE", "AI service is unavailable. Please try again.")
	default:
		return err
	}
}
