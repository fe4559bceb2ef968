package service

import (
	"context"
	"encoding/json"
	"time"

	"ai-taskchat-be/internal/pkg/logger"
	"ai-taskchat-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

const (
	SecurityEventCrossUserAccess  = "cross_user_access_attempt"
	SecurityEventUnauthorized     = "unauthorized_access_attempt"
	SecurityEventRateLimited      = "rate_limit_exceeded"
	SecurityEventToolInvoked      = "tool_invoked"
	SecurityEventEngineFailure    = "engine_failure"
	SecurityEventConversationGone = "conversation_deleted"
)

type IPublisherService interface {
	PublishSecurityEvent(ctx context.Context, eventType, userId, action string, details map[string]interface{})
}

type securityEventPayload struct {
	EventId    string                 `json:"event_id"`
	EventType  string                 `json:"event_type"`
	UserId     string                 `json:"user_id"`
	Action     string                 `json:"action"`
	Details    map[string]interface{} `json:"details"`
	OccurredAt time.Time              `json:"occurred_at"`
}

type publisherService struct {
	topicName string
	pubSub    *gochannel.GoChannel
	log       logger.ILogger
}

func NewPublisherService(topicName string, pubSub *gochannel.GoChannel, log logger.ILogger) IPublisherService {
	return &publisherService{
		topicName: topicName,
		pubSub:    pubSub,
		log:       log,
	}
}

// PublishSecurityEvent emits an audit event onto the in-process bus.
// Publishing is best-effort: audit delivery never fails a user request.
func (p *publisherService) PublishSecurityEvent(ctx context.Context, eventType, userId, action string, details map[string]interface{}) {
	if p.pubSub == nil {
		return
	}
	if details == nil {
		details = map[string]interface{}{}
	}

	evt := events.BaseEvent{
		Type: eventType,
		Data: map[string]interface{}{
			"user_id": userId,
			"action":  action,
			"details": details,
		},
		OccurredAt: time.Now().UTC(),
	}

	payload := securityEventPayload{
		EventId:    uuid.NewString(),
		EventType:  evt.EventType(),
		UserId:     userId,
		Action:     action,
		Details:    details,
		OccurredAt: evt.Timestamp(),
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		p.log.Error("AUDIT", "Failed to marshal security event", map[string]interface{}{
			"event_type": eventType,
			"error":      err.Error(),
		})
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), raw)
	if err := p.pubSub.Publish(p.topicName, msg); err != nil {
		p.log.Error("AUDIT", "Failed to publish security event", map[string]interface{}{
			"event_type": eventType,
			"error":      err.Error(),
		})
	}
}
