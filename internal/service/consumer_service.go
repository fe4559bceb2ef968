package service

import (
	"context"
	"encoding/json"

	"ai-taskchat-be/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService drains the audit topic into the isolated security log.
// The security file stays append-only JSON lines, one event per line.
type consumerService struct {
	pubSub      *gochannel.GoChannel
	topicName   string
	securityLog logger.ILogger
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	securityLog logger.ILogger,
) IConsumerService {
	return &consumerService{
		pubSub:      pubSub,
		topicName:   topicName,
		securityLog: securityLog,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(msg *message.Message) {
	var payload securityEventPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.securityLog.Error("SECURITY", "Malformed security event", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	cs.securityLog.Info("SECURITY", payload.EventType, map[string]interface{}{
		"event_id":    payload.EventId,
		"user_id":     payload.UserId,
		"action":      payload.Action,
		"details":     payload.Details,
		"occurred_at": payload.OccurredAt,
	})
	msg.Ack()
}
