package model

import (
	"time"

	"gorm.io/datatypes"
)

// Message rows are append-only: no UpdatedAt, no DeletedAt. History survives
// conversation soft-deletes as an audit trail.
type Message struct {
	Id             int64          `gorm:"primaryKey;autoIncrement"`
	ConversationId int64          `gorm:"not null;index:ix_messages_conversation_created,priority:1"`
	UserId         string         `gorm:"type:varchar(255);not null;index"` // Denormalized from conversation for isolation queries
	Role           string         `gorm:"type:varchar(50);not null"`
	Content        string         `gorm:"type:text;not null"`
	ToolCalls      datatypes.JSON `gorm:"type:jsonb"` // NULL when no tool ran; never an empty array
	CreatedAt      time.Time      `gorm:"autoCreateTime;index:ix_messages_conversation_created,priority:2"`
}

func (Message) TableName() string {
	return "messages"
}
