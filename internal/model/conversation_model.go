package model

import (
	"time"

	"gorm.io/gorm"
)

type Conversation struct {
	Id        int64          `gorm:"primaryKey;autoIncrement"`
	UserId    string         `gorm:"type:varchar(255);not null;index:ix_conversations_user_active,priority:1"` // User ownership for data isolation
	CreatedAt time.Time      `gorm:"autoCreateTime"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime;index:ix_conversations_user_active,priority:3"`
	DeletedAt gorm.DeletedAt `gorm:"index;index:ix_conversations_user_active,priority:2"`
}

func (Conversation) TableName() string {
	return "conversations"
}
