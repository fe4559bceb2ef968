package model

import (
	"time"

	"gorm.io/gorm"
)

type Task struct {
	Id          int64          `gorm:"primaryKey;autoIncrement"`
	UserId      string         `gorm:"type:varchar(255);not null;index:ix_tasks_user_active,priority:1"` // Always set server-side, never from a request body
	Title       string         `gorm:"type:varchar(200);not null"`
	Description string         `gorm:"type:varchar(1000)"`
	Completed   bool           `gorm:"not null;default:false;index"`
	DueDate     *time.Time     `gorm:"index"`
	CreatedAt   time.Time      `gorm:"autoCreateTime;index:ix_tasks_user_active,priority:3"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime"`
	DeletedAt   gorm.DeletedAt `gorm:"index;index:ix_tasks_user_active,priority:2"`
}

func (Task) TableName() string {
	return "tasks"
}
