package entity

import (
	"time"
)

type Conversation struct {
	Id        int64
	UserId    string
	CreatedAt time.Time
	UpdatedAt *time.Time
	DeletedAt *time.Time
	IsDeleted bool
}
