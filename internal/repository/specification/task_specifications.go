package specification

import (
	"gorm.io/gorm"
)

// CompletedIs filters tasks by completion flag
type CompletedIs struct {
	Completed bool
}

func (s CompletedIs) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("completed = ?", s.Completed)
}

// TaskSearch matches the free-text query against title or description
type TaskSearch struct {
	Query string
}

func (s TaskSearch) Apply(db *gorm.DB) *gorm.DB {
	pattern := "%" + s.Query + "%"
	return db.Where("title ILIKE ? OR description ILIKE ?", pattern, pattern)
}
