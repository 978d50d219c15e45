package entity

import (
	"time"

	"github.com/google/uuid"
)

const (
	DocumentStatusPending  = "pending"
	DocumentStatusEmbedded = "embedded"
	DocumentStatusFailed   = "failed"
)

type Document struct {
	Id         uuid.UUID `gorm:"type:uuid;primaryKey"`
	Title      string
	SourceName string
	Content    string
	Status     string
	UserId     uuid.UUID `gorm:"type:uuid;index"`
	CreatedAt  time.Time
	UpdatedAt  *time.Time
	DeletedAt  *time.Time
	IsDeleted  bool
}
