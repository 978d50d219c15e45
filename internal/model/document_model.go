package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Document struct {
	Id         uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Title      string         `gorm:"type:varchar(255);not null"`
	SourceName string         `gorm:"type:varchar(255);not null"` // original file name, shown in citations
	Content    string         `gorm:"type:text"`
	Status     string         `gorm:"type:varchar(50);not null;default:'pending'"` // pending -> embedded | failed
	UserId     uuid.UUID      `gorm:"type:uuid;not null;index"`                    // User ownership for data isolation
	CreatedAt  time.Time      `gorm:"autoCreateTime"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime"`
	DeletedAt  gorm.DeletedAt `gorm:"index"`
}

func (Document) TableName() string {
	return "documents"
}
