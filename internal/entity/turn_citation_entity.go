package entity

import (
	"time"

	"github.com/google/uuid"
)

type TurnCitation struct {
	Id              uuid.UUID `gorm:"type:uuid;primaryKey"`
	DialogueTurnId  uuid.UUID `gorm:"type:uuid;not null;index"`
	DocumentChunkId uuid.UUID `gorm:"type:uuid;not null;index"`
	CreatedAt       time.Time `gorm:"autoCreateTime"`

	// Relationships
	DialogueTurn  *DialogueTurn  `gorm:"foreignKey:DialogueTurnId;references:Id;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	DocumentChunk *DocumentChunk `gorm:"foreignKey:DocumentChunkId;references:Id;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}
