package model

import (
	"time"

	"github.com/google/uuid"
)

// TurnCitation links a tutor turn to a document chunk its reply was
// grounded on.
type TurnCitation struct {
	Id              uuid.UUID `gorm:"type:uuid;primaryKey"`
	DialogueTurnId  uuid.UUID `gorm:"type:uuid;index;not null"`
	DocumentChunkId uuid.UUID `gorm:"type:uuid;index;not null"`
	CreatedAt       time.Time

	// Relationships
	DialogueTurn  DialogueTurn  `gorm:"foreignKey:DialogueTurnId;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	DocumentChunk DocumentChunk `gorm:"foreignKey:DocumentChunkId;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

func (TurnCitation) TableName() string {
	return "turn_citations"
}
