package entity

import (
	"time"

	"github.com/google/uuid"
)

type DialogueTurn struct {
	Id                uuid.UUID `gorm:"type:uuid;primaryKey"`
	DialogueSessionId uuid.UUID `gorm:"type:uuid;index"`
	Role              string
	TurnType          string
	Text              string
	Tier              *string
	WeightedScore     *float64
	ScaffoldLevel     int
	CreatedAt         time.Time
	UpdatedAt         *time.Time
	DeletedAt         *time.Time
	IsDeleted         bool
}
