package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DialogueTurn struct {
	Id                uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	DialogueSessionId uuid.UUID      `gorm:"type:uuid;not null;index"`
	Role              string         `gorm:"type:varchar(50);not null"` // student | tutor
	TurnType          string         `gorm:"type:varchar(50);not null"` // new_question | answer_attempt | meta_question | tutor_reply
	Text              string         `gorm:"type:text;not null"`
	Tier              *string        `gorm:"type:varchar(20)"` // set only for judged answer attempts
	WeightedScore     *float64       `gorm:"type:numeric(4,2)"`
	ScaffoldLevel     int            `gorm:"default:0"`
	CreatedAt         time.Time      `gorm:"autoCreateTime"`
	UpdatedAt         time.Time      `gorm:"autoUpdateTime"`
	DeletedAt         gorm.DeletedAt `gorm:"index"`
}

func (DialogueTurn) TableName() string {
	return "dialogue_turns"
}
