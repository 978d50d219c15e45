package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ByDialogueSessionID struct {
	DialogueSessionID uuid.UUID
}

func (s ByDialogueSessionID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("dialogue_session_id = ?", s.DialogueSessionID)
}

type ByDialogueTurnIDs struct {
	TurnIDs []uuid.UUID
}

func (s ByDialogueTurnIDs) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("dialogue_turn_id IN ?", s.TurnIDs)
}

type ByEventType struct {
	EventType string
}

func (s ByEventType) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("event_type = ?", s.EventType)
}
