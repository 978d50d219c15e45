package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type ActivityLog struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey"`
	EventType string
	UserId    *uuid.UUID
	Payload   json.RawMessage
	CreatedAt time.Time
}
