package events

import (
	"time"

	"github.com/google/uuid"
)

// Event types emitted by the tutoring backend.
const (
	TypeDocumentUploaded = "DOCUMENT_UPLOADED"
	TypeDocumentEmbedded = "DOCUMENT_EMBEDDED"
	TypeThreadResolved   = "THREAD_RESOLVED"
	TypeSessionReset     = "SESSION_RESET"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "THREAD_RESOLVED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent is the generic implementation used by the typed constructors
// below and by the subscriber when reconstructing wire events.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

func NewDocumentUploaded(documentID, userID uuid.UUID, title string) Event {
	return BaseEvent{
		Type: TypeDocumentUploaded,
		Data: map[string]interface{}{
			"document_id": documentID.String(),
			"user_id":     userID.String(),
			"title":       title,
		},
		OccurredAt: time.Now(),
	}
}

func NewDocumentEmbedded(documentID, userID uuid.UUID, chunkCount int) Event {
	return BaseEvent{
		Type: TypeDocumentEmbedded,
		Data: map[string]interface{}{
			"document_id": documentID.String(),
			"user_id":     userID.String(),
			"chunk_count": chunkCount,
		},
		OccurredAt: time.Now(),
	}
}

func NewThreadResolved(sessionID, userID uuid.UUID, scaffoldLevel int, tier string) Event {
	return BaseEvent{
		Type: TypeThreadResolved,
		Data: map[string]interface{}{
			"session_id":     sessionID.String(),
			"user_id":        userID.String(),
			"scaffold_level": scaffoldLevel,
			"tier":           tier,
		},
		OccurredAt: time.Now(),
	}
}

func NewSessionReset(sessionID, userID uuid.UUID) Event {
	return BaseEvent{
		Type: TypeSessionReset,
		Data: map[string]interface{}{
			"session_id": sessionID.String(),
			"user_id":    userID.String(),
		},
		OccurredAt: time.Now(),
	}
}
