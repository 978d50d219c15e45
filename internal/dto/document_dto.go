package dto

import (
	"time"

	"github.com/google/uuid"
)

type UploadDocumentRequest struct {
	Title      string `json:"title" validate:"required,min=1,max=255"`
	SourceName string `json:"source_name" validate:"required,min=1,max=255"`
	Content    string `json:"content" validate:"required,min=1"`
}

type UploadDocumentResponse struct {
	Id     uuid.UUID `json:"id"`
	Status string    `json:"status"`
}

type GetAllDocumentsResponse struct {
	Id         uuid.UUID  `json:"id"`
	Title      string     `json:"title"`
	SourceName string     `json:"source_name"`
	Status     string     `json:"status"`
	ChunkCount int64      `json:"chunk_count"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  *time.Time `json:"updated_at"`
}

// PublishEmbedDocumentMessage is the watermill payload carrying an embed
// job from the upload path to the consumer.
type PublishEmbedDocumentMessage struct {
	DocumentId uuid.UUID `json:"document_id"`
}
