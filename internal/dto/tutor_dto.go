package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateDialogueSessionResponse struct {
	Id uuid.UUID `json:"id"`
}

type GetAllDialogueSessionsResponse struct {
	Id        uuid.UUID  `json:"id"`
	Title     string     `json:"title"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}

type SendTutorMessageRequest struct {
	Text string `json:"text" validate:"required,min=1,max=4000"`
}

type CitationDTO struct {
	ChunkId    uuid.UUID `json:"chunk_id"`
	DocumentId uuid.UUID `json:"document_id"`
	Source     string    `json:"source"`
	Page       int       `json:"page"`
}

type EvaluationDTO struct {
	Accuracy    int      `json:"accuracy"`
	Coherence   int      `json:"coherence"`
	Evidence    int      `json:"evidence"`
	Integration int      `json:"integration"`
	Weighted    float64  `json:"weighted"`
	Tier        string   `json:"tier"`
	Feedback    string   `json:"feedback"`
	Suggestions []string `json:"suggestions,omitempty"`
}

type SendTutorMessageResponse struct {
	Reply          string         `json:"reply"`
	TurnType       string         `json:"turn_type"`
	ScaffoldLevel  int            `json:"scaffold_level"`
	ThreadOpen     bool           `json:"thread_open"`
	ThreadResolved bool           `json:"thread_resolved"`
	Degraded       bool           `json:"degraded,omitempty"`
	Evaluation     *EvaluationDTO `json:"evaluation,omitempty"`
	Citations      []CitationDTO  `json:"citations,omitempty"`
}

type GetDialogueHistoryResponse struct {
	Id            uuid.UUID     `json:"id"`
	Role          string        `json:"role"`
	TurnType      string        `json:"turn_type"`
	Text          string        `json:"text"`
	Tier          *string       `json:"tier,omitempty"`
	ScaffoldLevel int           `json:"scaffold_level"`
	CreatedAt     time.Time     `json:"created_at"`
	Citations     []CitationDTO `json:"citations,omitempty"`
}

type GetSessionStateResponse struct {
	ActiveThreadPresent bool `json:"active_thread_present"`
	ScaffoldLevel       int  `json:"scaffold_level"`
	Attempts            int  `json:"attempts"`
	Resolved            bool `json:"resolved"`
	TurnCount           int  `json:"turn_count"`
	LearnerLevel        int  `json:"learner_level"`
}
