package unitofwork

import (
	"context"

	"ai-tutoring-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	DocumentRepository() contract.DocumentRepository
	DocumentChunkRepository() contract.DocumentChunkRepository

	DialogueSessionRepository() contract.DialogueSessionRepository
	DialogueTurnRepository() contract.DialogueTurnRepository
	TurnCitationRepository() contract.TurnCitationRepository
	ActivityLogRepository() contract.ActivityLogRepository
}
