package contract

import (
	"context"

	"ai-tutoring-be/internal/entity"
	"ai-tutoring-be/internal/repository/specification"

	"github.com/google/uuid"
)

type DialogueSessionRepository interface {
	Create(ctx context.Context, session *entity.DialogueSession) error
	Update(ctx context.Context, session *entity.DialogueSession) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteAllByUserIdUnscoped(ctx context.Context, userId uuid.UUID) error // Hard delete all
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.DialogueSession, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.DialogueSession, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
