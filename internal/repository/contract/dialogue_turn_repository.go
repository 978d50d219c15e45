package contract

import (
	"context"

	"ai-tutoring-be/internal/entity"
	"ai-tutoring-be/internal/repository/specification"

	"github.com/google/uuid"
)

type DialogueTurnRepository interface {
	Create(ctx context.Context, turn *entity.DialogueTurn) error
	CreateBulk(ctx context.Context, turns []*entity.DialogueTurn) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteBySessionId(ctx context.Context, sessionId uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.DialogueTurn, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.DialogueTurn, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
