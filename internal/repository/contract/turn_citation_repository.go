package contract

import (
	"context"

	"ai-tutoring-be/internal/entity"
	"ai-tutoring-be/internal/repository/specification"

	"github.com/google/uuid"
)

type TurnCitationRepository interface {
	Create(ctx context.Context, citation *entity.TurnCitation) error
	CreateBulk(ctx context.Context, citations []*entity.TurnCitation) error
	DeleteByTurnId(ctx context.Context, turnId uuid.UUID) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.TurnCitation, error)
}
