package implementation

import (
	"context"

	"ai-tutoring-be/internal/entity"
	"ai-tutoring-be/internal/mapper"
	"ai-tutoring-be/internal/model"
	"ai-tutoring-be/internal/repository/contract"
	"ai-tutoring-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TurnCitationRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.DialogueMapper
}

func NewTurnCitationRepository(db *gorm.DB) contract.TurnCitationRepository {
	return &TurnCitationRepositoryImpl{
		db:     db,
		mapper: mapper.NewDialogueMapper(),
	}
}

func (r *TurnCitationRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *TurnCitationRepositoryImpl) Create(ctx context.Context, citation *entity.TurnCitation) error {
	if citation.Id == uuid.Nil {
		citation.Id = uuid.New()
	}
	m := r.mapper.CitationToModel(citation)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*citation = *r.mapper.CitationToEntity(m)
	return nil
}

func (r *TurnCitationRepositoryImpl) CreateBulk(ctx context.Context, citations []*entity.TurnCitation) error {
	if len(citations) == 0 {
		return nil
	}
	models := make([]*model.TurnCitation, len(citations))
	for i, c := range citations {
		if c.Id == uuid.Nil {
			c.Id = uuid.New()
		}
		models[i] = r.mapper.CitationToModel(c)
	}
	return r.db.WithContext(ctx).Create(models).Error
}

func (r *TurnCitationRepositoryImpl) DeleteByTurnId(ctx context.Context, turnId uuid.UUID) error {
	return r.db.WithContext(ctx).Where("dialogue_turn_id = ?", turnId).Delete(&model.TurnCitation{}).Error
}

func (r *TurnCitationRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.TurnCitation, error) {
	var models []*model.TurnCitation
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.CitationsToEntities(models), nil
}
