package implementation

import (
	"context"
	"errors"

	"ai-tutoring-be/internal/entity"
	"ai-tutoring-be/internal/mapper"
	"ai-tutoring-be/internal/model"
	"ai-tutoring-be/internal/repository/contract"
	"ai-tutoring-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DialogueTurnRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.DialogueMapper
}

func NewDialogueTurnRepository(db *gorm.DB) contract.DialogueTurnRepository {
	return &DialogueTurnRepositoryImpl{
		db:     db,
		mapper: mapper.NewDialogueMapper(),
	}
}

func (r *DialogueTurnRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *DialogueTurnRepositoryImpl) Create(ctx context.Context, turn *entity.DialogueTurn) error {
	m := r.mapper.TurnToModel(turn)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*turn = *r.mapper.TurnToEntity(m)
	return nil
}

func (r *DialogueTurnRepositoryImpl) CreateBulk(ctx context.Context, turns []*entity.DialogueTurn) error {
	if len(turns) == 0 {
		return nil
	}
	models := make([]*model.DialogueTurn, len(turns))
	for i, t := range turns {
		models[i] = r.mapper.TurnToModel(t)
	}
	if err := r.db.WithContext(ctx).Create(models).Error; err != nil {
		return err
	}
	// Update IDs back to entities
	for i, m := range models {
		*turns[i] = *r.mapper.TurnToEntity(m)
	}
	return nil
}

func (r *DialogueTurnRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.DialogueTurn{}, id).Error
}

func (r *DialogueTurnRepositoryImpl) DeleteBySessionId(ctx context.Context, sessionId uuid.UUID) error {
	return r.db.WithContext(ctx).Where("dialogue_session_id = ?", sessionId).Delete(&model.DialogueTurn{}).Error
}

func (r *DialogueTurnRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.DialogueTurn, error) {
	var m model.DialogueTurn
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.TurnToEntity(&m), nil
}

func (r *DialogueTurnRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.DialogueTurn, error) {
	var models []*model.DialogueTurn
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.TurnsToEntities(models), nil
}

func (r *DialogueTurnRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	err := query.Model(&model.DialogueTurn{}).Count(&count).Error
	return count, err
}
