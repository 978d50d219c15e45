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

type DialogueSessionRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.DialogueMapper
}

func NewDialogueSessionRepository(db *gorm.DB) contract.DialogueSessionRepository {
	return &DialogueSessionRepositoryImpl{
		db:     db,
		mapper: mapper.NewDialogueMapper(),
	}
}

func (r *DialogueSessionRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *DialogueSessionRepositoryImpl) Create(ctx context.Context, session *entity.DialogueSession) error {
	m := r.mapper.SessionToModel(session)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*session = *r.mapper.SessionToEntity(m)
	return nil
}

func (r *DialogueSessionRepositoryImpl) Update(ctx context.Context, session *entity.DialogueSession) error {
	m := r.mapper.SessionToModel(session)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*session = *r.mapper.SessionToEntity(m)
	return nil
}

func (r *DialogueSessionRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.DialogueSession{}, id).Error
}

func (r *DialogueSessionRepositoryImpl) DeleteAllByUserIdUnscoped(ctx context.Context, userId uuid.UUID) error {
	return r.db.WithContext(ctx).Unscoped().Where("user_id = ?", userId).Delete(&model.DialogueSession{}).Error
}

func (r *DialogueSessionRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.DialogueSession, error) {
	var m model.DialogueSession
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.SessionToEntity(&m), nil
}

func (r *DialogueSessionRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.DialogueSession, error) {
	var models []*model.DialogueSession
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.SessionsToEntities(models), nil
}

func (r *DialogueSessionRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	err := query.Model(&model.DialogueSession{}).Count(&count).Error
	return count, err
}
