package mapper

import (
	"encoding/json"

	"ai-tutoring-be/internal/entity"
	"ai-tutoring-be/internal/model"

	"gorm.io/datatypes"
)

type ActivityLogMapper struct{}

func NewActivityLogMapper() *ActivityLogMapper {
	return &ActivityLogMapper{}
}

func (m *ActivityLogMapper) ToEntity(l *model.ActivityLog) *entity.ActivityLog {
	if l == nil {
		return nil
	}
	return &entity.ActivityLog{
		Id:        l.Id,
		EventType: l.EventType,
		UserId:    l.UserId,
		Payload:   json.RawMessage(l.Payload),
		CreatedAt: l.CreatedAt,
	}
}

func (m *ActivityLogMapper) ToModel(l *entity.ActivityLog) *model.ActivityLog {
	if l == nil {
		return nil
	}
	return &model.ActivityLog{
		Id:        l.Id,
		EventType: l.EventType,
		UserId:    l.UserId,
		Payload:   datatypes.JSON(l.Payload),
		CreatedAt: l.CreatedAt,
	}
}

func (m *ActivityLogMapper) ToEntities(logs []*model.ActivityLog) []*entity.ActivityLog {
	entities := make([]*entity.ActivityLog, len(logs))
	for i, l := range logs {
		entities[i] = m.ToEntity(l)
	}
	return entities
}
