package mapper

import (
	"time"

	"ai-tutoring-be/internal/entity"
	"ai-tutoring-be/internal/model"

	"gorm.io/gorm"
)

type DialogueMapper struct{}

func NewDialogueMapper() *DialogueMapper {
	return &DialogueMapper{}
}

// Session Mappers

func (m *DialogueMapper) SessionToEntity(s *model.DialogueSession) *entity.DialogueSession {
	if s == nil {
		return nil
	}

	var deletedAt *time.Time
	if s.DeletedAt.Valid {
		t := s.DeletedAt.Time
		deletedAt = &t
	}

	var updatedAt *time.Time
	if !s.UpdatedAt.IsZero() {
		t := s.UpdatedAt
		updatedAt = &t
	}

	return &entity.DialogueSession{
		Id:        s.Id,
		UserId:    s.UserId,
		Title:     s.Title,
		CreatedAt: s.CreatedAt,
		UpdatedAt: updatedAt,
		DeletedAt: deletedAt,
		IsDeleted: s.DeletedAt.Valid,
	}
}

func (m *DialogueMapper) SessionToModel(s *entity.DialogueSession) *model.DialogueSession {
	if s == nil {
		return nil
	}

	var deletedAt gorm.DeletedAt
	if s.DeletedAt != nil {
		deletedAt = gorm.DeletedAt{Time: *s.DeletedAt, Valid: true}
	} else if s.IsDeleted {
		deletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	}

	var updatedAt time.Time
	if s.UpdatedAt != nil {
		updatedAt = *s.UpdatedAt
	}

	return &model.DialogueSession{
		Id:        s.Id,
		UserId:    s.UserId,
		Title:     s.Title,
		CreatedAt: s.CreatedAt,
		UpdatedAt: updatedAt,
		DeletedAt: deletedAt,
	}
}

func (m *DialogueMapper) SessionsToEntities(sessions []*model.DialogueSession) []*entity.DialogueSession {
	entities := make([]*entity.DialogueSession, len(sessions))
	for i, s := range sessions {
		entities[i] = m.SessionToEntity(s)
	}
	return entities
}

// Turn Mappers

func (m *DialogueMapper) TurnToEntity(t *model.DialogueTurn) *entity.DialogueTurn {
	if t == nil {
		return nil
	}

	var deletedAt *time.Time
	if t.DeletedAt.Valid {
		d := t.DeletedAt.Time
		deletedAt = &d
	}

	var updatedAt *time.Time
	if !t.UpdatedAt.IsZero() {
		u := t.UpdatedAt
		updatedAt = &u
	}

	return &entity.DialogueTurn{
		Id:                t.Id,
		DialogueSessionId: t.DialogueSessionId,
		Role:              t.Role,
		TurnType:          t.TurnType,
		Text:              t.Text,
		Tier:              t.Tier,
		WeightedScore:     t.WeightedScore,
		ScaffoldLevel:     t.ScaffoldLevel,
		CreatedAt:         t.CreatedAt,
		UpdatedAt:         updatedAt,
		DeletedAt:         deletedAt,
		IsDeleted:         t.DeletedAt.Valid,
	}
}

func (m *DialogueMapper) TurnToModel(t *entity.DialogueTurn) *model.DialogueTurn {
	if t == nil {
		return nil
	}

	var deletedAt gorm.DeletedAt
	if t.DeletedAt != nil {
		deletedAt = gorm.DeletedAt{Time: *t.DeletedAt, Valid: true}
	} else if t.IsDeleted {
		deletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	}

	var updatedAt time.Time
	if t.UpdatedAt != nil {
		updatedAt = *t.UpdatedAt
	}

	return &model.DialogueTurn{
		Id:                t.Id,
		DialogueSessionId: t.DialogueSessionId,
		Role:              t.Role,
		TurnType:          t.TurnType,
		Text:              t.Text,
		Tier:              t.Tier,
		WeightedScore:     t.WeightedScore,
		ScaffoldLevel:     t.ScaffoldLevel,
		CreatedAt:         t.CreatedAt,
		UpdatedAt:         updatedAt,
		DeletedAt:         deletedAt,
	}
}

func (m *DialogueMapper) TurnsToEntities(turns []*model.DialogueTurn) []*entity.DialogueTurn {
	entities := make([]*entity.DialogueTurn, len(turns))
	for i, t := range turns {
		entities[i] = m.TurnToEntity(t)
	}
	return entities
}

// Citation Mappers

func (m *DialogueMapper) CitationToEntity(c *model.TurnCitation) *entity.TurnCitation {
	if c == nil {
		return nil
	}
	return &entity.TurnCitation{
		Id:              c.Id,
		DialogueTurnId:  c.DialogueTurnId,
		DocumentChunkId: c.DocumentChunkId,
		CreatedAt:       c.CreatedAt,
	}
}

func (m *DialogueMapper) CitationToModel(c *entity.TurnCitation) *model.TurnCitation {
	if c == nil {
		return nil
	}
	return &model.TurnCitation{
		Id:              c.Id,
		DialogueTurnId:  c.DialogueTurnId,
		DocumentChunkId: c.DocumentChunkId,
		CreatedAt:       c.CreatedAt,
	}
}

func (m *DialogueMapper) CitationsToEntities(citations []*model.TurnCitation) []*entity.TurnCitation {
	entities := make([]*entity.TurnCitation, len(citations))
	for i, c := range citations {
		entities[i] = m.CitationToEntity(c)
	}
	return entities
}
