package service

import (
	"context"
	"fmt"
	"time"

	"ai-tutoring-be/internal/dto"
	"ai-tutoring-be/internal/entity"
	"ai-tutoring-be/internal/pkg/logger"
	"ai-tutoring-be/internal/repository/specification"
	"ai-tutoring-be/internal/repository/unitofwork"
	"ai-tutoring-be/pkg/events"
	pktNats "ai-tutoring-be/pkg/nats"
	"ai-tutoring-be/pkg/store"
	"ai-tutoring-be/pkg/tutor/engine"

	"github.com/google/uuid"
)

type ITutorService interface {
	CreateSession(ctx context.Context, userId uuid.UUID) (*dto.CreateDialogueSessionResponse, error)
	GetAllSessions(ctx context.Context, userId uuid.UUID) ([]*dto.GetAllDialogueSessionsResponse, error)
	GetHistory(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) ([]*dto.GetDialogueHistoryResponse, error)
	SendMessage(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID, req *dto.SendTutorMessageRequest) (*dto.SendTutorMessageResponse, error)
	ResetSession(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) error
	GetState(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) (*dto.GetSessionStateResponse, error)
	DeleteSession(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) error
}

type tutorService struct {
	uowFactory     unitofwork.RepositoryFactory
	engine         *engine.Engine
	eventPublisher *pktNats.Publisher
	logger         logger.ILogger
}

func NewTutorService(
	uowFactory unitofwork.RepositoryFactory,
	tutorEngine *engine.Engine,
	eventPublisher *pktNats.Publisher,
	log logger.ILogger,
) ITutorService {
	return &tutorService{
		uowFactory:     uowFactory,
		engine:         tutorEngine,
		eventPublisher: eventPublisher,
		logger:         log,
	}
}

func (s *tutorService) CreateSession(ctx context.Context, userId uuid.UUID) (*dto.CreateDialogueSessionResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	session := entity.DialogueSession{
		Id:        uuid.New(),
		UserId:    userId,
		Title:     "Unnamed session",
		CreatedAt: time.Now(),
	}

	if err := uow.DialogueSessionRepository().Create(ctx, &session); err != nil {
		return nil, err
	}

	return &dto.CreateDialogueSessionResponse{Id: session.Id}, nil
}

func (s *tutorService) GetAllSessions(ctx context.Context, userId uuid.UUID) ([]*dto.GetAllDialogueSessionsResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	sessions, err := uow.DialogueSessionRepository().FindAll(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.OrderBy{Field: "created_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}

	response := make([]*dto.GetAllDialogueSessionsResponse, 0, len(sessions))
	for _, sess := range sessions {
		response = append(response, &dto.GetAllDialogueSessionsResponse{
			Id:        sess.Id,
			Title:     sess.Title,
			CreatedAt: sess.CreatedAt,
			UpdatedAt: sess.UpdatedAt,
		})
	}

	return response, nil
}

// GetHistory returns the persisted transcript with per-turn citations.
func (s *tutorService) GetHistory(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) ([]*dto.GetDialogueHistoryResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	if _, err := s.verifySession(ctx, uow, userId, sessionId); err != nil {
		return nil, err
	}

	turns, err := uow.DialogueTurnRepository().FindAll(ctx,
		specification.ByDialogueSessionID{DialogueSessionID: sessionId},
		specification.OrderBy{Field: "created_at", Desc: false},
	)
	if err != nil {
		return nil, err
	}

	turnIds := make([]uuid.UUID, len(turns))
	for i, turn := range turns {
		turnIds[i] = turn.Id
	}

	citationsByTurn, err := s.loadCitations(ctx, uow, turnIds)
	if err != nil {
		return nil, err
	}

	response := make([]*dto.GetDialogueHistoryResponse, 0, len(turns))
	for _, turn := range turns {
		response = append(response, &dto.GetDialogueHistoryResponse{
			Id:            turn.Id,
			Role:          turn.Role,
			TurnType:      turn.TurnType,
			Text:          turn.Text,
			Tier:          turn.Tier,
			ScaffoldLevel: turn.ScaffoldLevel,
			CreatedAt:     turn.CreatedAt,
			Citations:     citationsByTurn[turn.Id],
		})
	}

	return response, nil
}

// SendMessage runs one student message through the dialogue engine. The
// engine persists the exchange through the transcript sink before its
// in-memory commit, so a durable-write failure surfaces as a degraded
// reply with the session unchanged.
func (s *tutorService) SendMessage(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID, req *dto.SendTutorMessageRequest) (*dto.SendTutorMessageResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	session, err := s.verifySession(ctx, uow, userId, sessionId)
	if err != nil {
		return nil, err
	}

	result, err := s.engine.HandleMessage(ctx, userId, sessionId, req.Text)
	if err != nil {
		return nil, err
	}

	// First exchange titles the session after the opening question.
	if session.Title == "Unnamed session" && !result.Degraded {
		title := sessionTitle(req.Text)
		now := time.Now()
		session.Title = title
		session.UpdatedAt = &now
		if err := uow.DialogueSessionRepository().Update(ctx, session); err != nil {
			s.logger.Warn("service.tutor", "Failed to update session title", map[string]interface{}{
				"session_id": sessionId.String(),
				"error":      err.Error(),
			})
		}
	}

	if result.ThreadResolved && s.eventPublisher != nil {
		tier := ""
		if result.Evaluation != nil {
			tier = result.Evaluation.Tier
		}
		evt := events.NewThreadResolved(sessionId, userId, result.ScaffoldLevel, tier)
		if err := s.eventPublisher.Publish(ctx, evt); err != nil {
			s.logger.Warn("service.tutor", "Failed to publish THREAD_RESOLVED event", map[string]interface{}{
				"session_id": sessionId.String(),
				"error":      err.Error(),
			})
		}
	}

	return mapResult(result), nil
}

// sessionTitle derives the session title from the opening question,
// truncated on runes so a multi-byte character is never split.
func sessionTitle(text string) string {
	const maxTitleRunes = 120
	runes := []rune(text)
	if len(runes) <= maxTitleRunes {
		return text
	}
	return string(runes[:maxTitleRunes])
}

// ResetSession wipes the live state and the persisted transcript.
func (s *tutorService) ResetSession(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	if _, err := s.verifySession(ctx, uow, userId, sessionId); err != nil {
		return err
	}

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := s.deleteTranscript(ctx, uow, sessionId); err != nil {
		return err
	}
	if err := uow.Commit(); err != nil {
		return err
	}

	s.engine.Reset(sessionId)

	if s.eventPublisher != nil {
		evt := events.NewSessionReset(sessionId, userId)
		if err := s.eventPublisher.Publish(ctx, evt); err != nil {
			s.logger.Warn("service.tutor", "Failed to publish SESSION_RESET event", map[string]interface{}{
				"session_id": sessionId.String(),
				"error":      err.Error(),
			})
		}
	}

	return nil
}

func (s *tutorService) GetState(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) (*dto.GetSessionStateResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	if _, err := s.verifySession(ctx, uow, userId, sessionId); err != nil {
		return nil, err
	}

	state := s.engine.State(sessionId)
	return &dto.GetSessionStateResponse{
		ActiveThreadPresent: state.ActiveThreadPresent,
		ScaffoldLevel:       state.ScaffoldLevel,
		Attempts:            state.Attempts,
		Resolved:            state.Resolved,
		TurnCount:           state.TurnCount,
		LearnerLevel:        state.LearnerLevel,
	}, nil
}

func (s *tutorService) DeleteSession(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	if _, err := s.verifySession(ctx, uow, userId, sessionId); err != nil {
		return err
	}

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := s.deleteTranscript(ctx, uow, sessionId); err != nil {
		return err
	}
	if err := uow.DialogueSessionRepository().Delete(ctx, sessionId); err != nil {
		return err
	}
	if err := uow.Commit(); err != nil {
		return err
	}

	s.engine.Reset(sessionId)
	return nil
}

func (s *tutorService) verifySession(ctx context.Context, uow unitofwork.UnitOfWork, userId, sessionId uuid.UUID) (*entity.DialogueSession, error) {
	session, err := uow.DialogueSessionRepository().FindOne(ctx,
		specification.ByID{ID: sessionId},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, fmt.Errorf("session not found or access denied")
	}
	return session, nil
}

func (s *tutorService) deleteTranscript(ctx context.Context, uow unitofwork.UnitOfWork, sessionId uuid.UUID) error {
	turns, err := uow.DialogueTurnRepository().FindAll(ctx,
		specification.ByDialogueSessionID{DialogueSessionID: sessionId},
	)
	if err != nil {
		return err
	}
	for _, turn := range turns {
		if err := uow.TurnCitationRepository().DeleteByTurnId(ctx, turn.Id); err != nil {
			return err
		}
	}
	return uow.DialogueTurnRepository().DeleteBySessionId(ctx, sessionId)
}

func (s *tutorService) loadCitations(ctx context.Context, uow unitofwork.UnitOfWork, turnIds []uuid.UUID) (map[uuid.UUID][]dto.CitationDTO, error) {
	byTurn := make(map[uuid.UUID][]dto.CitationDTO)
	if len(turnIds) == 0 {
		return byTurn, nil
	}

	citations, err := uow.TurnCitationRepository().FindAll(ctx,
		specification.ByDialogueTurnIDs{TurnIDs: turnIds},
	)
	if err != nil {
		return nil, err
	}
	if len(citations) == 0 {
		return byTurn, nil
	}

	chunkIds := make([]uuid.UUID, 0, len(citations))
	for _, c := range citations {
		chunkIds = append(chunkIds, c.DocumentChunkId)
	}
	chunks, err := uow.DocumentChunkRepository().FindAll(ctx, specification.ByIDs{IDs: chunkIds})
	if err != nil {
		return nil, err
	}
	chunkById := make(map[uuid.UUID]*entity.DocumentChunk, len(chunks))
	docIds := make([]uuid.UUID, 0, len(chunks))
	for _, chunk := range chunks {
		chunkById[chunk.Id] = chunk
		docIds = append(docIds, chunk.DocumentId)
	}
	documents, err := uow.DocumentRepository().FindAll(ctx, specification.ByIDs{IDs: docIds})
	if err != nil {
		return nil, err
	}
	sourceByDoc := make(map[uuid.UUID]string, len(documents))
	for _, doc := range documents {
		sourceByDoc[doc.Id] = doc.SourceName
	}

	for _, c := range citations {
		chunk, ok := chunkById[c.DocumentChunkId]
		if !ok {
			continue // chunk re-embedded away since the turn was recorded
		}
		byTurn[c.DialogueTurnId] = append(byTurn[c.DialogueTurnId], dto.CitationDTO{
			ChunkId:    chunk.Id,
			DocumentId: chunk.DocumentId,
			Source:     sourceByDoc[chunk.DocumentId],
			Page:       chunk.Page,
		})
	}

	return byTurn, nil
}

func mapResult(result *engine.Result) *dto.SendTutorMessageResponse {
	response := &dto.SendTutorMessageResponse{
		Reply:          result.Reply,
		TurnType:       result.TurnType,
		ScaffoldLevel:  result.ScaffoldLevel,
		ThreadOpen:     result.ThreadOpen,
		ThreadResolved: result.ThreadResolved,
		Degraded:       result.Degraded,
	}

	if result.Evaluation != nil {
		response.Evaluation = &dto.EvaluationDTO{
			Accuracy:    result.Evaluation.Scores.Accuracy,
			Coherence:   result.Evaluation.Scores.Coherence,
			Evidence:    result.Evaluation.Scores.Evidence,
			Integration: result.Evaluation.Scores.Integration,
			Weighted:    result.Evaluation.Weighted,
			Tier:        result.Evaluation.Tier,
			Feedback:    result.Evaluation.Feedback,
			Suggestions: result.Evaluation.Suggestions,
		}
	}

	for _, chunk := range result.Context {
		response.Citations = append(response.Citations, dto.CitationDTO{
			ChunkId:    chunk.ID,
			DocumentId: chunk.DocumentID,
			Source:     chunk.Source,
			Page:       chunk.Page,
		})
	}

	return response
}

// TranscriptRecorder implements the engine's TranscriptSink over the unit
// of work: the student/tutor exchange and the tutor turn's citations are
// written in one transaction.
type TranscriptRecorder struct {
	uowFactory unitofwork.RepositoryFactory
}

func NewTranscriptRecorder(uowFactory unitofwork.RepositoryFactory) *TranscriptRecorder {
	return &TranscriptRecorder{uowFactory: uowFactory}
}

func (r *TranscriptRecorder) AppendTurns(ctx context.Context, userID, sessionID uuid.UUID, turns []store.Turn) error {
	uow := r.uowFactory.NewUnitOfWork(ctx)

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	rows := make([]*entity.DialogueTurn, 0, len(turns))
	var citations []*entity.TurnCitation

	for _, turn := range turns {
		row := &entity.DialogueTurn{
			Id:                uuid.New(),
			DialogueSessionId: sessionID,
			Role:              turn.Role,
			TurnType:          turn.Type,
			Text:              turn.Text,
			ScaffoldLevel:     turn.ScaffoldLevel,
			CreatedAt:         turn.CreatedAt,
		}
		if turn.Evaluation != nil {
			tier := turn.Evaluation.Tier
			weighted := turn.Evaluation.Weighted
			row.Tier = &tier
			row.WeightedScore = &weighted
		}
		rows = append(rows, row)

		for _, chunkId := range turn.CitedChunkIDs {
			citations = append(citations, &entity.TurnCitation{
				Id:              uuid.New(),
				DialogueTurnId:  row.Id,
				DocumentChunkId: chunkId,
				CreatedAt:       turn.CreatedAt,
			})
		}
	}

	if err := uow.DialogueTurnRepository().CreateBulk(ctx, rows); err != nil {
		return err
	}
	if len(citations) > 0 {
		if err := uow.TurnCitationRepository().CreateBulk(ctx, citations); err != nil {
			return err
		}
	}

	return uow.Commit()
}
