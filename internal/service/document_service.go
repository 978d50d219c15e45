package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ai-tutoring-be/internal/dto"
	"ai-tutoring-be/internal/entity"
	"ai-tutoring-be/internal/pkg/logger"
	"ai-tutoring-be/internal/repository/specification"
	"ai-tutoring-be/internal/repository/unitofwork"
	"ai-tutoring-be/pkg/events"
	pktNats "ai-tutoring-be/pkg/nats"

	"github.com/google/uuid"
)

type IDocumentService interface {
	Upload(ctx context.Context, userId uuid.UUID, req *dto.UploadDocumentRequest) (*dto.UploadDocumentResponse, error)
	GetAll(ctx context.Context, userId uuid.UUID) ([]*dto.GetAllDocumentsResponse, error)
	Delete(ctx context.Context, userId uuid.UUID, id uuid.UUID) error
}

type documentService struct {
	uowFactory       unitofwork.RepositoryFactory
	publisherService IPublisherService
	eventPublisher   *pktNats.Publisher
	logger           logger.ILogger
}

func NewDocumentService(
	uowFactory unitofwork.RepositoryFactory,
	publisherService IPublisherService,
	eventPublisher *pktNats.Publisher,
	log logger.ILogger,
) IDocumentService {
	return &documentService{
		uowFactory:       uowFactory,
		publisherService: publisherService,
		eventPublisher:   eventPublisher,
		logger:           log,
	}
}

// Upload stores the raw document and queues the chunk-and-embed job. The
// document stays in status "pending" until the consumer finishes.
func (s *documentService) Upload(ctx context.Context, userId uuid.UUID, req *dto.UploadDocumentRequest) (*dto.UploadDocumentResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	document := entity.Document{
		Id:         uuid.New(),
		Title:      req.Title,
		SourceName: req.SourceName,
		Content:    req.Content,
		Status:     entity.DocumentStatusPending,
		UserId:     userId,
		CreatedAt:  time.Now(),
	}

	if err := uow.DocumentRepository().Create(ctx, &document); err != nil {
		return nil, err
	}

	msgPayload := dto.PublishEmbedDocumentMessage{
		DocumentId: document.Id,
	}
	msgJson, err := json.Marshal(msgPayload)
	if err != nil {
		return nil, err
	}
	if err := s.publisherService.Publish(ctx, msgJson); err != nil {
		return nil, err
	}

	// Event publish is auxiliary; a dead bus must not fail the upload.
	if s.eventPublisher != nil {
		evt := events.NewDocumentUploaded(document.Id, userId, document.Title)
		if err := s.eventPublisher.Publish(ctx, evt); err != nil {
			s.logger.Warn("service.document", "Failed to publish DOCUMENT_UPLOADED event", map[string]interface{}{
				"document_id": document.Id.String(),
				"error":       err.Error(),
			})
		}
	}

	return &dto.UploadDocumentResponse{
		Id:     document.Id,
		Status: document.Status,
	}, nil
}

func (s *documentService) GetAll(ctx context.Context, userId uuid.UUID) ([]*dto.GetAllDocumentsResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	documents, err := uow.DocumentRepository().FindAll(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.OrderBy{Field: "created_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}

	response := make([]*dto.GetAllDocumentsResponse, 0, len(documents))
	for _, doc := range documents {
		chunkCount, err := uow.DocumentChunkRepository().Count(ctx,
			specification.ByDocumentID{DocumentID: doc.Id},
		)
		if err != nil {
			return nil, err
		}
		response = append(response, &dto.GetAllDocumentsResponse{
			Id:         doc.Id,
			Title:      doc.Title,
			SourceName: doc.SourceName,
			Status:     doc.Status,
			ChunkCount: chunkCount,
			CreatedAt:  doc.CreatedAt,
			UpdatedAt:  doc.UpdatedAt,
		})
	}

	return response, nil
}

// Delete removes the document and its chunks in one transaction.
func (s *documentService) Delete(ctx context.Context, userId uuid.UUID, id uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	document, err := uow.DocumentRepository().FindOne(ctx,
		specification.ByID{ID: id},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return err
	}
	if document == nil {
		return fmt.Errorf("document not found or access denied")
	}

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.DocumentChunkRepository().DeleteByDocumentId(ctx, id); err != nil {
		return err
	}
	if err := uow.DocumentRepository().Delete(ctx, id); err != nil {
		return err
	}

	return uow.Commit()
}
