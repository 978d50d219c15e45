package service

import (
	"context"
	"encoding/json"
	"time"

	"ai-tutoring-be/internal/entity"
	"ai-tutoring-be/internal/pkg/logger"
	"ai-tutoring-be/internal/repository/contract"
	"ai-tutoring-be/pkg/events"
	pktNats "ai-tutoring-be/pkg/nats"

	"github.com/google/uuid"
)

// IActivityService records every domain event into the activity log for
// audit. It rides the NATS bus with a durable consumer, so events
// published while the service was down are replayed on restart.
type IActivityService interface {
	Start() error
}

type activityService struct {
	repo       contract.ActivityLogRepository
	subscriber *pktNats.Subscriber
	logger     logger.ILogger
}

func NewActivityService(
	repo contract.ActivityLogRepository,
	subscriber *pktNats.Subscriber,
	log logger.ILogger,
) IActivityService {
	return &activityService{
		repo:       repo,
		subscriber: subscriber,
		logger:     log,
	}
}

func (s *activityService) Start() error {
	return s.subscriber.Subscribe("events.>", "activity-log", s.record)
}

func (s *activityService) record(ctx context.Context, event events.Event) error {
	payload := event.Payload()

	var userId *uuid.UUID
	if raw, ok := payload["user_id"].(string); ok {
		if parsed, err := uuid.Parse(raw); err == nil {
			userId = &parsed
		}
	}

	var payloadJSON json.RawMessage
	if data, err := json.Marshal(payload); err == nil {
		payloadJSON = data
	}

	row := &entity.ActivityLog{
		Id:        uuid.New(),
		EventType: event.EventType(),
		UserId:    userId,
		Payload:   payloadJSON,
		CreatedAt: time.Now(),
	}

	if err := s.repo.Create(ctx, row); err != nil {
		s.logger.Error("service.activity", "Failed to record activity", map[string]interface{}{
			"event_type": event.EventType(),
			"error":      err.Error(),
		})
		return err // Nak, the durable consumer redelivers
	}

	s.logger.Debug("service.activity", "Activity recorded", map[string]interface{}{
		"event_type": event.EventType(),
	})
	return nil
}
