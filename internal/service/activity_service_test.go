package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"ai-tutoring-be/internal/entity"
	"ai-tutoring-be/internal/repository/specification"
	"ai-tutoring-be/pkg/events"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturingActivityRepo struct {
	created   []*entity.ActivityLog
	createErr error
}

func (r *capturingActivityRepo) Create(ctx context.Context, log *entity.ActivityLog) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.created = append(r.created, log)
	return nil
}

func (r *capturingActivityRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ActivityLog, error) {
	return r.created, nil
}

func (r *capturingActivityRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	return int64(len(r.created)), nil
}

type nopLogger struct{}

func (nopLogger) Debug(module, message string, details map[string]interface{}) {}
func (nopLogger) Info(module, message string, details map[string]interface{})  {}
func (nopLogger) Warn(module, message string, details map[string]interface{})  {}
func (nopLogger) Error(module, message string, details map[string]interface{}) {}
func (nopLogger) Sync() error                                                  { return nil }

func TestActivityRecordStoresStructuredPayload(t *testing.T) {
	repo := &capturingActivityRepo{}
	svc := &activityService{repo: repo, logger: nopLogger{}}

	sessionId := uuid.New()
	userId := uuid.New()
	evt := events.NewThreadResolved(sessionId, userId, 2, "strong")

	require.NoError(t, svc.record(context.Background(), evt))
	require.Len(t, repo.created, 1)

	row := repo.created[0]
	assert.Equal(t, events.TypeThreadResolved, row.EventType)
	require.NotNil(t, row.UserId)
	assert.Equal(t, userId, *row.UserId)

	// The payload column is JSON, not an opaque string: it must unmarshal
	// back into the event's fields.
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(row.Payload, &payload))
	assert.Equal(t, sessionId.String(), payload["session_id"])
	assert.Equal(t, "strong", payload["tier"])
}

func TestActivityRecordReturnsErrorForRedelivery(t *testing.T) {
	repo := &capturingActivityRepo{createErr: errors.New("db down")}
	svc := &activityService{repo: repo, logger: nopLogger{}}

	evt := events.NewSessionReset(uuid.New(), uuid.New())
	require.Error(t, svc.record(context.Background(), evt))
}
