package memory

import (
	"context"
	"encoding/json"
	"time"

	"ai-tutoring-be/internal/pkg/logger"
	"ai-tutoring-be/pkg/store"

	"github.com/redis/go-redis/v9"
)

const redisSessionPrefix = "tutor:session:"

// RedisSessionRepository keeps live dialogue sessions in Redis so several
// instances can share them. Values are JSON with the same inactivity TTL
// as the in-process store.
type RedisSessionRepository struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger logger.ILogger
}

func NewRedisSessionRepository(rdb *redis.Client, ttl time.Duration, log logger.ILogger) *RedisSessionRepository {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &RedisSessionRepository{
		rdb:    rdb,
		ttl:    ttl,
		logger: log,
	}
}

func (r *RedisSessionRepository) Save(session *store.Session) {
	payload, err := json.Marshal(session)
	if err != nil {
		r.logger.Error("repository.session.redis", "Failed to marshal session", map[string]interface{}{
			"session_id": session.ID,
			"error":      err.Error(),
		})
		return
	}
	if err := r.rdb.Set(context.Background(), redisSessionPrefix+session.ID, payload, r.ttl).Err(); err != nil {
		r.logger.Error("repository.session.redis", "Failed to save session", map[string]interface{}{
			"session_id": session.ID,
			"error":      err.Error(),
		})
	}
}

func (r *RedisSessionRepository) Get(sessionID string) (*store.Session, bool) {
	payload, err := r.rdb.Get(context.Background(), redisSessionPrefix+sessionID).Bytes()
	if err != nil {
		if err != redis.Nil {
			r.logger.Error("repository.session.redis", "Failed to load session", map[string]interface{}{
				"session_id": sessionID,
				"error":      err.Error(),
			})
		}
		return nil, false
	}

	var session store.Session
	if err := json.Unmarshal(payload, &session); err != nil {
		r.logger.Error("repository.session.redis", "Corrupt session payload, dropping", map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		})
		r.Delete(sessionID)
		return nil, false
	}
	return &session, true
}

func (r *RedisSessionRepository) Delete(sessionID string) {
	if err := r.rdb.Del(context.Background(), redisSessionPrefix+sessionID).Err(); err != nil {
		r.logger.Error("repository.session.redis", "Failed to delete session", map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		})
	}
}
