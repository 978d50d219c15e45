package memory

import (
	"time"

	"ai-tutoring-be/pkg/store"

	"github.com/patrickmn/go-cache"
)

const (
	defaultSessionTTL  = 1 * time.Hour
	defaultPurgePeriod = 10 * time.Minute
)

// SessionRepository keeps live dialogue sessions in process memory. A
// session silently expires after the TTL of inactivity; every Save renews
// it.
type SessionRepository struct {
	cache *cache.Cache
}

func NewSessionRepository(ttl time.Duration) *SessionRepository {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &SessionRepository{
		cache: cache.New(ttl, defaultPurgePeriod),
	}
}

func (r *SessionRepository) Save(session *store.Session) {
	r.cache.Set(session.ID, session, cache.DefaultExpiration)
}

func (r *SessionRepository) Get(sessionID string) (*store.Session, bool) {
	if x, found := r.cache.Get(sessionID); found {
		return x.(*store.Session), true
	}
	return nil, false
}

func (r *SessionRepository) Delete(sessionID string) {
	r.cache.Delete(sessionID)
}
