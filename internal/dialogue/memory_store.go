package dialogue

import (
	"context"
	"log/slog"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/JamesPrial/komikshub-bot/pkg/logging"
)

// MemoryStore keeps sessions in process memory and forgets them after ttl
// of inactivity.
type MemoryStore struct {
	cache   *cache.Cache
	ttl     time.Duration
	logger  *slog.Logger
	metrics *logging.MetricsCollector
}

// NewMemoryStore creates a store whose sessions expire after ttl. Expired
// sessions are purged every ttl.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	s := &MemoryStore{
		cache:   cache.New(ttl, ttl),
		ttl:     ttl,
		logger:  logging.GetGlobalLogger("dialogue.memory"),
		metrics: logging.GetGlobalMetricsCollector(),
	}
	s.cache.OnEvicted(func(key string, _ interface{}) {
		s.logger.Debug("Session expired", slog.String("session", key))
		s.reportSize()
	})
	return s
}

// Load returns the session for key, or an Idle session
func (s *MemoryStore) Load(ctx context.Context, key Key) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}
	if x, found := s.cache.Get(key.String()); found {
		return x.(Session), nil
	}
	return Session{Mode: Idle}, nil
}

// Save stores sess under key. Idle sessions are deleted instead.
func (s *MemoryStore) Save(ctx context.Context, key Key, sess Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if sess.IsIdle() {
		return s.Delete(ctx, key)
	}
	sess.UpdatedAt = time.Now().UTC()
	sess.Fields = append([]Field(nil), sess.Fields...)
	s.cache.Set(key.String(), sess, cache.DefaultExpiration)
	s.reportSize()
	return nil
}

// Delete forgets the session for key
func (s *MemoryStore) Delete(_ context.Context, key Key) error {
	s.cache.Delete(key.String())
	s.reportSize()
	return nil
}

// Len returns the number of live sessions
func (s *MemoryStore) Len() int {
	return s.cache.ItemCount()
}

func (s *MemoryStore) reportSize() {
	s.metrics.SetActiveSessions(s.cache.ItemCount())
}

// Close drops every session
func (s *MemoryStore) Close() error {
	s.cache.Flush()
	s.reportSize()
	return nil
}
