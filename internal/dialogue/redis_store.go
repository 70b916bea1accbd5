package dialogue

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/JamesPrial/komikshub-bot/pkg/errors"
	"github.com/JamesPrial/komikshub-bot/pkg/logging"
)

// RedisStore keeps sessions in redis so several bot replicas behind a
// webhook share them. Each session is a JSON value with a TTL that is
// refreshed on every save. Lock serializes a session across replicas with
// a SET NX lease.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *slog.Logger

	lockLease time.Duration
	lockWait  time.Duration
	lockRetry time.Duration
}

// releaseLock deletes a lock only while it still holds our token, so an
// expired lease never frees another replica's lock.
var releaseLock = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// NewRedisStore connects to url. A url that is not a redis:// URL is used
// as a plain host:port address.
func NewRedisStore(ctx context.Context, url, prefix string, ttl time.Duration) (*RedisStore, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		opt = &redis.Options{Addr: url}
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrap(err, errors.ErrCodeSessionUnavailable, "failed to connect to redis")
	}
	return newRedisStore(client, prefix, ttl), nil
}

func newRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	s := &RedisStore{
		client:    client,
		prefix:    prefix,
		ttl:       ttl,
		logger:    logging.GetGlobalLogger("dialogue.redis"),
		lockLease: 15 * time.Second,
		lockWait:  10 * time.Second,
		lockRetry: 25 * time.Millisecond,
	}
	s.logger.Info("Using redis session store", slog.String("addr", client.Options().Addr), slog.Duration("ttl", ttl))
	return s
}

func (s *RedisStore) key(key Key) string {
	return s.prefix + key.String()
}

// Lock takes the lease for key, waiting up to lockWait for another replica
// to release it. The lease expires on its own if the holder dies.
func (s *RedisStore) Lock(ctx context.Context, key Key) (func(), error) {
	lockKey := s.key(key) + ":lock"
	token := uuid.NewString()

	waitCtx, cancel := context.WithTimeout(ctx, s.lockWait)
	defer cancel()
	for {
		ok, err := s.client.SetNX(waitCtx, lockKey, token, s.lockLease).Result()
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeSessionUnavailable, "failed to lock session")
		}
		if ok {
			break
		}
		select {
		case <-waitCtx.Done():
			return nil, errors.Wrap(waitCtx.Err(), errors.ErrCodeSessionUnavailable, "session is locked by another instance")
		case <-time.After(s.lockRetry):
		}
	}

	unlock := func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if err := releaseLock.Run(releaseCtx, s.client, []string{lockKey}, token).Err(); err != nil {
			s.logger.WarnContext(ctx, "Failed to release session lock",
				slog.String("key", key.String()), slog.String("error", err.Error()))
		}
	}
	return unlock, nil
}

// Load returns the session for key, or an Idle session
func (s *RedisStore) Load(ctx context.Context, key Key) (Session, error) {
	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return Session{Mode: Idle}, nil
	}
	if err != nil {
		return Session{}, errors.Wrap(err, errors.ErrCodeSessionUnavailable, "failed to load session")
	}
	return decodeSession(data)
}

func decodeSession(data []byte) (Session, error) {
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return Session{}, errors.Wrap(err, errors.ErrCodeSessionCorrupt, "failed to decode session")
	}
	switch sess.Mode {
	case Idle, AwaitingSearchQuery, Creating:
	default:
		return Session{}, errors.Newf(errors.ErrCodeSessionCorrupt, "unknown session mode %q", sess.Mode)
	}
	return sess, nil
}

// Save stores sess under key. Idle sessions are deleted instead.
func (s *RedisStore) Save(ctx context.Context, key Key, sess Session) error {
	if sess.IsIdle() {
		return s.Delete(ctx, key)
	}
	sess.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(sess)
	if err != nil {
		return errors.Internal(err)
	}
	if err := s.client.Set(ctx, s.key(key), data, s.ttl).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeSessionUnavailable, "failed to save session")
	}
	return nil
}

// Delete forgets the session for key
func (s *RedisStore) Delete(ctx context.Context, key Key) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeSessionUnavailable, "failed to delete session")
	}
	return nil
}

// Close closes the redis client
func (s *RedisStore) Close() error {
	return s.client.Close()
}
