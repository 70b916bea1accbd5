package dialogue

import (
	"context"
	"fmt"
	"strconv"

	"github.com/JamesPrial/komikshub-bot/pkg/config"
)

// Key identifies a session. The same user has separate sessions per chat.
type Key struct {
	UserID int64
	ChatID int64
}

func (k Key) String() string {
	return strconv.FormatInt(k.UserID, 10) + ":" + strconv.FormatInt(k.ChatID, 10)
}

// Store persists sessions between inputs. Load returns an Idle session for
// unknown or expired keys.
type Store interface {
	Load(ctx context.Context, key Key) (Session, error)
	Save(ctx context.Context, key Key, s Session) error
	Delete(ctx context.Context, key Key) error
	Close() error
}

// Locker is implemented by stores shared between bot instances. Lock holds
// one session across all of them until the returned func is called.
type Locker interface {
	Lock(ctx context.Context, key Key) (unlock func(), err error)
}

// NewStore creates the session store selected by cfg
func NewStore(ctx context.Context, cfg *config.Settings) (Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}
	switch cfg.Session.Store {
	case config.SessionRedis:
		store, err := NewRedisStore(ctx, cfg.Session.RedisURL, cfg.Session.RedisPrefix, cfg.Session.TTL)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.SessionMemory, "":
		return NewMemoryStore(cfg.Session.TTL), nil
	default:
		return nil, fmt.Errorf("unsupported session store: %s", cfg.Session.Store)
	}
}
