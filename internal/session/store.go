package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ikkim/tshirt-backend/config"
	"github.com/ikkim/tshirt-backend/internal/app/repository"
	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when the session or the requested field is absent
var ErrNotFound = errors.New("session field not found")

// Store keeps anonymous per-browser state as named JSON fields under an
// opaque session key.
type Store interface {
	Get(ctx context.Context, key, field string) (json.RawMessage, error)
	Set(ctx context.Context, key, field string, value json.RawMessage) error
	Delete(ctx context.Context, key string) error
	// Purge drops expired sessions and reports how many were removed
	Purge(ctx context.Context) (int64, error)
}

// NewStore builds the backend selected by cfg.Backend
func NewStore(cfg *config.SessionConfig, sessions repository.SessionRepository, rdb *redis.Client) (Store, error) {
	switch cfg.Backend {
	case "db":
		return NewDBStore(sessions, cfg.TTL), nil
	case "redis":
		if rdb == nil {
			return nil, errors.New("redis session backend requires a redis client")
		}
		return NewRedisStore(rdb, cfg.TTL), nil
	default:
		return nil, fmt.Errorf("unsupported session backend %q", cfg.Backend)
	}
}

func ttlOrDefault(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 14 * 24 * time.Hour
	}
	return ttl
}
