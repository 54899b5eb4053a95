package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ikkim/tshirt-backend/internal/app/repository"
	"github.com/ikkim/tshirt-backend/pkg/logger"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DBStore keeps each session as one row with a JSON object of fields.
// Writes extend the expiry by ttl.
type DBStore struct {
	sessions repository.SessionRepository
	ttl      time.Duration
	now      func() time.Time
}

func NewDBStore(sessions repository.SessionRepository, ttl time.Duration) *DBStore {
	return &DBStore{
		sessions: sessions,
		ttl:      ttlOrDefault(ttl),
		now:      time.Now,
	}
}

func (s *DBStore) load(ctx context.Context, key string) (map[string]json.RawMessage, error) {
	row, err := s.sessions.Find(ctx, key, s.now())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	fields := map[string]json.RawMessage{}
	if len(row.Data) > 0 {
		if err := json.Unmarshal(row.Data, &fields); err != nil {
			return nil, fmt.Errorf("decode session %s: %w", key, err)
		}
	}
	return fields, nil
}

func (s *DBStore) Get(ctx context.Context, key, field string) (json.RawMessage, error) {
	fields, err := s.load(ctx, key)
	if err != nil {
		return nil, err
	}
	value, ok := fields[field]
	if !ok || len(value) == 0 || string(value) == "null" {
		return nil, ErrNotFound
	}
	return value, nil
}

// Set replaces one field. The read-modify-write runs under a row lock so
// writes to different fields of the same session do not lose each other.
func (s *DBStore) Set(ctx context.Context, key, field string, value json.RawMessage) error {
	now := s.now()
	err := s.sessions.Update(ctx, key, now, now.Add(s.ttl), func(current datatypes.JSON) (datatypes.JSON, error) {
		fields := map[string]json.RawMessage{}
		if len(current) > 0 {
			if err := json.Unmarshal(current, &fields); err != nil {
				return nil, fmt.Errorf("decode session %s: %w", key, err)
			}
		}
		fields[field] = value

		data, err := json.Marshal(fields)
		if err != nil {
			return nil, fmt.Errorf("encode session %s: %w", key, err)
		}
		return datatypes.JSON(data), nil
	})
	if err != nil {
		return err
	}

	logger.Debug("Session field stored", map[string]interface{}{
		"session_key": key,
		"field":       field,
		"bytes":       len(value),
	})
	return nil
}

func (s *DBStore) Delete(ctx context.Context, key string) error {
	return s.sessions.Delete(ctx, key)
}

func (s *DBStore) Purge(ctx context.Context) (int64, error) {
	return s.sessions.DeleteExpired(ctx, s.now())
}
