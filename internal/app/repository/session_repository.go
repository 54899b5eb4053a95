package repository

import (
	"context"
	"time"

	"github.com/ikkim/tshirt-backend/internal/app/model"
	"github.com/ikkim/tshirt-backend/pkg/logger"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SessionRepository interface {
	// Find returns the session if it exists and has not expired
	Find(ctx context.Context, key string, now time.Time) (*model.Session, error)
	// Update rewrites the session's data under a row lock and sets its expiry.
	// fn receives nil for a missing or expired session.
	Update(ctx context.Context, key string, now, expiresAt time.Time, fn func(data datatypes.JSON) (datatypes.JSON, error)) error
	Delete(ctx context.Context, key string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type sessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) Find(ctx context.Context, key string, now time.Time) (*model.Session, error) {
	var session model.Session
	err := r.db.WithContext(ctx).
		Where("key = ? AND expires_at > ?", key, now).
		First(&session).Error
	if err != nil {
		logFindError("Failed to find session in database", err, map[string]interface{}{
			"session_key": key,
		})
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepository) Update(
	ctx context.Context,
	key string,
	now, expiresAt time.Time,
	fn func(data datatypes.JSON) (datatypes.JSON, error),
) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Make sure a row exists so concurrent first writes queue on one lock
		placeholder := &model.Session{Key: key, Data: datatypes.JSON("{}"), ExpiresAt: expiresAt}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(placeholder).Error; err != nil {
			return err
		}

		var session model.Session
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("key = ?", key).
			First(&session).Error; err != nil {
			return err
		}

		current := session.Data
		if !session.ExpiresAt.After(now) {
			current = nil
		}
		data, err := fn(current)
		if err != nil {
			return err
		}

		return tx.Model(&model.Session{}).
			Where("key = ?", key).
			Updates(map[string]interface{}{
				"data":       data,
				"expires_at": expiresAt,
			}).Error
	})
	if err != nil {
		logger.Error("Failed to update session in database", err, map[string]interface{}{
			"session_key": key,
		})
		return err
	}
	return nil
}

func (r *sessionRepository) Delete(ctx context.Context, key string) error {
	if err := r.db.WithContext(ctx).Where("key = ?", key).Delete(&model.Session{}).Error; err != nil {
		logger.Error("Failed to delete session from database", err, map[string]interface{}{
			"session_key": key,
		})
		return err
	}
	return nil
}

func (r *sessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&model.Session{})
	if result.Error != nil {
		logger.Error("Failed to delete expired sessions from database", result.Error)
		return 0, result.Error
	}

	logger.Debug("Expired sessions deleted from database", map[string]interface{}{
		"deleted": result.RowsAffected,
	})
	return result.RowsAffected, nil
}
