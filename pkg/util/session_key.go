package util

import (
	"github.com/google/uuid"
)

// NewSessionKey issues an opaque anonymous session handle
func NewSessionKey() string {
	return uuid.NewString()
}

// IsValidSessionKey rejects handles that could not have been issued by NewSessionKey
func IsValidSessionKey(key string) bool {
	if key == "" {
		return false
	}
	_, err := uuid.Parse(key)
	return err == nil
}
