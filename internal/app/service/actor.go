package service

import "errors"

// ErrSessionRequired means an anonymous caller reached a session-scoped
// operation without a session key. The HTTP layer issues keys before calling.
var ErrSessionRequired = errors.New("session key required")

// Actor is the identity a request runs as: a logged-in user or an anonymous
// browser session. UserID wins when both are set.
type Actor struct {
	UserID     uint
	SessionKey string
}

func (a Actor) IsAuthenticated() bool {
	return a.UserID != 0
}

func (a Actor) logFields() map[string]interface{} {
	if a.IsAuthenticated() {
		return map[string]interface{}{"user_id": a.UserID}
	}
	return map[string]interface{}{"session_key": a.SessionKey}
}
