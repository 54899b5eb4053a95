package controller

import (
	"github.com/gin-gonic/gin"
	"github.com/ikkim/tshirt-backend/internal/app/service"
	"github.com/ikkim/tshirt-backend/internal/middleware"
)

// currentActor is the request identity without side effects: an anonymous
// visitor with no cookie gets an empty session key.
func currentActor(c *gin.Context) service.Actor {
	userID, _ := middleware.GetUserID(c)
	return service.Actor{
		UserID:     userID,
		SessionKey: middleware.GetSessionKey(c),
	}
}

// sessionActor is currentActor, except anonymous visitors are issued a
// session key first so session-scoped writes have somewhere to land. An
// existing cookie is re-sent so it lives as long as the session it names.
func sessionActor(c *gin.Context) service.Actor {
	actor := currentActor(c)
	if !actor.IsAuthenticated() {
		actor.SessionKey = middleware.EnsureSessionKey(c)
	}
	return actor
}
