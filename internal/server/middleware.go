package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

// HeaderActor identifies the acting user. Token-based authentication is
// handled upstream; by the time requests reach this service the gateway
// has already resolved the identity into this header.
const (
	HeaderActor       = "X-Actor-Id"
	contextActorIDKey = "actor_id"
)

func (s *Server) ActorRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderActor))
		if raw == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		actorID, err := snowflake.ParseString(raw)
		if err != nil || actorID == 0 {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		c.Set(contextActorIDKey, actorID)
		c.Next()
	}
}

func actorID(c *gin.Context) snowflake.ID {
	value, ok := c.Get(contextActorIDKey)
	if !ok {
		return 0
	}
	id, ok := value.(snowflake.ID)
	if !ok {
		return 0
	}
	return id
}

func pathID(c *gin.Context, name string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param(name)))
	if err != nil || id == 0 {
		return 0, newValidationError(name, "invalid_id", "invalid identifier")
	}
	return id, nil
}
