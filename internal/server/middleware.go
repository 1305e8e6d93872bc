package server

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// HeaderActor carries the authenticated party's id. Authentication itself
// happens upstream at the gateway; this service trusts the header.
const (
	HeaderActor       = "X-Actor-ID"
	contextActorIDKey = "actor_id"
)

func (s *Server) ActorRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := strings.TrimSpace(c.GetHeader(HeaderActor))
		if actor == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		c.Set(contextActorIDKey, actor)
		c.Next()
	}
}

func actorID(c *gin.Context) string {
	return c.GetString(contextActorIDKey)
}

// SubmitRateLimit throttles offer submissions per actor. Without redis
// the limiter is nil and every submission passes.
func (s *Server) SubmitRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.submitLimiter == nil {
			c.Next()
			return
		}

		allowed, retryAfter := s.submitLimiter.Allow(c.Request.Context(), actorID(c))
		if !allowed {
			if retryAfter > 0 {
				c.Header("Retry-After", strconv.Itoa(int(retryAfter.Seconds())+1))
			}
			AbortWithError(c, ErrTooManyOffers)
			return
		}
		c.Next()
	}
}
