package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const ownerContextKey = "owner_id"

// OwnerRequired extracts the authenticated owner id from the X-User-ID
// header set by the auth front. Requests without a valid owner never
// reach a handler.
func OwnerRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader("X-User-ID")
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing user identity"})
			return
		}
		ownerID, err := uuid.Parse(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid user identity"})
			return
		}
		c.Set(ownerContextKey, ownerID)
		c.Next()
	}
}

func ownerFrom(c *gin.Context) uuid.UUID {
	return c.MustGet(ownerContextKey).(uuid.UUID)
}
