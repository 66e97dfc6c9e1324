package middleware

import (
	"reelfeed/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SessionMiddleware reads the client session id, issuing a new one when the
// header is missing or malformed. The id is echoed back in the response.
func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.GetHeader(utils.SessionHeader)
		if _, err := uuid.Parse(sessionID); err != nil {
			sessionID = uuid.NewString()
		}
		c.Set(utils.SessionIDKey, sessionID)
		c.Header(utils.SessionHeader, sessionID)
		c.Next()
	}
}
