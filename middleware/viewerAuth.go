package middleware

import (
	"context"
	"net/http"
	"strings"

	"reelfeed/utils"

	"firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// TokenVerifier verifies Firebase ID tokens; *auth.Client satisfies it.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// FirebaseViewerMiddleware identifies the viewer from a Firebase ID token.
// Requests without an Authorization header continue as guests; a header
// carrying an invalid token is rejected.
func FirebaseViewerMiddleware(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Set(utils.ViewerIDKey, "")
			c.Next()
			return
		}

		idToken, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || strings.TrimSpace(idToken) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Insufficient authorization"})
			return
		}

		token, err := verifier.VerifyIDToken(c.Request.Context(), strings.TrimSpace(idToken))
		if err != nil || token == nil || token.UID == "" {
			zap.L().Debug("rejecting viewer token", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		c.Set(utils.ViewerIDKey, token.UID)
		c.Next()
	}
}
