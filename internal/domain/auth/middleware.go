package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/arth-1/socialpost/internal/utils"
)

// ContextSubjectKey holds the verified token subject on the gin context.
const ContextSubjectKey = "auth.subject"

// Middleware rejects requests without a valid "Authorization: Bearer" token.
func Middleware(tokens *AuthToken, logger *utils.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		claims, err := tokens.VerifyToken(strings.TrimSpace(raw))
		if err != nil {
			logger.WarnTag("认证", "拒绝请求 %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Set(ContextSubjectKey, claims.Subject)
		c.Next()
	}
}
