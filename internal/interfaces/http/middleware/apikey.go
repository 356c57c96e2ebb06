package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/haebom/tariff/pkg/errors"
)

// HeaderAPIKey is checked by RequireAPIKey.
const HeaderAPIKey = "X-API-Key"

// RequireAPIKey rejects requests whose X-API-Key does not equal key.  An
// empty key disables the check.
func RequireAPIKey(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" {
			c.Next()
			return
		}
		got := c.GetHeader(HeaderAPIKey)
		if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    string(errors.ErrCodeUnauthorized),
				"message": "missing or invalid API key",
			})
			return
		}
		c.Next()
	}
}
