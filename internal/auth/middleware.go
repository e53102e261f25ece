package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const contextKey = "babyzen.auth"

// RequireUser rejects requests without a valid bearer token with 401
func RequireUser(v *Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		ac, err := v.Verify(c.GetHeader("Authorization"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Set(contextKey, ac)
		c.Next()
	}
}

// FromGin returns the identity stored by RequireUser
func FromGin(c *gin.Context) (AuthContext, bool) {
	v, ok := c.Get(contextKey)
	if !ok {
		return AuthContext{}, false
	}
	ac, ok := v.(AuthContext)
	return ac, ok
}
