package auth

import (
	"fmt"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const principalKey = "authUserID"

// Authenticate verifies the bearer token, when one is present, and stashes
// its subject in the request context. It never aborts: the services decide
// what a missing principal means for their path (hard Unauthorized for the
// insight and profile paths, "not onboarded" for the status check).
func Authenticate() gin.HandlerFunc {
	secret := []byte(os.Getenv("JWT_SECRET"))

	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenString == "" {
			c.Next()
			return
		}

		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
			}
			return secret, nil
		}, jwt.WithValidMethods([]string{"HS256"}))
		if err != nil || !token.Valid {
			c.Next()
			return
		}

		sub, err := token.Claims.GetSubject()
		if err == nil && sub != "" {
			c.Set(principalKey, sub)
		}
		c.Next()
	}
}

// Principal returns the verified subject for this request, or "" when the
// request carried no valid token.
func Principal(c *gin.Context) string {
	return c.GetString(principalKey)
}
