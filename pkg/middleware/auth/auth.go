// Package auth provides the single bearer-token check the admin surface
// uses. spec.md §1 scopes authentication to "a bearer token" explicitly,
// so this intentionally stops short of the claims/refresh machinery a JWT
// library exists to serve.
package auth

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "github.com/pytanis-go/pretalx-core/pkg/errors"
	"github.com/pytanis-go/pretalx-core/pkg/response"
)

// Bearer rejects any request whose Authorization header does not carry
// the configured token. An empty configured token disables the check
// (useful for local development against a throwaway instance).
func Bearer(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, apperrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(token)) != 1 {
			response.Error(c, apperrors.ErrUnauthorized)
			c.Abort()
			return
		}

		c.Next()
	}
}
