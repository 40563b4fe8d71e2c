package auth

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/class-booking-backend/internal/access"
	"github.com/nekogravitycat/class-booking-backend/internal/pkg/response"
)

// AuthRequired rejects requests without a resolvable principal.
func AuthRequired(resolver PrincipalResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := resolver.Resolve(c.Request.Context(), c.GetHeader("Authorization"))
		if err != nil {
			if errors.Is(err, ErrNoCredentials) {
				err = access.ErrUnauthenticated
			}
			response.Abort(c, err)
			return
		}

		SetPrincipal(c, p)
		c.Next()
	}
}

// AuthOptional lets anonymous requests through without a principal, but still
// rejects a credential that is present and invalid.
func AuthOptional(resolver PrincipalResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := resolver.Resolve(c.Request.Context(), c.GetHeader("Authorization"))
		switch {
		case errors.Is(err, ErrNoCredentials):
		case err != nil:
			response.Abort(c, err)
			return
		default:
			SetPrincipal(c, p)
		}
		c.Next()
	}
}
