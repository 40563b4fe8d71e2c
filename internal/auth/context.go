package auth

import (
	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/class-booking-backend/internal/access"
)

const principalKey = "principal"

// SetPrincipal stores p in the gin context.
func SetPrincipal(c *gin.Context, p *access.Principal) {
	c.Set(principalKey, p)
}

// GetPrincipal returns the authenticated principal or nil.
func GetPrincipal(c *gin.Context) *access.Principal {
	if v, ok := c.Get(principalKey); ok {
		if p, ok := v.(*access.Principal); ok {
			return p
		}
	}
	return nil
}
