package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/nekogravitycat/class-booking-backend/internal/access"
)

// ErrNoCredentials is returned when a request carries no Authorization header.
var ErrNoCredentials = errors.New("missing Authorization header")

// PrincipalResolver turns an Authorization header value into a principal.
type PrincipalResolver interface {
	Resolve(ctx context.Context, header string) (*access.Principal, error)
}

// PrincipalSource loads the current principal of a user id.
type PrincipalSource interface {
	PrincipalByID(ctx context.Context, id string) (*access.Principal, error)
}

type jwtResolver struct {
	jwt    *JWTManager
	source PrincipalSource
}

// NewJWTResolver resolves bearer tokens issued by m. The role comes from
// source, so a role change takes effect without reissuing tokens.
func NewJWTResolver(m *JWTManager, source PrincipalSource) PrincipalResolver {
	return &jwtResolver{jwt: m, source: source}
}

func (r *jwtResolver) Resolve(ctx context.Context, header string) (*access.Principal, error) {
	if header == "" {
		return nil, ErrNoCredentials
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return nil, access.ErrUnauthenticated
	}

	claims, err := r.jwt.ParseAndValidate(strings.TrimSpace(parts[1]))
	if err != nil {
		return nil, access.ErrUnauthenticated
	}

	return r.source.PrincipalByID(ctx, claims.UserID())
}
