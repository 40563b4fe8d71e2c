// Package access decides whether a principal may run an operation.
// It holds no state and performs no I/O.
package access

import (
	"net/http"

	"github.com/nekogravitycat/class-booking-backend/internal/pkg/apperror"
)

var (
	ErrUnauthenticated = apperror.New(http.StatusUnauthorized, "authentication required")
	ErrForbidden       = apperror.New(http.StatusForbidden, "permission denied")
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Principal is an authenticated actor.
type Principal struct {
	ID   string
	Name string
	Role Role
}

func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}

// Operation names an action guarded by the policy.
type Operation string

const (
	OpViewOverview    Operation = "overview.view"
	OpCreateBooking   Operation = "booking.create"
	OpCancelBooking   Operation = "booking.cancel"
	OpDecideBooking   Operation = "booking.decide"
	OpListOwnBookings Operation = "booking.list_own"
	OpListAllBookings Operation = "booking.list_all"
	OpAddClass        Operation = "class.add"
	OpRemoveClass     Operation = "class.remove"
	OpListUsers       Operation = "user.list"
)

// requiredRole maps each operation to the only role allowed to run it.
// An empty role means any authenticated principal.
var requiredRole = map[Operation]Role{
	OpCreateBooking:   RoleUser,
	OpCancelBooking:   RoleUser,
	OpDecideBooking:   RoleAdmin,
	OpListOwnBookings: "",
	OpListAllBookings: RoleAdmin,
	OpAddClass:        RoleAdmin,
	OpRemoveClass:     RoleAdmin,
	OpListUsers:       RoleAdmin,
}

// Authorize returns nil when p may run op, ErrUnauthenticated when op needs a
// principal and p is nil, and ErrForbidden otherwise.
//
// Ownership of a booking is not checked here: the lifecycle engine filters
// by owner so that foreign bookings look absent rather than forbidden.
func Authorize(p *Principal, op Operation) error {
	if op == OpViewOverview {
		return nil
	}

	role, known := requiredRole[op]
	if !known {
		return ErrForbidden
	}
	if p == nil || p.ID == "" {
		return ErrUnauthenticated
	}
	if role != "" && p.Role != role {
		return ErrForbidden
	}
	return nil
}

// Scope describes which bookings and users a principal may list.
type Scope struct {
	// All is true for admins.
	All bool
	// UserID restricts the listing to one owner when All is false.
	UserID string
	// None is true for anonymous callers, who see no bookings at all.
	None bool
}

// BookingScope returns the listing scope of p.
func BookingScope(p *Principal) Scope {
	switch {
	case p == nil || p.ID == "":
		return Scope{None: true}
	case p.Role == RoleAdmin:
		return Scope{All: true}
	default:
		return Scope{UserID: p.ID}
	}
}
