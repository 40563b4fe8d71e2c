package user

import (
	"net/http"
	"time"

	"github.com/nekogravitycat/class-booking-backend/internal/access"
	"github.com/nekogravitycat/class-booking-backend/internal/pkg/apperror"
)

var (
	ErrNotFound           = apperror.New(http.StatusNotFound, "user not found")
	ErrUsernameTaken      = apperror.New(http.StatusConflict, "username already taken")
	ErrInvalidCredentials = apperror.New(http.StatusUnauthorized, "invalid username or password")
	ErrUsernameRequired   = apperror.New(http.StatusBadRequest, "username is required")
	ErrPasswordTooShort   = apperror.New(http.StatusBadRequest, "password is too short")
	ErrPasswordTooLong    = apperror.New(http.StatusBadRequest, "password is too long")
	ErrInvalidRole        = apperror.New(http.StatusBadRequest, "invalid role")
	ErrUnknownPrincipal   = apperror.New(http.StatusUnauthorized, "user no longer exists")
)

// User represents an account that can sign in.
type User struct {
	ID           string // UUID
	Username     string
	PasswordHash string
	Role         access.Role
	CreatedAt    time.Time
}

// Principal returns the authorization identity of u.
func (u *User) Principal() *access.Principal {
	return &access.Principal{ID: u.ID, Name: u.Username, Role: u.Role}
}

// UserFilter defines filter options for listing users.
type UserFilter struct {
	Username string
	Role     access.Role

	Page     int
	PageSize int
}
