package user

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/nekogravitycat/class-booking-backend/internal/access"
	"github.com/nekogravitycat/class-booking-backend/internal/auth"
	"github.com/nekogravitycat/class-booking-backend/internal/pkg/apperror"
)

// Service defines business logic related to users.
type Service interface {
	Register(ctx context.Context, username, password string) (*User, error)
	Login(ctx context.Context, username, password string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	List(ctx context.Context, p *access.Principal, filter UserFilter) ([]*User, int, error)
	// Visible returns the users p may see: everyone (first page) for admins,
	// only p itself for users, nobody for anonymous callers.
	Visible(ctx context.Context, p *access.Principal) ([]*User, error)
	// EnsureAdmin creates the admin account if no user named username exists.
	EnsureAdmin(ctx context.Context, username, password string) error
	// PrincipalByID resolves the current identity and role of a user.
	PrincipalByID(ctx context.Context, id string) (*access.Principal, error)
}

type service struct {
	repo   Repository
	hasher auth.PasswordHasher

	minPasswordLength int
}

// NewService creates a new user Service.
func NewService(repo Repository, hasher auth.PasswordHasher) Service {
	return &service{
		repo:              repo,
		hasher:            hasher,
		minPasswordLength: 6,
	}
}

func (s *service) Register(ctx context.Context, username, password string) (*User, error) {
	return s.create(ctx, username, password, access.RoleUser)
}

func (s *service) create(ctx context.Context, username, password string, role access.Role) (*User, error) {
	clean := normalizeUsername(username)
	if clean == "" {
		return nil, ErrUsernameRequired
	}
	if len(password) < s.minPasswordLength {
		return nil, ErrPasswordTooShort
	}

	hash, err := s.hasher.Hash(password)
	if errors.Is(err, auth.ErrPasswordTooLong) {
		return nil, ErrPasswordTooLong
	}
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	u := &User{
		ID:           uuid.NewString(),
		Username:     clean,
		PasswordHash: hash,
		Role:         role,
	}

	// The unique constraint on username decides races between registrations.
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, apperror.From(err)
	}

	return u, nil
}

func (s *service) Login(ctx context.Context, username, password string) (*User, error) {
	clean := normalizeUsername(username)
	if clean == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	u, err := s.repo.GetByUsername(ctx, clean)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, apperror.From(err)
	}

	if err := s.hasher.Compare(u.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}

	return u, nil
}

func (s *service) GetByID(ctx context.Context, id string) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.From(err)
	}
	return u, nil
}

func (s *service) List(ctx context.Context, p *access.Principal, filter UserFilter) ([]*User, int, error) {
	if err := access.Authorize(p, access.OpListUsers); err != nil {
		return nil, 0, err
	}
	if filter.Role != "" && !filter.Role.Valid() {
		return nil, 0, ErrInvalidRole
	}

	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, apperror.From(err)
	}
	if users == nil {
		users = []*User{}
	}
	return users, total, nil
}

func (s *service) Visible(ctx context.Context, p *access.Principal) ([]*User, error) {
	scope := access.BookingScope(p)
	switch {
	case scope.None:
		return []*User{}, nil
	case scope.All:
		users, _, err := s.List(ctx, p, UserFilter{Page: 1, PageSize: 100})
		return users, err
	}

	u, err := s.GetByID(ctx, scope.UserID)
	if err != nil {
		return nil, err
	}
	return []*User{u}, nil
}

func (s *service) EnsureAdmin(ctx context.Context, username, password string) error {
	clean := normalizeUsername(username)
	existing, err := s.repo.GetByUsername(ctx, clean)
	if err == nil {
		if existing.Role != access.RoleAdmin {
			log.Printf("warning: bootstrap admin %q exists with role %q", clean, existing.Role)
		}
		return nil
	}
	if !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("failed to look up admin: %w", err)
	}

	if _, err := s.create(ctx, clean, password, access.RoleAdmin); err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			return nil
		}
		return fmt.Errorf("failed to create admin: %w", err)
	}
	log.Printf("created admin account %q", clean)
	return nil
}

func (s *service) PrincipalByID(ctx context.Context, id string) (*access.Principal, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrUnknownPrincipal
		}
		return nil, apperror.From(err)
	}
	return u.Principal(), nil
}

// normalizeUsername trims spaces and lowercases the username.
func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
