package testutil

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nekogravitycat/class-booking-backend/internal/access"
	"github.com/nekogravitycat/class-booking-backend/internal/class"
	"github.com/nekogravitycat/class-booking-backend/internal/user"
)

// SeedUser stores a user with the given role and returns its principal.
func (s *Store) SeedUser(name string, role access.Role) *access.Principal {
	u := user.User{ID: uuid.NewString(), Username: name, PasswordHash: "x", Role: role}
	s.PutUser(u)
	return u.Principal()
}

// SeedClass stores a class with the given capacity.
func (s *Store) SeedClass(name string, capacity int) class.Class {
	c := class.Class{
		ID:       uuid.NewString(),
		Name:     name,
		Time:     "Mon 18:00",
		Capacity: capacity,
		Price:    decimal.NewFromInt(15),
		Trainer:  "Sam",
	}
	s.PutClass(c)
	return c
}
